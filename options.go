package festoon

import (
	"slices"
	"sync"
)

// Stickiness governs whether a decoration boundary advances when text is
// inserted exactly at that boundary.
type Stickiness int

const (
	// StickinessAlwaysGrows grows the range on both edges while typing at
	// them. This is the default.
	StickinessAlwaysGrows Stickiness = iota

	// StickinessNeverGrows keeps the range out of text typed at its edges.
	StickinessNeverGrows

	// StickinessGrowsOnlyBefore grows the range only when typing at its
	// start edge.
	StickinessGrowsOnlyBefore

	// StickinessGrowsOnlyAfter grows the range only when typing at its
	// end edge.
	StickinessGrowsOnlyAfter
)

// startSticksToPrevious reports whether the start boundary stays attached
// to the character before it when text is inserted exactly at the boundary.
// A boundary that sticks to the previous character does not move, so the
// inserted text lands inside the range.
func (s Stickiness) startSticksToPrevious() bool {
	return s == StickinessAlwaysGrows || s == StickinessGrowsOnlyBefore
}

// endSticksToPrevious reports whether the end boundary stays attached to
// the character before it when text is inserted exactly at the boundary.
func (s Stickiness) endSticksToPrevious() bool {
	return s == StickinessNeverGrows || s == StickinessGrowsOnlyBefore
}

// OverviewRulerLane selects the vertical lane a decoration occupies in the
// overview ruler.
type OverviewRulerLane int

const (
	// LaneCenter is the default lane.
	LaneCenter OverviewRulerLane = iota
	LaneLeft
	LaneRight
	LaneFull
)

// OverviewRulerOptions describes how a decoration appears in the overview
// ruler. A decoration with all colors empty is not shown in the ruler.
type OverviewRulerOptions struct {
	Color     string
	DarkColor string
	HcColor   string
	Position  OverviewRulerLane
}

// isSet returns true if any ruler color is configured.
func (o OverviewRulerOptions) isSet() bool {
	return o.Color != "" || o.DarkColor != "" || o.HcColor != ""
}

// DecorationOptions is the configuration record accepted when creating or
// updating a decoration. The zero value is a styling-free bundle with
// default stickiness, usable as a tracked range.
type DecorationOptions struct {
	// Stickiness governs boundary movement for insertions at the edges.
	Stickiness Stickiness

	// Style identifiers, sanitized on bundle construction.
	ClassName                 string
	GlyphMarginClassName      string
	LinesDecorationsClassName string
	MarginClassName           string
	InlineClassName           string
	BeforeContentClassName    string
	AfterContentClassName     string

	// Hover text shown over the decorated range / its glyph margin.
	HoverMessage            []string
	GlyphMarginHoverMessage []string

	// IsWholeLine extends the visual decoration over the full line.
	IsWholeLine bool

	// ShowIfCollapsed keeps the decoration visible when its range collapses.
	ShowIfCollapsed bool

	// IsForValidation marks diagnostics decorations, which queries can
	// exclude.
	IsForValidation bool

	// CollapseOnReplace collapses the range to the edit start when an edit
	// replaces the entire range.
	CollapseOnReplace bool

	// OverviewRuler styling. Empty colors mean no ruler presence.
	OverviewRuler OverviewRulerOptions
}

// Options is an immutable, interned decoration option bundle. Bundles are
// created through an OptionsRegistry and shared between decorations; never
// mutate one after creation.
type Options struct {
	id uint32 // non-zero for registered bundles, 0 for dynamic ones

	Stickiness Stickiness

	ClassName                 string
	GlyphMarginClassName      string
	LinesDecorationsClassName string
	MarginClassName           string
	InlineClassName           string
	BeforeContentClassName    string
	AfterContentClassName     string

	HoverMessage            []string
	GlyphMarginHoverMessage []string

	IsWholeLine       bool
	ShowIfCollapsed   bool
	IsForValidation   bool
	CollapseOnReplace bool

	OverviewRuler OverviewRulerOptions
}

// RegistrationID returns the bundle's permanent registration id, or 0 for
// dynamic bundles.
func (o *Options) RegistrationID() uint32 {
	return o.id
}

// showsInRuler returns true if the bundle requests overview ruler display.
func (o *Options) showsInRuler() bool {
	return o.OverviewRuler.isSet()
}

// Equal compares two bundles. Registered bundles compare by id; any pair
// involving a dynamic bundle falls back to full field comparison.
func (o *Options) Equal(other *Options) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.id != 0 && other.id != 0 {
		return o.id == other.id
	}
	return o.fieldsEqual(other)
}

func (o *Options) fieldsEqual(other *Options) bool {
	return o.Stickiness == other.Stickiness &&
		o.ClassName == other.ClassName &&
		o.GlyphMarginClassName == other.GlyphMarginClassName &&
		o.LinesDecorationsClassName == other.LinesDecorationsClassName &&
		o.MarginClassName == other.MarginClassName &&
		o.InlineClassName == other.InlineClassName &&
		o.BeforeContentClassName == other.BeforeContentClassName &&
		o.AfterContentClassName == other.AfterContentClassName &&
		slices.Equal(o.HoverMessage, other.HoverMessage) &&
		slices.Equal(o.GlyphMarginHoverMessage, other.GlyphMarginHoverMessage) &&
		o.IsWholeLine == other.IsWholeLine &&
		o.ShowIfCollapsed == other.ShowIfCollapsed &&
		o.IsForValidation == other.IsForValidation &&
		o.CollapseOnReplace == other.CollapseOnReplace &&
		o.OverviewRuler == other.OverviewRuler
}

// CleanClassName replaces every byte outside [A-Za-z0-9-] with a space,
// preserving the string's length.
func CleanClassName(name string) string {
	clean := []byte(name)
	for i := 0; i < len(clean); i++ {
		c := clean[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			clean[i] = ' '
		}
	}
	return string(clean)
}

// newOptions builds an immutable bundle from a configuration record.
// Class names are sanitized exactly once, here.
func newOptions(id uint32, opts DecorationOptions) *Options {
	return &Options{
		id:                        id,
		Stickiness:                opts.Stickiness,
		ClassName:                 CleanClassName(opts.ClassName),
		GlyphMarginClassName:      CleanClassName(opts.GlyphMarginClassName),
		LinesDecorationsClassName: CleanClassName(opts.LinesDecorationsClassName),
		MarginClassName:           CleanClassName(opts.MarginClassName),
		InlineClassName:           CleanClassName(opts.InlineClassName),
		BeforeContentClassName:    CleanClassName(opts.BeforeContentClassName),
		AfterContentClassName:     CleanClassName(opts.AfterContentClassName),
		HoverMessage:              slices.Clone(opts.HoverMessage),
		GlyphMarginHoverMessage:   slices.Clone(opts.GlyphMarginHoverMessage),
		IsWholeLine:               opts.IsWholeLine,
		ShowIfCollapsed:           opts.ShowIfCollapsed,
		IsForValidation:           opts.IsForValidation,
		CollapseOnReplace:         opts.CollapseOnReplace,
		OverviewRuler:             opts.OverviewRuler,
	}
}

// OptionsRegistry interns option bundles. Registered bundles get a
// permanent, strictly increasing positive id and are deduplicated by field
// value, so identical registrations share one bundle and compare by id.
// Dynamic bundles get id 0 and always compare field by field.
type OptionsRegistry struct {
	mu         sync.Mutex
	nextID     uint32
	registered []*Options

	// One pre-registered stickiness-only bundle per stickiness mode,
	// shared by all tracked ranges.
	tracked [4]*Options
}

// NewOptionsRegistry creates a registry with the four tracked-range
// bundles pre-registered.
func NewOptionsRegistry() *OptionsRegistry {
	reg := &OptionsRegistry{nextID: 1}
	for s := StickinessAlwaysGrows; s <= StickinessGrowsOnlyAfter; s++ {
		reg.tracked[s] = reg.Register(DecorationOptions{Stickiness: s})
	}
	return reg
}

// Register interns a permanent bundle. Registering field-identical options
// returns the previously registered bundle.
func (reg *OptionsRegistry) Register(opts DecorationOptions) *Options {
	candidate := newOptions(0, opts)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, existing := range reg.registered {
		if existing.fieldsEqual(candidate) {
			return existing
		}
	}
	candidate.id = reg.nextID
	reg.nextID++
	reg.registered = append(reg.registered, candidate)
	return candidate
}

// Dynamic creates a one-off bundle with id 0.
func (reg *OptionsRegistry) Dynamic(opts DecorationOptions) *Options {
	return newOptions(0, opts)
}

// Normalize returns the bundle unchanged, or the default tracked-range
// bundle if nil.
func (reg *OptionsRegistry) Normalize(o *Options) *Options {
	if o == nil {
		return reg.tracked[StickinessAlwaysGrows]
	}
	return o
}

// TrackedRangeOptions returns the pre-registered stickiness-only bundle
// for the given stickiness mode.
func (reg *OptionsRegistry) TrackedRangeOptions(s Stickiness) *Options {
	if s < StickinessAlwaysGrows || s > StickinessGrowsOnlyAfter {
		s = StickinessAlwaysGrows
	}
	return reg.tracked[s]
}

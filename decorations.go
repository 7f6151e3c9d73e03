package festoon

import "strconv"

// Decoration is a query-time snapshot of one decoration.
type Decoration struct {
	ID      string
	OwnerID int
	Range   Range
	Options *Options
}

// DecorationSpec describes a decoration to create: a range plus an option
// bundle. A nil Options means the default stickiness-only tracked bundle.
type DecorationSpec struct {
	Range   Range
	Options *Options
}

// AddDecoration creates a decoration over the given range and returns its
// id. The range is clamped to the document bounds and normalized.
func (d *Document) AddDecoration(r Range, opts *Options, ownerID int) string {
	var id string
	d.mutate(func() bool {
		id = d.addLocked(ownerID, r, opts)
		return true
	})
	return id
}

// ChangeDecorationRange moves a decoration to a new range, preserving its
// id and options. Unknown ids are ignored.
func (d *Document) ChangeDecorationRange(id string, r Range) {
	d.mutate(func() bool { return d.changeRangeLocked(id, r) })
}

// ChangeDecorationOptions replaces a decoration's option bundle without
// touching its position. Unknown ids are ignored.
func (d *Document) ChangeDecorationOptions(id string, opts *Options) {
	d.mutate(func() bool { return d.changeOptionsLocked(id, opts) })
}

// RemoveDecoration deletes a decoration. Unknown ids are ignored.
func (d *Document) RemoveDecoration(id string) {
	d.mutate(func() bool { return d.removeLocked(id) })
}

// RemoveAllDecorationsWithOwner deletes every decoration created with the
// given owner id. Owner 0 removes decorations created with owner 0 only.
func (d *Document) RemoveAllDecorationsWithOwner(ownerID int) {
	d.mutate(func() bool {
		refs := d.tree.collectNodesFromOwner(ownerID)
		for _, ref := range refs {
			delete(d.byID, d.tree.node(ref).id)
			d.tree.remove(ref)
			d.tree.release(ref)
		}
		return len(refs) > 0
	})
}

// DeltaDecorations atomically swaps a set of decorations for a new set and
// returns the new ids. Old ids and new specs are processed positionally:
// while both remain, each consumed old id's node is reused for the next
// pending spec (keeping its id); unknown old ids are skipped without
// consuming a spec; leftover specs allocate fresh ids; leftover old ids
// are removed. result[i] is always the id assigned to newSpecs[i].
//
// Passing the same id more than once in oldIDs is a caller error; repeated
// occurrences are skipped like unknown ids.
func (d *Document) DeltaDecorations(ownerID int, oldIDs []string, newSpecs []DecorationSpec) []string {
	result := make([]string, len(newSpecs))
	d.mutate(func() bool {
		result = d.deltaLocked(ownerID, oldIDs, newSpecs)
		return len(oldIDs) > 0 || len(newSpecs) > 0
	})
	return result
}

func (d *Document) deltaLocked(ownerID int, oldIDs []string, newSpecs []DecorationSpec) []string {
	result := make([]string, len(newSpecs))

	var consumed map[string]struct{}
	if len(oldIDs) > 1 {
		consumed = make(map[string]struct{}, len(oldIDs))
	}

	oldIdx, newIdx := 0, 0
	for oldIdx < len(oldIDs) || newIdx < len(newSpecs) {
		ref := sentinel
		live := false
		for oldIdx < len(oldIDs) && !live {
			id := oldIDs[oldIdx]
			oldIdx++
			if consumed != nil {
				if _, dup := consumed[id]; dup {
					continue
				}
				consumed[id] = struct{}{}
			}
			ref, live = d.byID[id]
		}

		if newIdx < len(newSpecs) {
			spec := newSpecs[newIdx]
			if live {
				// Reuse the node, keeping its id.
				n := d.tree.node(ref)
				n.ownerID = ownerID
				n.options = d.options.Normalize(spec.Options)
				start, end := d.rangeToOffsetsLocked(spec.Range)
				d.tree.remove(ref)
				d.tree.insert(ref, start, end, d.versionID)
				result[newIdx] = d.tree.node(ref).id
			} else {
				result[newIdx] = d.addLocked(ownerID, spec.Range, spec.Options)
			}
			newIdx++
		} else if live {
			delete(d.byID, d.tree.node(ref).id)
			d.tree.remove(ref)
			d.tree.release(ref)
		}
	}
	return result
}

// GetDecorationRange returns the decoration's current range, or nil if the
// id is unknown.
func (d *Document) GetDecorationRange(id string) *Range {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.byID[id]
	if !ok {
		return nil
	}
	r := d.nodeRangeLocked(ref)
	return &r
}

// GetDecorationOptions returns the decoration's option bundle, or nil if
// the id is unknown.
func (d *Document) GetDecorationOptions(id string) *Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.byID[id]
	if !ok {
		return nil
	}
	return d.tree.node(ref).options
}

// LineDecorations returns the decorations overlapping one line.
func (d *Document) LineDecorations(line, ownerID int, excludeValidation bool) []Decoration {
	return d.LinesDecorations(line, line, ownerID, excludeValidation)
}

// LinesDecorations returns the decorations overlapping a line span. Both
// line arguments are clamped into [1, LineCount].
func (d *Document) LinesDecorations(startLine, endLine, ownerID int, excludeValidation bool) []Decoration {
	d.mu.Lock()
	defer d.mu.Unlock()

	lineCount := d.index.LineCount()
	startLine = clampInt(startLine, 1, lineCount)
	endLine = clampInt(endLine, 1, lineCount)
	if endLine < startLine {
		startLine, endLine = endLine, startLine
	}

	start := d.index.OffsetAt(startLine, 1)
	end := d.index.OffsetAt(endLine, d.index.LineLength(endLine)+1)
	return d.collectLocked(d.tree.intervalSearch(start, end, ownerID, excludeValidation, d.versionID))
}

// DecorationsInRange returns the decorations overlapping a range. The
// range is clamped and normalized first.
func (d *Document) DecorationsInRange(r Range, ownerID int, excludeValidation bool) []Decoration {
	d.mu.Lock()
	defer d.mu.Unlock()
	start, end := d.rangeToOffsetsLocked(r)
	return d.collectLocked(d.tree.intervalSearch(start, end, ownerID, excludeValidation, d.versionID))
}

// OverviewRulerDecorations returns the decorations shown in the overview
// ruler.
func (d *Document) OverviewRulerDecorations(ownerID int, excludeValidation bool) []Decoration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.collectLocked(d.tree.search(ownerID, excludeValidation, true, d.versionID))
}

// AllDecorations returns every decoration matching the owner filter
// (owner 0 matches all).
func (d *Document) AllDecorations(ownerID int, excludeValidation bool) []Decoration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.collectLocked(d.tree.search(ownerID, excludeValidation, false, d.versionID))
}

// DecorationCount returns the number of live decorations.
func (d *Document) DecorationCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tree.Count()
}

// SetTrackedRange maintains a lightweight position anchor built from the
// pre-registered stickiness-only bundles. Passing a nil range deletes the
// tracked range identified by id; passing a range with an empty or unknown
// id creates a new one; passing both moves it and updates its stickiness.
// Returns the id of the surviving tracked range, or "" after deletion.
func (d *Document) SetTrackedRange(id string, r *Range, stickiness Stickiness) string {
	var out string
	d.mutate(func() bool {
		ref, live := d.byID[id]
		switch {
		case live && r == nil:
			d.removeLocked(id)
			return true
		case live:
			d.tree.node(ref).options = d.options.TrackedRangeOptions(stickiness)
			d.changeRangeLocked(id, *r)
			out = id
			return true
		case r != nil:
			out = d.addLocked(0, *r, d.options.TrackedRangeOptions(stickiness))
			return true
		default:
			return false
		}
	})
	return out
}

// addLocked clamps the range, allocates a node, inserts it into the tree
// and records it in the id map.
func (d *Document) addLocked(ownerID int, r Range, opts *Options) string {
	d.lastDecorationID++
	id := d.instanceID + ";" + strconv.FormatUint(d.lastDecorationID, 10)

	start, end := d.rangeToOffsetsLocked(r)
	ref := d.tree.alloc(id, ownerID, d.options.Normalize(opts))
	d.tree.insert(ref, start, end, d.versionID)
	d.byID[id] = ref
	return id
}

// changeRangeLocked re-validates the range and physically reinserts the
// node, since the tree is keyed by interval start.
func (d *Document) changeRangeLocked(id string, r Range) bool {
	ref, ok := d.byID[id]
	if !ok {
		return false
	}
	start, end := d.rangeToOffsetsLocked(r)
	d.tree.remove(ref)
	d.tree.insert(ref, start, end, d.versionID)
	return true
}

func (d *Document) changeOptionsLocked(id string, opts *Options) bool {
	ref, ok := d.byID[id]
	if !ok {
		return false
	}
	d.tree.node(ref).options = d.options.Normalize(opts)
	return true
}

func (d *Document) removeLocked(id string) bool {
	ref, ok := d.byID[id]
	if !ok {
		return false
	}
	delete(d.byID, id)
	d.tree.remove(ref)
	d.tree.release(ref)
	return true
}

// rangeToOffsetsLocked clamps and normalizes a range, then converts it to
// absolute offsets.
func (d *Document) rangeToOffsetsLocked(r Range) (int, int) {
	r = validateRange(d.index, r)
	start := d.index.OffsetAt(r.Start.Line, r.Start.Column)
	end := d.index.OffsetAt(r.End.Line, r.End.Column)
	return start, end
}

// nodeRangeLocked resolves a node's line/column range, recomputing it only
// when the cached value is stale.
func (d *Document) nodeRangeLocked(ref nodeRef) Range {
	n := d.tree.node(ref)
	if n.rangeVersion == d.versionID && n.rangeVersion != 0 {
		return n.cachedRange
	}
	start, end := d.tree.resolve(ref, d.versionID)
	n.cachedRange = Range{
		Start: d.index.PositionAt(start),
		End:   d.index.PositionAt(end),
	}
	n.rangeVersion = d.versionID
	return n.cachedRange
}

// collectLocked turns node refs into Decoration snapshots.
func (d *Document) collectLocked(refs []nodeRef) []Decoration {
	if len(refs) == 0 {
		return nil
	}
	out := make([]Decoration, 0, len(refs))
	for _, ref := range refs {
		n := d.tree.node(ref)
		out = append(out, Decoration{
			ID:      n.id,
			OwnerID: n.ownerID,
			Range:   d.nodeRangeLocked(ref),
			Options: n.options,
		})
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

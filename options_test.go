package festoon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanClassName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"squiggly-error", "squiggly-error"},
		{"Class09", "Class09"},
		{"a.b c;d", "a b c d"},
		{"foo bar!@#", "foo bar   "},
		{"semi;colon", "semi colon"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CleanClassName(c.in), "CleanClassName(%q)", c.in)
	}
}

func TestRegisterInternsIdenticalOptions(t *testing.T) {
	reg := NewOptionsRegistry()

	a := reg.Register(DecorationOptions{ClassName: "highlight", IsWholeLine: true})
	b := reg.Register(DecorationOptions{ClassName: "highlight", IsWholeLine: true})

	// Field-identical registrations share a single bundle.
	require.Same(t, a, b)
	assert.NotZero(t, a.RegistrationID())

	c := reg.Register(DecorationOptions{ClassName: "highlight"})
	assert.NotSame(t, a, c)
	assert.NotEqual(t, a.RegistrationID(), c.RegistrationID())
}

func TestRegisterSanitizesClassNames(t *testing.T) {
	reg := NewOptionsRegistry()

	o := reg.Register(DecorationOptions{
		ClassName:       "err;drop table",
		InlineClassName: "a.b",
	})
	assert.Equal(t, "err drop table", o.ClassName)
	assert.Equal(t, "a b", o.InlineClassName)

	// Sanitization happens before dedup, so the dirty and clean spellings
	// intern to the same bundle.
	clean := reg.Register(DecorationOptions{
		ClassName:       "err drop table",
		InlineClassName: "a b",
	})
	assert.Same(t, o, clean)
}

func TestDynamicOptionsCompareStructurally(t *testing.T) {
	reg := NewOptionsRegistry()

	a := reg.Dynamic(DecorationOptions{ClassName: "ghost", HoverMessage: []string{"hi"}})
	b := reg.Dynamic(DecorationOptions{ClassName: "ghost", HoverMessage: []string{"hi"}})
	c := reg.Dynamic(DecorationOptions{ClassName: "ghost", HoverMessage: []string{"bye"}})

	assert.Zero(t, a.RegistrationID())
	assert.NotSame(t, a, b)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	// Bundles differing only in stickiness are never equal.
	d := reg.Dynamic(DecorationOptions{ClassName: "ghost", HoverMessage: []string{"hi"}, Stickiness: StickinessNeverGrows})
	assert.False(t, a.Equal(d))
}

func TestRegisteredOptionsCompareByID(t *testing.T) {
	reg := NewOptionsRegistry()

	a := reg.Register(DecorationOptions{ClassName: "one"})
	b := reg.Register(DecorationOptions{ClassName: "two"})
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))

	// A dynamic bundle with the same fields still compares equal to a
	// registered one: the id fast path requires both sides registered.
	dyn := reg.Dynamic(DecorationOptions{ClassName: "one"})
	assert.True(t, a.Equal(dyn))
	assert.True(t, dyn.Equal(a))
}

func TestOptionsEqualNil(t *testing.T) {
	reg := NewOptionsRegistry()
	a := reg.Register(DecorationOptions{})

	var nilOpts *Options
	assert.False(t, a.Equal(nil))
	assert.True(t, nilOpts.Equal(nil))
}

func TestTrackedRangeOptionsPreRegistered(t *testing.T) {
	reg := NewOptionsRegistry()

	for s := StickinessAlwaysGrows; s <= StickinessGrowsOnlyAfter; s++ {
		o := reg.TrackedRangeOptions(s)
		require.NotNil(t, o)
		assert.Equal(t, s, o.Stickiness)
		assert.NotZero(t, o.RegistrationID())
	}

	// Out-of-range stickiness falls back to the default mode.
	assert.Same(t, reg.TrackedRangeOptions(StickinessAlwaysGrows), reg.TrackedRangeOptions(Stickiness(-1)))
	assert.Same(t, reg.TrackedRangeOptions(StickinessAlwaysGrows), reg.TrackedRangeOptions(Stickiness(99)))

	// Registering a stickiness-only record returns the tracked bundle.
	assert.Same(t, reg.TrackedRangeOptions(StickinessNeverGrows),
		reg.Register(DecorationOptions{Stickiness: StickinessNeverGrows}))
}

func TestNormalizeNilOptions(t *testing.T) {
	reg := NewOptionsRegistry()

	o := reg.Normalize(nil)
	require.NotNil(t, o)
	assert.Equal(t, StickinessAlwaysGrows, o.Stickiness)

	custom := reg.Register(DecorationOptions{ClassName: "x"})
	assert.Same(t, custom, reg.Normalize(custom))
}

func TestOverviewRulerVisibility(t *testing.T) {
	reg := NewOptionsRegistry()

	plain := reg.Register(DecorationOptions{ClassName: "plain"})
	ruled := reg.Register(DecorationOptions{
		ClassName:     "warn",
		OverviewRuler: OverviewRulerOptions{Color: "rgba(255,200,0,0.8)", Position: LaneRight},
	})

	assert.False(t, plain.showsInRuler())
	assert.True(t, ruled.showsInRuler())
}

func TestStickinessBoundaryRules(t *testing.T) {
	cases := []struct {
		s          Stickiness
		start, end bool
	}{
		{StickinessAlwaysGrows, true, false},
		{StickinessNeverGrows, false, true},
		{StickinessGrowsOnlyBefore, true, true},
		{StickinessGrowsOnlyAfter, false, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.start, c.s.startSticksToPrevious(), "start %v", c.s)
		assert.Equal(t, c.end, c.s.endSticksToPrevious(), "end %v", c.s)
	}
}

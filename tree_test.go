package festoon

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkTree verifies the red-black invariants and the delta/maxEnd
// bookkeeping of the whole tree.
func checkTree(t *testing.T, tree *intervalTree) {
	t.Helper()
	if tree.root == sentinel {
		return
	}
	require.False(t, tree.nodes[tree.root].red, "root must be black")
	require.Equal(t, sentinel, tree.nodes[tree.root].parent, "root parent must be sentinel")
	checkSubtree(t, tree, tree.root, 0)
}

// checkSubtree returns (blackHeight, absolute maxEnd) for the subtree.
func checkSubtree(t *testing.T, tree *intervalTree, ref nodeRef, acc int) (int, int) {
	t.Helper()
	if ref == sentinel {
		return 1, 0
	}
	n := tree.nodes[ref]
	inner := acc + n.delta

	if n.red {
		require.False(t, tree.nodes[n.left].red, "red node %d has red left child", ref)
		require.False(t, tree.nodes[n.right].red, "red node %d has red right child", ref)
	}
	if n.left != sentinel {
		require.Equal(t, ref, tree.nodes[n.left].parent, "left child parent link")
	}
	if n.right != sentinel {
		require.Equal(t, ref, tree.nodes[n.right].parent, "right child parent link")
	}
	require.LessOrEqual(t, inner+n.start, inner+n.end, "interval order for node %d", ref)

	lh, lmax := checkSubtree(t, tree, n.left, inner)
	rh, rmax := checkSubtree(t, tree, n.right, inner)
	require.Equal(t, lh, rh, "black height mismatch at node %d", ref)

	absMax := inner + n.end
	if n.left != sentinel && lmax > absMax {
		absMax = lmax
	}
	if n.right != sentinel && rmax > absMax {
		absMax = rmax
	}
	require.Equal(t, absMax, acc+n.maxEnd, "maxEnd mismatch at node %d", ref)

	h := lh
	if !n.red {
		h++
	}
	return h, absMax
}

func treeInsert(tree *intervalTree, id string, start, end int, version uint64) nodeRef {
	ref := tree.alloc(id, 0, nil)
	tree.insert(ref, start, end, version)
	return ref
}

func TestIntervalTreeInsertAndResolve(t *testing.T) {
	tree := newIntervalTree()

	a := treeInsert(tree, "a", 10, 20, 1)
	b := treeInsert(tree, "b", 5, 8, 1)
	c := treeInsert(tree, "c", 15, 30, 1)
	d := treeInsert(tree, "d", 0, 3, 1)

	require.Equal(t, 4, tree.Count())
	checkTree(t, tree)

	for _, tc := range []struct {
		ref        nodeRef
		start, end int
	}{
		{a, 10, 20}, {b, 5, 8}, {c, 15, 30}, {d, 0, 3},
	} {
		start, end := tree.resolve(tc.ref, 2)
		assert.Equal(t, tc.start, start)
		assert.Equal(t, tc.end, end)
	}
}

func TestIntervalTreeRemove(t *testing.T) {
	tree := newIntervalTree()

	refs := make([]nodeRef, 0, 10)
	for i := 0; i < 10; i++ {
		refs = append(refs, treeInsert(tree, fmt.Sprintf("n%d", i), i*10, i*10+5, 1))
	}
	checkTree(t, tree)

	// Remove in an order that exercises all delete cases.
	for _, i := range []int{5, 0, 9, 3, 7, 1, 8, 2, 6, 4} {
		tree.remove(refs[i])
		tree.release(refs[i])
		checkTree(t, tree)
	}
	assert.Equal(t, 0, tree.Count())
	assert.Equal(t, sentinel, tree.root)
}

func TestIntervalTreeReleaseReusesSlots(t *testing.T) {
	tree := newIntervalTree()

	a := treeInsert(tree, "a", 1, 2, 1)
	arena := len(tree.nodes)
	tree.remove(a)
	tree.release(a)

	b := treeInsert(tree, "b", 3, 4, 1)
	assert.Equal(t, a, b, "freed slot should be reused")
	assert.Equal(t, arena, len(tree.nodes))
}

func TestIntervalSearchOverlap(t *testing.T) {
	tree := newIntervalTree()

	treeInsert(tree, "a", 0, 5, 1)
	treeInsert(tree, "b", 10, 20, 1)
	treeInsert(tree, "c", 15, 25, 1)
	treeInsert(tree, "d", 30, 30, 1) // empty interval

	ids := func(refs []nodeRef) []string {
		out := make([]string, 0, len(refs))
		for _, r := range refs {
			out = append(out, tree.node(r).id)
		}
		return out
	}

	// Overlap is inclusive on both ends: touching intervals count.
	assert.Equal(t, []string{"a"}, ids(tree.intervalSearch(5, 8, 0, false, 1)))
	assert.Equal(t, []string{"b", "c"}, ids(tree.intervalSearch(12, 16, 0, false, 1)))
	assert.Equal(t, []string{"d"}, ids(tree.intervalSearch(30, 40, 0, false, 1)))
	assert.Empty(t, ids(tree.intervalSearch(6, 9, 0, false, 1)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(tree.intervalSearch(0, 100, 0, false, 1)))
}

func TestSearchFilters(t *testing.T) {
	reg := NewOptionsRegistry()
	validation := reg.Register(DecorationOptions{IsForValidation: true})
	ruler := reg.Register(DecorationOptions{OverviewRuler: OverviewRulerOptions{Color: "red"}})

	tree := newIntervalTree()
	a := tree.alloc("a", 1, nil)
	tree.insert(a, 0, 5, 1)
	b := tree.alloc("b", 2, validation)
	tree.insert(b, 10, 15, 1)
	c := tree.alloc("c", 2, ruler)
	tree.insert(c, 20, 25, 1)

	assert.Len(t, tree.search(0, false, false, 1), 3, "owner 0 matches all")
	assert.Len(t, tree.search(2, false, false, 1), 2)
	assert.Len(t, tree.search(0, true, false, 1), 2, "validation excluded")
	assert.Len(t, tree.search(0, false, true, 1), 1, "ruler only")

	// Exact-owner collection does not treat 0 as a wildcard.
	assert.Len(t, tree.collectNodesFromOwner(0), 0)
	assert.Len(t, tree.collectNodesFromOwner(2), 2)
}

func TestAdjustMarkerFloorsAtEditStart(t *testing.T) {
	// A marker inside a deleted range may not land before the edit.
	got := adjustMarker(5, true, 4, 0, 2, 0, false)
	assert.Equal(t, 4, got)

	// With replacement text the floor is past the inserted text.
	got = adjustMarker(5, true, 4, 2, 2, 4, false)
	assert.Equal(t, 5, got, "marker inside the in-place replaced prefix stays")
	got = adjustMarker(10, true, 4, 1, 6, 1, false)
	assert.Equal(t, 5, got)
}

func TestAdjustForEditInsertionStickiness(t *testing.T) {
	reg := NewOptionsRegistry()

	insertAtStart := []struct {
		s          Stickiness
		start, end int
	}{
		{StickinessAlwaysGrows, 3, 8},
		{StickinessNeverGrows, 5, 8},
		{StickinessGrowsOnlyBefore, 3, 8},
		{StickinessGrowsOnlyAfter, 5, 8},
	}
	for _, c := range insertAtStart {
		opts := reg.TrackedRangeOptions(c.s)
		start, end := adjustForEdit(3, 6, opts, 3, 3, 2, false)
		assert.Equal(t, c.start, start, "%v insert at start: start", c.s)
		assert.Equal(t, c.end, end, "%v insert at start: end", c.s)
	}

	insertAtEnd := []struct {
		s          Stickiness
		start, end int
	}{
		{StickinessAlwaysGrows, 3, 8},
		{StickinessNeverGrows, 3, 6},
		{StickinessGrowsOnlyBefore, 3, 6},
		{StickinessGrowsOnlyAfter, 3, 8},
	}
	for _, c := range insertAtEnd {
		opts := reg.TrackedRangeOptions(c.s)
		start, end := adjustForEdit(3, 6, opts, 6, 6, 2, false)
		assert.Equal(t, c.start, start, "%v insert at end: start", c.s)
		assert.Equal(t, c.end, end, "%v insert at end: end", c.s)
	}
}

func TestAdjustForEditDeletion(t *testing.T) {
	// Delete [4,6) from under an interval straddling it.
	start, end := adjustForEdit(2, 8, nil, 4, 6, 0, false)
	assert.Equal(t, 2, start)
	assert.Equal(t, 6, end)

	// Delete exactly the interval.
	start, end = adjustForEdit(4, 6, nil, 4, 6, 0, false)
	assert.Equal(t, 4, start)
	assert.Equal(t, 4, end)

	// Delete a range containing the interval.
	start, end = adjustForEdit(5, 6, nil, 3, 9, 0, false)
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)
}

func TestAdjustForEditCollapseOnReplace(t *testing.T) {
	reg := NewOptionsRegistry()
	collapse := reg.Register(DecorationOptions{CollapseOnReplace: true})

	// The edit covers the interval: collapse to the edit start.
	start, end := adjustForEdit(2, 6, collapse, 1, 8, 7, false)
	assert.Equal(t, 1, start)
	assert.Equal(t, 1, end)

	// A pure insertion never collapses.
	start, end = adjustForEdit(2, 6, collapse, 2, 2, 3, false)
	assert.Equal(t, 2, start)
	assert.Equal(t, 9, end)

	// A partial overlap adjusts normally.
	start, end = adjustForEdit(2, 6, collapse, 4, 8, 0, false)
	assert.Equal(t, 2, start)
	assert.Equal(t, 4, end)
}

func TestAdjustForEditForceMove(t *testing.T) {
	// forceMove pushes markers sitting exactly at the insertion point past
	// the inserted text even when they would normally stick.
	start, end := adjustForEdit(3, 3, nil, 3, 3, 4, true)
	assert.Equal(t, 7, start)
	assert.Equal(t, 7, end)

	start, end = adjustForEdit(3, 3, nil, 3, 3, 4, false)
	assert.Equal(t, 3, start)
	assert.Equal(t, 7, end)
}

func TestAcceptReplaceShiftsFollowingIntervals(t *testing.T) {
	tree := newIntervalTree()

	a := treeInsert(tree, "a", 0, 3, 1)
	b := treeInsert(tree, "b", 10, 14, 1)
	c := treeInsert(tree, "c", 20, 24, 1)

	// Insert 5 bytes at offset 5: a untouched, b and c shift right.
	tree.acceptReplace(5, 0, 5, false, 2)
	checkTree(t, tree)

	assertInterval := func(ref nodeRef, start, end int) {
		t.Helper()
		s, e := tree.resolve(ref, 3)
		assert.Equal(t, start, s)
		assert.Equal(t, end, e)
	}
	assertInterval(a, 0, 3)
	assertInterval(b, 15, 19)
	assertInterval(c, 25, 29)

	// Delete those 5 bytes again: everything returns.
	tree.acceptReplace(5, 5, 0, false, 3)
	checkTree(t, tree)
	assertInterval(a, 0, 3)
	assertInterval(b, 10, 14)
	assertInterval(c, 20, 24)
}

func TestAcceptReplaceManyIntervalsSingleEdit(t *testing.T) {
	tree := newIntervalTree()

	const n = 500
	refs := make([]nodeRef, n)
	for i := 0; i < n; i++ {
		refs[i] = treeInsert(tree, fmt.Sprintf("n%d", i), i*8, i*8+4, 1)
	}

	// Insert 100 bytes near the front; all but the first interval shift.
	tree.acceptReplace(6, 0, 100, false, 2)
	checkTree(t, tree)

	for i, ref := range refs {
		start, end := tree.resolve(ref, 3)
		wantStart, wantEnd := i*8, i*8+4
		if i > 0 {
			wantStart += 100
			wantEnd += 100
		}
		require.Equal(t, wantStart, start, "interval %d start", i)
		require.Equal(t, wantEnd, end, "interval %d end", i)
	}
}

// TestIntervalTreeRandomized drives the tree against a brute-force mirror
// through random inserts, removals, queries and edits, validating the
// structural invariants throughout.
func TestIntervalTreeRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := newIntervalTree()

	type span struct{ start, end int }
	mirror := make(map[string]span)
	refs := make(map[string]nodeRef)
	version := uint64(1)
	nextID := 0

	insertRandom := func() {
		id := fmt.Sprintf("d%d", nextID)
		nextID++
		start := rng.Intn(1000)
		end := start + rng.Intn(50)
		refs[id] = treeInsert(tree, id, start, end, version)
		mirror[id] = span{start, end}
	}

	removeRandom := func() {
		for id, ref := range refs {
			tree.remove(ref)
			tree.release(ref)
			delete(refs, id)
			delete(mirror, id)
			return
		}
	}

	queryRandom := func() {
		start := rng.Intn(1000)
		end := start + rng.Intn(100)
		var want []string
		for id, s := range mirror {
			if s.end >= start && s.start <= end {
				want = append(want, id)
			}
		}
		var got []string
		for _, ref := range tree.intervalSearch(start, end, 0, false, version) {
			got = append(got, tree.node(ref).id)
		}
		sort.Strings(want)
		sort.Strings(got)
		require.Equal(t, want, got, "overlap query [%d,%d]", start, end)
	}

	editRandom := func() {
		offset := rng.Intn(1000)
		length := rng.Intn(20)
		textLength := rng.Intn(20)
		version++
		tree.acceptReplace(offset, length, textLength, false, version)

		editEnd := offset + length
		dd := textLength - length
		for id, s := range mirror {
			switch {
			case s.end >= offset && s.start <= editEnd:
				ns, ne := adjustForEdit(s.start, s.end, nil, offset, editEnd, textLength, false)
				mirror[id] = span{ns, ne}
			case s.start > editEnd:
				mirror[id] = span{s.start + dd, s.end + dd}
			}
		}
	}

	for i := 0; i < 60; i++ {
		insertRandom()
	}
	for step := 0; step < 400; step++ {
		switch rng.Intn(10) {
		case 0, 1, 2:
			insertRandom()
		case 3, 4:
			removeRandom()
		case 5, 6:
			queryRandom()
		default:
			editRandom()
		}

		checkTree(t, tree)
		require.Equal(t, len(mirror), tree.Count())
		for id, ref := range refs {
			start, end := tree.resolve(ref, version)
			want := mirror[id]
			require.Equal(t, want.start, start, "step %d: %s start", step, id)
			require.Equal(t, want.end, end, "step %d: %s end", step, id)
		}
	}
}

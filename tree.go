package festoon

// The interval tree stores one node per live decoration, keyed by interval
// start, in a contiguous arena addressed by nodeRef indices. A text edit
// must be able to shift thousands of intervals without touching each one,
// so offsets are stored relative to per-subtree delta accumulators: the
// absolute start of a node is its stored start plus the sum of the deltas
// on the root-to-node path (the node's own delta included). Shifting a
// whole subtree is then a single delta update, and reads pay a
// bounded-height walk memoized against the document version stamp.
//
// Balancing is a red-black tree with a maxEnd augmentation for overlap
// pruning. maxEnd is expressed in the parent's coordinate frame, i.e. it
// already includes the node's own delta.

// nodeRef is an index into the tree's node arena. Ref 0 is the sentinel.
type nodeRef int32

// sentinel is the shared nil leaf. Its delta and maxEnd stay zero.
const sentinel nodeRef = 0

type treeNode struct {
	parent, left, right nodeRef
	red                 bool

	// Interval endpoints relative to the accumulated deltas on the
	// root-to-node path (own delta included).
	start, end int

	// delta shifts this node and its entire subtree.
	delta int

	// maxEnd is the maximum interval end within this subtree, relative to
	// the parent's coordinate frame.
	maxEnd int

	// Decoration payload.
	id      string
	ownerID int
	options *Options

	// Absolute offsets memoized against a document version stamp.
	cachedStart   int
	cachedEnd     int
	cachedVersion uint64

	// Line/column range resolved lazily; stale whenever the version or the
	// tree structure changes. rangeVersion 0 means never resolved.
	cachedRange  Range
	rangeVersion uint64

	inTree bool
}

// intervalTree is the order-augmented balanced tree behind a decoration set.
type intervalTree struct {
	nodes []treeNode
	freed []nodeRef
	root  nodeRef
	count int
}

func newIntervalTree() *intervalTree {
	t := &intervalTree{root: sentinel}
	// Slot 0 is the sentinel: black, zero delta, zero maxEnd.
	t.nodes = append(t.nodes, treeNode{})
	return t
}

// Count returns the number of nodes in the tree.
func (t *intervalTree) Count() int {
	return t.count
}

// node returns a pointer into the arena. The pointer is invalidated by the
// next alloc, so it must not be held across one.
func (t *intervalTree) node(ref nodeRef) *treeNode {
	return &t.nodes[ref]
}

// alloc reserves an arena slot for a decoration. The node is not yet in
// the tree; call insert to place it.
func (t *intervalTree) alloc(id string, ownerID int, options *Options) nodeRef {
	var ref nodeRef
	if n := len(t.freed); n > 0 {
		ref = t.freed[n-1]
		t.freed = t.freed[:n-1]
	} else {
		t.nodes = append(t.nodes, treeNode{})
		ref = nodeRef(len(t.nodes) - 1)
	}
	*t.node(ref) = treeNode{id: id, ownerID: ownerID, options: options}
	return ref
}

// release returns an arena slot to the free list. The node must already
// have been removed from the tree.
func (t *intervalTree) release(ref nodeRef) {
	if t.node(ref).inTree {
		panic("festoon: release of node still in tree: " + ErrInternal.Error())
	}
	*t.node(ref) = treeNode{}
	t.freed = append(t.freed, ref)
}

// updateMaxEnd recomputes maxEnd for a node from its children.
func (t *intervalTree) updateMaxEnd(ref nodeRef) {
	n := t.node(ref)
	m := n.end
	if n.left != sentinel && t.nodes[n.left].maxEnd > m {
		m = t.nodes[n.left].maxEnd
	}
	if n.right != sentinel && t.nodes[n.right].maxEnd > m {
		m = t.nodes[n.right].maxEnd
	}
	n.maxEnd = n.delta + m
}

// updateMaxEndUpward recomputes maxEnd from ref to the root.
func (t *intervalTree) updateMaxEndUpward(ref nodeRef) {
	for ref != sentinel {
		t.updateMaxEnd(ref)
		ref = t.nodes[ref].parent
	}
}

// rotateLeft rotates x with its right child, preserving every node's
// absolute offsets by moving deltas between the three affected nodes.
func (t *intervalTree) rotateLeft(x nodeRef) {
	y := t.nodes[x].right
	dx := t.nodes[x].delta
	dy := t.nodes[y].delta

	// y takes x's place: absorb x's delta so y's frame is unchanged.
	t.nodes[y].delta = dy + dx
	// x becomes y's child: cancel y's old delta from x's new frame.
	t.nodes[x].delta = -dy
	// y's left subtree moves under x: re-add y's old delta.
	b := t.nodes[y].left
	if b != sentinel {
		t.nodes[b].delta += dy
		t.nodes[b].maxEnd += dy
	}

	t.nodes[x].right = b
	if b != sentinel {
		t.nodes[b].parent = x
	}
	t.nodes[y].parent = t.nodes[x].parent
	p := t.nodes[x].parent
	if p == sentinel {
		t.root = y
	} else if t.nodes[p].left == x {
		t.nodes[p].left = y
	} else {
		t.nodes[p].right = y
	}
	t.nodes[y].left = x
	t.nodes[x].parent = y

	t.updateMaxEnd(x)
	t.updateMaxEnd(y)
}

// rotateRight is the mirror of rotateLeft.
func (t *intervalTree) rotateRight(x nodeRef) {
	y := t.nodes[x].left
	dx := t.nodes[x].delta
	dy := t.nodes[y].delta

	t.nodes[y].delta = dy + dx
	t.nodes[x].delta = -dy
	b := t.nodes[y].right
	if b != sentinel {
		t.nodes[b].delta += dy
		t.nodes[b].maxEnd += dy
	}

	t.nodes[x].left = b
	if b != sentinel {
		t.nodes[b].parent = x
	}
	t.nodes[y].parent = t.nodes[x].parent
	p := t.nodes[x].parent
	if p == sentinel {
		t.root = y
	} else if t.nodes[p].left == x {
		t.nodes[p].left = y
	} else {
		t.nodes[p].right = y
	}
	t.nodes[y].right = x
	t.nodes[x].parent = y

	t.updateMaxEnd(x)
	t.updateMaxEnd(y)
}

// insert places an allocated node into the tree at the given absolute
// interval and memoizes its offsets against version.
func (t *intervalTree) insert(ref nodeRef, absStart, absEnd int, version uint64) {
	if absStart < 0 {
		absStart = 0
	}
	if absEnd < absStart {
		absEnd = absStart
	}

	z := t.node(ref)
	z.left, z.right, z.parent = sentinel, sentinel, sentinel
	z.delta = 0
	z.red = true
	z.inTree = true
	z.cachedStart, z.cachedEnd = absStart, absEnd
	z.cachedVersion = version
	z.rangeVersion = 0
	t.count++

	if t.root == sentinel {
		z.start, z.end = absStart, absEnd
		z.maxEnd = absEnd
		z.red = false
		t.root = ref
		return
	}

	// Descend by absolute start, accumulating deltas. Ties go right so
	// insertion order is preserved among equal starts.
	acc := 0
	cur := t.root
	for {
		cn := t.node(cur)
		acc += cn.delta
		if absStart < acc+cn.start {
			if cn.left == sentinel {
				cn.left = ref
				break
			}
			cur = cn.left
		} else {
			if cn.right == sentinel {
				cn.right = ref
				break
			}
			cur = cn.right
		}
	}

	z = t.node(ref)
	z.parent = cur
	z.start = absStart - acc
	z.end = absEnd - acc
	z.maxEnd = z.end

	t.updateMaxEndUpward(cur)
	t.insertFixup(ref)
}

func (t *intervalTree) insertFixup(z nodeRef) {
	for t.nodes[t.nodes[z].parent].red {
		p := t.nodes[z].parent
		g := t.nodes[p].parent
		if p == t.nodes[g].left {
			u := t.nodes[g].right
			if t.nodes[u].red {
				t.nodes[p].red = false
				t.nodes[u].red = false
				t.nodes[g].red = true
				z = g
			} else {
				if z == t.nodes[p].right {
					z = p
					t.rotateLeft(z)
					p = t.nodes[z].parent
					g = t.nodes[p].parent
				}
				t.nodes[p].red = false
				t.nodes[g].red = true
				t.rotateRight(g)
			}
		} else {
			u := t.nodes[g].left
			if t.nodes[u].red {
				t.nodes[p].red = false
				t.nodes[u].red = false
				t.nodes[g].red = true
				z = g
			} else {
				if z == t.nodes[p].left {
					z = p
					t.rotateRight(z)
					p = t.nodes[z].parent
					g = t.nodes[p].parent
				}
				t.nodes[p].red = false
				t.nodes[g].red = true
				t.rotateLeft(g)
			}
		}
	}
	t.nodes[t.root].red = false
}

// pushDown folds a node's delta into its stored offsets and its children's
// deltas. The node's absolute interval and its maxEnd are unchanged.
func (t *intervalTree) pushDown(ref nodeRef) {
	n := t.node(ref)
	d := n.delta
	if d == 0 {
		return
	}
	n.start += d
	n.end += d
	n.delta = 0
	if n.left != sentinel {
		t.nodes[n.left].delta += d
		t.nodes[n.left].maxEnd += d
	}
	if n.right != sentinel {
		t.nodes[n.right].delta += d
		t.nodes[n.right].maxEnd += d
	}
}

// pushDownPath pushes deltas down along the root-to-ref path so that every
// node on the path has delta zero and holds absolute offsets.
func (t *intervalTree) pushDownPath(ref nodeRef) {
	var path []nodeRef
	for cur := ref; cur != sentinel; cur = t.nodes[cur].parent {
		path = append(path, cur)
	}
	for i := len(path) - 1; i >= 0; i-- {
		t.pushDown(path[i])
	}
}

// transplant replaces the subtree rooted at u with the subtree rooted at
// v. The sentinel's parent is set on purpose: the remove fixup navigates
// through it.
func (t *intervalTree) transplant(u, v nodeRef) {
	p := t.nodes[u].parent
	if p == sentinel {
		t.root = v
	} else if t.nodes[p].left == u {
		t.nodes[p].left = v
	} else {
		t.nodes[p].right = v
	}
	t.nodes[v].parent = p
}

// remove detaches a node from the tree. The arena slot stays allocated so
// the node can be reinserted (or released) by the caller.
func (t *intervalTree) remove(z nodeRef) {
	if !t.node(z).inTree {
		panic("festoon: remove of node not in tree: " + ErrInternal.Error())
	}

	// With the path (and the successor path) pushed down, every spliced
	// node holds absolute offsets and zero delta, so relinking cannot
	// change any absolute position.
	t.pushDownPath(z)

	y := z
	yWasRed := t.nodes[y].red
	var x, fixFrom nodeRef

	switch {
	case t.nodes[z].left == sentinel:
		x = t.nodes[z].right
		fixFrom = t.nodes[z].parent
		t.transplant(z, x)
	case t.nodes[z].right == sentinel:
		x = t.nodes[z].left
		fixFrom = t.nodes[z].parent
		t.transplant(z, x)
	default:
		y = t.nodes[z].right
		t.pushDown(y)
		for t.nodes[y].left != sentinel {
			y = t.nodes[y].left
			t.pushDown(y)
		}
		yWasRed = t.nodes[y].red
		x = t.nodes[y].right
		if t.nodes[y].parent == z {
			t.nodes[x].parent = y
			fixFrom = y
		} else {
			fixFrom = t.nodes[y].parent
			t.transplant(y, x)
			t.nodes[y].right = t.nodes[z].right
			t.nodes[t.nodes[y].right].parent = y
		}
		t.transplant(z, y)
		t.nodes[y].left = t.nodes[z].left
		t.nodes[t.nodes[y].left].parent = y
		t.nodes[y].red = t.nodes[z].red
	}

	t.updateMaxEndUpward(fixFrom)

	if !yWasRed {
		t.removeFixup(x)
	}

	zn := t.node(z)
	zn.parent, zn.left, zn.right = sentinel, sentinel, sentinel
	zn.delta, zn.maxEnd = 0, 0
	zn.inTree = false
	t.count--
}

func (t *intervalTree) removeFixup(x nodeRef) {
	for x != t.root && !t.nodes[x].red {
		p := t.nodes[x].parent
		if x == t.nodes[p].left {
			w := t.nodes[p].right
			if t.nodes[w].red {
				t.nodes[w].red = false
				t.nodes[p].red = true
				t.rotateLeft(p)
				w = t.nodes[p].right
			}
			if !t.nodes[t.nodes[w].left].red && !t.nodes[t.nodes[w].right].red {
				t.nodes[w].red = true
				x = p
			} else {
				if !t.nodes[t.nodes[w].right].red {
					t.nodes[t.nodes[w].left].red = false
					t.nodes[w].red = true
					t.rotateRight(w)
					w = t.nodes[p].right
				}
				t.nodes[w].red = t.nodes[p].red
				t.nodes[p].red = false
				t.nodes[t.nodes[w].right].red = false
				t.rotateLeft(p)
				x = t.root
			}
		} else {
			w := t.nodes[p].left
			if t.nodes[w].red {
				t.nodes[w].red = false
				t.nodes[p].red = true
				t.rotateRight(p)
				w = t.nodes[p].left
			}
			if !t.nodes[t.nodes[w].left].red && !t.nodes[t.nodes[w].right].red {
				t.nodes[w].red = true
				x = p
			} else {
				if !t.nodes[t.nodes[w].left].red {
					t.nodes[t.nodes[w].right].red = false
					t.nodes[w].red = true
					t.rotateLeft(w)
					w = t.nodes[p].left
				}
				t.nodes[w].red = t.nodes[p].red
				t.nodes[p].red = false
				t.nodes[t.nodes[w].left].red = false
				t.rotateRight(p)
				x = t.root
			}
		}
	}
	t.nodes[x].red = false
}

// resolve returns the node's absolute offsets, recomputing and memoizing
// them if the cached version stamp is stale.
func (t *intervalTree) resolve(ref nodeRef, version uint64) (int, int) {
	n := t.node(ref)
	if n.cachedVersion == version {
		return n.cachedStart, n.cachedEnd
	}
	acc := 0
	for cur := ref; cur != sentinel; cur = t.nodes[cur].parent {
		acc += t.nodes[cur].delta
	}
	n.cachedStart = n.start + acc
	n.cachedEnd = n.end + acc
	n.cachedVersion = version
	return n.cachedStart, n.cachedEnd
}

// matches applies the owner and option filters shared by the searches.
func (t *intervalTree) matches(ref nodeRef, ownerID int, excludeValidation, rulerOnly bool) bool {
	n := t.node(ref)
	if ownerID != 0 && n.ownerID != ownerID {
		return false
	}
	if excludeValidation && n.options != nil && n.options.IsForValidation {
		return false
	}
	if rulerOnly && (n.options == nil || !n.options.showsInRuler()) {
		return false
	}
	return true
}

// search returns all nodes matching the owner filter (owner 0 matches
// all), optionally excluding validation decorations and optionally
// restricted to overview-ruler decorations. Absolute offsets of visited
// nodes are memoized against version as a side effect.
func (t *intervalTree) search(ownerID int, excludeValidation, rulerOnly bool, version uint64) []nodeRef {
	var out []nodeRef
	t.searchWalk(t.root, 0, func(ref nodeRef) {
		if t.matches(ref, ownerID, excludeValidation, rulerOnly) {
			out = append(out, ref)
		}
	}, version)
	return out
}

// searchWalk visits the whole tree in order, memoizing absolute offsets.
func (t *intervalTree) searchWalk(ref nodeRef, acc int, visit func(nodeRef), version uint64) {
	if ref == sentinel {
		return
	}
	n := t.node(ref)
	inner := acc + n.delta
	t.searchWalk(n.left, inner, visit, version)
	n = t.node(ref)
	n.cachedStart = inner + n.start
	n.cachedEnd = inner + n.end
	n.cachedVersion = version
	visit(ref)
	t.searchWalk(n.right, inner, visit, version)
}

// intervalSearch returns all nodes whose interval overlaps [start, end]
// inclusive, subject to the owner and validation filters.
func (t *intervalTree) intervalSearch(start, end, ownerID int, excludeValidation bool, version uint64) []nodeRef {
	var out []nodeRef
	t.overlapWalk(t.root, 0, start, end, version, func(ref nodeRef) {
		if t.matches(ref, ownerID, excludeValidation, false) {
			out = append(out, ref)
		}
	})
	return out
}

// overlapWalk visits, in order, every node overlapping [start, end]
// inclusive, pruning subtrees via maxEnd. Visited overlapping nodes get
// their absolute offsets memoized.
func (t *intervalTree) overlapWalk(ref nodeRef, acc, start, end int, version uint64, visit func(nodeRef)) {
	if ref == sentinel {
		return
	}
	n := t.node(ref)
	// Everything in this subtree ends before the query starts.
	if acc+n.maxEnd < start {
		return
	}
	inner := acc + n.delta
	t.overlapWalk(n.left, inner, start, end, version, visit)
	n = t.node(ref)
	nodeStart := inner + n.start
	if nodeStart > end {
		// The node and its right subtree start past the query.
		return
	}
	nodeEnd := inner + n.end
	if nodeEnd >= start {
		n.cachedStart = nodeStart
		n.cachedEnd = nodeEnd
		n.cachedVersion = version
		visit(ref)
	}
	t.overlapWalk(n.right, inner, start, end, version, visit)
}

// collectNodesFromOwner returns every node owned by exactly ownerID.
// Unlike search, owner 0 is not a wildcard here: bulk removal scoped to
// owner 0 must not sweep up other owners' decorations.
func (t *intervalTree) collectNodesFromOwner(ownerID int) []nodeRef {
	var out []nodeRef
	t.collectWalk(t.root, ownerID, &out)
	return out
}

func (t *intervalTree) collectWalk(ref nodeRef, ownerID int, out *[]nodeRef) {
	if ref == sentinel {
		return
	}
	n := t.node(ref)
	t.collectWalk(n.left, ownerID, out)
	if n.ownerID == ownerID {
		*out = append(*out, ref)
	}
	t.collectWalk(n.right, ownerID, out)
}

// editHit is a node lifted out of the tree during acceptReplace, with its
// absolute interval at the moment of removal.
type editHit struct {
	ref      nodeRef
	absStart int
	absEnd   int
}

// acceptReplace adjusts the tree for a text edit replacing the byte range
// [offset, offset+length) with textLength new bytes. Nodes touching the
// edited range are removed, adjusted per their stickiness, and reinserted;
// all nodes past the range shift by the length difference through subtree
// deltas. forceMove pushes markers at the insertion point past the new
// text regardless of stickiness.
func (t *intervalTree) acceptReplace(offset, length, textLength int, forceMove bool, version uint64) {
	editStart := offset
	editEnd := offset + length

	var hits []editHit
	t.overlapWalk(t.root, 0, editStart, editEnd, version, func(ref nodeRef) {
		n := t.node(ref)
		hits = append(hits, editHit{ref: ref, absStart: n.cachedStart, absEnd: n.cachedEnd})
	})
	for _, h := range hits {
		t.remove(h.ref)
	}

	if dd := textLength - length; dd != 0 {
		t.shiftAfter(t.root, 0, editEnd, dd)
	}

	for _, h := range hits {
		n := t.node(h.ref)
		newStart, newEnd := adjustForEdit(h.absStart, h.absEnd, n.options, editStart, editEnd, textLength, forceMove)
		t.insert(h.ref, newStart, newEnd, version)
	}
}

// shiftAfter adds dd to every node whose start is at or past editEnd.
// After the overlapping nodes have been removed, no interval crosses
// editEnd, so each level decides for one node and descends one way.
func (t *intervalTree) shiftAfter(ref nodeRef, acc, editEnd, dd int) {
	if ref == sentinel {
		return
	}
	n := t.node(ref)
	inner := acc + n.delta
	if inner+n.start >= editEnd {
		n.start += dd
		n.end += dd
		if n.right != sentinel {
			t.nodes[n.right].delta += dd
			t.nodes[n.right].maxEnd += dd
		}
		t.shiftAfter(n.left, inner, editEnd, dd)
	} else {
		t.shiftAfter(n.right, inner, editEnd, dd)
	}
	t.updateMaxEnd(ref)
}

// adjustForEdit computes a decoration's new absolute interval after a
// replace edit, applying the stickiness rules boundary by boundary:
//   - a boundary before the edit keeps its position;
//   - a boundary inside the in-place replaced prefix keeps its position;
//   - a boundary exactly at a decision column stays iff it sticks to the
//     previous character (a non-empty deletion or forceMove overrides);
//   - anything else shifts by the length difference, landing no earlier
//     than the end of the inserted text.
func adjustForEdit(absStart, absEnd int, opts *Options, editStart, editEnd, textLength int, forceMove bool) (int, int) {
	deleting := editEnd - editStart
	inserting := textLength
	common := min(deleting, inserting)

	stickiness := StickinessAlwaysGrows
	collapse := false
	if opts != nil {
		stickiness = opts.Stickiness
		collapse = opts.CollapseOnReplace
	}

	if collapse && deleting > 0 && editStart <= absStart && absEnd <= editEnd {
		return editStart, editStart
	}

	newStart := adjustMarker(absStart, stickiness.startSticksToPrevious(), editStart, common, deleting, inserting, forceMove)
	newEnd := adjustMarker(absEnd, stickiness.endSticksToPrevious(), editStart, common, deleting, inserting, forceMove)

	if newStart > newEnd {
		newEnd = newStart
	}
	return newStart, newEnd
}

// adjustMarker moves one boundary.
func adjustMarker(marker int, stickToPrev bool, editStart, common, deleting, inserting int, forceMove bool) int {
	// Markers at the edit start stay only when nothing is deleted, nothing
	// forces movement, and the marker sticks to the previous character.
	if markerStays(marker, stickToPrev, editStart, deleting > 0 || forceMove) {
		return marker
	}
	// Markers within the prefix replaced in place keep their position.
	if markerStays(marker, stickToPrev, editStart+common, forceMove) {
		return marker
	}
	moved := marker + inserting - deleting
	if floor := editStart + inserting; moved < floor {
		moved = floor
	}
	return moved
}

// markerStays reports whether a marker at markerOffset keeps its position
// relative to a decision column.
func markerStays(markerOffset int, stickToPrev bool, checkOffset int, forceMove bool) bool {
	if markerOffset < checkOffset {
		return true
	}
	if markerOffset > checkOffset {
		return false
	}
	if forceMove {
		return false
	}
	return stickToPrev
}

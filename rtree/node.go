package rtree

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/hvitr/skuggi/geom"
)

const (
	// Classical R-tree fan-out bounds. A node overflows above maxFanout and
	// underflows below minFanout (the root is exempt from the minimum).
	maxFanout = 4
	minFanout = 2
)

// Error types carried by invalid-operation errors. Calling a leaf-only
// operation on an internal node (or vice versa) is a programming-invariant
// violation and never retried.
const (
	ErrTypeNotLeaf     = "not_leaf_node"
	ErrTypeNotInternal = "not_internal_node"
	ErrTypeNilElement  = "nil_element"
)

// emptyMBR is the degenerate sentinel carried by nodes with no contents:
// maximal corner, zero size. Any real rectangle replaces it on first add.
var emptyMBR = geom.Rect{X: math.MaxInt32, Y: math.MaxInt32}

// node is a single R-tree node. Leaves (level 0) hold entries, internal
// nodes hold children, never both. mbr is kept as the exact tight union of
// the contents at all times; every mutation propagates the change to the
// root through the parent back-pointer.
type node struct {
	level    int
	mbr      geom.Rect
	entries  []Entry
	children []*node
	parent   *node
}

func newLeaf() *node {
	return &node{mbr: emptyMBR}
}

func newInternal(level int) *node {
	return &node{level: level, mbr: emptyMBR}
}

func (n *node) isLeaf() bool {
	return n.level == 0
}

func (n *node) size() int {
	if n.isLeaf() {
		return len(n.entries)
	}
	return len(n.children)
}

func (n *node) needsSplit() bool {
	return n.size() > maxFanout
}

func (n *node) isUnderfull() bool {
	return n.size() < minFanout
}

// addEntry appends an entry to a leaf, expands the leaf's MBR and propagates
// the growth upward.
func (n *node) addEntry(e Entry) error {
	if !n.isLeaf() {
		return errors.New("cannot add an entry to an internal node").
			WithType(ErrTypeNotLeaf).
			WithTag("level", n.level)
	}

	n.entries = append(n.entries, e)
	n.expandMBR(e.Bounds)
	return nil
}

// addChild appends a child to an internal node, adopts it and propagates the
// MBR growth upward.
func (n *node) addChild(c *node) error {
	if n.isLeaf() {
		return errors.New("cannot add a child to a leaf node").
			WithType(ErrTypeNotInternal)
	}

	n.children = append(n.children, c)
	c.parent = n
	n.expandMBR(c.mbr)
	return nil
}

// removeEntry removes the entry matching the full triple and reports whether
// it was present. The leaf's MBR is recomputed tight and the change
// propagated upward.
func (n *node) removeEntry(e Entry) bool {
	for i, cur := range n.entries {
		if cur.Bounds == e.Bounds && cur.ZIndex == e.ZIndex && cur.Element == e.Element {
			n.entries = append(n.entries[:i], n.entries[i+1:]...)
			n.recomputeMBR()
			return true
		}
	}
	return false
}

// removeChild removes the given child by reference, clears its parent and
// reports whether it was present.
func (n *node) removeChild(c *node) bool {
	for i, cur := range n.children {
		if cur == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			n.recomputeMBR()
			return true
		}
	}
	return false
}

// chooseChild picks the child whose MBR needs the least area enlargement to
// enclose bounds, ties broken by the smaller existing area.
func (n *node) chooseChild(bounds geom.Rect) (*node, error) {
	if n.isLeaf() {
		return nil, errors.New("cannot choose a child on a leaf node").
			WithType(ErrTypeNotLeaf)
	}

	best := n.children[0]
	bestDelta := best.mbr.Enlargement(bounds)
	for _, c := range n.children[1:] {
		delta := c.mbr.Enlargement(bounds)
		if delta < bestDelta || (delta == bestDelta && c.mbr.Area() < best.mbr.Area()) {
			best = c
			bestDelta = delta
		}
	}
	return best, nil
}

// split redistributes the node's contents between itself and a new sibling
// of the same level, grouping spatially close items with a quadratic seed
// pick and honoring the minimum fan-out on both sides. Both MBRs are
// recomputed; linking the sibling into the parent is the tree's job.
func (n *node) split() *node {
	sibling := &node{level: n.level, mbr: emptyMBR}

	if n.isLeaf() {
		bounds := make([]geom.Rect, len(n.entries))
		for i, e := range n.entries {
			bounds[i] = e.Bounds
		}
		keep, move := partition(bounds)

		entries := n.entries
		n.entries = make([]Entry, 0, len(keep))
		for _, i := range keep {
			n.entries = append(n.entries, entries[i])
		}
		for _, i := range move {
			sibling.entries = append(sibling.entries, entries[i])
		}
	} else {
		bounds := make([]geom.Rect, len(n.children))
		for i, c := range n.children {
			bounds[i] = c.mbr
		}
		keep, move := partition(bounds)

		children := n.children
		n.children = make([]*node, 0, len(keep))
		for _, i := range keep {
			n.children = append(n.children, children[i])
		}
		for _, i := range move {
			children[i].parent = sibling
			sibling.children = append(sibling.children, children[i])
		}
	}

	n.recomputeMBR()
	sibling.mbr = sibling.computeMBR()
	return sibling
}

// partition groups item bounds into two index sets for a split. Seeds are
// the pair wasting the most area when joined; the rest go to the group
// needing the least enlargement, unless one group must take them to reach
// the minimum fill.
func partition(bounds []geom.Rect) (groupA, groupB []int) {
	seedA, seedB := 0, 1
	worst := math.MinInt
	for i := 0; i < len(bounds); i++ {
		for j := i + 1; j < len(bounds); j++ {
			waste := bounds[i].Union(bounds[j]).Area() - bounds[i].Area() - bounds[j].Area()
			if waste > worst {
				worst = waste
				seedA, seedB = i, j
			}
		}
	}

	groupA = []int{seedA}
	groupB = []int{seedB}
	mbrA := bounds[seedA]
	mbrB := bounds[seedB]

	for i := range bounds {
		if i == seedA || i == seedB {
			continue
		}
		remaining := len(bounds) - len(groupA) - len(groupB)

		switch {
		case len(groupA)+remaining == minFanout:
			groupA = append(groupA, i)
			mbrA = mbrA.Union(bounds[i])
		case len(groupB)+remaining == minFanout:
			groupB = append(groupB, i)
			mbrB = mbrB.Union(bounds[i])
		case mbrA.Enlargement(bounds[i]) <= mbrB.Enlargement(bounds[i]):
			groupA = append(groupA, i)
			mbrA = mbrA.Union(bounds[i])
		default:
			groupB = append(groupB, i)
			mbrB = mbrB.Union(bounds[i])
		}
	}
	return groupA, groupB
}

// expandMBR grows the node's MBR to enclose bounds and propagates the growth
// to the root.
func (n *node) expandMBR(bounds geom.Rect) {
	if n.size() == 1 && n.mbr == emptyMBR {
		n.mbr = bounds
	} else {
		n.mbr = n.mbr.Union(bounds)
	}
	if n.parent != nil {
		n.parent.expandMBR(n.mbr)
	}
}

// recomputeMBR recalculates the tight MBR from the node's contents (the
// sentinel when empty) and propagates the change upward.
func (n *node) recomputeMBR() {
	n.mbr = n.computeMBR()
	if n.parent != nil {
		n.parent.recomputeMBR()
	}
}

func (n *node) computeMBR() geom.Rect {
	if n.size() == 0 {
		return emptyMBR
	}
	if n.isLeaf() {
		mbr := n.entries[0].Bounds
		for _, e := range n.entries[1:] {
			mbr = mbr.Union(e.Bounds)
		}
		return mbr
	}
	mbr := n.children[0].mbr
	for _, c := range n.children[1:] {
		mbr = mbr.Union(c.mbr)
	}
	return mbr
}

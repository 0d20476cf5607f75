package rtree

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/hvitr/skuggi/featureflag"
	"github.com/hvitr/skuggi/geom"
	"github.com/hvitr/skuggi/scene"
)

// Tree is an R-tree over rectangular UI elements augmented with z-order
// bookkeeping and occlusion queries. It implements scene.SpatialIndex.
//
// The tree is not internally synchronized: it is owned by a single rendering
// thread per frame, and every operation runs to completion on the caller.
type Tree struct {
	root  *node
	count int

	// element payload -> its current entry, for z-order manipulation and
	// occlusion queries addressed by payload rather than by triple.
	elements map[any]Entry

	flags     featureflag.FeatureFlag
	occlusion occlusionCache
}

// Option configures a Tree.
type Option func(*Tree)

// WithFeatureFlags sets the runtime flags tuning index behavior.
func WithFeatureFlags(flags featureflag.FeatureFlag) Option {
	return func(t *Tree) {
		t.flags = flags
	}
}

// New returns an empty index: a single leaf root and no elements.
func New(opts ...Option) *Tree {
	t := &Tree{
		root:     newLeaf(),
		elements: make(map[any]Entry),
		flags:    featureflag.New(nil),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Len returns the number of stored elements.
func (t *Tree) Len() int {
	return t.count
}

// Height returns the number of levels, 1 for a lone leaf root.
func (t *Tree) Height() int {
	return t.root.level + 1
}

// Insert adds an element with the given bounds and z-index. A nil element is
// rejected with an argument error and nothing is mutated.
func (t *Tree) Insert(bounds geom.Rect, zIndex int, element any) error {
	if element == nil {
		return errors.New("cannot index a nil element").
			WithType(ErrTypeNilElement)
	}

	entry := Entry{Bounds: bounds, ZIndex: zIndex, Element: element}
	t.insertEntry(entry)
	t.count++
	t.elements[element] = entry
	t.occlusion.invalidate()

	instrumentInsert()
	instrumentElementCount(t.count)
	return nil
}

// insertEntry descends to the best leaf, adds the entry and resolves any
// overflow by splitting upward. Count and element bookkeeping stay with the
// callers so Rebuild can reuse it.
func (t *Tree) insertEntry(entry Entry) {
	n := t.root
	for !n.isLeaf() {
		n, _ = n.chooseChild(entry.Bounds)
	}
	n.addEntry(entry)

	for n != nil && n.needsSplit() {
		sibling := n.split()
		parent := n.parent
		if parent == nil {
			root := newInternal(n.level + 1)
			root.addChild(n)
			root.addChild(sibling)
			t.root = root
			return
		}
		parent.addChild(sibling)
		n = parent
	}
}

// Remove deletes the entry matching the exact (bounds, z-index, element)
// triple. It reports false when no such entry is stored.
func (t *Tree) Remove(bounds geom.Rect, zIndex int, element any) bool {
	entry := Entry{Bounds: bounds, ZIndex: zIndex, Element: element}
	leaf := t.findLeaf(t.root, entry)
	if leaf == nil {
		return false
	}

	leaf.removeEntry(entry)
	t.count--
	delete(t.elements, element)
	t.condense(leaf)
	t.occlusion.invalidate()

	instrumentRemove()
	instrumentElementCount(t.count)

	t.flags.IfSet(featureflag.FlagEagerRebuild, func() {
		t.Rebuild()
	})
	return true
}

// findLeaf locates the leaf holding the exact entry. Descent is pruned to
// children whose MBR fully contains the entry bounds, which also covers
// degenerate zero-area rectangles.
func (t *Tree) findLeaf(n *node, entry Entry) *node {
	if !n.mbr.Contains(entry.Bounds) {
		return nil
	}
	if n.isLeaf() {
		for _, cur := range n.entries {
			if cur.Bounds == entry.Bounds && cur.ZIndex == entry.ZIndex && cur.Element == entry.Element {
				return n
			}
		}
		return nil
	}
	for _, c := range n.children {
		if leaf := t.findLeaf(c, entry); leaf != nil {
			return leaf
		}
	}
	return nil
}

// condense walks from a shrunken leaf to the root, cuts out underfull nodes
// and reinserts their orphaned entries, then shortens the tree when the root
// is left with a single child.
func (t *Tree) condense(n *node) {
	var orphans []Entry

	for n != t.root {
		parent := n.parent
		if n.isUnderfull() {
			parent.removeChild(n)
			orphans = append(orphans, collectEntries(n, nil)...)
		}
		n = parent
	}

	for !t.root.isLeaf() && len(t.root.children) == 1 {
		t.root = t.root.children[0]
		t.root.parent = nil
	}
	if !t.root.isLeaf() && len(t.root.children) == 0 {
		t.root = newLeaf()
	}

	for _, entry := range orphans {
		t.insertEntry(entry)
	}
}

func collectEntries(n *node, out []Entry) []Entry {
	if n.isLeaf() {
		return append(out, n.entries...)
	}
	for _, c := range n.children {
		out = collectEntries(c, out)
	}
	return out
}

// Update relocates an element to new bounds and z-index. Count is preserved;
// it reports false when the old entry is absent.
func (t *Tree) Update(oldBounds geom.Rect, oldZIndex int, newBounds geom.Rect, newZIndex int, element any) bool {
	if !t.Remove(oldBounds, oldZIndex, element) {
		return false
	}
	t.Insert(newBounds, newZIndex, element)
	return true
}

// UpdateZIndex restacks an element without moving it spatially. The entry's
// bounds stay put, so no MBR changes and no tree surgery is needed.
func (t *Tree) UpdateZIndex(element any, oldZIndex, newZIndex int) bool {
	entry, ok := t.elements[element]
	if !ok || entry.ZIndex != oldZIndex {
		return false
	}

	leaf := t.findLeaf(t.root, entry)
	if leaf == nil {
		return false
	}
	for i, cur := range leaf.entries {
		if cur.Bounds == entry.Bounds && cur.ZIndex == entry.ZIndex && cur.Element == entry.Element {
			leaf.entries[i].ZIndex = newZIndex
			break
		}
	}

	entry.ZIndex = newZIndex
	t.elements[element] = entry
	t.occlusion.invalidate()
	return true
}

// Query returns the payloads of every element whose bounds intersect the
// region. Descent prunes subtrees whose MBR misses the region.
func (t *Tree) Query(region geom.Rect) []any {
	defer instrumentQuery("region", time.Now())
	return payloads(t.queryEntries(region))
}

func (t *Tree) queryEntries(region geom.Rect) []Entry {
	var out []Entry
	var walk func(*node)
	walk = func(n *node) {
		if !n.mbr.Intersects(region) {
			return
		}
		if n.isLeaf() {
			for _, e := range n.entries {
				if e.Bounds.Intersects(region) {
					out = append(out, e)
				}
			}
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}

// QueryPoint returns the payloads of every element containing the cell
// (x, y).
func (t *Tree) QueryPoint(x, y int) []any {
	defer instrumentQuery("point", time.Now())
	return payloads(t.queryPointEntries(x, y))
}

func (t *Tree) queryPointEntries(x, y int) []Entry {
	var out []Entry
	var walk func(*node)
	walk = func(n *node) {
		if !n.mbr.ContainsPoint(x, y) {
			return
		}
		if n.isLeaf() {
			for _, e := range n.entries {
				if e.Bounds.ContainsPoint(x, y) {
					out = append(out, e)
				}
			}
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}

// QueryWithZRange returns the payloads intersecting the region whose z-index
// lies in [minZ, maxZ].
func (t *Tree) QueryWithZRange(region geom.Rect, minZ, maxZ int) []any {
	defer instrumentQuery("z_range", time.Now())

	var out []any
	for _, e := range t.queryEntries(region) {
		if e.ZIndex >= minZ && e.ZIndex <= maxZ {
			out = append(out, e.Element)
		}
	}
	return out
}

// QueryTopmost returns the payloads at (x, y) holding the maximum z-index
// among the matches. All tied elements are included; callers wanting a single
// winner impose their own tie-break.
func (t *Tree) QueryTopmost(x, y int) []any {
	defer instrumentQuery("topmost", time.Now())

	matches := t.queryPointEntries(x, y)
	if len(matches) == 0 {
		return nil
	}

	maxZ := matches[0].ZIndex
	for _, e := range matches[1:] {
		if e.ZIndex > maxZ {
			maxZ = e.ZIndex
		}
	}

	var out []any
	for _, e := range matches {
		if e.ZIndex == maxZ {
			out = append(out, e.Element)
		}
	}
	return out
}

// Clear resets the index to an empty leaf root.
func (t *Tree) Clear() {
	t.root = newLeaf()
	t.count = 0
	t.elements = make(map[any]Entry)
	t.occlusion.invalidate()
	instrumentElementCount(0)
}

// Rebuild reconstructs the tree from scratch by bulk-reinserting every
// stored entry, restoring balance after heavy deletion churn. Elements,
// bounds and z-indices are all preserved.
func (t *Tree) Rebuild() {
	entries := collectEntries(t.root, nil)
	t.root = newLeaf()
	for _, entry := range entries {
		t.insertEntry(entry)
	}
	t.occlusion.invalidate()

	instrumentRebuild()
	logs.WithTag("elements", len(entries)).
		WithTag("height", t.Height()).
		Debug("index rebuilt")
}

// Entries returns a snapshot of every stored entry in tree walk order.
func (t *Tree) Entries() []Entry {
	return collectEntries(t.root, nil)
}

func payloads(entries []Entry) []any {
	if len(entries) == 0 {
		return nil
	}
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.Element
	}
	return out
}

var _ scene.SpatialIndex = (*Tree)(nil)

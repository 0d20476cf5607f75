package rtree

import (
	"sort"
	"time"

	"github.com/hvitr/skuggi/featureflag"
	"github.com/hvitr/skuggi/geom"
	"github.com/hvitr/skuggi/scene"
)

// occlusionCache holds the per-element full-occlusion verdicts computed by
// RecalculateOcclusion. Every mutation invalidates it; stale queries fall
// back to direct computation.
type occlusionCache struct {
	valid bool
	fully map[any]bool
}

func (c *occlusionCache) invalidate() {
	c.valid = false
	c.fully = nil
}

// FindOccludedBy returns the elements directly below the given one in
// z-order whose bounds overlap its bounds. These are the stacking neighbors
// the element hides, fully or partially.
func (t *Tree) FindOccludedBy(element any) []any {
	entry, ok := t.elements[element]
	if !ok {
		return nil
	}

	var out []any
	for _, e := range t.queryEntries(entry.Bounds) {
		if e.Element != element && e.ZIndex < entry.ZIndex {
			out = append(out, e.Element)
		}
	}
	return out
}

// FindOccluding returns the elements directly above the given one in z-order
// whose bounds overlap its bounds.
func (t *Tree) FindOccluding(element any) []any {
	entry, ok := t.elements[element]
	if !ok {
		return nil
	}

	var out []any
	for _, e := range t.queryEntries(entry.Bounds) {
		if e.Element != element && e.ZIndex > entry.ZIndex {
			out = append(out, e.Element)
		}
	}
	return out
}

// IsCompletelyOccluded reports whether a single other element with a
// strictly greater z-index fully contains the element's bounds. A union of
// partial occluders never counts.
func (t *Tree) IsCompletelyOccluded(element any) bool {
	entry, ok := t.elements[element]
	if !ok {
		return false
	}
	if t.occlusion.valid {
		return t.occlusion.fully[element]
	}
	return t.coveredAbove(entry)
}

// coveredAbove looks for one higher-z entry containing the given entry's
// bounds. Descent is pruned to subtrees whose MBR contains the bounds, which
// keeps degenerate rectangles findable.
func (t *Tree) coveredAbove(entry Entry) bool {
	var walk func(*node) bool
	walk = func(n *node) bool {
		if !n.mbr.Contains(entry.Bounds) {
			return false
		}
		if n.isLeaf() {
			for _, e := range n.entries {
				if e.Element != entry.Element && e.ZIndex > entry.ZIndex && e.Bounds.Contains(entry.Bounds) {
					return true
				}
			}
			return false
		}
		for _, c := range n.children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(t.root)
}

// VisibleRegion returns nil when the element is completely occluded, and
// otherwise the portion of its bounds left uncovered by higher elements.
// With several overlapping occluders the true visible shape may not be a
// rectangle; the result is the largest remaining rectangle after clipping
// against each occluder in turn, topmost first. Its area is always between
// zero and the full bounds area.
func (t *Tree) VisibleRegion(element any) *geom.Rect {
	entry, ok := t.elements[element]
	if !ok {
		return nil
	}
	if t.IsCompletelyOccluded(element) {
		return nil
	}

	var occluders []Entry
	for _, e := range t.queryEntries(entry.Bounds) {
		if e.Element != element && e.ZIndex > entry.ZIndex {
			occluders = append(occluders, e)
		}
	}
	sort.SliceStable(occluders, func(i, j int) bool {
		return occluders[i].ZIndex > occluders[j].ZIndex
	})

	visible := entry.Bounds
	for _, o := range occluders {
		if !o.Bounds.Intersects(visible) {
			continue
		}
		visible = largestUncovered(visible, o.Bounds)
		if visible.IsEmpty() {
			break
		}
	}
	return &visible
}

// largestUncovered returns the largest of the four rectangular slabs of v
// left uncovered by o (left, right, above, below the occluder).
func largestUncovered(v, o geom.Rect) geom.Rect {
	candidates := []geom.Rect{
		{X: v.X, Y: v.Y, Width: o.X - v.X, Height: v.Height},
		{X: o.Right(), Y: v.Y, Width: v.Right() - o.Right(), Height: v.Height},
		{X: v.X, Y: v.Y, Width: v.Width, Height: o.Y - v.Y},
		{X: v.X, Y: o.Bottom(), Width: v.Width, Height: v.Bottom() - o.Bottom()},
	}

	best := geom.Rect{X: v.X, Y: v.Y}
	bestArea := 0
	for _, c := range candidates {
		if c.Width > 0 && c.Height > 0 && c.Area() > bestArea {
			best = c
			bestArea = c.Area()
		}
	}
	return best
}

// FindRevealedByMovement returns the elements that an occluder at z covered
// at oldBounds and no longer touches at newBounds. The render layer repaints
// them after a move.
func (t *Tree) FindRevealedByMovement(oldBounds, newBounds geom.Rect, z int) []any {
	defer instrumentQuery("revealed", time.Now())

	var out []any
	for _, e := range t.queryEntries(oldBounds) {
		if e.ZIndex < z && !e.Bounds.Intersects(newBounds) {
			out = append(out, e.Element)
		}
	}
	return out
}

// QueryVisible returns the payloads intersecting the region that are not
// completely occluded, ordered topmost first for painting.
func (t *Tree) QueryVisible(region geom.Rect) []any {
	defer instrumentQuery("visible", time.Now())

	entries := t.queryEntries(region)
	visible := entries[:0:0]
	for _, e := range entries {
		hidden := false
		if t.occlusion.valid {
			hidden = t.occlusion.fully[e.Element]
		} else {
			hidden = t.coveredAbove(e)
		}
		if !hidden {
			visible = append(visible, e)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].ZIndex > visible[j].ZIndex
	})
	return payloads(visible)
}

// RecalculateOcclusion recomputes the occlusion relationships of every
// stored element and caches the verdicts for the queries above. Payloads
// that are scene Elements get their occlusion bookkeeping mirrored onto
// them.
func (t *Tree) RecalculateOcclusion() {
	for element := range t.elements {
		if se, ok := element.(*scene.Element); ok {
			se.ResetOcclusion()
		}
	}

	fully := make(map[any]bool, len(t.elements))
	for element, entry := range t.elements {
		for _, above := range t.queryEntries(entry.Bounds) {
			if above.Element == element || above.ZIndex <= entry.ZIndex {
				continue
			}
			if se, ok := element.(*scene.Element); ok {
				if ae, ok := above.Element.(*scene.Element); ok {
					se.OccludedBy[ae] = struct{}{}
					ae.Occludes[se] = struct{}{}
				}
			}
		}
		if t.coveredAbove(entry) {
			fully[element] = true
		}
		if se, ok := element.(*scene.Element); ok {
			se.FullyOccluded = fully[element]
		}
	}

	t.flags.IfNotSet(featureflag.FlagDisableOcclusionCache, func() {
		t.occlusion = occlusionCache{valid: true, fully: fully}
	})
}

package scene

import (
	"sort"

	"github.com/hvitr/skuggi/geom"
)

// The linear calculator is the reference occlusion model. It is quadratic in
// the number of elements and defines the semantics the R-tree index must
// agree with; small scenes can use it directly.

// Change records one element's bounds or stacking move, as reported by the
// layout layer.
type Change struct {
	Element   *Element
	OldBounds geom.Rect
	NewBounds geom.Rect
	OldZIndex int
	NewZIndex int
}

// CalculateVisible recomputes occlusion for every element intersecting the
// viewport and returns the visible ones ordered topmost first. An element is
// dropped only when a single element strictly above it fully contains its
// bounds; elements at equal z never occlude each other.
func CalculateVisible(elements []*Element, viewport geom.Rect) []*Element {
	inView := make([]*Element, 0, len(elements))
	for _, e := range elements {
		if !e.Bounds.Intersects(viewport) {
			continue
		}
		e.ResetOcclusion()
		inView = append(inView, e)
	}

	for _, above := range inView {
		for _, below := range inView {
			if above == below || above.ZIndex <= below.ZIndex {
				continue
			}
			if above.CompletelyOccludes(below) {
				below.FullyOccluded = true
				below.OccludedBy[above] = struct{}{}
				above.Occludes[below] = struct{}{}
			} else if above.PartiallyOccludes(below) {
				below.OccludedBy[above] = struct{}{}
				above.Occludes[below] = struct{}{}
			}
		}
	}

	visible := make([]*Element, 0, len(inView))
	for _, e := range inView {
		if !e.FullyOccluded {
			visible = append(visible, e)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].ZIndex > visible[j].ZIndex
	})
	return visible
}

// CalculateDirtyRegions returns the rectangles that have to be repainted
// after the given changes: each change's old and new bounds, plus the bounds
// of every other element whose occlusion relationship with the changed
// element could have changed because their rectangles overlap.
func CalculateDirtyRegions(elements []*Element, changes []Change) []geom.Rect {
	var dirty []geom.Rect
	seen := make(map[*Element]struct{}, len(changes))

	for _, c := range changes {
		dirty = append(dirty, c.OldBounds, c.NewBounds)

		for _, other := range elements {
			if other == c.Element {
				continue
			}
			if _, ok := seen[other]; ok {
				continue
			}
			if other.Bounds.Intersects(c.OldBounds) || other.Bounds.Intersects(c.NewBounds) {
				seen[other] = struct{}{}
				dirty = append(dirty, other.Bounds)
			}
		}
	}
	return dirty
}

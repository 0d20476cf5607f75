package scene

import (
	"github.com/google/uuid"
	"github.com/hvitr/skuggi/geom"
)

// Element is a rectangular UI element placed in the scene. Bounds and ZIndex
// change as the layout layer moves and restacks it; Payload is the opaque
// widget reference and is never inspected.
//
// FullyOccluded, OccludedBy and Occludes are bookkeeping set by the occlusion
// algorithms. The sets hold references, not ownership.
type Element struct {
	ID      uuid.UUID
	Bounds  geom.Rect
	ZIndex  int
	Payload any

	FullyOccluded bool
	OccludedBy    map[*Element]struct{}
	Occludes      map[*Element]struct{}
}

func NewElement(bounds geom.Rect, zIndex int, payload any) *Element {
	return &Element{
		ID:         uuid.New(),
		Bounds:     bounds,
		ZIndex:     zIndex,
		Payload:    payload,
		OccludedBy: make(map[*Element]struct{}),
		Occludes:   make(map[*Element]struct{}),
	}
}

// CompletelyOccludes reports whether e hides other entirely: e is strictly
// above other and e's bounds fully contain other's. Equal z never occludes.
func (e *Element) CompletelyOccludes(other *Element) bool {
	return e.ZIndex > other.ZIndex && e.Bounds.Contains(other.Bounds)
}

// PartiallyOccludes reports whether e hides part of other but not all of it.
func (e *Element) PartiallyOccludes(other *Element) bool {
	return e.ZIndex > other.ZIndex &&
		e.Bounds.Intersects(other.Bounds) &&
		!e.Bounds.Contains(other.Bounds)
}

// VisibleRegion returns the element's bounds when it is at least partly
// visible, or nil when it is fully occluded. This is a binary judgment; the
// index computes finer sub-rectangles.
func (e *Element) VisibleRegion() *geom.Rect {
	if e.FullyOccluded {
		return nil
	}
	bounds := e.Bounds
	return &bounds
}

// ResetOcclusion clears the occlusion bookkeeping before a recompute.
func (e *Element) ResetOcclusion() {
	e.FullyOccluded = false
	e.OccludedBy = make(map[*Element]struct{})
	e.Occludes = make(map[*Element]struct{})
}

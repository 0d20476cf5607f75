package scene

import "github.com/hvitr/skuggi/geom"

// Statistics is the introspection snapshot exposed for diagnostics tooling.
type Statistics struct {
	TotalElements int
	MinZIndex     int
	MaxZIndex     int
	UniqueZLevels int
}

// SpatialIndex is the query surface the render scheduler and layout layer
// consume. Payloads are opaque; they must be comparable values (pointers in
// practice) since entries are addressed by (bounds, z-index, payload).
type SpatialIndex interface {
	Insert(bounds geom.Rect, zIndex int, element any) error
	Remove(bounds geom.Rect, zIndex int, element any) bool
	Update(oldBounds geom.Rect, oldZIndex int, newBounds geom.Rect, newZIndex int, element any) bool

	Query(region geom.Rect) []any
	QueryPoint(x, y int) []any
	QueryVisible(region geom.Rect) []any

	Statistics() Statistics
}

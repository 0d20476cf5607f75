package rtree

import "github.com/hvitr/skuggi/geom"

// Entry is the unit stored at leaf level: an element's bounds and stacking
// order plus the opaque payload. Entries are immutable; removal addresses
// them by the full (bounds, z-index, element) triple, so payloads must be
// comparable values (pointers in practice).
type Entry struct {
	Bounds  geom.Rect
	ZIndex  int
	Element any
}

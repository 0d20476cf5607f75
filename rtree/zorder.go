package rtree

import "github.com/hvitr/skuggi/scene"

// MaxZIndex returns the highest stored z-index. ok is false on an empty
// index.
func (t *Tree) MaxZIndex() (int, bool) {
	first := true
	var max int
	for _, entry := range t.elements {
		if first || entry.ZIndex > max {
			max = entry.ZIndex
			first = false
		}
	}
	return max, !first
}

// MinZIndex returns the lowest stored z-index. ok is false on an empty
// index.
func (t *Tree) MinZIndex() (int, bool) {
	first := true
	var min int
	for _, entry := range t.elements {
		if first || entry.ZIndex < min {
			min = entry.ZIndex
			first = false
		}
	}
	return min, !first
}

// BringToFront restacks the element strictly above the current maximum
// z-index. It reports false for an unknown element.
func (t *Tree) BringToFront(element any) bool {
	entry, ok := t.elements[element]
	if !ok {
		return false
	}
	max, _ := t.MaxZIndex()
	return t.UpdateZIndex(element, entry.ZIndex, max+1)
}

// SendToBack restacks the element strictly below the current minimum
// z-index. It reports false for an unknown element.
func (t *Tree) SendToBack(element any) bool {
	entry, ok := t.elements[element]
	if !ok {
		return false
	}
	min, _ := t.MinZIndex()
	return t.UpdateZIndex(element, entry.ZIndex, min-1)
}

// SwapZOrder exchanges the stored z-indices of two elements. It reports
// false when either element is unknown.
func (t *Tree) SwapZOrder(a, b any) bool {
	entryA, okA := t.elements[a]
	entryB, okB := t.elements[b]
	if !okA || !okB {
		return false
	}

	return t.UpdateZIndex(a, entryA.ZIndex, entryB.ZIndex) &&
		t.UpdateZIndex(b, entryB.ZIndex, entryA.ZIndex)
}

// Statistics returns the introspection snapshot for diagnostics tooling.
// Min and max z are zero on an empty index.
func (t *Tree) Statistics() scene.Statistics {
	levels := make(map[int]struct{}, len(t.elements))
	for _, entry := range t.elements {
		levels[entry.ZIndex] = struct{}{}
	}

	min, _ := t.MinZIndex()
	max, _ := t.MaxZIndex()
	return scene.Statistics{
		TotalElements: t.count,
		MinZIndex:     min,
		MaxZIndex:     max,
		UniqueZLevels: len(levels),
	}
}

package accel

import (
	"cmp"
	"fmt"
	"slices"
)

// Flatten sorts entries by cell (in place, stable, so ids within a cell keep
// insertion order) and packs them into the per-cell (count, offset) table and
// the grouped triangle id list. Cells without triangles stay (0, 0).
func Flatten(gridSize int, entries []CellEntry) (gridIndices, triangleIndices []uint32) {
	cellCount := gridSize * gridSize * gridSize

	slices.SortStableFunc(entries, func(a, b CellEntry) int {
		return cmp.Compare(a.Cell, b.Cell)
	})

	gridIndices = make([]uint32, 2*cellCount)
	triangleIndices = make([]uint32, len(entries))

	lastCell := ^uint32(0)
	for i, e := range entries {
		if int(e.Cell) >= cellCount {
			panic(fmt.Sprintf("accel: cell %d outside %d³ grid", e.Cell, gridSize))
		}
		if e.Cell != lastCell {
			gridIndices[2*e.Cell+1] = uint32(i)
		}
		triangleIndices[i] = e.Triangle
		gridIndices[2*e.Cell]++
		lastCell = e.Cell
	}
	return gridIndices, triangleIndices
}

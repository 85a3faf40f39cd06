package accel

import "github.com/go-gl/mathgl/mgl32"

// Stats summarizes a built structure.
type Stats struct {
	Vertices         int
	Triangles        int
	Seams            int
	Entries          int
	OccupiedCells    int
	MaxCellTriangles int
}

// Grid returns the cell lattice the structure was built on.
func (s *Structures) Grid() Grid {
	return Grid{Size: s.GridSize, Bounds: s.Bounds}
}

// CellSize returns the world extent of one cell.
func (s *Structures) CellSize() mgl32.Vec3 {
	return s.Bounds.Size().Mul(1 / float32(s.GridSize))
}

// CellTriangles returns the ids of the triangles overlapping cell (x, y, z),
// or nil for an empty cell or a coordinate outside the grid.
// The result aliases TriangleIndices.
func (s *Structures) CellTriangles(x, y, z int) []uint32 {
	g := s.Grid()
	if !g.InGrid(x, y, z) {
		return nil
	}
	cell := g.CellIndex(x, y, z)
	count := s.GridIndices[2*cell]
	if count == 0 {
		return nil
	}
	offset := s.GridIndices[2*cell+1]
	return s.TriangleIndices[offset : offset+count]
}

// Stats computes summary counts.
func (s *Structures) Stats() Stats {
	st := Stats{
		Vertices:  len(s.Vertices),
		Triangles: len(s.Triangles),
		Seams:     len(s.Seams),
		Entries:   len(s.TriangleIndices),
	}
	for i := 0; i+1 < len(s.GridIndices); i += 2 {
		count := int(s.GridIndices[i])
		if count == 0 {
			continue
		}
		st.OccupiedCells++
		if count > st.MaxCellTriangles {
			st.MaxCellTriangles = count
		}
	}
	return st
}

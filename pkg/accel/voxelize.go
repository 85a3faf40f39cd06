package accel

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbake/pkg/geom"
)

// Grid maps a G×G×G lattice of cells onto a world-space box.
// Size must be a power of two; see ValidateGridSize.
type Grid struct {
	Size   int
	Bounds geom.AABB
}

// CellIndex flattens a cell coordinate to x + y*G + z*G².
func (g Grid) CellIndex(x, y, z int) uint32 {
	return uint32(x + y*g.Size + z*g.Size*g.Size)
}

// InGrid reports whether each coordinate is in [0, G).
func (g Grid) InGrid(x, y, z int) bool {
	return x >= 0 && x < g.Size && y >= 0 && y < g.Size && z >= 0 && z < g.Size
}

// CellCount returns G³.
func (g Grid) CellCount() int {
	return g.Size * g.Size * g.Size
}

// Voxelize appends an entry for every leaf cell the triangle overlaps.
func (g Grid) Voxelize(tri [3]mgl32.Vec3, id uint32, out []CellEntry) []CellEntry {
	return g.PlotTriangle(g.Size, [3]int{}, g.Bounds, tri, id, out)
}

// PlotTriangle descends the octree below region, which spans levelSize cells
// per axis starting at cell offset. Octants the triangle misses are pruned;
// overlapped single-cell octants are appended to out.
func (g Grid) PlotTriangle(levelSize int, offset [3]int, region geom.AABB, tri [3]mgl32.Vec3, id uint32, out []CellEntry) []CellEntry {
	half := levelSize / 2

	for i := 0; i < 8; i++ {
		octant := region.Octant(i)
		if !geom.TriangleAABBOverlap(octant, tri) {
			continue
		}

		n := offset
		if i&1 != 0 {
			n[0] += half
		}
		if i&2 != 0 {
			n[1] += half
		}
		if i&4 != 0 {
			n[2] += half
		}

		if half == 1 {
			out = append(out, CellEntry{Cell: g.CellIndex(n[0], n[1], n[2]), Triangle: id})
			continue
		}
		out = g.PlotTriangle(half, n, octant, tri, id, out)
	}
	return out
}

// CellBounds returns the world box of a cell, derived by the same octant
// subdivision the voxelizer uses so the two agree bit for bit.
func (g Grid) CellBounds(x, y, z int) geom.AABB {
	region := g.Bounds
	var offset [3]int
	for level := g.Size; level > 1; level /= 2 {
		half := level / 2
		i := 0
		if x-offset[0] >= half {
			i |= 1
			offset[0] += half
		}
		if y-offset[1] >= half {
			i |= 2
			offset[1] += half
		}
		if z-offset[2] >= half {
			i |= 4
			offset[2] += half
		}
		region = region.Octant(i)
	}
	return region
}

// CellCoord returns the cell containing p. ok is false outside the grid
// and for NaN components.
func (g Grid) CellCoord(p mgl32.Vec3) (x, y, z int, ok bool) {
	size := g.Bounds.Size()
	var c [3]int
	for i := 0; i < 3; i++ {
		if !(p[i] >= g.Bounds.Min[i] && p[i] <= g.Bounds.Max[i]) || size[i] <= 0 {
			return 0, 0, 0, false
		}
		c[i] = int((p[i] - g.Bounds.Min[i]) / size[i] * float32(g.Size))
		if c[i] >= g.Size {
			c[i] = g.Size - 1
		}
	}
	return c[0], c[1], c[2], true
}

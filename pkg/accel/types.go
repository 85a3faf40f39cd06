// Package accel builds the lightmap baker's ray-query acceleration structures:
// a global vertex/triangle pool, atlas seam edges, and a uniform grid mapping
// cells to the triangles that overlap them.
package accel

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lightbake/pkg/geom"
)

// Vertex is one entry of the vertex pool. Position and normal are padded to
// four floats so the slice can be uploaded as a std430 storage buffer as is.
type Vertex struct {
	Position mgl32.Vec3
	_        float32
	Normal   mgl32.Vec3
	_        float32
	UV0      mgl32.Vec2 // surface UV
	UV1      mgl32.Vec2 // lightmap atlas UV
}

// Triangle references three pool vertices and carries its own bounds.
// Indices[3], MinBounds[3] and MaxBounds[3] are GPU padding.
type Triangle struct {
	Indices   [4]uint32
	MinBounds [4]float32
	MaxBounds [4]float32
}

// Bounds returns the triangle's AABB.
func (t Triangle) Bounds() geom.AABB {
	return geom.AABB{
		Min: mgl32.Vec3{t.MinBounds[0], t.MinBounds[1], t.MinBounds[2]},
		Max: mgl32.Vec3{t.MaxBounds[0], t.MaxBounds[1], t.MaxBounds[2]},
	}
}

// Seam pairs two edges (as vertex index pairs) that share 3D position and
// normals but map to different atlas UVs.
type Seam struct {
	A [2]uint32
	B [2]uint32
}

// CellEntry records that a triangle overlaps a grid cell.
type CellEntry struct {
	Cell     uint32 // x + y*G + z*G*G
	Triangle uint32
}

// Structures is the builder output. The caller owns it; nothing in this
// package mutates it after Build returns.
type Structures struct {
	GridSize  int
	Bounds    geom.AABB
	Vertices  []Vertex
	Triangles []Triangle
	Seams     []Seam

	// TriangleIndices holds triangle ids grouped by cell.
	TriangleIndices []uint32
	// GridIndices holds 2*G^3 words: [2i] triangle count of cell i,
	// [2i+1] offset of its first id in TriangleIndices.
	GridIndices []uint32
}

// TrianglePositions returns the positions of triangle i's vertices.
func (s *Structures) TrianglePositions(i int) [3]mgl32.Vec3 {
	t := s.Triangles[i]
	return [3]mgl32.Vec3{
		s.Vertices[t.Indices[0]].Position,
		s.Vertices[t.Indices[1]].Position,
		s.Vertices[t.Indices[2]].Position,
	}
}

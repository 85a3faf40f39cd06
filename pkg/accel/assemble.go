package accel

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/lightbake/pkg/geom"
)

// assembler accumulates the vertex and triangle pools across meshes.
type assembler struct {
	log     *zap.Logger
	verbose bool

	out    *Structures
	bounds geom.AABB
}

func newAssembler(meshes []Mesh, log *zap.Logger, verbose bool) *assembler {
	var vertices, triangles int
	for i := range meshes {
		vertices += meshes[i].VertexCount()
		triangles += meshes[i].TriangleCount()
	}

	return &assembler{
		log:     log,
		verbose: verbose,
		out: &Structures{
			Vertices:  make([]Vertex, 0, vertices),
			Triangles: make([]Triangle, 0, triangles),
			Seams:     []Seam{},
		},
		bounds: geom.EmptyAABB(),
	}
}

// addMesh appends a validated mesh to the pools.
func (a *assembler) addMesh(meshIdx int, m *Mesh) {
	vertexOffset := uint32(len(a.out.Vertices))

	for j := range m.Positions {
		a.out.Vertices = append(a.out.Vertices, Vertex{
			Position: m.Positions[j],
			Normal:   m.Normals[j],
			UV0:      m.UV0[j],
			UV1:      m.UV1[j],
		})
	}

	seams := NewSeamDetector(m.TriangleCount())
	seamsBefore := len(a.out.Seams)

	for j := 0; j+2 < m.IndexCount(); j += 3 {
		var (
			idx   [3]uint32
			pos   [3]mgl32.Vec3
			nrm   [3]mgl32.Vec3
			atlas [3]mgl32.Vec2
		)
		for k := 0; k < 3; k++ {
			local := m.Index(j + k)
			idx[k] = local + vertexOffset
			pos[k] = m.Positions[local]
			nrm[k] = m.Normals[local]
			atlas[k] = m.UV1[local]
			a.bounds.Expand(pos[k])
		}

		a.out.Seams = seams.AddTriangle(pos, nrm, atlas, idx, a.out.Seams)
		a.out.Triangles = append(a.out.Triangles, newTriangle(idx, pos))
	}

	a.log.Debug("mesh assembled",
		zap.Int("mesh", meshIdx),
		zap.String("name", m.Name),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("triangles", m.TriangleCount()),
		zap.Stringer("index_width", m.IndexWidth))

	if a.verbose {
		a.log.Info("mesh seams",
			zap.Int("mesh", meshIdx),
			zap.String("name", m.Name),
			zap.Int("edges", seams.EdgeCount()),
			zap.Int("seams", len(a.out.Seams)-seamsBefore))
	}
}

// finish grows the scene bounds by margin and returns the pools.
// A scene without triangles gets a box around the origin.
func (a *assembler) finish(margin float32) *Structures {
	if a.bounds.IsEmpty() {
		a.bounds = geom.AABB{}
	}
	a.bounds.Grow(margin)
	a.out.Bounds = a.bounds
	return a.out
}

func newTriangle(idx [3]uint32, pos [3]mgl32.Vec3) Triangle {
	box := geom.TriangleAABB(pos)
	return Triangle{
		Indices:   [4]uint32{idx[0], idx[1], idx[2], 0},
		MinBounds: [4]float32{box.Min[0], box.Min[1], box.Min[2], 0},
		MaxBounds: [4]float32{box.Max[0], box.Max[1], box.Max[2], 0},
	}
}

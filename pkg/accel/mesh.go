package accel

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh validation errors.
var (
	ErrAttributeMismatch = errors.New("vertex attribute arrays differ in length")
	ErrIndexWidth        = errors.New("unsupported index width")
	ErrIndexCount        = errors.New("index count is not a multiple of 3")
	ErrIndexOutOfRange   = errors.New("vertex index out of range")
)

// IndexWidth is the declared element size of a mesh index buffer.
type IndexWidth uint8

const (
	IndexWidth16 IndexWidth = 16
	IndexWidth32 IndexWidth = 32
)

// String returns "uint16", "uint32" or "Unknown(n)".
func (w IndexWidth) String() string {
	switch w {
	case IndexWidth16:
		return "uint16"
	case IndexWidth32:
		return "uint32"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(w))
	}
}

// Mesh is one input model. Attributes are parallel arrays indexed by vertex;
// positions and normals must already be in the space the grid is built in.
// Only the index slice matching IndexWidth is read.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UV0       []mgl32.Vec2
	UV1       []mgl32.Vec2

	IndexWidth IndexWidth
	Indices16  []uint16
	Indices32  []uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// IndexCount returns the number of indices in the declared index buffer.
func (m *Mesh) IndexCount() int {
	if m.IndexWidth == IndexWidth16 {
		return len(m.Indices16)
	}
	return len(m.Indices32)
}

// TriangleCount returns IndexCount()/3.
func (m *Mesh) TriangleCount() int {
	return m.IndexCount() / 3
}

// Index returns index i widened to 32 bits.
func (m *Mesh) Index(i int) uint32 {
	if m.IndexWidth == IndexWidth16 {
		return uint32(m.Indices16[i])
	}
	return m.Indices32[i]
}

// Validate checks attribute lengths, index width and index ranges.
// The first problem found is returned.
func (m *Mesh) Validate() error {
	n := len(m.Positions)
	if len(m.Normals) != n || len(m.UV0) != n || len(m.UV1) != n {
		return fmt.Errorf("%w: positions=%d normals=%d uv0=%d uv1=%d",
			ErrAttributeMismatch, n, len(m.Normals), len(m.UV0), len(m.UV1))
	}

	if m.IndexWidth != IndexWidth16 && m.IndexWidth != IndexWidth32 {
		return fmt.Errorf("%w: %s", ErrIndexWidth, m.IndexWidth)
	}

	count := m.IndexCount()
	if count%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrIndexCount, count)
	}

	for i := 0; i < count; i++ {
		if idx := m.Index(i); uint64(idx) >= uint64(n) {
			return fmt.Errorf("%w: triangle %d references vertex %d, mesh has %d",
				ErrIndexOutOfRange, i/3, idx, n)
		}
	}
	return nil
}

package accel

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// cubeMesh returns an axis-aligned cube of half extent 1 centered at the
// origin, with a separate vertex quad per face (24 vertices, 12 triangles).
func cubeMesh(width IndexWidth) Mesh {
	m := Mesh{Name: "cube", IndexWidth: width}
	var indices []uint32

	for axis := 0; axis < 3; axis++ {
		u, v := (axis+1)%3, (axis+2)%3
		for _, sign := range []float32{-1, 1} {
			var n mgl32.Vec3
			n[axis] = sign

			base := uint32(len(m.Positions))
			corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
			for _, c := range corners {
				var p mgl32.Vec3
				p[axis] = sign
				p[u] = c[0]
				p[v] = c[1]
				m.Positions = append(m.Positions, p)
				m.Normals = append(m.Normals, n)
				m.UV0 = append(m.UV0, mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2})
				m.UV1 = append(m.UV1, mgl32.Vec2{float32(axis) / 3, (sign + 1) / 4})
			}
			indices = append(indices, base, base+1, base+2, base, base+2, base+3)
		}
	}

	setIndices(&m, indices)
	return m
}

// triangleMesh builds a mesh with one vertex per triangle corner; every
// vertex has normal +Z and UV1 taken from uv1 (one entry per corner).
func triangleMesh(name string, tris [][3]mgl32.Vec3, uv1 [][3]mgl32.Vec2) Mesh {
	m := Mesh{Name: name, IndexWidth: IndexWidth32}
	var indices []uint32
	for i, tri := range tris {
		for k := 0; k < 3; k++ {
			indices = append(indices, uint32(len(m.Positions)))
			m.Positions = append(m.Positions, tri[k])
			m.Normals = append(m.Normals, mgl32.Vec3{0, 0, 1})
			m.UV0 = append(m.UV0, mgl32.Vec2{})
			m.UV1 = append(m.UV1, uv1[i][k])
		}
	}
	setIndices(&m, indices)
	return m
}

// randomMesh scatters n small triangles strictly inside [lo, hi]³.
func randomMesh(rng *rand.Rand, n int, lo, hi float32) Mesh {
	span := hi - lo
	point := func() mgl32.Vec3 {
		return mgl32.Vec3{lo + rng.Float32()*span, lo + rng.Float32()*span, lo + rng.Float32()*span}
	}

	tris := make([][3]mgl32.Vec3, n)
	uvs := make([][3]mgl32.Vec2, n)
	for i := range tris {
		a := point()
		for k := range tris[i] {
			d := mgl32.Vec3{rng.Float32() - 0.5, rng.Float32() - 0.5, rng.Float32() - 0.5}.Mul(span / 3)
			p := a.Add(d)
			for j := 0; j < 3; j++ {
				p[j] = mgl32.Clamp(p[j], lo+span/1000, hi-span/1000)
			}
			tris[i][k] = p
			uvs[i][k] = mgl32.Vec2{rng.Float32(), rng.Float32()}
		}
	}
	return triangleMesh("random", tris, uvs)
}

func setIndices(m *Mesh, indices []uint32) {
	if m.IndexWidth == IndexWidth16 {
		m.Indices16 = make([]uint16, len(indices))
		for i, idx := range indices {
			m.Indices16[i] = uint16(idx)
		}
		return
	}
	m.Indices32 = indices
}

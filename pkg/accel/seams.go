package accel

import "github.com/go-gl/mathgl/mgl32"

// EdgeKey identifies a mesh edge by its endpoint positions and normals.
// Endpoints are stored in canonical order so both half-edges of a shared edge
// produce the same key. Matching is exact: vertices that coincide only within
// rounding are different edges.
type EdgeKey struct {
	A, B   mgl32.Vec3
	NA, NB mgl32.Vec3
}

// EdgeUV is the atlas mapping recorded for the first half-edge seen with a
// given key.
type EdgeUV struct {
	A, B      mgl32.Vec2
	Indices   [2]uint32
	SeamFound bool
}

// SeamDetector finds atlas seams within one model. Create one per model;
// edges are never matched across detectors.
type SeamDetector struct {
	edges map[EdgeKey]*EdgeUV
}

// NewSeamDetector returns a detector sized for about triangles triangles.
func NewSeamDetector(triangles int) *SeamDetector {
	return &SeamDetector{edges: make(map[EdgeKey]*EdgeUV, triangles*3/2)}
}

// AddTriangle feeds the three edges of a triangle and appends any new seams
// to out. pos, nrm and atlas are the per-corner attributes, idx the global
// vertex indices.
func (d *SeamDetector) AddTriangle(pos, nrm [3]mgl32.Vec3, atlas [3]mgl32.Vec2, idx [3]uint32, out []Seam) []Seam {
	for k := 0; k < 3; k++ {
		n := (k + 1) % 3

		key := EdgeKey{A: pos[k], B: pos[n], NA: nrm[k], NB: nrm[n]}
		if key.A == key.B {
			continue
		}
		uv := EdgeUV{A: atlas[k], B: atlas[n], Indices: [2]uint32{idx[k], idx[n]}}

		if lessVec3(key.B, key.A) {
			key.A, key.B = key.B, key.A
			key.NA, key.NB = key.NB, key.NA
			uv.A, uv.B = uv.B, uv.A
			uv.Indices[0], uv.Indices[1] = uv.Indices[1], uv.Indices[0]
		}

		stored, ok := d.edges[key]
		if !ok {
			d.edges[key] = &uv
			continue
		}
		if stored.A == uv.A && stored.B == uv.B {
			continue
		}
		if stored.SeamFound {
			continue
		}

		out = append(out, Seam{A: uv.Indices, B: stored.Indices})
		stored.SeamFound = true
	}
	return out
}

// EdgeCount returns the number of distinct edges seen.
func (d *SeamDetector) EdgeCount() int {
	return len(d.edges)
}

func lessVec3(a, b mgl32.Vec3) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

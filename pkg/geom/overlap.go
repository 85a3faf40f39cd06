package geom

import "github.com/go-gl/mathgl/mgl32"

// TriangleBoxOverlap reports whether a triangle intersects the box given by
// its center and half extents, using the separating axis theorem
// (Akenine-Möller). Touching counts as overlap.
func TriangleBoxOverlap(center, half mgl32.Vec3, tri [3]mgl32.Vec3) bool {
	// Box-local space
	v0 := tri[0].Sub(center)
	v1 := tri[1].Sub(center)
	v2 := tri[2].Sub(center)

	e0 := v1.Sub(v0)
	e1 := v2.Sub(v1)
	e2 := v0.Sub(v2)

	// Nine cross-product axes: each triangle edge against each box axis.
	for _, e := range [3]mgl32.Vec3{e0, e1, e2} {
		fx, fy, fz := mgl32.Abs(e[0]), mgl32.Abs(e[1]), mgl32.Abs(e[2])

		// edge × X
		if separated(
			e[2]*v0[1]-e[1]*v0[2],
			e[2]*v1[1]-e[1]*v1[2],
			e[2]*v2[1]-e[1]*v2[2],
			fz*half[1]+fy*half[2],
		) {
			return false
		}
		// edge × Y
		if separated(
			-e[2]*v0[0]+e[0]*v0[2],
			-e[2]*v1[0]+e[0]*v1[2],
			-e[2]*v2[0]+e[0]*v2[2],
			fz*half[0]+fx*half[2],
		) {
			return false
		}
		// edge × Z
		if separated(
			e[1]*v0[0]-e[0]*v0[1],
			e[1]*v1[0]-e[0]*v1[1],
			e[1]*v2[0]-e[0]*v2[1],
			fy*half[0]+fx*half[1],
		) {
			return false
		}
	}

	// Box face normals.
	for i := 0; i < 3; i++ {
		if separated(v0[i], v1[i], v2[i], half[i]) {
			return false
		}
	}

	normal := e0.Cross(e1)
	d := -normal.Dot(v0)
	return planeBoxOverlap(normal, d, half)
}

// TriangleAABBOverlap is TriangleBoxOverlap for a min/max box.
func TriangleAABBOverlap(box AABB, tri [3]mgl32.Vec3) bool {
	return TriangleBoxOverlap(box.Center(), box.HalfSize(), tri)
}

// separated reports whether the projections p0, p1, p2 fall entirely outside
// [-rad, rad].
func separated(p0, p1, p2, rad float32) bool {
	lo, hi := p0, p0
	if p1 < lo {
		lo = p1
	}
	if p1 > hi {
		hi = p1
	}
	if p2 < lo {
		lo = p2
	}
	if p2 > hi {
		hi = p2
	}
	return lo > rad || hi < -rad
}

// planeBoxOverlap tests the plane n·x + d = 0 against a box centered at the
// origin with half extents half.
func planeBoxOverlap(normal mgl32.Vec3, d float32, half mgl32.Vec3) bool {
	var vmin, vmax mgl32.Vec3
	for q := 0; q < 3; q++ {
		if normal[q] > 0 {
			vmin[q] = -half[q]
			vmax[q] = half[q]
		} else {
			vmin[q] = half[q]
			vmax[q] = -half[q]
		}
	}
	if normal.Dot(vmin)+d > 0 {
		return false
	}
	return normal.Dot(vmax)+d >= 0
}

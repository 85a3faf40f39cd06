// Package geom provides bounding boxes and exact overlap predicates used by
// the acceleration structure builder.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box stored as min and max corners.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Expand call will replace.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// NewAABB creates an AABB from two corners, ordering each axis.
func NewAABB(a, b mgl32.Vec3) AABB {
	box := AABB{Min: a, Max: b}
	for i := 0; i < 3; i++ {
		if box.Min[i] > box.Max[i] {
			box.Min[i], box.Max[i] = box.Max[i], box.Min[i]
		}
	}
	return box
}

// TriangleAABB returns the bounds of three points.
func TriangleAABB(tri [3]mgl32.Vec3) AABB {
	box := EmptyAABB()
	for _, p := range tri {
		box.Expand(p)
	}
	return box
}

// IsEmpty reports whether no point has been added to the box.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Expand grows the box to include p.
func (b *AABB) Expand(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Merge grows the box to include other. Merging an empty box is a no-op.
func (b *AABB) Merge(other AABB) {
	if other.IsEmpty() {
		return
	}
	b.Expand(other.Min)
	b.Expand(other.Max)
}

// Grow pushes every face outward by amount.
func (b *AABB) Grow(amount float32) {
	d := mgl32.Vec3{amount, amount, amount}
	b.Min = b.Min.Sub(d)
	b.Max = b.Max.Add(d)
}

// Size returns the box extent on each axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// HalfSize returns half the extent on each axis.
func (b AABB) HalfSize() mgl32.Vec3 {
	return b.Size().Mul(0.5)
}

// Center returns the box midpoint.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.HalfSize())
}

// Contains reports whether p lies inside the box, faces included.
func (b AABB) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Octant returns one of the eight equal sub-boxes. Bit 0 of i selects the
// upper half on X, bit 1 on Y, bit 2 on Z.
func (b AABB) Octant(i int) AABB {
	half := b.HalfSize()
	origin := b.Min
	if i&1 != 0 {
		origin[0] += half[0]
	}
	if i&2 != 0 {
		origin[1] += half[1]
	}
	if i&4 != 0 {
		origin[2] += half[2]
	}
	return AABB{Min: origin, Max: origin.Add(half)}
}

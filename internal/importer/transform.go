package importer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// localMatrix returns a node's transform relative to its parent: the explicit
// matrix when set, otherwise T * R * S.
func localMatrix(n *gltf.Node) mgl32.Mat4 {
	if m := n.MatrixOrDefault(); m != identityMatrix {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()

	rot := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

// transformNormal applies the inverse-transpose matrix and renormalizes.
// Normals that collapse to zero (singular transforms) are kept as is.
func transformNormal(normalMat mgl32.Mat3, n mgl32.Vec3) mgl32.Vec3 {
	out := normalMat.Mul3x1(n)
	if l := out.Len(); l > 0 {
		return out.Mul(1 / l)
	}
	return n
}

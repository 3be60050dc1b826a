// Package xform converts transforms from the host convention (Z up, Y forward)
// to the wire convention (Y up, Z forward).
//
// Two forms exist for rotations. Quaternion is a component permutation that
// re-expresses a rotation in the wire basis; it is used for object and bone
// transforms. QuatZupToYup composes the rotation with a fixed -90deg turn about X
// and is used for cameras and lights, whose forward axis also needs correcting.
package xform

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/renderlink/pkg/math"
)

var (
	// zupToYup turns the host basis into the wire basis.
	zupToYup = mgl32.QuatRotate(mgl32.DegToRad(-90), mgl32.Vec3{1, 0, 0})
	// flipForward turns an object that looks down -Z so that it looks down +Z.
	flipForward = mgl32.QuatRotate(mgl32.DegToRad(180), mgl32.Vec3{0, 1, 0})
)

// Vector converts a position or direction: (x, y, z) -> (x, z, -y).
func Vector(v math.Vec3) math.Vec3 {
	return math.Vec3{X: v.X, Y: v.Z, Z: -v.Y}
}

// VectorInverse undoes Vector: (x, y, z) -> (x, -z, y).
func VectorInverse(v math.Vec3) math.Vec3 {
	return math.Vec3{X: v.X, Y: -v.Z, Z: v.Y}
}

// Scale converts per-axis scale factors. Magnitudes swap axes without a sign flip.
func Scale(v math.Vec3) math.Vec3 {
	return math.Vec3{X: v.X, Y: v.Z, Z: v.Y}
}

// Quaternion re-expresses a rotation in the wire basis: (w, x, y, z) -> (w, x, z, -y).
func Quaternion(q math.Quat) math.Quat {
	return math.Quat{W: q.W, X: q.X, Y: q.Z, Z: -q.Y}
}

// QuaternionInverse undoes Quaternion.
func QuaternionInverse(q math.Quat) math.Quat {
	return math.Quat{W: q.W, X: q.X, Y: -q.Z, Z: q.Y}
}

// QuatZupToYup composes q with the basis change, so that the result applied to a
// host-space vector yields that vector rotated by q and expressed in wire space.
func QuatZupToYup(q math.Quat) math.Quat {
	return fromMgl(zupToYup.Mul(toMgl(q)).Normalize())
}

// ZBackwardToForward rotates q by 180deg about its local Y axis.
// Host cameras and spot lights face -Z; the wire expects +Z.
func ZBackwardToForward(q math.Quat) math.Quat {
	return fromMgl(toMgl(q).Mul(flipForward).Normalize())
}

// Matrix4 returns a column-major copy of m without any axis conversion.
// Projection matrices are passed through this way.
func Matrix4(m math.Mat4) [16]float32 {
	var out [16]float32
	copy(out[:], m[:])
	return out
}

func toMgl(q math.Quat) mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}
}

func fromMgl(q mgl32.Quat) math.Quat {
	return math.Quat{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W}
}

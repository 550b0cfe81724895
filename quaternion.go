package eskf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// smallAngle is the rotation angle (in radians) below which the exponential
// map falls back to its first order expansion.
const smallAngle = 1e-10

// Quaternion is a Hamilton quaternion with the scalar part first.
type Quaternion struct {
	W, X, Y, Z float64
}

// IdentityQuaternion is the null rotation.
var IdentityQuaternion = Quaternion{W: 1}

// QuaternionAt reads the quaternion stored in v starting at index i.
func QuaternionAt(v mat.Vector, i int) Quaternion {
	return Quaternion{v.AtVec(i), v.AtVec(i + 1), v.AtVec(i + 2), v.AtVec(i + 3)}
}

// Slice returns the quaternion as [w x y z].
func (q Quaternion) Slice() []float64 {
	return []float64{q.W, q.X, q.Y, q.Z}
}

// Norm returns the euclidean norm of the quaternion.
func (q Quaternion) Norm() float64 {
	return floats.Norm(q.Slice(), 2)
}

// Conj returns the conjugate of the quaternion, i.e. the inverse rotation of a unit quaternion.
func (q Quaternion) Conj() Quaternion {
	return Quaternion{q.W, -q.X, -q.Y, -q.Z}
}

// Unit returns the quaternion scaled to unit length.
// A zero quaternion has no direction and resolves to the identity.
func (q Quaternion) Unit() Quaternion {
	n := q.Norm()
	if n == 0 {
		return IdentityQuaternion
	}
	return Quaternion{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

func (q Quaternion) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", q.W, q.X, q.Y, q.Z)
}

// HamiltonProduct returns p⊗q.
func HamiltonProduct(p, q Quaternion) Quaternion {
	return Quaternion{
		W: p.W*q.W - p.X*q.X - p.Y*q.Y - p.Z*q.Z,
		X: p.W*q.X + p.X*q.W + p.Y*q.Z - p.Z*q.Y,
		Y: p.W*q.Y - p.X*q.Z + p.Y*q.W + p.Z*q.X,
		Z: p.W*q.Z + p.X*q.Y - p.Y*q.X + p.Z*q.W,
	}
}

// FromRotationVector returns the exponential map of the rotation vector θ,
// i.e. (cos(|θ|/2), sin(|θ|/2)·θ/|θ|). Rotations smaller than smallAngle use
// the first order expansion (1, θ/2), normalized, so that a zero rotation
// gives the identity instead of dividing by zero.
func FromRotationVector(θ mat.Vector) Quaternion {
	v := []float64{θ.AtVec(0), θ.AtVec(1), θ.AtVec(2)}
	angle := floats.Norm(v, 2)
	if angle < smallAngle {
		return Quaternion{1, v[0] / 2, v[1] / 2, v[2] / 2}.Unit()
	}
	s := math.Sin(angle/2) / angle
	return Quaternion{math.Cos(angle / 2), s * v[0], s * v[1], s * v[2]}
}

// RotationVector is the inverse of FromRotationVector. It takes the short
// way around, so q and -q give the same rotation vector.
func (q Quaternion) RotationVector() *mat.VecDense {
	u := q.Unit()
	if u.W < 0 {
		u = Quaternion{-u.W, -u.X, -u.Y, -u.Z}
	}
	v := []float64{u.X, u.Y, u.Z}
	n := floats.Norm(v, 2)
	if n < smallAngle {
		return mat.NewVecDense(3, []float64{2 * v[0], 2 * v[1], 2 * v[2]})
	}
	floats.Scale(2*math.Atan2(n, u.W)/n, v)
	return mat.NewVecDense(3, v)
}

// RotationMatrix returns the body to world rotation matrix
// R(q) = I + 2η[ε]× + 2[ε]×[ε]× of the quaternion q = (η, ε).
func RotationMatrix(q Quaternion) *mat.Dense {
	S := Skew(mat.NewVecDense(3, []float64{q.X, q.Y, q.Z}))
	var S2 mat.Dense
	S2.Mul(S, S)
	S2.Scale(2, &S2)
	R := mat.NewDense(3, 3, nil)
	R.Scale(2*q.W, S)
	R.Add(R, &S2)
	R.Add(R, Identity(3))
	return R
}

// Skew returns the skew-symmetric cross product matrix [v]× such that [v]×u = v×u.
func Skew(v mat.Vector) *mat.Dense {
	x, y, z := v.AtVec(0), v.AtVec(1), v.AtVec(2)
	return mat.NewDense(3, 3, []float64{
		0, -z, y,
		z, 0, -x,
		-y, x, 0,
	})
}

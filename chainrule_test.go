package eskf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestQuaternionErrorJacobian(t *testing.T) {
	q := Quaternion{0.7, -0.2, 0.4, 0.1}.Unit()
	Q := QuaternionErrorJacobian(q)
	δθ := mat.NewVecDense(3, []float64{1e-7, -2e-7, 3e-7})
	perturbed := HamiltonProduct(q, Quaternion{1, δθ.AtVec(0) / 2, δθ.AtVec(1) / 2, δθ.AtVec(2) / 2})
	var dq mat.VecDense
	dq.MulVec(Q, δθ)
	diff := make([]float64, 4)
	floats.SubTo(diff, perturbed.Slice(), q.Slice())
	assert.True(t, floats.EqualApprox(diff, dq.RawVector().Data, 1e-14), "q⊗δq - q = %v, Q*δθ = %v", diff, dq.RawVector().Data)

	// Attitude errors are tangent to the unit sphere.
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 0, floats.Dot(mat.Col(nil, j, Q), q.Slice()), 1e-15)
	}
}

func TestErrorStateJacobian(t *testing.T) {
	q := Quaternion{0.7, -0.2, 0.4, 0.1}.Unit()
	X := ErrorStateJacobian(q)
	if r, c := X.Dims(); r != NominalSize || c != ErrorSize {
		t.Fatalf("X is %dx%d", r, c)
	}
	if !mat.Equal(block(X, PosIdx, ErrPosIdx, 6, 6), Identity(6)) {
		t.Fatal("position/velocity block is not the identity")
	}
	if !mat.Equal(block(X, AccBiasIdx, ErrAccBias, 6, 6), Identity(6)) {
		t.Fatal("bias block is not the identity")
	}
	if !mat.Equal(block(X, QuatIdx, ErrAttIdx, 4, 3), QuaternionErrorJacobian(q)) {
		t.Fatal("attitude block is not the quaternion error Jacobian")
	}
	if !IsNil(block(X, QuatIdx, ErrPosIdx, 4, 6)) || !IsNil(block(X, QuatIdx, ErrAccBias, 4, 6)) {
		t.Fatal("quaternion depends on non attitude errors")
	}
}

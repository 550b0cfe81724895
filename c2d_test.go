package eskf

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestVanLoan(t *testing.T) {
	A := mat.NewDense(2, 2, []float64{0, 1, 0, 0})
	Γ := mat.NewDense(2, 1, []float64{0, 1})
	W := mat.NewDense(1, 1, []float64{1})
	F, Q, err := VanLoan(A, Γ, W, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	Fexp := mat.NewDense(2, 2, []float64{1, 0.1, 0, 1})
	Qexp := mat.NewSymDense(2, []float64{0.1 * 0.1 * 0.1 / 3, 0.1 * 0.1 / 2, 0.1 * 0.1 / 2, 0.1})

	if !mat.EqualApprox(F, Fexp, 1e-12) {
		t.Fatalf("F incorrectly computed\n%v", mat.Formatted(F))
	}

	if !mat.EqualApprox(Q, Qexp, 1e-12) {
		t.Fatalf("Q incorrectly computed\n%v", mat.Formatted(Q))
	}
}

func TestVanLoanErrors(t *testing.T) {
	A := mat.NewDense(2, 2, []float64{0, 1, 0, 0})
	Γ := mat.NewDense(2, 1, []float64{0, 1})
	W := mat.NewDense(1, 1, []float64{1})
	if _, _, err := VanLoan(A, Γ, W, 0); !errors.Is(err, ErrNonPositiveStep) {
		t.Fatalf("Δt=0 returned %v", err)
	}
	if _, _, err := VanLoan(A, mat.NewDense(3, 1, nil), W, 0.1); err == nil {
		t.Fatal("Γ with wrong number of rows accepted")
	}
	// Harmonic oscillator at 1 rad/s sampled well below the Nyquist rate.
	osc := mat.NewDense(2, 2, []float64{0, 1, -1, 0})
	if _, _, err := VanLoan(osc, Γ, W, 2); !errors.Is(err, ErrAliasing) {
		t.Fatalf("aliased sampling returned %v", err)
	}
	stiff := mat.NewDense(2, 2, []float64{-1e4, 0, 0, -1e4})
	if _, _, err := VanLoan(stiff, Γ, W, 1); !errors.Is(err, ErrIllConditioned) {
		t.Fatalf("stiff system returned %v", err)
	}
}

func TestDiscreteErrorMatrixFirstOrder(t *testing.T) {
	e := testEstimator(t)
	x := NewNominalState(mat.NewVecDense(3, []float64{1, 2, 3}), mat.NewVecDense(3, []float64{0.5, -0.2, 0.1}),
		Quaternion{0.9, 0.1, -0.3, 0.2}.Unit(), nil, nil)
	acc := mat.NewVecDense(3, []float64{0.3, -0.1, -9.7})
	gyro := mat.NewVecDense(3, []float64{0.02, -0.01, 0.05})
	Ts := 1e-4
	Ad, GQGD, err := e.DiscreteErrorMatrix(x, acc, gyro, Ts)
	if err != nil {
		t.Fatal(err)
	}

	A := e.ErrorDynamics(x, acc, gyro)
	var AdExp mat.Dense
	AdExp.Scale(Ts, A)
	AdExp.Add(&AdExp, Identity(ErrorSize))
	if !mat.EqualApprox(Ad, &AdExp, 1e-6) {
		t.Fatalf("Ad != I + Ts*A\n%v", mat.Formatted(Ad))
	}

	G := NoiseInput(x)
	var GD, GQGDExp mat.Dense
	GD.Mul(G, e.ProcessNoise())
	GQGDExp.Mul(&GD, G.T())
	GQGDExp.Scale(Ts, &GQGDExp)
	if !mat.EqualApprox(GQGD, &GQGDExp, 1e-9) {
		t.Fatalf("GQGD != Ts*G*D*G'\n%v", mat.Formatted(GQGD))
	}
	if !IsPSD(GQGD, 1e-15) {
		t.Fatal("discrete process noise is not PSD")
	}
}

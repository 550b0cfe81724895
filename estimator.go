package eskf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// StandardGravity is the gravity magnitude used when the configuration does not set one.
const StandardGravity = 9.81

// psdTolerance is the most negative eigenvalue accepted for a noise covariance.
const psdTolerance = 1e-12

// Config holds the parameters of an Estimator.
// Nil correction matrices default to the identity.
type Config struct {
	AccNoise      mat.Symmetric // accelerometer white noise (3x3)
	GyroNoise     mat.Symmetric // gyroscope white noise (3x3)
	AccBiasNoise  mat.Symmetric // accelerometer bias driving noise (3x3)
	GyroBiasNoise mat.Symmetric // gyroscope bias driving noise (3x3)

	// Inverse time constants of the first order Gauss-Markov bias models.
	// Zero turns a bias into a random walk.
	AccBiasDecay  float64
	GyroBiasDecay float64

	AccCorrection          mat.Matrix // Sa
	GyroCorrection         mat.Matrix // Sg
	DVLCorrection          mat.Matrix // Sdvl
	InclinometerCorrection mat.Matrix // Sinc

	// Gravity magnitude along the world z axis (pointing down), StandardGravity if nil.
	Gravity *float64
}

// Estimator is the immutable configuration of the error-state Kalman filter.
// The nominal state and the covariance are owned by the caller and threaded
// through Predict, UpdateDepth and UpdateDVL, so an Estimator may be shared
// between goroutines.
type Estimator struct {
	sa, sg, sdvl, sinc  *mat.Dense
	pAccBias, pGyroBias float64
	d                   *mat.SymDense
	gravity             *mat.VecDense
}

// New validates the configuration and returns a new Estimator.
func New(cfg Config) (*Estimator, error) {
	noises := []struct {
		name string
		m    mat.Symmetric
	}{
		{"accelerometer noise", cfg.AccNoise},
		{"gyroscope noise", cfg.GyroNoise},
		{"accelerometer bias noise", cfg.AccBiasNoise},
		{"gyroscope bias noise", cfg.GyroBiasNoise},
	}
	blocks := make([]mat.Matrix, len(noises))
	for i, n := range noises {
		if n.m == nil {
			return nil, fmt.Errorf("%w: %s is missing", ErrInvalidNoise, n.name)
		}
		if err := checkShape(n.m, n.name, 3, 3); err != nil {
			return nil, err
		}
		if !IsPSD(n.m, psdTolerance) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidNoise, n.name)
		}
		blocks[i] = n.m
	}
	for name, p := range map[string]float64{"accelerometer": cfg.AccBiasDecay, "gyroscope": cfg.GyroBiasDecay} {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: %s bias decay is %g", ErrInvalidDecay, name, p)
		}
	}
	corrections := []mat.Matrix{cfg.AccCorrection, cfg.GyroCorrection, cfg.DVLCorrection, cfg.InclinometerCorrection}
	for i, S := range corrections {
		if S == nil {
			corrections[i] = Identity(3)
			continue
		}
		if r, c := S.Dims(); r != 3 || c != 3 || !IsFinite(S) {
			return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidCorrection, r, c)
		}
	}
	g := StandardGravity
	if cfg.Gravity != nil {
		g = *cfg.Gravity
	}
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return nil, fmt.Errorf("eskf: invalid gravity %g", g)
	}

	D, err := AsSymDense(BlockDiag(blocks...))
	if err != nil {
		return nil, err
	}
	return &Estimator{
		sa:        mat.DenseCopyOf(corrections[0]),
		sg:        mat.DenseCopyOf(corrections[1]),
		sdvl:      mat.DenseCopyOf(corrections[2]),
		sinc:      mat.DenseCopyOf(corrections[3]),
		pAccBias:  cfg.AccBiasDecay,
		pGyroBias: cfg.GyroBiasDecay,
		d:         D,
		gravity:   mat.NewVecDense(3, []float64{0, 0, g}),
	}, nil
}

// ProcessNoise returns a copy of the 12x12 block diagonal process noise D.
func (e *Estimator) ProcessNoise() *mat.SymDense {
	return mat.NewSymDense(NoiseSize, mat.DenseCopyOf(e.d).RawMatrix().Data)
}

// Gravity returns a copy of the world frame gravity vector.
func (e *Estimator) Gravity() *mat.VecDense {
	return mat.VecDenseCopyOf(e.gravity)
}

// CorrectDVL applies the DVL scale and misalignment correction Sdvl to a raw DVL velocity.
func (e *Estimator) CorrectDVL(z mat.Vector) *mat.VecDense {
	var corrected mat.VecDense
	corrected.MulVec(e.sdvl, z)
	return &corrected
}

// CorrectInclinometer applies the inclinometer correction Sinc to a raw inclinometer sample.
func (e *Estimator) CorrectInclinometer(z mat.Vector) *mat.VecDense {
	var corrected mat.VecDense
	corrected.MulVec(e.sinc, z)
	return &corrected
}

func (e *Estimator) String() string {
	return fmt.Sprintf("Estimator{\npAccBias=%g pGyroBias=%g g=%g\nSa=%v\nSg=%v\nD=%v}\n", e.pAccBias, e.pGyroBias, e.gravity.AtVec(2),
		mat.Formatted(e.sa, mat.Prefix("   ")), mat.Formatted(e.sg, mat.Prefix("   ")), mat.Formatted(e.d, mat.Prefix("  ")))
}

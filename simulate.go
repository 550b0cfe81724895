package eskf

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Motion returns the true world frame acceleration and body frame angular
// rate of the vehicle in state x at step k.
type Motion func(k int, x mat.Vector) (acceleration, angularRate *mat.VecDense)

// ConstantRate turns the vehicle at the body frame angular rate ω while
// keeping its speed: the world frame acceleration is (R*ω) × v.
func ConstantRate(ω mat.Vector) Motion {
	rate := mat.VecDenseCopyOf(ω)
	return func(_ int, x mat.Vector) (*mat.VecDense, *mat.VecDense) {
		var ωWorld, a mat.VecDense
		ωWorld.MulVec(RotationMatrix(QuaternionAt(x, QuatIdx)), rate)
		a.MulVec(Skew(&ωWorld), vec3(x, VelIdx))
		return &a, mat.VecDenseCopyOf(rate)
	}
}

// Dive describes a simulated run of the vehicle with its aiding sensors.
// The IMU noise and bias models are those of the Estimator it is simulated with.
type Dive struct {
	Ts         float64
	Steps      int
	Motion     Motion        // nil keeps the vehicle at rest
	DepthEvery int           // steps between two depth measurements, zero disables them
	DVLEvery   int           // steps between two DVL measurements, zero disables them
	DepthNoise mat.Symmetric // 1x1
	DVLNoise   mat.Symmetric // 3x3
}

// Sample holds the raw sensor readings of one step of a dive: the IMU at the
// start of the step and the aiding sensors at its end.
type Sample struct {
	Acc, Gyro *mat.VecDense
	HasDepth  bool
	Depth     float64
	DVL       *mat.VecDense // raw, nil when there is no DVL measurement
}

func (d Dive) validate() error {
	if !(d.Ts > 0) {
		return fmt.Errorf("%w: Ts=%g", ErrNonPositiveStep, d.Ts)
	}
	if d.Steps < 0 || d.DepthEvery < 0 || d.DVLEvery < 0 {
		return errors.New("eskf: dive step counts must be non-negative")
	}
	if d.DepthEvery > 0 {
		if d.DepthNoise == nil {
			return fmt.Errorf("%w: depth noise is missing", ErrInvalidNoise)
		}
		if err := checkShape(d.DepthNoise, "depth noise", 1, 1); err != nil {
			return err
		}
	}
	if d.DVLEvery > 0 {
		if d.DVLNoise == nil {
			return fmt.Errorf("%w: DVL noise is missing", ErrInvalidNoise)
		}
		if err := checkShape(d.DVLNoise, "DVL noise", 3, 3); err != nil {
			return err
		}
	}
	return nil
}

// newSensorNoise returns a zero mean Gaussian noise of covariance s*R,
// or a Noiseless one when R is zero. R may be singular.
func newSensorNoise(R mat.Matrix, s float64) (Noise, error) {
	sym, err := AsSymDense(R)
	if err != nil {
		return nil, err
	}
	sym.ScaleSym(s, sym)
	if IsNil(sym) {
		return NewNoiseless(sym), nil
	}
	return NewAWGN(sym)
}

// Simulate integrates the true trajectory from x0 and generates the raw sensor
// samples the vehicle would record. It returns the Steps+1 true states, x0
// first, and the Steps samples.
//
// The continuous white noises of the IMU are sampled with covariance D/Ts and
// the bias driving noises with D*Ts. Raw samples are distorted by the inverse
// of the corrections of e, so that rectification recovers the true signal.
func (d Dive) Simulate(e *Estimator, x0 mat.Vector) (*GroundTruth, []Sample, error) {
	if err := d.validate(); err != nil {
		return nil, nil, err
	}
	if x0.Len() != NominalSize {
		return nil, nil, fmt.Errorf("%sx0(%d) expected (%d)", dimErrMsg, x0.Len(), NominalSize)
	}
	var SaInv, SgInv, SdvlInv mat.Dense
	for _, inv := range []struct {
		name string
		dst  *mat.Dense
		S    *mat.Dense
	}{{"accelerometer", &SaInv, e.sa}, {"gyroscope", &SgInv, e.sg}, {"DVL", &SdvlInv, e.sdvl}} {
		if err := inv.dst.Inverse(inv.S); err != nil {
			return nil, nil, fmt.Errorf("eskf: %s correction is not invertible: %w", inv.name, err)
		}
	}

	noises := make([]Noise, 6)
	for i, n := range []struct {
		R mat.Matrix
		s float64
	}{
		{block(e.d, 0, 0, 3, 3), 1 / d.Ts},
		{block(e.d, 3, 3, 3, 3), 1 / d.Ts},
		{block(e.d, 6, 6, 3, 3), d.Ts},
		{block(e.d, 9, 9, 3, 3), d.Ts},
		{d.DepthNoise, 1},
		{d.DVLNoise, 1},
	} {
		if n.R == nil {
			continue
		}
		var err error
		if noises[i], err = newSensorNoise(n.R, n.s); err != nil {
			return nil, nil, err
		}
	}
	accNoise, gyroNoise, accBiasNoise, gyroBiasNoise, depthNoise, dvlNoise := noises[0], noises[1], noises[2], noises[3], noises[4], noises[5]

	motion := d.Motion
	if motion == nil {
		motion = ConstantRate(mat.NewVecDense(3, nil))
	}
	// raw returns S⁻¹*(signal + noise) + bias.
	raw := func(SInv mat.Matrix, signal mat.Vector, n Noise, bias mat.Vector) *mat.VecDense {
		var noisy, r mat.VecDense
		noisy.AddVec(signal, n.Sample())
		r.MulVec(SInv, &noisy)
		if bias != nil {
			r.AddVec(&r, bias)
		}
		return &r
	}

	states := make([]*mat.VecDense, d.Steps+1)
	states[0] = mat.VecDenseCopyOf(x0)
	samples := make([]Sample, d.Steps)
	for k := 0; k < d.Steps; k++ {
		x := states[k]
		a, ω := motion(k, x)
		var aNoG, f mat.VecDense
		aNoG.SubVec(a, e.gravity)
		f.MulVec(RotationMatrix(QuaternionAt(x, QuatIdx)).T(), &aNoG)

		next, err := e.PredictNominal(x, &f, ω, d.Ts)
		if err != nil {
			return nil, nil, fmt.Errorf("step %d: %w", k, err)
		}
		var accBias, gyroBias mat.VecDense
		accBias.AddVec(vec3(next, AccBiasIdx), accBiasNoise.Sample())
		gyroBias.AddVec(vec3(next, GyroBiasIdx), gyroBiasNoise.Sample())
		setVec(next, AccBiasIdx, &accBias)
		setVec(next, GyroBiasIdx, &gyroBias)
		states[k+1] = next

		s := Sample{
			Acc:  raw(&SaInv, &f, accNoise, vec3(x, AccBiasIdx)),
			Gyro: raw(&SgInv, ω, gyroNoise, vec3(x, GyroBiasIdx)),
		}
		if d.DepthEvery > 0 && (k+1)%d.DepthEvery == 0 {
			s.HasDepth = true
			s.Depth = next.AtVec(DepthIdx) + depthNoise.Sample().AtVec(0)
		}
		if d.DVLEvery > 0 && (k+1)%d.DVLEvery == 0 {
			var vBody mat.VecDense
			vBody.MulVec(RotationMatrix(QuaternionAt(next, QuatIdx)).T(), vec3(next, VelIdx))
			s.DVL = raw(&SdvlInv, &vBody, dvlNoise, nil)
		}
		samples[k] = s
	}
	return NewGroundTruth(states), samples, nil
}

// Filter runs the estimator over the samples of a dive starting from the
// estimate x0, P0. Every step predicts with the IMU, then updates with the
// depth and the corrected DVL velocity when they are present. It returns the
// estimate at the end of each step.
func (d Dive) Filter(e *Estimator, x0 mat.Vector, P0 mat.Symmetric, samples []Sample) ([]Estimate, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	ests := make([]Estimate, len(samples))
	x, P := x0, P0
	for k, s := range samples {
		est, err := e.Predict(x, P, s.Acc, s.Gyro, d.Ts)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}
		if s.HasDepth {
			if est, err = e.UpdateDepth(est.State(), est.Covariance(), s.Depth, d.DepthNoise); err != nil {
				return nil, fmt.Errorf("step %d: %w", k, err)
			}
		}
		if s.DVL != nil {
			if est, err = e.UpdateDVL(est.State(), est.Covariance(), e.CorrectDVL(s.DVL), d.DVLNoise); err != nil {
				return nil, fmt.Errorf("step %d: %w", k, err)
			}
		}
		ests[k] = est
		x, P = est.State(), est.Covariance()
	}
	return ests, nil
}

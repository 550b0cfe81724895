package eskf

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// matrix3 is a 3x3 matrix in YAML, given either in full as three rows or as
// its three diagonal elements.
type matrix3 struct {
	m *mat.Dense
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *matrix3) UnmarshalYAML(value *yaml.Node) error {
	var rows [][]float64
	if err := value.Decode(&rows); err == nil {
		if len(rows) != 3 {
			return fmt.Errorf("line %d: expected 3 rows, got %d", value.Line, len(rows))
		}
		m.m = mat.NewDense(3, 3, nil)
		for i, row := range rows {
			if len(row) != 3 {
				return fmt.Errorf("line %d: expected 3 columns, got %d", value.Line, len(row))
			}
			m.m.SetRow(i, row)
		}
		return nil
	}
	var diag []float64
	if err := value.Decode(&diag); err != nil {
		return fmt.Errorf("line %d: expected a 3x3 matrix or its diagonal: %w", value.Line, err)
	}
	if len(diag) != 3 {
		return fmt.Errorf("line %d: expected 3 diagonal elements, got %d", value.Line, len(diag))
	}
	m.m = mat.NewDense(3, 3, nil)
	for i, d := range diag {
		m.m.Set(i, i, d)
	}
	return nil
}

func (m *matrix3) matrix() mat.Matrix {
	if m == nil || m.m == nil {
		return nil
	}
	return m.m
}

func (m *matrix3) symmetric(name string) (mat.Symmetric, error) {
	if m == nil || m.m == nil {
		return nil, fmt.Errorf("%w: %s is missing", ErrInvalidNoise, name)
	}
	sym, err := AsSymDense(m.m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidNoise, name, err)
	}
	return sym, nil
}

type sensorConfig struct {
	Noise      *matrix3 `yaml:"noise"`
	BiasNoise  *matrix3 `yaml:"bias_noise"`
	BiasDecay  float64  `yaml:"bias_decay"`
	Correction *matrix3 `yaml:"correction"`
}

type fileConfig struct {
	Gravity                *float64     `yaml:"gravity"`
	Accelerometer          sensorConfig `yaml:"accelerometer"`
	Gyroscope              sensorConfig `yaml:"gyroscope"`
	DVLCorrection          *matrix3     `yaml:"dvl_correction"`
	InclinometerCorrection *matrix3     `yaml:"inclinometer_correction"`
}

// LoadConfig decodes a YAML estimator configuration such as
//
//	gravity: 9.81
//	accelerometer:
//	  noise: [4e-3, 4e-3, 4e-3]
//	  bias_noise: [1e-6, 1e-6, 1e-6]
//	  bias_decay: 1e-3
//	  correction: [[1, 0, 0], [0, 1, 0], [0, 0, 1]]
//	gyroscope:
//	  noise: [1e-4, 1e-4, 1e-4]
//	  bias_noise: [1e-8, 1e-8, 1e-8]
//	  bias_decay: 1e-3
//	dvl_correction: [1, 1, 1]
//
// The result still has to be validated by New.
func LoadConfig(r io.Reader) (Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("eskf: decoding configuration: %w", err)
	}
	cfg := Config{
		AccBiasDecay:           fc.Accelerometer.BiasDecay,
		GyroBiasDecay:          fc.Gyroscope.BiasDecay,
		AccCorrection:          fc.Accelerometer.Correction.matrix(),
		GyroCorrection:         fc.Gyroscope.Correction.matrix(),
		DVLCorrection:          fc.DVLCorrection.matrix(),
		InclinometerCorrection: fc.InclinometerCorrection.matrix(),
		Gravity:                fc.Gravity,
	}
	var err error
	if cfg.AccNoise, err = fc.Accelerometer.Noise.symmetric("accelerometer noise"); err != nil {
		return Config{}, err
	}
	if cfg.AccBiasNoise, err = fc.Accelerometer.BiasNoise.symmetric("accelerometer bias noise"); err != nil {
		return Config{}, err
	}
	if cfg.GyroNoise, err = fc.Gyroscope.Noise.symmetric("gyroscope noise"); err != nil {
		return Config{}, err
	}
	if cfg.GyroBiasNoise, err = fc.Gyroscope.BiasNoise.symmetric("gyroscope bias noise"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads the YAML configuration at path and builds the Estimator.
func LoadConfigFile(path string) (*Estimator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(cfg)
}

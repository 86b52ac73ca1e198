package model

import "fmt"

// Strategy fits model parameters from paired feature and target vectors.
// Implementations must be deterministic: identical inputs produce
// bit-identical parameters.
type Strategy interface {
	Name() string
	Fit(features, targets []float64) (Params, error)
}

// LeastSquares is the default strategy: ordinary least squares over the
// single epoch-seconds feature.
type LeastSquares struct{}

func (LeastSquares) Name() string { return typeLinear }

func (LeastSquares) Fit(features, targets []float64) (Params, error) {
	if len(features) != len(targets) {
		return Params{}, fmt.Errorf("feature/target length mismatch: %d vs %d", len(features), len(targets))
	}
	if len(features) == 0 {
		return Params{}, fmt.Errorf("%w: no samples", ErrInsufficientData)
	}

	n := float64(len(features))
	var sumX, sumY float64
	for i := range features {
		sumX += features[i]
		sumY += targets[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var covXY, varX float64
	for i := range features {
		dx := features[i] - meanX
		covXY += dx * (targets[i] - meanY)
		varX += dx * dx
	}

	// A single sample (or identical timestamps) has no spread to fit a
	// slope against; fall back to a constant model at the mean.
	var slope float64
	if varX != 0 {
		slope = covXY / varX
	}

	return Params{
		Type:      typeLinear,
		Slope:     slope,
		Intercept: meanY - slope*meanX,
	}, nil
}

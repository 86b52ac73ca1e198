package model

import (
	"errors"
	"fmt"
	"time"

	"priceflow/internal/source"
)

var (
	// ErrInsufficientData means the canonical series was empty or missing.
	ErrInsufficientData = errors.New("insufficient data to train model")
	// ErrPersistFailed means the artifact could not be written durably.
	ErrPersistFailed = errors.New("failed to persist model artifact")
	// ErrModelUnavailable means no artifact has ever been published for the
	// source.
	ErrModelUnavailable = errors.New("model unavailable")
)

// Params is the serialized form of a fitted model. Type selects the
// evaluation rule; linear models carry slope and intercept over
// epoch-seconds.
type Params struct {
	Type      string  `json:"type"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

const typeLinear = "linear"

// Artifact is the versioned envelope a training run produces. Metadata lives
// inside the envelope rather than in filesystem timestamps. Artifacts are
// never mutated; a refresh always builds a new one and swaps it in.
type Artifact struct {
	Source     source.ID `json:"source"`
	ArtifactID string    `json:"artifact_id"`
	TrainedAt  time.Time `json:"trained_at"`
	Samples    int       `json:"samples"`
	Model      Params    `json:"model"`
}

// Evaluate applies the model at a point in time, using the same
// epoch-seconds feature space the trainer fit against.
func (a *Artifact) Evaluate(at time.Time) (float64, error) {
	switch a.Model.Type {
	case typeLinear:
		return a.Model.Slope*epochSeconds(at) + a.Model.Intercept, nil
	default:
		return 0, fmt.Errorf("unknown model type %q", a.Model.Type)
	}
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

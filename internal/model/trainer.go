package model

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"priceflow/internal/series"
	"priceflow/internal/source"
	"priceflow/logger"
)

const (
	// trainRatio is the share of samples used for fitting; the rest is a
	// held-out partition.
	trainRatio = 0.8
	// splitSeed fixes the shuffle so repeated training on identical input
	// yields bit-identical parameters.
	splitSeed = 0
)

// Trainer fits a model from a canonical series and wraps it in a versioned
// artifact. The regression strategy is pluggable; the external contract does
// not change with it.
type Trainer struct {
	strategy Strategy
	log      *logger.Log
}

func NewTrainer(strategy Strategy) *Trainer {
	if strategy == nil {
		strategy = LeastSquares{}
	}
	return &Trainer{strategy: strategy, log: logger.GetLogger()}
}

// Train loads the canonical series for src and fits a fresh artifact.
// An absent, empty or unparseable series yields ErrInsufficientData.
func (t *Trainer) Train(src source.ID, seriesPath string) (*Artifact, error) {
	points, err := series.Read(seriesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: series %s does not exist", ErrInsufficientData, seriesPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrInsufficientData, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: series %s is empty", ErrInsufficientData, seriesPath)
	}

	features := make([]float64, len(points))
	targets := make([]float64, len(points))
	for i, p := range points {
		features[i] = epochSeconds(p.Timestamp)
		targets[i] = p.Price
	}

	trainX, trainY := split(features, targets)

	params, err := t.strategy.Fit(trainX, trainY)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Source:     src,
		ArtifactID: uuid.New().String(),
		TrainedAt:  time.Now().UTC(),
		Samples:    len(trainX),
		Model:      params,
	}

	t.log.WithComponent("trainer").WithFields(logger.Fields{
		"source":      string(src),
		"artifact_id": artifact.ArtifactID,
		"strategy":    t.strategy.Name(),
		"samples":     artifact.Samples,
		"held_out":    len(points) - artifact.Samples,
	}).Info("trained model")

	return artifact, nil
}

// split shuffles sample indices with the fixed seed and keeps the first
// trainRatio share for fitting.
func split(features, targets []float64) ([]float64, []float64) {
	n := len(features)
	trainN := int(float64(n) * trainRatio)
	if trainN < 1 {
		trainN = n
	}

	rng := rand.New(rand.NewSource(splitSeed))
	perm := rng.Perm(n)

	trainX := make([]float64, trainN)
	trainY := make([]float64, trainN)
	for i := 0; i < trainN; i++ {
		trainX[i] = features[perm[i]]
		trainY[i] = targets[perm[i]]
	}
	return trainX, trainY
}

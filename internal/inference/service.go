package inference

import (
	"time"

	"priceflow/internal/model"
	"priceflow/internal/source"
	"priceflow/logger"
)

// Service evaluates the latest published model for a source at a point in
// time. It reads only from the model store, so predictions keep serving the
// last good artifact while a refresh runs.
type Service struct {
	store *model.Store
	log   *logger.Log
}

func NewService(store *model.Store) *Service {
	return &Service{store: store, log: logger.GetLogger()}
}

// Predict loads the current artifact for src and evaluates it at the given
// time. Returns model.ErrModelUnavailable when nothing has been published.
func (s *Service) Predict(src source.ID, at time.Time) (float64, error) {
	artifact, err := s.store.Load(src)
	if err != nil {
		return 0, err
	}

	value, err := artifact.Evaluate(at)
	if err != nil {
		return 0, err
	}

	s.log.WithComponent("inference").WithFields(logger.Fields{
		"source":      string(src),
		"artifact_id": artifact.ArtifactID,
		"at":          at.UTC().Format(time.RFC3339),
		"prediction":  value,
	}).Info("generated inference")
	return value, nil
}

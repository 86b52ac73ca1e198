package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"priceflow/internal/source"
	"priceflow/logger"
)

// Store is the durable home of the latest artifact per source. Publish
// writes to a temporary sibling and renames it into place, so a Load racing
// a Publish observes either the complete previous artifact or the complete
// new one.
type Store struct {
	pathFor func(source.ID) string
	log     *logger.Log
}

// NewStore builds a store that maps each source to its artifact path.
func NewStore(pathFor func(source.ID) string) *Store {
	return &Store{pathFor: pathFor, log: logger.GetLogger()}
}

// Publish atomically replaces the current artifact for the artifact's source.
func (s *Store) Publish(artifact *Artifact) error {
	path := s.pathFor(artifact.Source)

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersistFailed, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create model directory: %v", ErrPersistFailed, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrPersistFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrPersistFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersistFailed, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersistFailed, err)
	}

	s.log.WithComponent("model_store").WithFields(logger.Fields{
		"source":      string(artifact.Source),
		"artifact_id": artifact.ArtifactID,
		"path":        path,
	}).Info("published model artifact")
	return nil
}

// Load returns the current artifact for src, or ErrModelUnavailable when
// none has ever been published.
func (s *Store) Load(src source.ID) (*Artifact, error) {
	path := s.pathFor(src)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no artifact for source %s", ErrModelUnavailable, src)
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return &artifact, nil
}

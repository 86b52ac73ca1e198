package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"priceflow/internal/series"
	"priceflow/internal/source"
)

// linearSeries writes a series whose prices lie exactly on one line, so any
// training subset fits the same parameters.
func linearSeries(t *testing.T, n int) (string, []series.PricePoint) {
	t.Helper()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]series.PricePoint, n)
	for i := range points {
		points[i] = series.PricePoint{
			Timestamp: base.AddDate(0, 0, i),
			Price:     100 + 10*float64(i),
		}
	}

	path := filepath.Join(t.TempDir(), "series.csv")
	if err := series.Write(path, points); err != nil {
		t.Fatalf("seed series: %v", err)
	}
	return path, points
}

func TestTrainFitsLinearSeries(t *testing.T) {
	path, points := linearSeries(t, 10)

	trainer := NewTrainer(nil)
	artifact, err := trainer.Train(source.BulkArchive, path)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if artifact.Source != source.BulkArchive {
		t.Errorf("unexpected source: %s", artifact.Source)
	}
	if artifact.ArtifactID == "" {
		t.Errorf("artifact should carry an id")
	}
	if artifact.Samples != 8 {
		t.Errorf("expected 8 training samples from 10 points, got %d", artifact.Samples)
	}

	for _, p := range points {
		got, err := artifact.Evaluate(p.Timestamp)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if math.Abs(got-p.Price) > 1e-6 {
			t.Errorf("evaluate(%s) = %g, want %g", p.Timestamp, got, p.Price)
		}
	}
}

func TestTrainDeterministicParameters(t *testing.T) {
	path, _ := linearSeries(t, 50)

	trainer := NewTrainer(nil)
	first, err := trainer.Train(source.SnapshotAPIA, path)
	if err != nil {
		t.Fatalf("first train: %v", err)
	}
	second, err := trainer.Train(source.SnapshotAPIA, path)
	if err != nil {
		t.Fatalf("second train: %v", err)
	}

	if first.Model != second.Model {
		t.Errorf("repeated training diverged: %+v vs %+v", first.Model, second.Model)
	}
	if first.Samples != second.Samples {
		t.Errorf("sample counts diverged: %d vs %d", first.Samples, second.Samples)
	}
}

func TestTrainSinglePointFallsBackToConstant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := series.Write(path, []series.PricePoint{{Timestamp: at, Price: 2300}}); err != nil {
		t.Fatalf("seed series: %v", err)
	}

	trainer := NewTrainer(nil)
	artifact, err := trainer.Train(source.SnapshotAPIB, path)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if artifact.Model.Slope != 0 {
		t.Errorf("single sample should yield a constant model, slope = %g", artifact.Model.Slope)
	}
	got, err := artifact.Evaluate(at.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != 2300 {
		t.Errorf("constant model should return the sample price, got %g", got)
	}
}

func TestTrainMissingSeries(t *testing.T) {
	trainer := NewTrainer(nil)
	if _, err := trainer.Train(source.BulkArchive, filepath.Join(t.TempDir(), "absent.csv")); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestTrainEmptySeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	if err := os.WriteFile(path, []byte("date,price\n"), 0o644); err != nil {
		t.Fatalf("seed series: %v", err)
	}

	trainer := NewTrainer(nil)
	if _, err := trainer.Train(source.BulkArchive, path); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEvaluateUnknownModelType(t *testing.T) {
	artifact := &Artifact{Model: Params{Type: "cubic"}}
	if _, err := artifact.Evaluate(time.Now()); err == nil {
		t.Fatalf("expected error for unknown model type")
	}
}

package series

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteReadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	points := []PricePoint{
		{Timestamp: time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), Price: 120},
		{Timestamp: time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), Price: 100},
		{Timestamp: time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), Price: 110},
	}

	if err := Write(path, points); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Timestamp.Before(got[i].Timestamp) {
			t.Errorf("series not strictly ascending at index %d", i)
		}
	}
	if got[0].Price != 100 || got[2].Price != 120 {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestWriteReplacesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	first := []PricePoint{{Timestamp: time.Unix(1000, 0).UTC(), Price: 1}}
	second := []PricePoint{{Timestamp: time.Unix(2000, 0).UTC(), Price: 2}}

	if err := Write(path, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := Write(path, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Price != 2 {
		t.Errorf("old contents leaked into replaced file: %+v", got)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.csv"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadMalformed(t *testing.T) {
	cases := map[string]string{
		"bad header": "time,value\n2024-01-01T00:00:00Z,1\n",
		"bad date":   "date,price\nnot-a-date,1\n",
		"bad price":  "date,price\n2024-01-01T00:00:00Z,abc\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "series.csv")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("%s: seed file: %v", name, err)
		}
		if _, err := Read(path); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

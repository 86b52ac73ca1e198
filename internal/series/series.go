package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// ErrMalformed indicates a canonical series file that cannot be parsed.
var ErrMalformed = errors.New("malformed series")

// PricePoint is a single observation of the tracked asset's price.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// header is the canonical column layout shared by every source.
var header = []string{"date", "price"}

// Write persists the points as a canonical series file. The file is written
// to a temporary sibling first and moved into place with a rename, so a
// concurrent reader sees either the previous series or the new one, never a
// partial write.
func Write(path string, points []PricePoint) error {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create series directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp series file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write series header: %w", err)
	}
	for _, p := range sorted {
		record := []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Price, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("write series record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush series file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp series file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace series file: %w", err)
	}
	return nil
}

// Read loads a canonical series file. The returned points preserve file
// order, which Write guarantees to be ascending by timestamp.
func Read(path string) ([]PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if len(records[0]) < 2 || records[0][0] != "date" || records[0][1] != "price" {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrMalformed, records[0])
	}

	points := make([]PricePoint, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: short record %v", ErrMalformed, rec)
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", ErrMalformed, rec[0])
		}
		price, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad price %q", ErrMalformed, rec[1])
		}
		points = append(points, PricePoint{Timestamp: ts, Price: price})
	}
	return points, nil
}

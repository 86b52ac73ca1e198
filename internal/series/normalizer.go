package series

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"priceflow/logger"
)

// Kline archives carry eleven columns; the close price and the end-of-period
// timestamp are what the canonical series keeps.
const (
	klineColumns      = 11
	klineCloseIdx     = 4
	klineCloseTimeIdx = 6
)

// Normalizer turns raw source data into canonical series files.
type Normalizer struct {
	log *logger.Log
}

func NewNormalizer() *Normalizer {
	return &Normalizer{log: logger.GetLogger()}
}

// NormalizeArchives reads every kline zip under rawDir, extracts one price
// point per record and rewrites the canonical series at seriesPath as a
// whole-file replacement. It returns the number of points written. A raw
// directory with no archives is reported as zero points without touching the
// existing series file.
func (n *Normalizer) NormalizeArchives(rawDir, seriesPath string) (int, error) {
	log := n.log.WithComponent("normalizer").WithFields(logger.Fields{"raw_dir": rawDir})

	entries, err := os.ReadDir(rawDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("raw archive directory does not exist")
			return 0, nil
		}
		return 0, fmt.Errorf("read raw directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".zip") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if len(names) == 0 {
		log.Warn("no archive files found to normalize")
		return 0, nil
	}

	var points []PricePoint
	for _, name := range names {
		archivePoints, err := n.extractArchive(filepath.Join(rawDir, name))
		if err != nil {
			return 0, fmt.Errorf("archive %s: %w", name, err)
		}
		points = append(points, archivePoints...)
	}

	if err := Write(seriesPath, points); err != nil {
		return 0, err
	}

	log.WithFields(logger.Fields{
		"archives": len(names),
		"points":   len(points),
		"series":   seriesPath,
	}).Info("normalized bulk archives")
	return len(points), nil
}

// extractArchive parses the single embedded CSV record table of one kline zip.
func (n *Normalizer) extractArchive(path string) ([]PricePoint, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open zip: %v", ErrMalformed, err)
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		return nil, fmt.Errorf("%w: empty archive", ErrMalformed)
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open embedded file: %v", ErrMalformed, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var points []PricePoint
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		// Newer archives carry a header row, older ones do not.
		if first {
			first = false
			if strings.HasPrefix(rec[0], "open_time") {
				continue
			}
		}
		if len(rec) < klineColumns {
			return nil, fmt.Errorf("%w: expected %d columns, got %d", ErrMalformed, klineColumns, len(rec))
		}

		closeTime, err := strconv.ParseInt(rec[klineCloseTimeIdx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad close time %q", ErrMalformed, rec[klineCloseTimeIdx])
		}
		price, err := strconv.ParseFloat(rec[klineCloseIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad close price %q", ErrMalformed, rec[klineCloseIdx])
		}

		points = append(points, PricePoint{
			Timestamp: time.UnixMilli(closeTime).UTC(),
			Price:     price,
		})
	}
	return points, nil
}

// NormalizeSnapshot validates snapshot observations and rewrites the
// canonical series for a snapshot source.
func (n *Normalizer) NormalizeSnapshot(seriesPath string, points []PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, fmt.Errorf("%w: no observations", ErrMalformed)
	}
	for _, p := range points {
		if p.Timestamp.IsZero() {
			return 0, fmt.Errorf("%w: observation without timestamp", ErrMalformed)
		}
	}
	if err := Write(seriesPath, points); err != nil {
		return 0, err
	}

	n.log.WithComponent("normalizer").WithFields(logger.Fields{
		"points": len(points),
		"series": seriesPath,
	}).Info("normalized snapshot observations")
	return len(points), nil
}

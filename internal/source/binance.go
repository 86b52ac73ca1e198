package source

import (
	"fmt"
	"path/filepath"
	"time"

	"priceflow/config"
	"priceflow/internal/fetch"
)

// BulkArchiveAdapter enumerates the kline archive files published for the
// configured symbols: one monthly zip per symbol, interval, year and month,
// plus one daily zip per day of the current month. Combinations that name an
// invalid calendar day (month 2 day 31 and the like) are enumerated anyway
// and come back as NotFound from the fetcher; the waste is accepted in
// exchange for keeping the enumeration trivial.
type BulkArchiveAdapter struct {
	cfg    config.BulkArchiveConfig
	rawDir string
}

func NewBulkArchiveAdapter(cfg config.BulkArchiveConfig, rawDir string) *BulkArchiveAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://data.binance.vision/data/futures"
	}
	return &BulkArchiveAdapter{cfg: cfg, rawDir: rawDir}
}

func (a *BulkArchiveAdapter) ID() ID {
	return BulkArchive
}

// RawDir is the directory archive files are downloaded into.
func (a *BulkArchiveAdapter) RawDir() string {
	return a.rawDir
}

// Jobs builds the full download set for one refresh: the monthly history
// plus the daily files of the month containing now.
func (a *BulkArchiveAdapter) Jobs(now time.Time) []fetch.Job {
	jobs := a.monthlyJobs()
	return append(jobs, a.dailyJobs(now.Year(), int(now.Month()))...)
}

func (a *BulkArchiveAdapter) monthlyJobs() []fetch.Job {
	base := fmt.Sprintf("%s/%s/monthly/klines", a.cfg.BaseURL, a.cfg.Market)

	var jobs []fetch.Job
	for _, symbol := range a.cfg.Symbols {
		for _, interval := range a.cfg.Intervals {
			for _, year := range a.cfg.Years {
				for month := 1; month <= 12; month++ {
					name := fmt.Sprintf("%s-%s-%s-%02d.zip", symbol, interval, year, month)
					jobs = append(jobs, fetch.Job{
						URL:  fmt.Sprintf("%s/%s/%s/%s", base, symbol, interval, name),
						Dest: filepath.Join(a.rawDir, name),
					})
				}
			}
		}
	}
	return jobs
}

func (a *BulkArchiveAdapter) dailyJobs(year, month int) []fetch.Job {
	base := fmt.Sprintf("%s/%s/daily/klines", a.cfg.BaseURL, a.cfg.Market)

	var jobs []fetch.Job
	for _, symbol := range a.cfg.Symbols {
		for _, interval := range a.cfg.Intervals {
			for day := 1; day <= 31; day++ {
				name := fmt.Sprintf("%s-%s-%d-%02d-%02d.zip", symbol, interval, year, month, day)
				jobs = append(jobs, fetch.Job{
					URL:  fmt.Sprintf("%s/%s/%s/%s", base, symbol, interval, name),
					Dest: filepath.Join(a.rawDir, name),
				})
			}
		}
	}
	return jobs
}

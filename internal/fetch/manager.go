package fetch

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/time/rate"

	"priceflow/logger"
)

// Job is one unit of download work.
type Job struct {
	URL  string
	Dest string
}

// Manager fans download jobs out across a bounded worker pool. Jobs are
// independent and order-insensitive; one job's failure never cancels the
// others. The caller decides which failures are fatal.
type Manager struct {
	fetcher *Fetcher
	workers int
	limiter *rate.Limiter
	log     *logger.Log
}

// NewManager builds a download manager. workers <= 0 selects one worker per
// CPU. requestsPerSecond <= 0 disables rate limiting.
func NewManager(fetcher *Fetcher, workers, requestsPerSecond, burst int) *Manager {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &Manager{
		fetcher: fetcher,
		workers: workers,
		limiter: limiter,
		log:     logger.GetLogger(),
	}
}

// Download dispatches every job to the fetcher pool and waits for all of
// them to complete, returning one result per job.
func (m *Manager) Download(ctx context.Context, jobs []Job) []Result {
	log := m.log.WithComponent("download_manager").WithFields(logger.Fields{
		"jobs":    len(jobs),
		"workers": m.workers,
	})
	log.Info("starting download batch")

	jobCh := make(chan Job)
	resultCh := make(chan Result, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if m.limiter != nil {
					if err := m.limiter.Wait(ctx); err != nil {
						resultCh <- Result{URL: job.URL, Dest: job.Dest, Status: Failed, Err: err}
						continue
					}
				}
				resultCh <- m.fetcher.Fetch(ctx, job.URL, job.Dest)
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()
	close(resultCh)

	results := make([]Result, 0, len(jobs))
	for r := range resultCh {
		results = append(results, r)
	}

	summary := Summarize(results)
	log.WithFields(logger.Fields{
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"not_found":  summary.NotFound,
		"failed":     summary.Failed,
	}).Info("download batch finished")

	return results
}

// Summary aggregates download outcomes for one batch.
type Summary struct {
	Downloaded int
	Skipped    int
	NotFound   int
	Failed     int
}

func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case Downloaded:
			s.Downloaded++
		case Skipped:
			s.Skipped++
		case NotFound:
			s.NotFound++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// Acquired reports whether the batch produced or confirmed any local data.
func (s Summary) Acquired() bool {
	return s.Downloaded > 0 || s.Skipped > 0
}

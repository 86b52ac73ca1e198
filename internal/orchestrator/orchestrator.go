package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"priceflow/config"
	"priceflow/internal/export"
	"priceflow/internal/fetch"
	"priceflow/internal/model"
	"priceflow/internal/series"
	"priceflow/internal/source"
	"priceflow/logger"
)

// Status is the externally visible phase of a source's refresh cycle.
type Status string

const (
	StatusIdle      Status = "Idle"
	StatusRunning   Status = "Running"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
)

// RefreshState is the per-source refresh record. Mutated only by the
// orchestrator; read by the status endpoints.
type RefreshState struct {
	Status          Status    `json:"status"`
	LastRefreshID   string    `json:"last_refresh_id,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	LastCompletedAt time.Time `json:"last_completed_at,omitempty"`
}

// Orchestrator drives fetch, normalize, train and publish for every source.
// Refreshes run detached from the caller; at most one refresh per source is
// in flight at a time, and one source's failure never disturbs another
// source's refresh or its previously published artifact.
type Orchestrator struct {
	cfg        *config.Config
	manager    *fetch.Manager
	bulk       *source.BulkArchiveAdapter
	snapshots  map[source.ID]source.SnapshotAdapter
	normalizer *series.Normalizer
	trainer    *model.Trainer
	store      *model.Store
	exporter   *export.Exporter

	ctx context.Context
	mu  sync.Mutex
	wg  sync.WaitGroup
	// states doubles as the running-set: StatusRunning in the map is the
	// at-most-one-refresh guard.
	states map[source.ID]*RefreshState
	closed bool
	log    *logger.Log
}

// New wires the orchestrator. exporter may be nil when S3 archiving is
// disabled. ctx bounds every refresh the orchestrator starts.
func New(
	ctx context.Context,
	cfg *config.Config,
	manager *fetch.Manager,
	bulk *source.BulkArchiveAdapter,
	snapshots map[source.ID]source.SnapshotAdapter,
	normalizer *series.Normalizer,
	trainer *model.Trainer,
	store *model.Store,
	exporter *export.Exporter,
) *Orchestrator {
	states := make(map[source.ID]*RefreshState, len(source.All()))
	for _, id := range source.All() {
		states[id] = &RefreshState{Status: StatusIdle}
	}
	return &Orchestrator{
		cfg:        cfg,
		manager:    manager,
		bulk:       bulk,
		snapshots:  snapshots,
		normalizer: normalizer,
		trainer:    trainer,
		store:      store,
		exporter:   exporter,
		ctx:        ctx,
		states:     states,
		log:        logger.GetLogger(),
	}
}

// TriggerAll starts a refresh for every source and returns immediately.
func (o *Orchestrator) TriggerAll() {
	for _, id := range source.All() {
		o.Trigger(id)
	}
}

// Trigger starts a detached refresh for one source. It reports false when a
// refresh for that source is already running (or the orchestrator is
// closed); the duplicate trigger is a no-op.
func (o *Orchestrator) Trigger(id source.ID) bool {
	refreshID := uuid.New().String()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	state := o.states[id]
	if state.Status == StatusRunning {
		o.mu.Unlock()
		o.log.WithComponent("orchestrator").WithFields(logger.Fields{
			"source": string(id),
		}).Info("refresh already running, ignoring trigger")
		return false
	}
	state.Status = StatusRunning
	state.LastRefreshID = refreshID
	state.LastError = ""
	o.wg.Add(1)
	o.mu.Unlock()

	go o.refresh(id, refreshID)
	return true
}

// State returns a snapshot of one source's refresh record.
func (o *Orchestrator) State(id source.ID) RefreshState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return *o.states[id]
}

// States returns a snapshot of every source's refresh record.
func (o *Orchestrator) States() map[source.ID]RefreshState {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[source.ID]RefreshState, len(o.states))
	for id, state := range o.states {
		out[id] = *state
	}
	return out
}

// Close stops accepting triggers and waits for in-flight refreshes to
// drain. Refreshes are not cancelled; they run to completion.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.log.WithComponent("orchestrator").Info("draining in-flight refreshes")
	o.wg.Wait()
	o.log.WithComponent("orchestrator").Info("orchestrator closed")
}

// refresh runs one full fetch, normalize, train, publish cycle. Any stage's
// fatal error aborts the cycle without publishing; the previously published
// artifact remains authoritative.
func (o *Orchestrator) refresh(id source.ID, refreshID string) {
	defer o.wg.Done()

	start := time.Now()
	log := o.log.WithComponent("orchestrator").WithFields(logger.Fields{
		"source":     string(id),
		"refresh_id": refreshID,
	})
	log.Info("starting refresh cycle")

	err := o.runCycle(id, log)

	o.mu.Lock()
	state := o.states[id]
	state.LastCompletedAt = time.Now().UTC()
	if err != nil {
		state.Status = StatusFailed
		state.LastError = err.Error()
	} else {
		state.Status = StatusSucceeded
		state.LastError = ""
	}
	o.mu.Unlock()

	outcome := "succeeded"
	if err != nil {
		outcome = "failed"
		log.WithError(err).Error("refresh cycle failed")
	}

	logger.LogPerformanceEntry(log, "orchestrator", "refresh", time.Since(start), logger.Fields{
		"source":  string(id),
		"outcome": outcome,
	})
	o.log.LogMetric("orchestrator", "refresh_completed", 1, "counter", logger.Fields{
		"source":  string(id),
		"outcome": outcome,
	})
}

func (o *Orchestrator) runCycle(id source.ID, log *logger.Entry) error {
	seriesPath := o.cfg.SeriesPath(string(id))

	switch id {
	case source.BulkArchive:
		if err := o.acquireBulk(log); err != nil {
			return err
		}
		points, err := o.normalizer.NormalizeArchives(o.bulk.RawDir(), seriesPath)
		if err != nil {
			return fmt.Errorf("normalize: %w", err)
		}
		log.WithFields(logger.Fields{"points": points}).Info("bulk series normalized")

	case source.SnapshotAPIA, source.SnapshotAPIB, source.SnapshotAPIC:
		adapter := o.snapshots[id]
		points, err := adapter.Snapshot(o.ctx)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if _, err := o.normalizer.NormalizeSnapshot(seriesPath, points); err != nil {
			return fmt.Errorf("normalize: %w", err)
		}

	default:
		return fmt.Errorf("unsupported source %q", id)
	}

	o.exportSeries(id, seriesPath, log)

	artifact, err := o.trainer.Train(id, seriesPath)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := o.store.Publish(artifact); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// acquireBulk downloads the archive set. Individual missing files are
// benign calendar gaps; a batch that acquires nothing at all is escalated.
func (o *Orchestrator) acquireBulk(log *logger.Entry) error {
	jobs := o.bulk.Jobs(time.Now().UTC())
	results := o.manager.Download(o.ctx, jobs)
	summary := fetch.Summarize(results)

	o.log.LogMetric("orchestrator", "archives_downloaded", summary.Downloaded, "counter", logger.Fields{
		"source": string(source.BulkArchive),
	})

	if !summary.Acquired() {
		return fmt.Errorf("%w: wholesale archive fetch failure (%d failed, %d missing)",
			source.ErrUpstream, summary.Failed, summary.NotFound)
	}
	if summary.Failed > 0 {
		log.WithFields(logger.Fields{"failed": summary.Failed}).Warn("some archive downloads failed")
	}
	return nil
}

// exportSeries archives the freshly normalized series when an exporter is
// configured. Export failures never abort the refresh.
func (o *Orchestrator) exportSeries(id source.ID, seriesPath string, log *logger.Entry) {
	if o.exporter == nil {
		return
	}
	points, err := series.Read(seriesPath)
	if err != nil {
		log.WithError(err).Warn("failed to read series for export")
		return
	}
	if err := o.exporter.Export(o.ctx, id, points); err != nil {
		log.WithError(err).Warn("failed to export series to s3")
	}
}

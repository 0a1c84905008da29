package checker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blong711/Proxy-Manager/internal/config"
	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/settings"
	"github.com/blong711/Proxy-Manager/internal/store"
	log "github.com/sirupsen/logrus"
)

const (
	// jobRetention is how long finished check-all jobs stay queryable.
	jobRetention = 10 * time.Minute
	// maxRetainedJobs bounds the in-memory job store.
	maxRetainedJobs = 100
)

// Orchestrator fans health checks out over the proxy pool with a bounded
// worker pool and writes results back through the store. Overlapping
// check-all passes are allowed: each pass is an independent job, and
// per-record writeback is a single UPDATE, so a late writer simply wins.
type Orchestrator struct {
	proxies  *store.ProxyStore
	checker  *Checker
	jobs     *JobStore
	defaults config.CheckerConfig
	baseCtx  context.Context
}

// NewOrchestrator constructs an orchestrator. baseCtx bounds background
// passes; they outlive the triggering request but not the process.
func NewOrchestrator(baseCtx context.Context, proxies *store.ProxyStore, checker *Checker, defaults config.CheckerConfig) *Orchestrator {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Orchestrator{
		proxies:  proxies,
		checker:  checker,
		jobs:     NewJobStore(jobRetention, maxRetainedJobs),
		defaults: defaults,
		baseCtx:  baseCtx,
	}
}

// CheckOne runs a single synchronous check and returns the updated record.
func (o *Orchestrator) CheckOne(ctx context.Context, id uint64) (*models.Proxy, error) {
	row, errGet := o.proxies.Get(ctx, id)
	if errGet != nil {
		return nil, errGet
	}

	res := o.checker.Check(ctx, row)
	if errApply := o.proxies.ApplyCheckResult(ctx, id, res.Status, res.LatencyMs, res.CheckedAt); errApply != nil {
		return nil, errApply
	}
	return o.proxies.Get(ctx, id)
}

// CheckAll snapshots the current proxy ids, schedules a background pass
// over them and returns the job immediately. Callers poll Job() for
// progress; nothing blocks on the network here.
func (o *Orchestrator) CheckAll(ctx context.Context) (Job, error) {
	ids, errIDs := o.proxies.IDs(ctx)
	if errIDs != nil {
		return Job{}, errIDs
	}

	job := o.jobs.Create(len(ids))
	go o.run(job.ID, ids)
	log.Infof("check-all scheduled (job=%s proxies=%d)", job.ID, len(ids))
	return job, nil
}

// Job returns a snapshot of one check-all pass.
func (o *Orchestrator) Job(jobID string) (Job, bool) {
	return o.jobs.Get(jobID)
}

// run works through one pass with a semaphore-bounded pool. A failed or
// slow check only ever costs its own worker slot for its own timeout.
func (o *Orchestrator) run(jobID string, ids []uint64) {
	defer o.jobs.Finish(jobID)

	concurrency := o.resolveConcurrency()
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, id := range ids {
		select {
		case sem <- struct{}{}:
		case <-o.baseCtx.Done():
			wg.Wait()
			return
		}

		wg.Add(1)
		proxyID := id
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			o.checkInto(jobID, proxyID)
		}()
	}

	wg.Wait()
	if job, ok := o.jobs.Get(jobID); ok {
		log.Infof("check-all finished (job=%s processed=%d live=%d)", job.ID, job.Processed, job.ByStatus[models.StatusLive])
	}
}

// checkInto checks one proxy and records the outcome against the job.
// Failure is isolated per record: an error here never aborts the pass.
func (o *Orchestrator) checkInto(jobID string, id uint64) {
	row, errGet := o.proxies.Get(o.baseCtx, id)
	if errGet != nil {
		// Deleted between the snapshot and now.
		if errors.Is(errGet, store.ErrNotFound) {
			o.jobs.RecordSkip(jobID)
			return
		}
		log.WithError(errGet).Warnf("check-all: load proxy %d failed", id)
		o.jobs.RecordSkip(jobID)
		return
	}

	res := o.checker.Check(o.baseCtx, row)
	errApply := o.proxies.ApplyCheckResult(o.baseCtx, id, res.Status, res.LatencyMs, res.CheckedAt)
	if errApply != nil {
		if errors.Is(errApply, store.ErrNotFound) {
			o.jobs.RecordSkip(jobID)
			return
		}
		log.WithError(errApply).Warnf("check-all: writeback for proxy %d failed", id)
		o.jobs.RecordSkip(jobID)
		return
	}
	o.jobs.RecordResult(jobID, res.Status)
}

// resolveConcurrency reads the pool size from settings, clamped to a hard cap.
func (o *Orchestrator) resolveConcurrency() int {
	concurrency := settings.IntValue(settings.CheckMaxConcurrencyKey, o.defaults.MaxConcurrency)
	if concurrency <= 0 {
		concurrency = settings.DefaultCheckMaxConcurrency
	}
	if concurrency > settings.MaxCheckConcurrency {
		concurrency = settings.MaxCheckConcurrency
	}
	return concurrency
}

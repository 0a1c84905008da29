package checker

import (
	"fmt"
	"sync"
	"time"

	"github.com/blong711/Proxy-Manager/internal/models"
)

// Job statuses.
const (
	// JobRunning marks a pass still being worked.
	JobRunning = "running"
	// JobDone marks a finished pass.
	JobDone = "done"
)

// Job is a point-in-time snapshot of one check-all pass. checkAll returns
// its id immediately; callers poll Job() instead of waiting a fixed delay.
type Job struct {
	ID         string         // Opaque job id.
	Status     string         // running or done.
	Total      int            // Proxies scheduled in this pass.
	Processed  int            // Proxies whose result has been written back.
	ByStatus   map[string]int // Resulting health states so far.
	Skipped    int            // Proxies deleted mid-pass.
	StartedAt  time.Time
	FinishedAt *time.Time
}

// JobStore keeps recent check-all jobs in memory. Finished jobs expire
// after a TTL; running jobs are never evicted.
type JobStore struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	order    []string
	ttl      time.Duration
	maxJobs  int
	nextID   uint64
	now      func() time.Time
}

// NewJobStore constructs a job store with the given retention.
func NewJobStore(ttl time.Duration, maxJobs int) *JobStore {
	return &JobStore{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0),
		ttl:     ttl,
		maxJobs: maxJobs,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a new running job covering total proxies.
func (s *JobStore) Create(total int) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextID++
	job := &Job{
		ID:        fmt.Sprintf("check-all-%d-%d", now.UnixNano(), s.nextID),
		Status:    JobRunning,
		Total:     total,
		ByStatus:  make(map[string]int, len(models.ProxyStatuses)),
		StartedAt: now,
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.cleanupLocked(now)

	return cloneJob(job)
}

// Get returns a snapshot of one job.
func (s *JobStore) Get(jobID string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupLocked(s.now())
	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return cloneJob(job), true
}

// RecordResult counts one written-back check outcome against a job.
func (s *JobStore) RecordResult(jobID string, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.FinishedAt != nil {
		return
	}
	job.Processed++
	job.ByStatus[status]++
}

// RecordSkip counts one proxy that vanished before its check wrote back.
func (s *JobStore) RecordSkip(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.FinishedAt != nil {
		return
	}
	job.Processed++
	job.Skipped++
}

// Finish marks a job done.
func (s *JobStore) Finish(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.FinishedAt != nil {
		return
	}
	finishedAt := s.now()
	job.FinishedAt = &finishedAt
	job.Status = JobDone
	s.cleanupLocked(finishedAt)
}

// cleanupLocked drops expired finished jobs, then evicts the oldest
// finished jobs while over capacity.
func (s *JobStore) cleanupLocked(now time.Time) {
	if s.ttl > 0 {
		kept := s.order[:0]
		for _, jobID := range s.order {
			job, ok := s.jobs[jobID]
			if !ok {
				continue
			}
			if job.FinishedAt != nil && now.Sub(*job.FinishedAt) >= s.ttl {
				delete(s.jobs, jobID)
				continue
			}
			kept = append(kept, jobID)
		}
		s.order = kept
	}

	if s.maxJobs <= 0 {
		return
	}
	for len(s.jobs) > s.maxJobs {
		index := -1
		for i, jobID := range s.order {
			if job, ok := s.jobs[jobID]; ok && job.FinishedAt != nil {
				index = i
				break
			}
		}
		if index < 0 {
			return
		}
		delete(s.jobs, s.order[index])
		s.order = append(s.order[:index], s.order[index+1:]...)
	}
}

func cloneJob(src *Job) Job {
	cloned := *src
	if src.FinishedAt != nil {
		finishedAt := *src.FinishedAt
		cloned.FinishedAt = &finishedAt
	}
	cloned.ByStatus = make(map[string]int, len(src.ByStatus))
	for k, v := range src.ByStatus {
		cloned.ByStatus[k] = v
	}
	return cloned
}

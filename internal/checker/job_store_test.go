package checker

import (
	"testing"
	"time"

	"github.com/blong711/Proxy-Manager/internal/models"
)

func TestJobStoreCreateRunning(t *testing.T) {
	s := NewJobStore(time.Minute, 10)

	job := s.Create(42)

	if job.Status != JobRunning {
		t.Fatalf("expected running status, got %s", job.Status)
	}
	if job.Total != 42 {
		t.Fatalf("expected total 42, got %d", job.Total)
	}
	if job.FinishedAt != nil {
		t.Fatalf("expected finished_at nil on create")
	}
	if job.ID == "" {
		t.Fatalf("expected generated job id")
	}
}

func TestJobStoreRecordResultAccumulates(t *testing.T) {
	s := NewJobStore(time.Minute, 10)
	job := s.Create(3)

	s.RecordResult(job.ID, models.StatusLive)
	s.RecordResult(job.ID, models.StatusDie)
	s.RecordSkip(job.ID)

	got, ok := s.Get(job.ID)
	if !ok {
		t.Fatalf("expected job exists")
	}
	if got.Processed != 3 {
		t.Fatalf("expected processed 3, got %d", got.Processed)
	}
	if got.ByStatus[models.StatusLive] != 1 || got.ByStatus[models.StatusDie] != 1 {
		t.Fatalf("unexpected by_status: %v", got.ByStatus)
	}
	if got.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", got.Skipped)
	}
}

func TestJobStoreFinish(t *testing.T) {
	s := NewJobStore(time.Minute, 10)
	job := s.Create(1)

	s.Finish(job.ID)

	got, ok := s.Get(job.ID)
	if !ok {
		t.Fatalf("expected job exists")
	}
	if got.Status != JobDone {
		t.Fatalf("expected done status, got %s", got.Status)
	}
	if got.FinishedAt == nil {
		t.Fatalf("expected finished_at set")
	}

	// Counts are frozen once a job is done.
	s.RecordResult(job.ID, models.StatusLive)
	got, _ = s.Get(job.ID)
	if got.Processed != 0 {
		t.Fatalf("expected no records after finish, got %d", got.Processed)
	}
}

func TestJobStoreExpiresFinishedJobs(t *testing.T) {
	s := NewJobStore(time.Minute, 10)
	current := time.Now().UTC()
	s.now = func() time.Time { return current }

	job := s.Create(1)
	s.Finish(job.ID)

	current = current.Add(2 * time.Minute)
	if _, ok := s.Get(job.ID); ok {
		t.Fatalf("expected finished job evicted after ttl")
	}
}

func TestJobStoreNeverEvictsRunningJobs(t *testing.T) {
	s := NewJobStore(time.Minute, 2)
	current := time.Now().UTC()
	s.now = func() time.Time { return current }

	first := s.Create(1)
	second := s.Create(1)
	third := s.Create(1)

	current = current.Add(2 * time.Minute)
	for _, jobID := range []string{first.ID, second.ID, third.ID} {
		if _, ok := s.Get(jobID); !ok {
			t.Fatalf("expected running job %s kept over capacity", jobID)
		}
	}
}

func TestJobStoreEvictsOldestFinishedOverCapacity(t *testing.T) {
	s := NewJobStore(time.Hour, 2)

	first := s.Create(1)
	s.Finish(first.ID)
	second := s.Create(1)
	s.Finish(second.ID)
	third := s.Create(1)

	if _, ok := s.Get(first.ID); ok {
		t.Fatalf("expected oldest finished job evicted")
	}
	if _, ok := s.Get(second.ID); !ok {
		t.Fatalf("expected newer finished job kept")
	}
	if _, ok := s.Get(third.ID); !ok {
		t.Fatalf("expected running job kept")
	}
}

func TestJobStoreSnapshotIsolation(t *testing.T) {
	s := NewJobStore(time.Minute, 10)
	job := s.Create(1)

	snapshot, _ := s.Get(job.ID)
	snapshot.ByStatus[models.StatusLive] = 99

	got, _ := s.Get(job.ID)
	if got.ByStatus[models.StatusLive] != 0 {
		t.Fatalf("expected snapshot mutation not to leak into store")
	}
}

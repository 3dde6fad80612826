package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/irindex/irindex/model"
)

func TestJobManager_CreateJob(t *testing.T) {
	manager := NewManager(2)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeBuildIndex, "/tmp/idx", map[string]string{
		"operation": "test",
	})

	if jobID == "" {
		t.Error("Expected non-empty job ID")
	}

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get created job: %v", err)
	}

	if job.Type != model.JobTypeBuildIndex {
		t.Errorf("Expected job type %s, got %s", model.JobTypeBuildIndex, job.Type)
	}

	if job.Status != model.JobStatusPending {
		t.Errorf("Expected job status %s, got %s", model.JobStatusPending, job.Status)
	}

	if job.IndexDir != "/tmp/idx" {
		t.Errorf("Expected index dir '/tmp/idx', got %s", job.IndexDir)
	}
}

func TestJobManager_ExecuteJob(t *testing.T) {
	manager := NewManager(2)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeBuildIndex, "/tmp/idx", nil)

	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		manager.UpdateJobProgress(jobID, 50, 100, "halfway done")
		time.Sleep(10 * time.Millisecond)
		manager.UpdateJobProgress(jobID, 100, 100, "completed")
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to execute job: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	job, err := manager.GetJob(jobID)
	if err != nil {
		t.Fatalf("Failed to get job after execution: %v", err)
	}

	if job.Status != model.JobStatusCompleted {
		t.Errorf("Expected job status %s, got %s", model.JobStatusCompleted, job.Status)
	}

	if job.Progress == nil {
		t.Error("Expected job progress to be set")
	} else {
		if job.Progress.Current != 100 {
			t.Errorf("Expected progress current 100, got %d", job.Progress.Current)
		}
		if job.Progress.Total != 100 {
			t.Errorf("Expected progress total 100, got %d", job.Progress.Total)
		}
	}
}

func TestJobManager_Metrics(t *testing.T) {
	manager := NewManager(2)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeBuildIndex, "/tmp/idx", nil)

	metrics := manager.GetMetrics()
	if metrics.JobsCreated != 1 {
		t.Errorf("expected 1 job created, got %d", metrics.JobsCreated)
	}
	if metrics.CurrentWorkload != 1 {
		t.Errorf("expected workload 1 after create, got %d", metrics.CurrentWorkload)
	}

	if err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return nil
	}); err != nil {
		t.Fatalf("failed to execute job: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	metrics = manager.GetMetrics()
	if metrics.JobsCompleted != 1 {
		t.Errorf("expected 1 job completed, got %d", metrics.JobsCompleted)
	}
	if metrics.CurrentWorkload != 0 {
		t.Errorf("expected workload 0 after completion, got %d", metrics.CurrentWorkload)
	}
}

func TestJobManager_NotFound(t *testing.T) {
	manager := NewManager(1)
	defer manager.Stop()

	if _, err := manager.GetJob("missing"); err == nil {
		t.Error("expected error for unknown job id")
	}
}

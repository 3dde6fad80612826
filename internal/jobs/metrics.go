package jobs

import (
	"sync"
	"time"

	"github.com/irindex/irindex/model"
)

// JobMetricsData is a point-in-time snapshot of JobMetrics, safe to copy
// and serialize since it holds no mutex.
type JobMetricsData struct {
	JobsCreated          int64         `json:"jobs_created"`
	JobsCompleted        int64         `json:"jobs_completed"`
	JobsFailed           int64         `json:"jobs_failed"`
	CurrentWorkload      int64         `json:"current_workload"`
	TotalExecutionTime   time.Duration `json:"total_execution_time_ns"`
	AverageExecutionTime time.Duration `json:"average_execution_time_ns"`
	LastUpdated          time.Time     `json:"last_updated"`
}

// JobMetrics tracks aggregate counters across every indexing run a Manager
// has executed. The manager runs a single job type, so these are plain
// running totals rather than a per-job-type breakdown.
type JobMetrics struct {
	mu                   sync.RWMutex
	jobsCreated          int64
	jobsCompleted        int64
	jobsFailed           int64
	currentWorkload      int64
	totalExecutionTime   time.Duration
	averageExecutionTime time.Duration
	lastUpdated          time.Time
}

// NewJobMetrics creates a new metrics collector.
func NewJobMetrics() *JobMetrics {
	return &JobMetrics{lastUpdated: time.Now()}
}

func isActiveStatus(s model.JobStatus) bool {
	return s == model.JobStatusPending || s == model.JobStatusRunning
}

// RecordJobCreated increments the creation counter. A newly created job
// starts pending, so it also counts toward the current workload.
func (m *JobMetrics) RecordJobCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsCreated++
	m.currentWorkload++
	m.lastUpdated = time.Now()
}

// RecordJobStatusChange adjusts the current workload when a job enters or
// leaves an active (pending or running) status.
func (m *JobMetrics) RecordJobStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case isActiveStatus(oldStatus) && !isActiveStatus(newStatus):
		m.currentWorkload--
	case !isActiveStatus(oldStatus) && isActiveStatus(newStatus):
		m.currentWorkload++
	}
	m.lastUpdated = time.Now()
}

// RecordJobCompleted records a successful run and folds its execution time
// into the running average.
func (m *JobMetrics) RecordJobCompleted(executionTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsCompleted++
	m.totalExecutionTime += executionTime
	m.averageExecutionTime = m.totalExecutionTime / time.Duration(m.jobsCompleted)
	m.lastUpdated = time.Now()
}

// RecordJobFailed records a failed run.
func (m *JobMetrics) RecordJobFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobsFailed++
	m.lastUpdated = time.Now()
}

// GetMetrics returns a copy of the current metrics.
func (m *JobMetrics) GetMetrics() JobMetricsData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return JobMetricsData{
		JobsCreated:          m.jobsCreated,
		JobsCompleted:        m.jobsCompleted,
		JobsFailed:           m.jobsFailed,
		CurrentWorkload:      m.currentWorkload,
		TotalExecutionTime:   m.totalExecutionTime,
		AverageExecutionTime: m.averageExecutionTime,
		LastUpdated:          m.lastUpdated,
	}
}

package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/itemxtract/internal/ledger"
)

// JobStatus represents the state of an extraction job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Job tracks a group of tasks submitted together.
type Job struct {
	mu sync.Mutex

	ID     string
	Status JobStatus
	Phase  string

	Progress Progress

	CreatedAt time.Time
	UpdatedAt time.Time

	tasks   []Task
	session *ledger.Session
	records []ledger.FilingRecord
}

// Progress tracks processing progress.
type Progress struct {
	TotalTasks     int      `json:"total_tasks"`
	TasksDone      int      `json:"tasks_done"`
	ItemsExtracted int      `json:"items_extracted"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job whose records go to session.
func NewJob(tasks []Task, session *ledger.Session) *Job {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	now := time.Now()
	return &Job{
		ID:        id.String(),
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{TotalTasks: len(tasks)},
		CreatedAt: now,
		UpdatedAt: now,
		tasks:     tasks,
		session:   session,
	}
}

// Tasks returns the tasks of the job.
func (j *Job) Tasks() []Task {
	return j.tasks
}

// Session is the ledger the job's records go to.
func (j *Job) Session() *ledger.Session {
	return j.session
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes jobs idle for longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		idle := now.Sub(job.UpdatedAt)
		job.mu.Unlock()
		if idle > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Record adds the outcome of one task.
func (j *Job) Record(rec ledger.FilingRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	j.Progress.TasksDone++
	j.Progress.ItemsExtracted += len(rec.Items)
	for _, e := range rec.Errors {
		j.Progress.Errors = append(j.Progress.Errors, rec.Identifier+": "+e)
	}
	j.UpdatedAt = time.Now()
}

// Finish sets the final status from the recorded outcomes: completed
// when nothing failed, partial when some items were extracted anyway.
func (j *Job) Finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	status := StatusCompleted
	if len(j.Progress.Errors) > 0 {
		status = StatusFailed
		if j.Progress.ItemsExtracted > 0 {
			status = StatusPartial
		}
	}
	j.Status = status
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string                `json:"job_id"`
	RunID     string                `json:"run_id"`
	Status    JobStatus             `json:"status"`
	Phase     string                `json:"phase"`
	Progress  Progress              `json:"progress"`
	Filings   []ledger.FilingRecord `json:"filings"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	snap := JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  j.Progress,
		Filings:   append([]ledger.FilingRecord{}, j.records...),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	snap.Progress.Errors = errs
	if j.session != nil {
		snap.RunID = j.session.ID
	}
	return snap
}

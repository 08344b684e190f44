// Package jobs tracks asynchronous analysis runs. The registry is the
// single writer for job records: the worker goroutine mutates its job
// only through Update, and readers always get a copied snapshot.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"filing_analyst/pkg/core/agent"
)

// Status values a job moves through.
const (
	StatusQueued      = "queued"
	StatusDownloading = "downloading"
	StatusIndexing    = "indexing"
	StatusAnalyzing   = "analyzing"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Job is one analysis run's progress record.
type Job struct {
	ID            string        `json:"job_id"`
	Ticker        string        `json:"ticker"`
	FilingType    string        `json:"filing_type"`
	Status        string        `json:"status"`
	Error         string        `json:"error,omitempty"`
	CompanyName   string        `json:"company_name,omitempty"`
	FilingDate    string        `json:"filing_date,omitempty"`
	ChunksIndexed int           `json:"chunks_indexed,omitempty"`
	Report        *agent.Report `json:"report,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Registry is an in-memory job store keyed by uuid.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create registers a new queued job and returns its id.
func (r *Registry) Create(ticker, filingType string) *Job {
	now := time.Now()
	job := &Job{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		FilingType: filingType,
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	snapshot := *job
	return &snapshot
}

// Update applies fn to the job under the registry lock. Returns false
// when the id is unknown.
func (r *Registry) Update(id string, fn func(*Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return true
}

// Get returns a snapshot of the job, or nil when unknown.
func (r *Registry) Get(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}

// List returns snapshots of all jobs, newest first.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		snapshot := *job
		list = append(list, &snapshot)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

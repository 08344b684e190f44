package jobs

import (
	"sync"
	"testing"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()

	job := r.Create("AAPL", "10-K")
	if job.ID == "" {
		t.Fatal("expected job id")
	}
	if job.Status != StatusQueued {
		t.Errorf("status = %q, want queued", job.Status)
	}

	if ok := r.Update(job.ID, func(j *Job) { j.Status = StatusAnalyzing }); !ok {
		t.Fatal("update failed for known id")
	}

	got := r.Get(job.ID)
	if got.Status != StatusAnalyzing {
		t.Errorf("status = %q, want analyzing", got.Status)
	}

	// Snapshots must not alias the stored record.
	got.Status = "mangled"
	if r.Get(job.ID).Status != StatusAnalyzing {
		t.Error("snapshot mutation leaked into registry")
	}
}

func TestRegistryUnknownID(t *testing.T) {
	r := NewRegistry()
	if r.Get("nope") != nil {
		t.Error("expected nil for unknown id")
	}
	if r.Update("nope", func(j *Job) {}) {
		t.Error("expected update to report unknown id")
	}
}

func TestRegistryConcurrentWriters(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	ids := make([]string, 20)

	for i := range ids {
		ids[i] = r.Create("TICK", "10-K").ID
	}
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				r.Update(id, func(j *Job) { j.ChunksIndexed++ })
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		if got := r.Get(id).ChunksIndexed; got != 50 {
			t.Errorf("job %s chunks = %d, want 50", id, got)
		}
	}
	if len(r.List()) != len(ids) {
		t.Errorf("list = %d, want %d", len(r.List()), len(ids))
	}
}

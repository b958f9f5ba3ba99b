// Package worker provides the worker-directory collaborator consumed by
// the stage transition engine.
package worker

import (
	"context"
	"sort"
	"sync"
)

// Worker is a person who can be assigned to category schedules.
type Worker struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Phone      string   `json:"phone,omitempty"`
	Categories []string `json:"categories"` // category ids this worker handles
}

// Directory lists workers eligible for a category. Implemented by the
// worker CRUD service outside this core; StaticDirectory serves tests and
// single-binary deployments.
type Directory interface {
	EligibleForCategory(ctx context.Context, categoryID string) ([]Worker, error)
}

// StaticDirectory is a concurrency-safe in-memory Directory.
type StaticDirectory struct {
	mu      sync.RWMutex
	workers map[string]Worker
}

// NewStaticDirectory returns an empty StaticDirectory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{workers: make(map[string]Worker)}
}

// Register adds or replaces a worker.
func (d *StaticDirectory) Register(w Worker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.workers[w.ID] = w
}

// Get returns the worker with the given id.
func (d *StaticDirectory) Get(id string) (Worker, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.workers[id]
	return w, ok
}

// EligibleForCategory returns workers whose declared category affiliations
// include categoryID, sorted by name for deterministic candidate lists.
func (d *StaticDirectory) EligibleForCategory(_ context.Context, categoryID string) ([]Worker, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Worker
	for _, w := range d.workers {
		for _, c := range w.Categories {
			if c == categoryID {
				out = append(out, w)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

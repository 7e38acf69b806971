package cron

import (
	"context"
	"fmt"
)

// Job is one unit of scheduled maintenance, such as expiring stale payments.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order and rejects duplicate names so
// metrics and logs stay keyed by a single job.
type Registry struct {
	order  []string
	byName map[string]Job
}

// NewRegistry registers the given jobs, skipping nil entries and repeated names.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		_ = registry.Register(job)
	}
	return registry
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("cron job is nil")
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job name is empty")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.byName[name] = job
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the job registered under name.
func (r *Registry) Lookup(name string) (Job, bool) {
	job, ok := r.byName[name]
	return job, ok
}

// Jobs returns a copy of the registered jobs in order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		jobs = append(jobs, r.byName[name])
	}
	return jobs
}

package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry := NewRegistry()
	expiry := &stubJob{name: "payment-expiry"}
	cleanup := &stubJob{name: "session-cleanup"}
	require.NoError(t, registry.Register(expiry))
	require.NoError(t, registry.Register(cleanup))

	jobs := registry.Jobs()
	require.Equal(t, []Job{expiry, cleanup}, jobs)

	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal state leaked")
	}
}

func TestRegistryRejectsInvalidJobs(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "payment-expiry"}, nil, &stubJob{name: "payment-expiry"})
	require.Len(t, registry.Jobs(), 1)

	require.Error(t, registry.Register(nil))
	require.Error(t, registry.Register(&stubJob{}))
	require.Error(t, registry.Register(&stubJob{name: "payment-expiry"}))
}

func TestRegistryLookup(t *testing.T) {
	job := &stubJob{name: "payment-expiry"}
	registry := NewRegistry(job)

	got, ok := registry.Lookup("payment-expiry")
	require.True(t, ok)
	require.Same(t, job, got)

	_, ok = registry.Lookup("missing")
	require.False(t, ok)
}

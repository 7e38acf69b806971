package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gamehub/gamehub-backend/internal/registrations"
	"github.com/gamehub/gamehub-backend/pkg/logger"
)

type stubExpirer struct {
	got    time.Duration
	report registrations.ExpiryReport
	err    error
}

func (s *stubExpirer) ExpireStalePayments(_ context.Context, grace time.Duration) (registrations.ExpiryReport, error) {
	s.got = grace
	return s.report, s.err
}

func TestPaymentExpiryJobPassesGrace(t *testing.T) {
	expirer := &stubExpirer{report: registrations.ExpiryReport{Scanned: 3, Expired: 2}}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{Logger: logger.Nop(), Expirer: expirer, Grace: 15 * time.Minute})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != PaymentExpiryJobName {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.got != 15*time.Minute {
		t.Fatalf("expected grace 15m, got %v", expirer.got)
	}
}

func TestPaymentExpiryJobSurfacesErrors(t *testing.T) {
	boom := errors.New("boom")
	job, _ := NewPaymentExpiryJob(PaymentExpiryJobParams{Logger: logger.Nop(), Expirer: &stubExpirer{err: boom}, Grace: time.Minute})
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestNewPaymentExpiryJobValidates(t *testing.T) {
	if _, err := NewPaymentExpiryJob(PaymentExpiryJobParams{Logger: logger.Nop(), Grace: time.Minute}); err == nil {
		t.Fatal("expected missing expirer error")
	}
	if _, err := NewPaymentExpiryJob(PaymentExpiryJobParams{Logger: logger.Nop(), Expirer: &stubExpirer{}, Grace: -time.Second}); err == nil {
		t.Fatal("expected grace error")
	}
}

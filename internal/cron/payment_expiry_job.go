package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/gamehub/gamehub-backend/internal/registrations"
	"github.com/gamehub/gamehub-backend/pkg/logger"
)

const PaymentExpiryJobName = "payment-expiry"

type paymentExpirer interface {
	ExpireStalePayments(ctx context.Context, grace time.Duration) (registrations.ExpiryReport, error)
}

// PaymentExpiryJobParams configure the stale payment sweep.
type PaymentExpiryJobParams struct {
	Logger  *logger.Logger
	Expirer paymentExpirer
	// Grace is how long past its URL's vnp_ExpireDate a payment may stay pending.
	Grace time.Duration
}

type paymentExpiryJob struct {
	logg    *logger.Logger
	expirer paymentExpirer
	grace   time.Duration
}

// NewPaymentExpiryJob expires payments whose gateway URL lapsed more than
// Grace ago so their games can be bought again.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("payment expirer required")
	}
	if params.Grace < 0 {
		return nil, fmt.Errorf("expiry grace must not be negative")
	}
	return &paymentExpiryJob{logg: params.Logger, expirer: params.Expirer, grace: params.Grace}, nil
}

func (j *paymentExpiryJob) Name() string { return PaymentExpiryJobName }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	report, err := j.expirer.ExpireStalePayments(ctx, j.grace)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"scanned": report.Scanned,
		"expired": report.Expired,
		"grace":   j.grace.String(),
	})
	if err != nil {
		return err
	}
	j.logg.Info(ctx, "stale payments expired")
	return nil
}

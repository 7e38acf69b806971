package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamehub/gamehub-backend/pkg/enums"
)

// Payment tracks the gateway outcome for exactly one registration.
type Payment struct {
	ID             int64               `gorm:"column:id;primaryKey;autoIncrement"`
	RegistrationID int64               `gorm:"column:registration_id;not null;uniqueIndex"`
	TransactionID  *string             `gorm:"column:transaction_id;size:100"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(18,2);not null"`
	// AmountVND is the gateway amount quoted when the registration was created.
	// Callbacks are checked against it, not against the current exchange rate.
	AmountVND int64 `gorm:"column:amount_vnd;not null;default:0"`
	// ExpiresAt is the vnp_ExpireDate of the most recently issued payment URL.
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	// ExpiredAt is set when the cron worker gave up on the payment. A later
	// signed success callback may still settle it.
	ExpiredAt *time.Time `gorm:"column:expired_at"`
	PaymentDate    *time.Time          `gorm:"column:payment_date"`
	Status         enums.PaymentStatus `gorm:"column:status;size:20;not null;default:'pending';index"`
	Method         string              `gorm:"column:payment_method;size:50;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

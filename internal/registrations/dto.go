package registrations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/enums"
)

// PaymentMethodVNPay is recorded when the client does not name a method.
const PaymentMethodVNPay = "VNPay"

// RegisterInput starts a purchase. A nil GameID checks out the whole cart.
type RegisterInput struct {
	GameID        *int64
	PaymentMethod string
	ClientIP      string
}

// RegisterResult is returned once the registration is committed and the
// gateway URL is built.
type RegisterResult struct {
	RegistrationID int64           `json:"registration_id"`
	PaymentID      int64           `json:"payment_id"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	AmountVND      int64           `json:"amount_vnd"`
	PaymentURL     string          `json:"payment_url"`
	ExpiresAt      time.Time       `json:"expires_at"`
	Message        string          `json:"message"`
}

// GatewayOutcome reports what a gateway callback did (or had already done).
// Revived marks a success that arrived after the payment had expired.
type GatewayOutcome struct {
	RegistrationID   int64               `json:"registration_id"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	TransactionID    *string             `json:"transaction_id,omitempty"`
	AlreadyProcessed bool                `json:"already_processed"`
	Revived          bool                `json:"revived,omitempty"`
	Message          string              `json:"message"`
}

// PaymentLink is a freshly signed URL for a still-pending registration.
type PaymentLink struct {
	RegistrationID int64  `json:"registration_id"`
	AmountVND      int64     `json:"amount_vnd"`
	PaymentURL     string    `json:"payment_url"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// ExpiryReport summarizes one ExpireStalePayments sweep.
type ExpiryReport struct {
	Scanned int
	Expired int
}

type LineItemDTO struct {
	GameID    int64           `json:"game_id"`
	GameTitle string          `json:"game_title"`
	Price     decimal.Decimal `json:"price"`
}

type PaymentDTO struct {
	ID            int64               `json:"id"`
	Amount        decimal.Decimal     `json:"amount"`
	Status        enums.PaymentStatus `json:"status"`
	Method        string              `json:"payment_method"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	PaymentDate   *time.Time          `json:"payment_date,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	ExpiredAt     *time.Time          `json:"expired_at,omitempty"`
}

type PlayerSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// RegistrationDTO is the ledger view of one registration.
type RegistrationDTO struct {
	ID               int64           `json:"id"`
	PlayerID         int64           `json:"player_id"`
	Player           *PlayerSummary  `json:"player,omitempty"`
	RegistrationDate time.Time       `json:"registration_date"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	IsActive         bool            `json:"is_active"`
	Items            []LineItemDTO   `json:"items"`
	Payment          *PaymentDTO     `json:"payment,omitempty"`
}

// FromModel maps a registration loaded with its details, payment and player.
func FromModel(m models.GameRegistration) RegistrationDTO {
	dto := RegistrationDTO{
		ID:               m.ID,
		PlayerID:         m.PlayerID,
		RegistrationDate: m.RegistrationDate,
		PurchasePrice:    m.PurchasePrice,
		IsActive:         m.IsActive,
		Items:            make([]LineItemDTO, 0, len(m.Details)),
	}
	if m.Player != nil {
		dto.Player = &PlayerSummary{ID: m.Player.ID, Username: m.Player.Username}
		if m.Player.User != nil {
			dto.Player.Email = m.Player.User.Email
		}
	}
	for _, d := range m.Details {
		item := LineItemDTO{GameID: d.GameID, Price: d.Price}
		if d.Game != nil {
			item.GameTitle = d.Game.Title
		}
		dto.Items = append(dto.Items, item)
	}
	if p := m.Payment; p != nil {
		dto.Payment = &PaymentDTO{
			ID:            p.ID,
			Amount:        p.Amount,
			Status:        p.Status,
			Method:        p.Method,
			TransactionID: p.TransactionID,
			PaymentDate:   p.PaymentDate,
			ExpiresAt:     p.ExpiresAt,
			ExpiredAt:     p.ExpiredAt,
		}
	}
	return dto
}

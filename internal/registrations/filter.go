package registrations

import (
	"strings"
	"time"

	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

const (
	SortRegistrationDate = "registration_date"
	SortPurchasePrice    = "purchase_price"
	SortID               = "id"
)

var sortColumns = map[string]string{
	"registrationdate": "game_registrations.registration_date",
	"purchaseprice":    "game_registrations.purchase_price",
	"id":               "game_registrations.id",
}

// RegistrationFilter narrows the ledger. Every non-nil field adds one AND condition.
type RegistrationFilter struct {
	PlayerID       *int64
	PlayerUsername string
	PlayerEmail    string
	GameTitle      string
	GameCategoryID *int64
	DeveloperID    *int64
	StartDate      *time.Time
	EndDate        *time.Time
	IsActive       *bool
	Search         string
	SortBy         string
	IsAscending    bool
	Page           int
	PageSize       int
}

// ledgerQuery is a RegistrationFilter after validation and normalization.
type ledgerQuery struct {
	RegistrationFilter
	sortColumn string
	page       pagination.Params
}

func (f RegistrationFilter) normalize() (ledgerQuery, error) {
	q := ledgerQuery{RegistrationFilter: f}
	q.PlayerUsername = strings.ToLower(strings.TrimSpace(f.PlayerUsername))
	q.PlayerEmail = strings.ToLower(strings.TrimSpace(f.PlayerEmail))
	q.GameTitle = strings.ToLower(strings.TrimSpace(f.GameTitle))
	q.Search = strings.ToLower(strings.TrimSpace(f.Search))

	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(f.SortBy), "_", ""))
	if key == "" {
		key = "registrationdate"
	}
	col, ok := sortColumns[key]
	if !ok {
		return ledgerQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort field").
			WithDetails(map[string]any{"sort_by": f.SortBy})
	}
	q.sortColumn = col

	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return ledgerQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "end date must not be before start date")
	}

	q.page = pagination.Params{Page: f.Page, PageSize: f.PageSize}.Normalize()
	return q, nil
}

func like(s string) string {
	return "%" + s + "%"
}

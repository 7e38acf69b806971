package registrations

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamehub/gamehub-backend/internal/cart"
	"github.com/gamehub/gamehub-backend/internal/games"
	"github.com/gamehub/gamehub-backend/internal/repo"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/enums"
)

// Repository defines the persistence the registration flow and ledger need.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindGame(ctx context.Context, id int64) (*models.Game, error)
	FindCart(ctx context.Context, playerID int64) (*models.Cart, error)
	ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	DeleteCartItems(ctx context.Context, cartID int64, itemIDs []int64) (int64, error)
	HasLivePurchase(ctx context.Context, playerID int64, gameIDs []int64) (bool, error)

	CreateRegistration(ctx context.Context, reg *models.GameRegistration) error
	CreateDetails(ctx context.Context, details []models.GameRegistrationDetail) error
	CreateClaims(ctx context.Context, claims []models.GameClaim) error
	CreatePayment(ctx context.Context, payment *models.Payment) error

	FindRegistration(ctx context.Context, id int64) (*models.GameRegistration, error)
	FindPaymentByRegistration(ctx context.Context, registrationID int64) (*models.Payment, error)
	ListDetailGameIDs(ctx context.Context, registrationID int64) ([]int64, error)
	CompletePayment(ctx context.Context, paymentID int64, status enums.PaymentStatus, transactionID *string, paidAt time.Time) (bool, error)
	ReissuePayment(ctx context.Context, paymentID int64, amountVND int64, expiresAt, at time.Time) (bool, error)
	ExpirePayment(ctx context.Context, paymentID int64, at time.Time) (bool, error)
	RevivePayment(ctx context.Context, paymentID int64, transactionID *string, paidAt time.Time) (bool, error)
	ActivateRegistration(ctx context.Context, id int64, at time.Time) error
	IncrementGameCounts(ctx context.Context, gameIDs []int64) error
	ReleaseClaims(ctx context.Context, registrationID int64) (int64, error)
	RestoreClaims(ctx context.Context, claims []models.GameClaim) (int64, error)
	FindStalePending(ctx context.Context, cutoff, legacyCutoff time.Time, limit int) ([]models.Payment, error)

	ListRegistrations(ctx context.Context, q ledgerQuery) ([]models.GameRegistration, int64, error)
	SetRegistrationActive(ctx context.Context, id int64, active bool, at time.Time) error
}

type repository struct {
	repo.Base
	games *games.Repository
	carts *cart.Repository
}

// NewRepository binds the registration repository, and the catalog and cart
// repositories it reads through, to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{
		Base:  repo.NewBase(db),
		games: games.NewRepository(db),
		carts: cart.NewRepository(db),
	}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *repository) FindGame(ctx context.Context, id int64) (*models.Game, error) {
	return r.games.FindByID(ctx, id)
}

func (r *repository) FindCart(ctx context.Context, playerID int64) (*models.Cart, error) {
	return r.carts.FindByPlayer(ctx, playerID)
}

func (r *repository) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	return r.carts.ListAllItems(ctx, cartID)
}

func (r *repository) DeleteCartItems(ctx context.Context, cartID int64, itemIDs []int64) (int64, error) {
	return r.carts.DeleteItems(ctx, cartID, itemIDs)
}

func (r *repository) IncrementGameCounts(ctx context.Context, gameIDs []int64) error {
	return r.games.IncrementRegistrationCounts(ctx, gameIDs)
}

// HasLivePurchase reports whether any of gameIDs is already on one of the
// player's registrations whose payment is pending or successful.
func (r *repository) HasLivePurchase(ctx context.Context, playerID int64, gameIDs []int64) (bool, error) {
	if len(gameIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.DB(ctx).
		Table("game_registration_details AS d").
		Joins("JOIN game_registrations AS r ON r.id = d.registration_id").
		Joins("JOIN payments AS p ON p.registration_id = r.id").
		Where("r.player_id = ? AND d.game_id IN ?", playerID, gameIDs).
		Where("p.status IN ?", []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusSuccess}).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateRegistration(ctx context.Context, reg *models.GameRegistration) error {
	return r.DB(ctx).Omit(clause.Associations).Create(reg).Error
}

func (r *repository) CreateDetails(ctx context.Context, details []models.GameRegistrationDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.DB(ctx).Omit(clause.Associations).Create(&details).Error
}

func (r *repository) CreateClaims(ctx context.Context, claims []models.GameClaim) error {
	if len(claims) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&claims).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.DB(ctx).Create(payment).Error
}

// FindRegistration loads a registration with line items, games, payment and player.
func (r *repository) FindRegistration(ctx context.Context, id int64) (*models.GameRegistration, error) {
	var reg models.GameRegistration
	err := r.DB(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Details.Game").
		Preload("Payment").
		Preload("Player.User").
		First(&reg, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) FindPaymentByRegistration(ctx context.Context, registrationID int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB(ctx).Where("registration_id = ?", registrationID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListDetailGameIDs(ctx context.Context, registrationID int64) ([]int64, error) {
	var ids []int64
	err := r.DB(ctx).Model(&models.GameRegistrationDetail{}).
		Where("registration_id = ?", registrationID).
		Order("game_id ASC").
		Pluck("game_id", &ids).Error
	return ids, err
}

// CompletePayment moves a pending payment to status. It returns false when the
// payment was no longer pending, in which case nothing changed.
func (r *repository) CompletePayment(ctx context.Context, paymentID int64, status enums.PaymentStatus, transactionID *string, paidAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":       status,
		"payment_date": paidAt,
		"updated_at":   paidAt,
	}
	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}
	res := r.DB(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, enums.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReissuePayment records a freshly issued URL on a still-pending payment.
func (r *repository) ReissuePayment(ctx context.Context, paymentID int64, amountVND int64, expiresAt, at time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, enums.PaymentStatusPending).
		UpdateColumns(map[string]any{
			"amount_vnd": amountVND,
			"expires_at": expiresAt,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ExpirePayment fails a pending payment without a gateway verdict. It leaves
// payment_date empty and stamps expired_at instead.
func (r *repository) ExpirePayment(ctx context.Context, paymentID int64, at time.Time) (bool, error) {
	res := r.DB(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, enums.PaymentStatusPending).
		UpdateColumns(map[string]any{
			"status":     enums.PaymentStatusFailed,
			"expired_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevivePayment settles an expired payment as successful. Payments the gateway
// itself failed are never touched.
func (r *repository) RevivePayment(ctx context.Context, paymentID int64, transactionID *string, paidAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":       enums.PaymentStatusSuccess,
		"payment_date": paidAt,
		"expired_at":   nil,
		"updated_at":   paidAt,
	}
	if transactionID != nil {
		updates["transaction_id"] = *transactionID
	}
	res := r.DB(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ? AND expired_at IS NOT NULL", paymentID, enums.PaymentStatusFailed).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ActivateRegistration(ctx context.Context, id int64, at time.Time) error {
	return r.DB(ctx).Model(&models.GameRegistration{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"is_active": true, "updated_at": at}).Error
}

func (r *repository) SetRegistrationActive(ctx context.Context, id int64, active bool, at time.Time) error {
	res := r.DB(ctx).Model(&models.GameRegistration{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"is_active": active, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ReleaseClaims(ctx context.Context, registrationID int64) (int64, error) {
	res := r.DB(ctx).Where("registration_id = ?", registrationID).Delete(&models.GameClaim{})
	return res.RowsAffected, res.Error
}

// RestoreClaims re-inserts claims, skipping any (player, game) pair another
// registration holds by now. It returns how many were inserted.
func (r *repository) RestoreClaims(ctx context.Context, claims []models.GameClaim) (int64, error) {
	if len(claims) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&claims)
	return res.RowsAffected, res.Error
}

// FindStalePending returns pending payments whose last URL expired before
// cutoff, oldest first. Rows without an expiry fall back to created_at
// against legacyCutoff.
func (r *repository) FindStalePending(ctx context.Context, cutoff, legacyCutoff time.Time, limit int) ([]models.Payment, error) {
	var rows []models.Payment
	q := r.DB(ctx).
		Where("status = ?", enums.PaymentStatusPending).
		Where("(expires_at IS NOT NULL AND expires_at < ?) OR (expires_at IS NULL AND created_at < ?)", cutoff, legacyCutoff).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// ListRegistrations runs the ledger query and returns one page plus the total.
func (r *repository) ListRegistrations(ctx context.Context, q ledgerQuery) ([]models.GameRegistration, int64, error) {
	direction := " DESC"
	if q.IsAscending {
		direction = " ASC"
	}
	filtered := func() *gorm.DB {
		return applyLedgerFilter(r.DB(ctx).Model(&models.GameRegistration{}), q)
	}
	return repo.FindPage[models.GameRegistration](filtered, q.page, func(db *gorm.DB) *gorm.DB {
		return db.
			Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Preload("Details.Game").
			Preload("Payment").
			Preload("Player.User").
			Order(q.sortColumn + direction).
			Order("game_registrations.id" + direction)
	})
}

package registrations

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/pkg/auth"
	"github.com/gamehub/gamehub-backend/pkg/currency"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/enums"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/logger"
	"github.com/gamehub/gamehub-backend/pkg/metrics"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
	"github.com/gamehub/gamehub-backend/pkg/vnpay"
)

const (
	msgNotPlayer            = "Current user is not an active player"
	msgAdminRequired        = "Admin access required"
	msgGameNotFound         = "Game not found"
	msgCartNotFound         = "Cart not found"
	msgCartEmpty            = "Cart items not found"
	msgGameRegistered       = "Game already registered"
	msgCartGameRegistered   = "Some games in cart are already registered"
	msgInvalidMethod        = "Payment method must be at most 50 characters"
	msgPaymentURLCreated    = "Payment URL created successfully"
	msgRegisterFailed       = "An error occurred while registering game"
	msgInvalidSignature     = "Invalid VNPay signature"
	msgInvalidTxnRef        = "Invalid transaction reference"
	msgInvalidAmount        = "Invalid payment amount"
	msgAmountMismatch       = "Payment amount mismatch"
	msgRegistrationNotFound = "Registration not found"
	msgPaymentNotFound      = "Payment not found"
	msgPaymentSuccessful    = "Payment successful"
	msgPaymentFailed        = "Payment failed"
	msgPaymentProcessing    = "Payment is being processed"
	msgNotPending           = "Payment is no longer pending"
	msgPaymentExpired       = "Payment has expired"
	msgViewForbidden        = "You are not allowed to view this registration"

	orderInfoFormat   = "Thanh toan dang ky game :%d"
	expiryBatchSize   = 500
	defaultPendingTTL = 30 * time.Minute
	maxMethodLength   = 50
)

// Service is the registration orchestrator and ledger.
type Service interface {
	RegisterGame(ctx context.Context, actor auth.Actor, input RegisterInput) (*RegisterResult, error)
	HandleGatewayReturn(ctx context.Context, params url.Values) (*GatewayOutcome, error)
	ResumePayment(ctx context.Context, actor auth.Actor, registrationID int64, clientIP string) (*PaymentLink, error)
	ExpireStalePayments(ctx context.Context, grace time.Duration) (ExpiryReport, error)
	GetRegistration(ctx context.Context, actor auth.Actor, id int64) (*RegistrationDTO, error)
	ListRegistrations(ctx context.Context, actor auth.Actor, filter RegistrationFilter) (pagination.Page[RegistrationDTO], error)
	ToggleRegistrationStatus(ctx context.Context, actor auth.Actor, id int64) (*RegistrationDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentGateway interface {
	CreatePaymentURL(req vnpay.PaymentRequest) (string, error)
	VerifyResponse(params url.Values) bool
}

// ServiceParams bundles the dependencies of the registration service.
type ServiceParams struct {
	DB        txRunner
	Repo      Repository
	Gateway   paymentGateway
	Converter currency.Converter
	Guard     IdempotencyGuard
	Metrics   *metrics.PaymentMetrics
	Logger    *logger.Logger
	Now       func() time.Time
	// PendingTTL is how long each issued payment URL stays payable.
	PendingTTL time.Duration
}

type service struct {
	db         txRunner
	repo       Repository
	gateway    paymentGateway
	converter  currency.Converter
	guard      IdempotencyGuard
	metrics    *metrics.PaymentMetrics
	logg       *logger.Logger
	now        func() time.Time
	pendingTTL time.Duration
}

// NewService constructs the registration service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("registration repository is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	guard := params.Guard
	if guard == nil {
		guard = noopGuard{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &service{
		db:         params.DB,
		repo:       params.Repo,
		gateway:    params.Gateway,
		converter:  params.Converter,
		guard:      guard,
		metrics:    params.Metrics,
		logg:       logg,
		now:        func() time.Time { return now().UTC() },
		pendingTTL: ttl,
	}, nil
}

type purchaseLine struct {
	game       models.Game
	cartItemID int64
}

func (s *service) RegisterGame(ctx context.Context, actor auth.Actor, input RegisterInput) (*RegisterResult, error) {
	playerID, ok := actor.ActivePlayerID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgNotPlayer)
	}
	method, err := normalizeMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	mode := metrics.ModeCart
	conflictMsg := msgCartGameRegistered
	if input.GameID != nil {
		mode = metrics.ModeSingle
		conflictMsg = msgGameRegistered
	}

	ctx = s.logg.WithPlayerID(ctx, playerID)
	now := s.now()
	expiresAt := now.Add(s.pendingTTL)

	var (
		registration models.GameRegistration
		payment      models.Payment
		amountVND    int64
		paymentURL   string
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var (
			lines  []purchaseLine
			cartID int64
		)
		if input.GameID != nil {
			game, err := repo.FindGame(ctx, *input.GameID)
			if err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeNotFound, msgGameNotFound)
				}
				return err
			}
			lines = []purchaseLine{{game: *game}}
		} else {
			cart, err := repo.FindCart(ctx, playerID)
			if err != nil {
				if db.IsNotFound(err) {
					return pkgerrors.New(pkgerrors.CodeNotFound, msgCartNotFound)
				}
				return err
			}
			items, err := repo.ListCartItems(ctx, cart.ID)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, msgCartEmpty)
			}
			for _, item := range items {
				if item.Game == nil {
					return pkgerrors.New(pkgerrors.CodeNotFound, msgGameNotFound)
				}
				lines = append(lines, purchaseLine{game: *item.Game, cartItemID: item.ID})
			}
			cartID = cart.ID
		}

		gameIDs := make([]int64, len(lines))
		total := decimal.Zero
		for i, line := range lines {
			gameIDs[i] = line.game.ID
			total = total.Add(line.game.Price)
		}

		taken, err := repo.HasLivePurchase(ctx, playerID, gameIDs)
		if err != nil {
			return err
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, conflictMsg)
		}

		amountVND, err = s.converter.ToVND(total)
		if err != nil {
			return err
		}

		registration = models.GameRegistration{
			PlayerID:         playerID,
			RegistrationDate: now,
			PurchasePrice:    total,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := repo.CreateRegistration(ctx, &registration); err != nil {
			return err
		}

		details := make([]models.GameRegistrationDetail, len(lines))
		claims := make([]models.GameClaim, len(lines))
		for i, line := range lines {
			details[i] = models.GameRegistrationDetail{
				RegistrationID: registration.ID,
				GameID:         line.game.ID,
				Price:          line.game.Price,
				CreatedAt:      now,
			}
			claims[i] = models.GameClaim{
				PlayerID:       playerID,
				GameID:         line.game.ID,
				RegistrationID: registration.ID,
				CreatedAt:      now,
			}
		}
		if err := repo.CreateDetails(ctx, details); err != nil {
			return err
		}
		if err := repo.CreateClaims(ctx, claims); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, conflictMsg)
			}
			return err
		}

		payment = models.Payment{
			RegistrationID: registration.ID,
			Amount:         total,
			AmountVND:      amountVND,
			ExpiresAt:      &expiresAt,
			Status:         enums.PaymentStatusPending,
			Method:         method,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repo.CreatePayment(ctx, &payment); err != nil {
			return err
		}

		if cartID != 0 {
			itemIDs := make([]int64, len(lines))
			for i, line := range lines {
				itemIDs[i] = line.cartItemID
			}
			if _, err := repo.DeleteCartItems(ctx, cartID, itemIDs); err != nil {
				return err
			}
		}

		// A signing failure rolls the registration back.
		paymentURL, err = s.gateway.CreatePaymentURL(s.paymentRequest(registration.ID, amountVND, input.ClientIP, now, expiresAt))
		if err != nil {
			return fmt.Errorf("build payment url: %w", err)
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		s.logg.Error(ctx, "registration.create_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, msgRegisterFailed).AsPublic()
	}

	s.metrics.IncRegistration(mode)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"registration_id": registration.ID,
		"payment_id":      payment.ID,
		"mode":            mode,
		"amount_vnd":      amountVND,
	}), "registration.created")

	return &RegisterResult{
		RegistrationID: registration.ID,
		PaymentID:      payment.ID,
		PurchasePrice:  registration.PurchasePrice,
		AmountVND:      amountVND,
		PaymentURL:     paymentURL,
		ExpiresAt:      expiresAt,
		Message:        msgPaymentURLCreated,
	}, nil
}

func (s *service) HandleGatewayReturn(ctx context.Context, params url.Values) (*GatewayOutcome, error) {
	if !s.gateway.VerifyResponse(params) {
		s.metrics.IncCallback(metrics.OutcomeInvalidSignature)
		s.logg.Warn(ctx, "payment.callback.invalid_signature")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidSignature)
	}

	result, err := vnpay.ParseResult(params)
	if err != nil {
		s.metrics.IncCallback(metrics.OutcomeRejected)
		if stdErrors.Is(err, vnpay.ErrInvalidTxnRef) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidTxnRef)
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidAmount)
	}

	ctx = s.logg.WithPayment(ctx, result.RegistrationID, result.TxnRef)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_no": result.TransactionNo,
		"response_code":  result.ResponseCode,
	})

	key := callbackKey(result.TxnRef, result.TransactionNo)
	owned, err := s.guard.Claim(ctx, key)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment.callback.guard_unavailable")
	}
	if !owned && err == nil {
		// A held key only proves an earlier delivery started. Unless that one
		// settled the payment, process this delivery too; the conditional
		// updates keep the two from both applying.
		payment, err := s.loadPayment(ctx, result.RegistrationID)
		if err != nil {
			return nil, err
		}
		if payment.Status.IsTerminal() && !revivable(payment, result) {
			s.metrics.IncCallback(metrics.OutcomeReplayed)
			return outcomeFor(result.RegistrationID, payment, true), nil
		}
		s.logg.Warn(ctx, "payment.callback.guard_held_while_pending")
	}

	outcome, err := s.applyGatewayResult(ctx, result)
	if err != nil {
		if owned {
			if relErr := s.guard.Release(ctx, key); relErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "payment.callback.guard_release_failed")
			}
		}
		if typed := pkgerrors.As(err); typed != nil {
			s.metrics.IncCallback(metrics.OutcomeRejected)
			return nil, typed
		}
		s.logg.Error(ctx, "payment.callback.failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "process payment callback")
	}

	switch {
	case outcome.AlreadyProcessed:
		s.metrics.IncCallback(metrics.OutcomeReplayed)
	case outcome.Revived:
		s.metrics.IncCallback(metrics.OutcomeRevived)
	case outcome.PaymentStatus == enums.PaymentStatusSuccess:
		s.metrics.IncCallback(metrics.OutcomeSuccess)
	default:
		s.metrics.IncCallback(metrics.OutcomeFailed)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_status":    outcome.PaymentStatus,
		"already_processed": outcome.AlreadyProcessed,
	}), "payment.callback.processed")
	return outcome, nil
}

func (s *service) applyGatewayResult(ctx context.Context, result vnpay.Result) (*GatewayOutcome, error) {
	var outcome *GatewayOutcome
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		reg, err := repo.FindRegistration(ctx, result.RegistrationID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, msgRegistrationNotFound)
			}
			return err
		}
		payment := reg.Payment
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgPaymentNotFound)
		}

		if result.HasAmount {
			expected, err := s.quotedAmount(payment)
			if err != nil {
				return err
			}
			if result.Amount != currency.GatewayAmount(expected) {
				return pkgerrors.New(pkgerrors.CodeValidation, msgAmountMismatch).
					WithDetails(map[string]any{"expected": currency.GatewayAmount(expected), "received": result.Amount})
			}
		}

		var txnID *string
		if result.TransactionNo != "" {
			no := result.TransactionNo
			txnID = &no
		}
		paidAt := s.now()

		if revivable(payment, result) {
			revived, err := s.revive(ctx, repo, reg, payment, txnID, paidAt)
			if err != nil {
				return err
			}
			outcome = revived
			return nil
		}
		if payment.Status.IsTerminal() {
			outcome = outcomeFor(reg.ID, payment, true)
			return nil
		}

		status := enums.PaymentStatusFailed
		if result.Succeeded() {
			status = enums.PaymentStatusSuccess
		}

		updated, err := repo.CompletePayment(ctx, payment.ID, status, txnID, paidAt)
		if err != nil {
			return err
		}
		if !updated {
			current, err := repo.FindPaymentByRegistration(ctx, reg.ID)
			if err != nil {
				return err
			}
			outcome = outcomeFor(reg.ID, current, true)
			return nil
		}

		if status == enums.PaymentStatusSuccess {
			if err := repo.ActivateRegistration(ctx, reg.ID, paidAt); err != nil {
				return err
			}
			gameIDs, err := repo.ListDetailGameIDs(ctx, reg.ID)
			if err != nil {
				return err
			}
			if err := repo.IncrementGameCounts(ctx, gameIDs); err != nil {
				return err
			}
		} else if _, err := repo.ReleaseClaims(ctx, reg.ID); err != nil {
			return err
		}

		payment.Status = status
		payment.TransactionID = txnID
		payment.PaymentDate = &paidAt
		outcome = outcomeFor(reg.ID, payment, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// revive settles a payment the cron worker expired once the gateway reports
// it was paid after all. The games are claimed again where nobody else holds
// them.
func (s *service) revive(ctx context.Context, repo Repository, reg *models.GameRegistration, payment *models.Payment, txnID *string, paidAt time.Time) (*GatewayOutcome, error) {
	updated, err := repo.RevivePayment(ctx, payment.ID, txnID, paidAt)
	if err != nil {
		return nil, err
	}
	if !updated {
		current, err := repo.FindPaymentByRegistration(ctx, reg.ID)
		if err != nil {
			return nil, err
		}
		return outcomeFor(reg.ID, current, true), nil
	}

	gameIDs, err := repo.ListDetailGameIDs(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	claims := make([]models.GameClaim, len(gameIDs))
	for i, id := range gameIDs {
		claims[i] = models.GameClaim{PlayerID: reg.PlayerID, GameID: id, RegistrationID: reg.ID, CreatedAt: paidAt}
	}
	restored, err := repo.RestoreClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	if restored != int64(len(claims)) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"games":    len(claims),
			"restored": restored,
		}), "payment.callback.revived_duplicate_purchase")
	}
	if err := repo.ActivateRegistration(ctx, reg.ID, paidAt); err != nil {
		return nil, err
	}
	if err := repo.IncrementGameCounts(ctx, gameIDs); err != nil {
		return nil, err
	}

	payment.Status = enums.PaymentStatusSuccess
	payment.TransactionID = txnID
	payment.PaymentDate = &paidAt
	payment.ExpiredAt = nil
	out := outcomeFor(reg.ID, payment, false)
	out.Revived = true
	s.logg.Info(ctx, "payment.callback.revived")
	return out, nil
}

// revivable is true for a signed success arriving after the cron worker
// expired the payment.
func revivable(payment *models.Payment, result vnpay.Result) bool {
	return payment.Status == enums.PaymentStatusFailed && payment.ExpiredAt != nil && result.Succeeded()
}

// quotedAmount is the VND amount the issued URLs carried.
func (s *service) quotedAmount(payment *models.Payment) (int64, error) {
	if payment.AmountVND > 0 {
		return payment.AmountVND, nil
	}
	return s.converter.ToVND(payment.Amount)
}

func (s *service) paymentRequest(registrationID, amountVND int64, clientIP string, createdAt, expiresAt time.Time) vnpay.PaymentRequest {
	return vnpay.PaymentRequest{
		TxnRef:    strconv.FormatInt(registrationID, 10),
		AmountVND: amountVND,
		OrderInfo: fmt.Sprintf(orderInfoFormat, registrationID),
		ClientIP:  clientIP,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}
}

func (s *service) loadPayment(ctx context.Context, registrationID int64) (*models.Payment, error) {
	payment, err := s.repo.FindPaymentByRegistration(ctx, registrationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPaymentNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
	}
	return payment, nil
}

func outcomeFor(registrationID int64, payment *models.Payment, already bool) *GatewayOutcome {
	msg := msgPaymentProcessing
	switch payment.Status {
	case enums.PaymentStatusSuccess:
		msg = msgPaymentSuccessful
	case enums.PaymentStatusFailed:
		msg = msgPaymentFailed
	}
	return &GatewayOutcome{
		RegistrationID:   registrationID,
		PaymentStatus:    payment.Status,
		TransactionID:    payment.TransactionID,
		AlreadyProcessed: already,
		Message:          msg,
	}
}

func (s *service) ResumePayment(ctx context.Context, actor auth.Actor, registrationID int64, clientIP string) (*PaymentLink, error) {
	playerID, ok := actor.ActivePlayerID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgNotPlayer)
	}
	reg, err := s.repo.FindRegistration(ctx, registrationID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgRegistrationNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load registration")
	}
	if reg.PlayerID != playerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgViewForbidden)
	}
	if reg.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgPaymentNotFound)
	}
	if reg.Payment.ExpiredAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgPaymentExpired)
	}
	if reg.Payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgNotPending)
	}

	// The quote is kept so every URL for this registration charges the same.
	amountVND, err := s.quotedAmount(reg.Payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "convert amount")
	}
	now := s.now()
	expiresAt := now.Add(s.pendingTTL)
	paymentURL, err := s.gateway.CreatePaymentURL(s.paymentRequest(reg.ID, amountVND, clientIP, now, expiresAt))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment url")
	}
	updated, err := s.repo.ReissuePayment(ctx, reg.Payment.ID, amountVND, expiresAt, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment url")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, msgNotPending)
	}
	return &PaymentLink{RegistrationID: reg.ID, AmountVND: amountVND, PaymentURL: paymentURL, ExpiresAt: expiresAt}, nil
}

// ExpireStalePayments fails pending payments whose last URL expired more than
// grace ago and frees their games for purchase again. The payment keeps an
// expired_at stamp so a late signed success can still settle it. Each payment
// gets its own transaction so one bad row does not hold back the rest.
func (s *service) ExpireStalePayments(ctx context.Context, grace time.Duration) (ExpiryReport, error) {
	if grace < 0 {
		grace = 0
	}
	now := s.now()
	cutoff := now.Add(-grace)
	stale, err := s.repo.FindStalePending(ctx, cutoff, cutoff.Add(-s.pendingTTL), expiryBatchSize)
	if err != nil {
		return ExpiryReport{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find stale payments")
	}

	report := ExpiryReport{Scanned: len(stale)}
	var errs error
	for _, payment := range stale {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		expired := false
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			updated, err := repo.ExpirePayment(ctx, payment.ID, now)
			if err != nil || !updated {
				return err
			}
			if _, err := repo.ReleaseClaims(ctx, payment.RegistrationID); err != nil {
				return err
			}
			expired = true
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire payment %d: %w", payment.ID, err))
			continue
		}
		if expired {
			report.Expired++
		}
	}

	s.metrics.AddCallbacks(metrics.OutcomeExpired, report.Expired)
	if report.Expired > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"scanned": report.Scanned,
			"expired": report.Expired,
		}), "payment.expiry.completed")
	}
	return report, errs
}

func (s *service) GetRegistration(ctx context.Context, actor auth.Actor, id int64) (*RegistrationDTO, error) {
	playerID, isPlayer := actor.ActivePlayerID()
	if !actor.IsAdmin() && !isPlayer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgNotPlayer)
	}
	reg, err := s.repo.FindRegistration(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgRegistrationNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load registration")
	}
	if !actor.IsAdmin() && reg.PlayerID != playerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgViewForbidden)
	}
	dto := FromModel(*reg)
	return &dto, nil
}

func (s *service) ListRegistrations(ctx context.Context, actor auth.Actor, filter RegistrationFilter) (pagination.Page[RegistrationDTO], error) {
	if !actor.IsAdmin() {
		playerID, ok := actor.ActivePlayerID()
		if !ok {
			return pagination.Page[RegistrationDTO]{}, pkgerrors.New(pkgerrors.CodeForbidden, msgNotPlayer)
		}
		filter.PlayerID = &playerID
	}
	q, err := filter.normalize()
	if err != nil {
		return pagination.Page[RegistrationDTO]{}, err
	}

	rows, total, err := s.repo.ListRegistrations(ctx, q)
	if err != nil {
		return pagination.Page[RegistrationDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list registrations")
	}
	items := make([]RegistrationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return pagination.NewPage(items, q.page, total), nil
}

func (s *service) ToggleRegistrationStatus(ctx context.Context, actor auth.Actor, id int64) (*RegistrationDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, msgAdminRequired)
	}
	var out RegistrationDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		reg, err := repo.FindRegistration(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, msgRegistrationNotFound)
			}
			return err
		}
		if err := repo.SetRegistrationActive(ctx, id, !reg.IsActive, s.now()); err != nil {
			return err
		}
		reg.IsActive = !reg.IsActive
		out = FromModel(*reg)
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle registration")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"registration_id": id,
		"is_active":       out.IsActive,
	}), "registration.toggled")
	return &out, nil
}

// normalizeMethod stores the method as the client named it. URLs are always
// issued through VNPay; an empty method records that.
func normalizeMethod(raw string) (string, error) {
	method := strings.TrimSpace(raw)
	if method == "" {
		return PaymentMethodVNPay, nil
	}
	if utf8.RuneCountInString(method) > maxMethodLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, msgInvalidMethod).
			WithDetails(map[string]any{"payment_method": "must be at most 50 characters"})
	}
	return method, nil
}

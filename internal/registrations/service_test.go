package registrations

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/pkg/auth"
	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/currency"
	pkgdb "github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/dbtest"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/enums"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/vnpay"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	t       *testing.T
	client  *pkgdb.Client
	conn    *gorm.DB
	gateway *vnpay.Client
	repo    Repository
	svc     Service
	clock   time.Time
	player  auth.Actor
	other   auth.Actor
	admin   auth.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, clock: baseTime}
	h.client = dbtest.Open(t)
	h.conn = h.client.DB()

	gateway, err := vnpay.NewClient(config.VNPayConfig{
		TmnCode:    "TMN0001",
		HashSecret: "SECRETKEY123",
		BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8080/api/v1/payments/vnpay/return",
		TimeZone:   "Asia/Ho_Chi_Minh",
	})
	require.NoError(t, err)
	h.gateway = gateway
	h.repo = NewRepository(h.conn)
	h.svc = h.build(h.repo, nil)

	h.player = h.seedPlayer("ana")
	h.other = h.seedPlayer("bao")

	admin := &models.User{Email: "admin@example.com", PasswordHash: "x", Role: enums.UserRoleAdmin, IsActive: true, JoinDate: baseTime}
	dbtest.MustCreate(t, h.conn, admin)
	h.admin = auth.Actor{UserID: admin.ID, Role: enums.UserRoleAdmin, IsActive: true}
	return h
}

func (h *harness) build(repo Repository, guard IdempotencyGuard, opts ...func(*ServiceParams)) Service {
	h.t.Helper()
	params := ServiceParams{
		DB:         h.client,
		Repo:       repo,
		Gateway:    h.gateway,
		Converter:  currency.NewConverter(decimal.NewFromInt(25000)),
		Guard:      guard,
		Now:        func() time.Time { return h.clock },
		PendingTTL: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(h.t, err)
	return svc
}

func (h *harness) seedPlayer(name string) auth.Actor {
	h.t.Helper()
	user := &models.User{Email: name + "@example.com", PasswordHash: "x", Role: enums.UserRolePlayer, IsActive: true, JoinDate: baseTime}
	dbtest.MustCreate(h.t, h.conn, user)
	player := &models.Player{UserID: user.ID, Username: name, IsActive: true}
	dbtest.MustCreate(h.t, h.conn, player)
	id := player.ID
	return auth.Actor{UserID: user.ID, PlayerID: &id, Role: enums.UserRolePlayer, IsActive: true}
}

func (h *harness) seedGame(id int64, title, price string) models.Game {
	h.t.Helper()
	game := models.Game{ID: id, Title: title, Price: decimal.RequireFromString(price), IsActive: true}
	dbtest.MustCreate(h.t, h.conn, &game)
	return game
}

func (h *harness) callback(registrationID int64, code, status string, amount int64, txnNo string) url.Values {
	params := url.Values{}
	params.Set(vnpay.ParamTxnRef, strconv.FormatInt(registrationID, 10))
	params.Set(vnpay.ParamResponseCode, code)
	params.Set(vnpay.ParamTransactionStatus, status)
	params.Set(vnpay.ParamTransactionNo, txnNo)
	if amount > 0 {
		params.Set(vnpay.ParamAmount, strconv.FormatInt(amount, 10))
	}
	params.Set(vnpay.ParamTmnCode, "TMN0001")
	return h.gateway.SignValues(params)
}

func (h *harness) count(model any, where string, args ...any) int64 {
	h.t.Helper()
	var n int64
	q := h.conn.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(h.t, q.Count(&n).Error)
	return n
}

func (h *harness) payment(registrationID int64) models.Payment {
	h.t.Helper()
	var p models.Payment
	require.NoError(h.t, h.conn.Where("registration_id = ?", registrationID).First(&p).Error)
	return p
}

func (h *harness) registration(id int64) models.GameRegistration {
	h.t.Helper()
	var r models.GameRegistration
	require.NoError(h.t, h.conn.First(&r, "id = ?", id).Error)
	return r
}

func (h *harness) registrationCount(gameID int64) int {
	h.t.Helper()
	var g models.Game
	require.NoError(h.t, h.conn.First(&g, "id = ?", gameID).Error)
	return g.RegistrationCount
}

func (h *harness) addToCart(actor auth.Actor, gameIDs ...int64) {
	h.t.Helper()
	var cart models.Cart
	err := h.conn.Where("player_id = ?", *actor.PlayerID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{PlayerID: *actor.PlayerID}
		dbtest.MustCreate(h.t, h.conn, &cart)
	} else {
		require.NoError(h.t, err)
	}
	for _, id := range gameIDs {
		dbtest.MustCreate(h.t, h.conn, &models.CartItem{CartID: cart.ID, GameID: id})
	}
}

func gameID(id int64) *int64 { return &id }

func TestRegisterSingleGameBuildsSignedURL(t *testing.T) {
	h := newHarness(t)
	h.seedGame(42, "Celeste", "19.99")

	res, err := h.svc.RegisterGame(context.Background(), h.player, RegisterInput{GameID: gameID(42), ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	require.Equal(t, "Payment URL created successfully", res.Message)
	require.Equal(t, "19.99", res.PurchasePrice.StringFixed(2))
	require.Equal(t, int64(499750), res.AmountVND)

	parsed, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	q := parsed.Query()
	require.Equal(t, "49975000", q.Get(vnpay.ParamAmount))
	require.Equal(t, strconv.FormatInt(res.RegistrationID, 10), q.Get(vnpay.ParamTxnRef))
	require.Equal(t, "Thanh toan dang ky game :"+strconv.FormatInt(res.RegistrationID, 10), q.Get(vnpay.ParamOrderInfo))
	require.Equal(t, "20260301170000", q.Get(vnpay.ParamCreateDate))
	require.Equal(t, "20260301173000", q.Get(vnpay.ParamExpireDate))
	require.True(t, h.gateway.VerifyResponse(q))
	require.True(t, res.ExpiresAt.Equal(baseTime.Add(30*time.Minute)))

	payment := h.payment(res.RegistrationID)
	require.Equal(t, res.PaymentID, payment.ID)
	require.Equal(t, enums.PaymentStatusPending, payment.Status)
	require.Equal(t, "19.99", payment.Amount.StringFixed(2))
	require.Equal(t, int64(499750), payment.AmountVND)
	require.NotNil(t, payment.ExpiresAt)
	require.True(t, payment.ExpiresAt.Equal(baseTime.Add(30*time.Minute)))
	require.Nil(t, payment.ExpiredAt)
	require.Equal(t, PaymentMethodVNPay, payment.Method)

	reg := h.registration(res.RegistrationID)
	require.False(t, reg.IsActive)
	require.Equal(t, *h.player.PlayerID, reg.PlayerID)
	require.Equal(t, int64(1), h.count(&models.GameRegistrationDetail{}, "registration_id = ? AND game_id = ?", reg.ID, 42))
	require.Equal(t, int64(1), h.count(&models.GameClaim{}, "registration_id = ?", reg.ID))
}

func TestRegisterGameRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(1, "Hades", "24.99")

	_, err := h.svc.RegisterGame(ctx, h.admin, RegisterInput{GameID: gameID(1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(404)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Equal(t, "Game not found", pkgerrors.As(err).Message())

	_, err = h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(1), PaymentMethod: strings.Repeat("x", 51)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(1)})
	require.NoError(t, err)
	_, err = h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, "Game already registered", pkgerrors.As(err).Message())

	// Another player may still buy the same game.
	_, err = h.svc.RegisterGame(ctx, h.other, RegisterInput{GameID: gameID(1)})
	require.NoError(t, err)
}

func TestRegisterGameStoresRequestedMethod(t *testing.T) {
	h := newHarness(t)
	h.seedGame(42, "Celeste", "19.99")

	res, err := h.svc.RegisterGame(context.Background(), h.player, RegisterInput{GameID: gameID(42), PaymentMethod: "Gateway"})
	require.NoError(t, err)
	require.NotEmpty(t, res.PaymentURL)
	require.Equal(t, int64(499750), res.AmountVND)

	payment := h.payment(res.RegistrationID)
	require.Equal(t, enums.PaymentStatusPending, payment.Status)
	require.Equal(t, "Gateway", payment.Method)

	h.seedGame(43, "Hades", "24.99")
	res, err = h.svc.RegisterGame(context.Background(), h.player, RegisterInput{GameID: gameID(43), PaymentMethod: "  Thẻ nội địa  "})
	require.NoError(t, err)
	require.Equal(t, "Thẻ nội địa", h.payment(res.RegistrationID).Method)
}

func TestRegisterGameClaimRaceMapsToConflict(t *testing.T) {
	h := newHarness(t)
	h.seedGame(7, "Tunic", "29.99")
	// A claim without a committed line item is what a concurrent winner leaves behind.
	dbtest.MustCreate(t, h.conn, &models.GameClaim{PlayerID: *h.player.PlayerID, GameID: 7, RegistrationID: 999})

	_, err := h.svc.RegisterGame(context.Background(), h.player, RegisterInput{GameID: gameID(7)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, int64(0), h.count(&models.GameRegistration{}, ""))
	require.Equal(t, int64(0), h.count(&models.Payment{}, ""))
}

type failingPaymentRepo struct {
	Repository
}

func (f failingPaymentRepo) WithTx(tx *gorm.DB) Repository {
	return failingPaymentRepo{Repository: f.Repository.WithTx(tx)}
}

func (failingPaymentRepo) CreatePayment(context.Context, *models.Payment) error {
	return errors.New("disk full")
}

func TestRegisterGameRollsBackOnFailure(t *testing.T) {
	h := newHarness(t)
	h.seedGame(1, "Hades", "24.99")
	h.seedGame(2, "Celeste", "19.99")
	h.addToCart(h.player, 1, 2)

	svc := h.build(failingPaymentRepo{Repository: h.repo}, nil)
	_, err := svc.RegisterGame(context.Background(), h.player, RegisterInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
	require.Equal(t, "An error occurred while registering game", pkgerrors.As(err).Message())
	require.True(t, pkgerrors.As(err).IsPublic())

	require.Equal(t, int64(0), h.count(&models.GameRegistration{}, ""))
	require.Equal(t, int64(0), h.count(&models.GameRegistrationDetail{}, ""))
	require.Equal(t, int64(0), h.count(&models.GameClaim{}, ""))
	require.Equal(t, int64(0), h.count(&models.Payment{}, ""))
	require.Equal(t, int64(2), h.count(&models.CartItem{}, ""))
}

type failingGateway struct {
	*vnpay.Client
}

func (failingGateway) CreatePaymentURL(vnpay.PaymentRequest) (string, error) {
	return "", errors.New("signer unavailable")
}

func TestRegisterGameRollsBackWhenURLFails(t *testing.T) {
	h := newHarness(t)
	h.seedGame(1, "Hades", "24.99")
	h.addToCart(h.player, 1)

	svc := h.build(h.repo, nil, func(p *ServiceParams) { p.Gateway = failingGateway{Client: h.gateway} })
	_, err := svc.RegisterGame(context.Background(), h.player, RegisterInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	require.Equal(t, int64(0), h.count(&models.GameRegistration{}, ""))
	require.Equal(t, int64(0), h.count(&models.GameClaim{}, ""))
	require.Equal(t, int64(0), h.count(&models.Payment{}, ""))
	require.Equal(t, int64(1), h.count(&models.CartItem{}, ""))
}

func TestCartCheckout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(1, "Hades", "24.99")
	h.seedGame(2, "Celeste", "19.99")
	h.seedGame(3, "Tunic", "29.99")

	_, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Equal(t, "Cart not found", pkgerrors.As(err).Message())

	h.addToCart(h.player)
	_, err = h.svc.RegisterGame(ctx, h.player, RegisterInput{})
	require.Equal(t, "Cart items not found", pkgerrors.As(err).Message())

	h.addToCart(h.player, 1, 2, 3)
	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{})
	require.NoError(t, err)
	require.Equal(t, "74.97", res.PurchasePrice.StringFixed(2))
	require.Equal(t, int64(1874250), res.AmountVND)
	require.Equal(t, int64(3), h.count(&models.GameRegistrationDetail{}, "registration_id = ?", res.RegistrationID))
	require.Equal(t, int64(3), h.count(&models.GameClaim{}, "registration_id = ?", res.RegistrationID))
	require.Equal(t, int64(0), h.count(&models.CartItem{}, ""))
	require.Equal(t, "74.97", h.payment(res.RegistrationID).Amount.StringFixed(2))

	h.addToCart(h.player, 2)
	_, err = h.svc.RegisterGame(ctx, h.player, RegisterInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, "Some games in cart are already registered", pkgerrors.As(err).Message())
	require.Equal(t, int64(1), h.count(&models.CartItem{}, ""))
}

func TestLineItemPriceIsFrozen(t *testing.T) {
	h := newHarness(t)
	h.seedGame(1, "Hades", "24.99")

	res, err := h.svc.RegisterGame(context.Background(), h.player, RegisterInput{GameID: gameID(1)})
	require.NoError(t, err)
	require.NoError(t, h.conn.Model(&models.Game{}).Where("id = ?", 1).Update("price", decimal.RequireFromString("5.00")).Error)

	reg, err := h.svc.GetRegistration(context.Background(), h.player, res.RegistrationID)
	require.NoError(t, err)
	require.Equal(t, "24.99", reg.Items[0].Price.StringFixed(2))
	require.Equal(t, "Hades", reg.Items[0].GameTitle)
}

func TestGatewaySuccessActivatesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")

	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)

	params := h.callback(res.RegistrationID, "00", "00", 49975000, "14000001")
	out, err := h.svc.HandleGatewayReturn(ctx, params)
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusSuccess, out.PaymentStatus)
	require.Equal(t, "Payment successful", out.Message)
	require.False(t, out.AlreadyProcessed)
	require.NotNil(t, out.TransactionID)
	require.Equal(t, "14000001", *out.TransactionID)

	reg := h.registration(res.RegistrationID)
	require.True(t, reg.IsActive)
	require.Equal(t, 1, h.registrationCount(42))
	payment := h.payment(res.RegistrationID)
	require.Equal(t, enums.PaymentStatusSuccess, payment.Status)
	require.NotNil(t, payment.PaymentDate)
	require.True(t, payment.PaymentDate.Equal(baseTime))
	require.True(t, reg.UpdatedAt.Equal(*payment.PaymentDate), "registration stamped with the service clock")

	again, err := h.svc.HandleGatewayReturn(ctx, params)
	require.NoError(t, err)
	require.True(t, again.AlreadyProcessed)
	require.Equal(t, enums.PaymentStatusSuccess, again.PaymentStatus)
	require.Equal(t, 1, h.registrationCount(42))

	// A contradicting late callback cannot flip a settled payment.
	late, err := h.svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "24", "02", 49975000, "14000002"))
	require.NoError(t, err)
	require.True(t, late.AlreadyProcessed)
	require.Equal(t, enums.PaymentStatusSuccess, h.payment(res.RegistrationID).Status)
}

func TestGatewayAmountUsesQuoteFromCheckout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")

	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)

	// The rate moves between checkout and callback.
	repriced := h.build(h.repo, nil, func(p *ServiceParams) {
		p.Converter = currency.NewConverter(decimal.NewFromInt(26000))
	})

	link, err := repriced.ResumePayment(ctx, h.player, res.RegistrationID, "")
	require.NoError(t, err)
	require.Equal(t, int64(499750), link.AmountVND)

	out, err := repriced.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 49975000, "14000001"))
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusSuccess, out.PaymentStatus)
	require.Equal(t, 1, h.registrationCount(42))
}

func TestGatewayFailureReleasesGames(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")

	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)

	out, err := h.svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "24", "02", 49975000, ""))
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusFailed, out.PaymentStatus)
	require.Equal(t, "Payment failed", out.Message)

	require.False(t, h.registration(res.RegistrationID).IsActive)
	require.Equal(t, 0, h.registrationCount(42))
	require.Equal(t, int64(0), h.count(&models.GameClaim{}, ""))

	_, err = h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)
}

func TestGatewayApprovedCodeWithPendingStatusFails(t *testing.T) {
	h := newHarness(t)
	h.seedGame(1, "Hades", "24.99")
	res, err := h.svc.RegisterGame(context.Background(), h.player, RegisterInput{GameID: gameID(1)})
	require.NoError(t, err)

	out, err := h.svc.HandleGatewayReturn(context.Background(), h.callback(res.RegistrationID, "00", "01", 0, "1"))
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusFailed, out.PaymentStatus)
}

func TestGatewayRejectsBadCallbacks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")
	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)

	tampered := h.callback(res.RegistrationID, "00", "00", 49975000, "1")
	tampered.Set(vnpay.ParamResponseCode, "01")
	_, err = h.svc.HandleGatewayReturn(ctx, tampered)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "Invalid VNPay signature", pkgerrors.As(err).Message())

	_, err = h.svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 100, "1"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "Payment amount mismatch", pkgerrors.As(err).Message())

	_, err = h.svc.HandleGatewayReturn(ctx, h.callback(9999, "00", "00", 49975000, "1"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.Equal(t, "Registration not found", pkgerrors.As(err).Message())

	bad := url.Values{}
	bad.Set(vnpay.ParamTxnRef, "abc")
	_, err = h.svc.HandleGatewayReturn(ctx, h.gateway.SignValues(bad))
	require.Equal(t, "Invalid transaction reference", pkgerrors.As(err).Message())

	require.Equal(t, enums.PaymentStatusPending, h.payment(res.RegistrationID).Status)
	require.Equal(t, 0, h.registrationCount(42))
}

type memoryGuard struct {
	claimed map[string]bool
	err     error
}

func (g *memoryGuard) Claim(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, key string) error {
	delete(g.claimed, key)
	return nil
}

func TestGatewayGuardShortCircuitsReplays(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")
	guard := &memoryGuard{claimed: map[string]bool{}}
	svc := h.build(h.repo, guard)

	res, err := svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)
	ref := strconv.FormatInt(res.RegistrationID, 10)

	_, err = svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 1, "77"))
	require.Error(t, err)
	require.False(t, guard.claimed[ref+":77"], "failed processing must release the claim")

	out, err := svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 49975000, "77"))
	require.NoError(t, err)
	require.False(t, out.AlreadyProcessed)
	require.True(t, guard.claimed[ref+":77"])

	replay, err := svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 49975000, "77"))
	require.NoError(t, err)
	require.True(t, replay.AlreadyProcessed)
	require.Equal(t, enums.PaymentStatusSuccess, replay.PaymentStatus)
	require.Equal(t, 1, h.registrationCount(42))
}

type heldGuard struct{}

func (heldGuard) Claim(context.Context, string) (bool, error) { return false, nil }
func (heldGuard) Release(context.Context, string) error         { return nil }

func TestGatewayHeldGuardStillSettlesPendingPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")
	// The key outlived a processor that died before settling the payment.
	svc := h.build(h.repo, heldGuard{})

	res, err := svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)
	params := h.callback(res.RegistrationID, "00", "00", 49975000, "88")

	out, err := svc.HandleGatewayReturn(ctx, params)
	require.NoError(t, err)
	require.False(t, out.AlreadyProcessed)
	require.Equal(t, enums.PaymentStatusSuccess, out.PaymentStatus)
	require.Equal(t, vnpay.IPNConfirmed, AcknowledgementCode(out, nil))
	require.Equal(t, enums.PaymentStatusSuccess, h.payment(res.RegistrationID).Status)
	require.Equal(t, 1, h.registrationCount(42))

	replay, err := svc.HandleGatewayReturn(ctx, params)
	require.NoError(t, err)
	require.True(t, replay.AlreadyProcessed)
	require.Equal(t, vnpay.IPNAlreadyConfirmed, AcknowledgementCode(replay, nil))
	require.Equal(t, 1, h.registrationCount(42))
}

func TestGatewayGuardOutageFallsBackToDatabase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")
	svc := h.build(h.repo, &memoryGuard{err: errors.New("redis down")})

	res, err := svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)
	params := h.callback(res.RegistrationID, "00", "00", 49975000, "5")

	out, err := svc.HandleGatewayReturn(ctx, params)
	require.NoError(t, err)
	require.False(t, out.AlreadyProcessed)
	out, err = svc.HandleGatewayReturn(ctx, params)
	require.NoError(t, err)
	require.True(t, out.AlreadyProcessed)
	require.Equal(t, 1, h.registrationCount(42))
}

func TestResumePayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")
	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)

	h.clock = baseTime.Add(5 * time.Minute)
	link, err := h.svc.ResumePayment(ctx, h.player, res.RegistrationID, "10.0.0.2")
	require.NoError(t, err)
	require.Equal(t, int64(499750), link.AmountVND)
	parsed, err := url.Parse(link.PaymentURL)
	require.NoError(t, err)
	require.Equal(t, "20260301170500", parsed.Query().Get(vnpay.ParamCreateDate))
	require.Equal(t, "20260301173500", parsed.Query().Get(vnpay.ParamExpireDate))
	require.True(t, h.gateway.VerifyResponse(parsed.Query()))

	payment := h.payment(res.RegistrationID)
	require.True(t, payment.ExpiresAt.Equal(baseTime.Add(35*time.Minute)), "reissue pushes the expiry out")

	_, err = h.svc.ResumePayment(ctx, h.other, res.RegistrationID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 49975000, "9"))
	require.NoError(t, err)
	_, err = h.svc.ResumePayment(ctx, h.player, res.RegistrationID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestExpireStalePayments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(1, "Hades", "24.99")
	h.seedGame(2, "Celeste", "19.99")

	old, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(1)})
	require.NoError(t, err)
	h.clock = baseTime.Add(50 * time.Minute)
	fresh, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(2)})
	require.NoError(t, err)

	// old expired at 10:30 and is still inside the grace period at 10:40.
	h.clock = baseTime.Add(40 * time.Minute)
	report, err := h.svc.ExpireStalePayments(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, ExpiryReport{}, report)

	h.clock = baseTime.Add(time.Hour)
	report, err = h.svc.ExpireStalePayments(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, ExpiryReport{Scanned: 1, Expired: 1}, report)

	expired := h.payment(old.RegistrationID)
	require.Equal(t, enums.PaymentStatusFailed, expired.Status)
	require.NotNil(t, expired.ExpiredAt)
	require.Nil(t, expired.PaymentDate)
	require.Equal(t, enums.PaymentStatusPending, h.payment(fresh.RegistrationID).Status)
	require.Equal(t, int64(0), h.count(&models.GameClaim{}, "registration_id = ?", old.RegistrationID))
	require.Equal(t, int64(1), h.count(&models.GameClaim{}, "registration_id = ?", fresh.RegistrationID))

	_, err = h.svc.ResumePayment(ctx, h.player, old.RegistrationID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, "Payment has expired", pkgerrors.As(err).Message())

	report, err = h.svc.ExpireStalePayments(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 0, report.Expired)
}

func TestLateSuccessAfterExpirySettlesPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")

	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)

	h.clock = baseTime.Add(time.Hour)
	report, err := h.svc.ExpireStalePayments(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, report.Expired)

	h.clock = baseTime.Add(61 * time.Minute)
	out, err := h.svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 49975000, "14000007"))
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusSuccess, out.PaymentStatus)
	require.False(t, out.AlreadyProcessed)
	require.True(t, out.Revived)
	require.Equal(t, vnpay.IPNConfirmed, AcknowledgementCode(out, nil))

	payment := h.payment(res.RegistrationID)
	require.Equal(t, enums.PaymentStatusSuccess, payment.Status)
	require.Nil(t, payment.ExpiredAt)
	require.Equal(t, "14000007", *payment.TransactionID)
	reg := h.registration(res.RegistrationID)
	require.True(t, reg.IsActive)
	require.True(t, reg.UpdatedAt.Equal(h.clock))
	require.Equal(t, 1, h.registrationCount(42))
	require.Equal(t, int64(1), h.count(&models.GameClaim{}, "registration_id = ?", res.RegistrationID))

	// The game is owned again, so it cannot be bought twice.
	_, err = h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	again, err := h.svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 49975000, "14000007"))
	require.NoError(t, err)
	require.True(t, again.AlreadyProcessed)
	require.Equal(t, 1, h.registrationCount(42))
}

func TestLateSuccessAfterRepurchaseKeepsNewClaim(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")

	first, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)
	h.clock = baseTime.Add(time.Hour)
	_, err = h.svc.ExpireStalePayments(ctx, 15*time.Minute)
	require.NoError(t, err)

	second, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)

	out, err := h.svc.HandleGatewayReturn(ctx, h.callback(first.RegistrationID, "00", "00", 49975000, "5"))
	require.NoError(t, err)
	require.True(t, out.Revived)
	require.True(t, h.registration(first.RegistrationID).IsActive)
	require.Equal(t, int64(0), h.count(&models.GameClaim{}, "registration_id = ?", first.RegistrationID))
	require.Equal(t, int64(1), h.count(&models.GameClaim{}, "registration_id = ?", second.RegistrationID))
}

func TestGatewayFailureIsNotRevived(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(42, "Celeste", "19.99")

	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(42)})
	require.NoError(t, err)
	_, err = h.svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "24", "02", 49975000, ""))
	require.NoError(t, err)

	out, err := h.svc.HandleGatewayReturn(ctx, h.callback(res.RegistrationID, "00", "00", 49975000, "6"))
	require.NoError(t, err)
	require.True(t, out.AlreadyProcessed)
	require.False(t, out.Revived)
	require.Equal(t, enums.PaymentStatusFailed, h.payment(res.RegistrationID).Status)
	require.Equal(t, 0, h.registrationCount(42))
}

func TestToggleRegistrationStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedGame(1, "Hades", "24.99")
	res, err := h.svc.RegisterGame(ctx, h.player, RegisterInput{GameID: gameID(1)})
	require.NoError(t, err)

	_, err = h.svc.ToggleRegistrationStatus(ctx, h.player, res.RegistrationID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	h.clock = baseTime.Add(2 * time.Hour)
	dto, err := h.svc.ToggleRegistrationStatus(ctx, h.admin, res.RegistrationID)
	require.NoError(t, err)
	require.True(t, dto.IsActive)
	toggled := h.registration(res.RegistrationID)
	require.True(t, toggled.IsActive)
	require.True(t, toggled.UpdatedAt.Equal(h.clock))

	dto, err = h.svc.ToggleRegistrationStatus(ctx, h.admin, res.RegistrationID)
	require.NoError(t, err)
	require.False(t, dto.IsActive)

	_, err = h.svc.ToggleRegistrationStatus(ctx, h.admin, 9999)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

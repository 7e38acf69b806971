// Package vnpay builds signed redirect URLs for the VNPay gateway and verifies
// the signed parameters it sends back.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/currency"
)

const (
	ParamPrefix            = "vnp_"
	ParamVersion           = "vnp_Version"
	ParamCommand           = "vnp_Command"
	ParamTmnCode           = "vnp_TmnCode"
	ParamAmount            = "vnp_Amount"
	ParamCurrCode          = "vnp_CurrCode"
	ParamBankCode          = "vnp_BankCode"
	ParamTxnRef            = "vnp_TxnRef"
	ParamOrderInfo         = "vnp_OrderInfo"
	ParamOrderType         = "vnp_OrderType"
	ParamLocale            = "vnp_Locale"
	ParamReturnURL         = "vnp_ReturnUrl"
	ParamIPAddr            = "vnp_IpAddr"
	ParamCreateDate        = "vnp_CreateDate"
	ParamExpireDate        = "vnp_ExpireDate"
	ParamSecureHash        = "vnp_SecureHash"
	ParamSecureHashType    = "vnp_SecureHashType"
	ParamResponseCode      = "vnp_ResponseCode"
	ParamTransactionStatus = "vnp_TransactionStatus"
	ParamTransactionNo     = "vnp_TransactionNo"
	ParamPayDate           = "vnp_PayDate"

	commandPay     = "pay"
	currencyVND    = "VND"
	orderTypeOther = "other"
	dateLayout     = "20060102150405"
	codeApproved   = "00"
)

var ErrMissingConfig = errors.New("vnpay: tmn code, hash secret, base url and return url are required")

// PaymentRequest carries what one redirect needs.
type PaymentRequest struct {
	TxnRef    string
	AmountVND int64
	OrderInfo string
	ClientIP  string
	BankCode  string
	CreatedAt time.Time
	// ExpiresAt becomes vnp_ExpireDate; zero leaves the gateway default.
	ExpiresAt time.Time
}

// Client signs and verifies VNPay parameters with a single merchant secret.
type Client struct {
	tmnCode    string
	hashSecret string
	baseURL    string
	returnURL  string
	version    string
	locale     string
	loc        *time.Location
}

// NewClient validates the merchant settings and resolves the gateway timezone.
func NewClient(cfg config.VNPayConfig) (*Client, error) {
	if strings.TrimSpace(cfg.TmnCode) == "" || cfg.HashSecret == "" ||
		strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.ReturnURL) == "" {
		return nil, ErrMissingConfig
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("vnpay: parse base url: %w", err)
	}
	version := cfg.Version
	if version == "" {
		version = "2.1.0"
	}
	locale := cfg.Locale
	if locale == "" {
		locale = "vn"
	}
	return &Client{
		tmnCode:    cfg.TmnCode,
		hashSecret: cfg.HashSecret,
		baseURL:    cfg.BaseURL,
		returnURL:  cfg.ReturnURL,
		version:    version,
		locale:     locale,
		loc:        loadLocation(cfg.TimeZone),
	}, nil
}

// Vietnam has no DST, so a fixed +7 offset is equivalent when tzdata is missing.
func loadLocation(name string) *time.Location {
	if name == "" {
		name = "Asia/Ho_Chi_Minh"
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*60*60)
}

// CreatePaymentURL returns the gateway URL the player is redirected to.
func (c *Client) CreatePaymentURL(req PaymentRequest) (string, error) {
	if strings.TrimSpace(req.TxnRef) == "" {
		return "", errors.New("vnpay: txn ref is required")
	}
	if req.AmountVND < 0 {
		return "", errors.New("vnpay: amount must not be negative")
	}
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	params := url.Values{}
	params.Set(ParamVersion, c.version)
	params.Set(ParamCommand, commandPay)
	params.Set(ParamTmnCode, c.tmnCode)
	params.Set(ParamAmount, strconv.FormatInt(currency.GatewayAmount(req.AmountVND), 10))
	params.Set(ParamCurrCode, currencyVND)
	params.Set(ParamBankCode, req.BankCode)
	params.Set(ParamTxnRef, req.TxnRef)
	params.Set(ParamOrderInfo, req.OrderInfo)
	params.Set(ParamOrderType, orderTypeOther)
	params.Set(ParamLocale, c.locale)
	params.Set(ParamReturnURL, c.returnURL)
	params.Set(ParamIPAddr, req.ClientIP)
	params.Set(ParamCreateDate, createdAt.In(c.loc).Format(dateLayout))
	if !req.ExpiresAt.IsZero() {
		if !req.ExpiresAt.After(createdAt) {
			return "", errors.New("vnpay: expire date must be after create date")
		}
		params.Set(ParamExpireDate, req.ExpiresAt.In(c.loc).Format(dateLayout))
	}

	query := canonicalize(params, nil)
	signature := c.sign(query)

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + query + "&" + ParamSecureHash + "=" + signature, nil
}

// VerifyResponse reports whether params carry a valid signature for this merchant.
// Unknown non-vnp fields are ignored; malformed input yields false.
func (c *Client) VerifyResponse(params url.Values) bool {
	if c == nil || params == nil {
		return false
	}
	provided := strings.TrimSpace(params.Get(ParamSecureHash))
	if provided == "" {
		return false
	}
	expected := c.sign(canonicalize(params, map[string]struct{}{
		ParamSecureHash:     {},
		ParamSecureHashType: {},
	}))
	return hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected))
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.hashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalize renders non-empty vnp_ pairs sorted by key, each side query-escaped.
func canonicalize(params url.Values, skip map[string]struct{}) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if !strings.HasPrefix(key, ParamPrefix) {
			continue
		}
		if _, ok := skip[key]; ok {
			continue
		}
		if params.Get(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(key)))
	}
	return b.String()
}

// SignValues returns a copy of params carrying a fresh vnp_SecureHash, the way
// the gateway signs its callbacks.
func (c *Client) SignValues(params url.Values) url.Values {
	out := url.Values{}
	for key, values := range params {
		out[key] = append([]string(nil), values...)
	}
	out.Del(ParamSecureHash)
	out.Del(ParamSecureHashType)
	out.Set(ParamSecureHash, c.sign(canonicalize(out, nil)))
	return out
}

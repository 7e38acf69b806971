package vnpay

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrInvalidTxnRef = errors.New("vnpay: invalid transaction reference")
	ErrInvalidAmount = errors.New("vnpay: invalid amount")
)

// Result is the parsed gateway outcome of a redirect or IPN.
type Result struct {
	RegistrationID    int64
	TxnRef            string
	TransactionNo     string
	ResponseCode      string
	TransactionStatus string
	// Amount is the raw vnp_Amount (VND*100); HasAmount is false when absent.
	Amount    int64
	HasAmount bool
	PayDate   string
}

// Succeeded is true only when both the response code and the transaction status are approved.
func (r Result) Succeeded() bool {
	return r.ResponseCode == codeApproved && r.TransactionStatus == codeApproved
}

// ParseResult extracts the fields the checkout flow needs. It does not verify the signature.
func ParseResult(params url.Values) (Result, error) {
	txnRef := strings.TrimSpace(params.Get(ParamTxnRef))
	id, err := strconv.ParseInt(txnRef, 10, 64)
	if err != nil || id <= 0 {
		return Result{}, ErrInvalidTxnRef
	}

	res := Result{
		RegistrationID:    id,
		TxnRef:            txnRef,
		TransactionNo:     strings.TrimSpace(params.Get(ParamTransactionNo)),
		ResponseCode:      strings.TrimSpace(params.Get(ParamResponseCode)),
		TransactionStatus: strings.TrimSpace(params.Get(ParamTransactionStatus)),
		PayDate:           strings.TrimSpace(params.Get(ParamPayDate)),
	}

	if raw := strings.TrimSpace(params.Get(ParamAmount)); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || amount < 0 {
			return Result{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
		res.Amount = amount
		res.HasAmount = true
	}
	return res, nil
}

package registrations

import (
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/vnpay"
)

// AcknowledgementCode maps the result of HandleGatewayReturn onto the code the
// gateway expects from its server-to-server notification.
func AcknowledgementCode(outcome *GatewayOutcome, err error) string {
	if err != nil {
		typed := pkgerrors.As(err)
		if typed == nil {
			return vnpay.IPNUnknownError
		}
		switch {
		case typed.Code() == pkgerrors.CodeNotFound:
			return vnpay.IPNOrderNotFound
		case typed.Message() == msgInvalidSignature:
			return vnpay.IPNInvalidSignature
		case typed.Message() == msgInvalidTxnRef:
			return vnpay.IPNOrderNotFound
		case typed.Message() == msgInvalidAmount, typed.Message() == msgAmountMismatch:
			return vnpay.IPNInvalidAmount
		default:
			return vnpay.IPNUnknownError
		}
	}
	if outcome == nil {
		return vnpay.IPNUnknownError
	}
	if outcome.AlreadyProcessed {
		return vnpay.IPNAlreadyConfirmed
	}
	return vnpay.IPNConfirmed
}

package controllers

import (
	"net/http"

	"github.com/gamehub/gamehub-backend/api/responses"
	"github.com/gamehub/gamehub-backend/internal/registrations"
	"github.com/gamehub/gamehub-backend/pkg/logger"
	"github.com/gamehub/gamehub-backend/pkg/vnpay"
)

// VNPayReturn handles the browser redirect back from the gateway.
func VNPayReturn(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
			return
		}

		outcome, err := svc.HandleGatewayReturn(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}

// VNPayIPN answers the gateway's server-to-server notification. The gateway
// only reads RspCode, so the reply is always 200 with the bare body.
func VNPayIPN(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteJSONRaw(w, http.StatusOK, vnpay.NewIPNResponse(vnpay.IPNUnknownError))
			return
		}

		outcome, err := svc.HandleGatewayReturn(r.Context(), r.URL.Query())
		code := registrations.AcknowledgementCode(outcome, err)
		if err != nil && logg != nil {
			logg.Warn(logg.WithFields(r.Context(), map[string]any{
				"rsp_code": code,
				"error":    err.Error(),
			}), "payment.ipn.rejected")
		}
		responses.WriteJSONRaw(w, http.StatusOK, vnpay.NewIPNResponse(code))
	}
}

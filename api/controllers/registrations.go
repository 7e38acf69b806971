package controllers

import (
	"net/http"
	"strings"

	"github.com/gamehub/gamehub-backend/api/middleware"
	"github.com/gamehub/gamehub-backend/api/responses"
	"github.com/gamehub/gamehub-backend/api/validators"
	"github.com/gamehub/gamehub-backend/internal/registrations"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/logger"
	"github.com/gamehub/gamehub-backend/pkg/qr"
)

type registerGameRequest struct {
	GameID        *int64 `json:"game_id,omitempty" validate:"omitempty,gt=0"`
	PaymentMethod string `json:"payment_method" validate:"max=50"`
}

// RegistrationCreate registers one game, or the whole cart when game_id is
// omitted, and returns the gateway URL for the pending payment.
func RegistrationCreate(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body registerGameRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RegisterGame(r.Context(), actor, registrations.RegisterInput{
			GameID:        body.GameID,
			PaymentMethod: strings.TrimSpace(body.PaymentMethod),
			ClientIP:      middleware.ClientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RegistrationsList pages the ledger. Players only ever see their own rows.
func RegistrationsList(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := registrationFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListRegistrations(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func RegistrationGet(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathID(r, "registrationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reg, err := svc.GetRegistration(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reg)
	}
}

// RegistrationPaymentLink re-signs the gateway URL of a pending payment.
func RegistrationPaymentLink(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link, err := resumePayment(svc, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

// RegistrationPaymentQR renders the same link as a PNG QR code.
func RegistrationPaymentQR(svc registrations.Service, gen qr.Generator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gen == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("qr generator"))
			return
		}
		size, err := validators.ParseQueryInt(r, "size", qr.DefaultSize, 64, 1024)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		link, err := resumePayment(svc, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		png, err := gen.PNG(link.PaymentURL, size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render payment qr"))
			return
		}
		responses.WritePNG(w, png)
	}
}

// AdminRegistrationToggle flips is_active on a registration.
func AdminRegistrationToggle(svc registrations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("registration service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathID(r, "registrationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reg, err := svc.ToggleRegistrationStatus(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reg)
	}
}

func resumePayment(svc registrations.Service, r *http.Request) (*registrations.PaymentLink, error) {
	if svc == nil {
		return nil, unavailable("registration service")
	}
	actor, err := actorFromRequest(r)
	if err != nil {
		return nil, err
	}
	id, err := validators.ParsePathID(r, "registrationId")
	if err != nil {
		return nil, err
	}
	return svc.ResumePayment(r.Context(), actor, id, middleware.ClientIP(r))
}

func registrationFilter(r *http.Request) (registrations.RegistrationFilter, error) {
	q := r.URL.Query()
	filter := registrations.RegistrationFilter{
		PlayerUsername: validators.SanitizeString(q.Get("player_username"), 100),
		PlayerEmail:    validators.SanitizeString(q.Get("player_email"), 255),
		GameTitle:      validators.SanitizeString(q.Get("game_title"), 200),
		Search:         validators.SanitizeString(q.Get("search"), 200),
		SortBy:         validators.SanitizeString(q.Get("sort_by"), 50),
	}

	var err error
	if filter.PlayerID, err = validators.ParseQueryInt64(r, "player_id"); err != nil {
		return filter, err
	}
	if filter.GameCategoryID, err = validators.ParseQueryInt64(r, "category_id"); err != nil {
		return filter, err
	}
	if filter.DeveloperID, err = validators.ParseQueryInt64(r, "developer_id"); err != nil {
		return filter, err
	}
	if filter.StartDate, err = validators.ParseQueryDate(r, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = validators.ParseQueryDate(r, "end_date"); err != nil {
		return filter, err
	}
	if filter.IsActive, err = validators.ParseQueryBool(r, "is_active"); err != nil {
		return filter, err
	}
	ascending, err := validators.ParseQueryBool(r, "is_ascending")
	if err != nil {
		return filter, err
	}
	if ascending != nil {
		filter.IsAscending = *ascending
	}

	page, err := pageParams(r)
	if err != nil {
		return filter, err
	}
	filter.Page = page.Page
	filter.PageSize = page.PageSize
	return filter, nil
}

package controllers

import (
	"net/http"

	"github.com/gamehub/gamehub-backend/api/responses"
	"github.com/gamehub/gamehub-backend/api/validators"
	"github.com/gamehub/gamehub-backend/internal/games"
	"github.com/gamehub/gamehub-backend/pkg/logger"
)

// GamesList serves the public catalog. Only active games are listed.
func GamesList(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("game service"))
			return
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryInt64(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		developerID, err := validators.ParseQueryInt64(r, "developer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := games.Filter{
			Search:      validators.SanitizeString(r.URL.Query().Get("search"), 200),
			CategoryID:  categoryID,
			DeveloperID: developerID,
			OnlyActive:  true,
		}
		result, err := svc.ListGames(r.Context(), filter, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GameGet(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("game service"))
			return
		}

		id, err := validators.ParsePathID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		game, err := svc.GetGame(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, game)
	}
}

func AdminGameCreate(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("game service"))
			return
		}

		var body games.CreateGameInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		game, err := svc.CreateGame(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, game)
	}
}

// AdminGameUpdatePrice changes the list price. Existing registrations keep
// the price they were bought at.
func AdminGameUpdatePrice(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("game service"))
			return
		}

		id, err := validators.ParsePathID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body games.UpdatePriceInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		game, err := svc.UpdateGamePrice(r.Context(), id, body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, game)
	}
}

func AdminGameUpdate(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("game service"))
			return
		}

		id, err := validators.ParsePathID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body games.UpdateGameInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		game, err := svc.UpdateGame(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, game)
	}
}

// AdminGameDelete removes a game, or archives it when past registrations
// still reference it.
func AdminGameDelete(svc games.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("game service"))
			return
		}

		id, err := validators.ParsePathID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.DeleteGame(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

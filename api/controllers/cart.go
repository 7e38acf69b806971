package controllers

import (
	"context"
	"net/http"

	"github.com/gamehub/gamehub-backend/api/responses"
	"github.com/gamehub/gamehub-backend/api/validators"
	"github.com/gamehub/gamehub-backend/internal/cart"
	"github.com/gamehub/gamehub-backend/pkg/auth"
	"github.com/gamehub/gamehub-backend/pkg/logger"
)

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetCart(r.Context(), actor, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartItemAction(svc, logg, http.StatusCreated, cart.Service.AddToCart)
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartItemAction(svc, logg, http.StatusOK, cart.Service.RemoveFromCart)
}

// CartHasItem reports whether the game is in the caller's cart.
func CartHasItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gameID, err := validators.ParsePathID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inCart, err := svc.IsInCart(r.Context(), actor, gameID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"game_id": gameID, "in_cart": inCart})
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ack, err := svc.ClearCart(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack)
	}
}

type cartItemFunc func(cart.Service, context.Context, auth.Actor, int64) (cart.Ack, error)

func cartItemAction(svc cart.Service, logg *logger.Logger, status int, action cartItemFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart service"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gameID, err := validators.ParsePathID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ack, err := action(svc, r.Context(), actor, gameID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, ack)
	}
}

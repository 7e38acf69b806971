package controllers

import (
	"net/http"

	"github.com/gamehub/gamehub-backend/api/middleware"
	"github.com/gamehub/gamehub-backend/api/validators"
	"github.com/gamehub/gamehub-backend/pkg/auth"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/pagination"
)

func actorFromRequest(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", pagination.DefaultPage, 1, 1_000_000)
	if err != nil {
		return pagination.Params{}, err
	}
	size, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, PageSize: size}, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}

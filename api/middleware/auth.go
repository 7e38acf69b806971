package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gamehub/gamehub-backend/api/responses"
	pkgAuth "github.com/gamehub/gamehub-backend/pkg/auth"
	"github.com/gamehub/gamehub-backend/pkg/auth/session"
	"github.com/gamehub/gamehub-backend/pkg/config"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/logger"
)

// ActorResolver loads the current account state for a token subject.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID int64) (pkgAuth.Actor, error)
}

// Auth validates a bearer token, confirms its session and resolves the caller.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, resolver ActorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			actor := pkgAuth.Actor{
				UserID:   claims.UserID,
				PlayerID: claims.PlayerID,
				Role:     claims.Role,
				IsActive: true,
			}
			if resolver != nil {
				actor, err = resolver.ResolveActor(r.Context(), claims.UserID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
			if !actor.IsActive {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is inactive"))
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID)
				ctx = logg.WithActorRole(ctx, string(actor.Role))
				if actor.PlayerID != nil {
					ctx = logg.WithPlayerID(ctx, *actor.PlayerID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

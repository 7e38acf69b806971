package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gamehub/gamehub-backend/pkg/auth"
	"github.com/gamehub/gamehub-backend/pkg/auth/session"
	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/enums"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: false}, nil, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, bearerRequest(t, enums.UserRolePlayer, int64Ptr(3)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsResolvedActor(t *testing.T) {
	resolver := stubResolver{actor: auth.Actor{UserID: 42, PlayerID: int64Ptr(9), Role: enums.UserRolePlayer, IsActive: true}}

	var captured auth.Actor
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		captured = actor
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, bearerRequest(t, enums.UserRolePlayer, int64Ptr(9)))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, int64(42), captured.UserID)
	playerID, ok := captured.ActivePlayerID()
	require.True(t, ok)
	require.Equal(t, int64(9), playerID)
}

func TestAuthRejectsInactiveAccount(t *testing.T) {
	resolver := stubResolver{actor: auth.Actor{UserID: 42, Role: enums.UserRolePlayer, IsActive: false}}
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, resolver, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, bearerRequest(t, enums.UserRolePlayer, nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthPropagatesResolverError(t *testing.T) {
	resolver := stubResolver{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")}
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, resolver, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, bearerRequest(t, enums.UserRoleAdmin, nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(nil)(okHandler())

	tests := []struct {
		name  string
		actor *auth.Actor
		want  int
	}{
		{name: "anonymous", want: http.StatusForbidden},
		{name: "player", actor: &auth.Actor{UserID: 1, PlayerID: int64Ptr(1), Role: enums.UserRolePlayer, IsActive: true}, want: http.StatusForbidden},
		{name: "inactive admin", actor: &auth.Actor{UserID: 2, Role: enums.UserRoleAdmin}, want: http.StatusForbidden},
		{name: "admin", actor: &auth.Actor{UserID: 3, Role: enums.UserRoleAdmin, IsActive: true}, want: http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.actor != nil {
			req = req.WithContext(WithActor(req.Context(), *tt.actor))
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, resp.Code)
		}
	}
}

func TestRequirePlayer(t *testing.T) {
	handler := RequirePlayer(nil)(okHandler())

	tests := []struct {
		name  string
		actor *auth.Actor
		want  int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "admin", actor: &auth.Actor{UserID: 3, Role: enums.UserRoleAdmin, IsActive: true}, want: http.StatusForbidden},
		{name: "player without profile", actor: &auth.Actor{UserID: 4, Role: enums.UserRolePlayer, IsActive: true}, want: http.StatusForbidden},
		{name: "player", actor: &auth.Actor{UserID: 5, PlayerID: int64Ptr(2), Role: enums.UserRolePlayer, IsActive: true}, want: http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.actor != nil {
			req = req.WithContext(WithActor(req.Context(), *tt.actor))
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, resp.Code)
		}
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	require.Equal(t, "192.0.2.10", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", ClientIP(req))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func bearerRequest(t *testing.T, role enums.UserRole, playerID *int64) *http.Request {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:   42,
		Role:     role,
		PlayerID: playerID,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func int64Ptr(v int64) *int64 { return &v }

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}

type stubResolver struct {
	actor auth.Actor
	err   error
}

func (s stubResolver) ResolveActor(ctx context.Context, userID int64) (auth.Actor, error) {
	if s.err != nil {
		return auth.Actor{}, s.err
	}
	return s.actor, nil
}

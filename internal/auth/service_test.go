package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gamehub/gamehub-backend/internal/users"
	pkgAuth "github.com/gamehub/gamehub-backend/pkg/auth"
	"github.com/gamehub/gamehub-backend/pkg/auth/session"
	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/dbtest"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/enums"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/security"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "gamehub", ExpirationMinutes: 30}

type fakeSessions struct {
	tokens map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	f.tokens[accessID] = token
	return token, nil
}

func (f *fakeSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	next := session.NewAccessID()
	f.tokens[next] = "refresh-" + next
	return next, f.tokens[next], nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.tokens, accessID)
	return nil
}

func newTestService(t *testing.T) (Service, *db.Client, *fakeSessions) {
	t.Helper()
	client := dbtest.Open(t)
	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		DB:             client,
		Users:          users.NewRepository(client.DB()),
		SessionManager: sessions,
		Hasher: security.NewHasher(config.PasswordConfig{
			ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
		}),
		JWTConfig: testJWT,
	})
	require.NoError(t, err)
	return svc, client, sessions
}

func TestRegisterAndLoginPlayer(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := context.Background()

	dto, err := svc.RegisterPlayer(ctx, RegisterRequest{Email: "Neo@Matrix.io", Password: "red-pill-123", Username: "neo"})
	require.NoError(t, err)
	require.Equal(t, "neo@matrix.io", dto.Email)
	require.Equal(t, enums.UserRolePlayer, dto.Role)
	require.NotNil(t, dto.Player)

	resp, err := svc.Login(ctx, LoginRequest{Email: "neo@matrix.io", Password: "red-pill-123"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User.Player.LastLogin)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, dto.ID, claims.UserID)
	require.NotNil(t, claims.PlayerID)
	require.Equal(t, dto.Player.ID, *claims.PlayerID)
	require.Contains(t, sessions.tokens, claims.ID)
}

func TestRegisterPlayerConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPlayer(ctx, RegisterRequest{Email: "a@b.io", Password: "password1", Username: "trinity"})
	require.NoError(t, err)

	_, err = svc.RegisterPlayer(ctx, RegisterRequest{Email: "A@B.io", Password: "password1", Username: "other"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.RegisterPlayer(ctx, RegisterRequest{Email: "c@d.io", Password: "password1", Username: "Trinity"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLoginRejectsBadCredentialsAndInactiveUsers(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.RegisterPlayer(ctx, RegisterRequest{Email: "m@x.io", Password: "password1", Username: "morpheus"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "m@x.io", Password: "wrong-pass"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@x.io", Password: "password1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, client.DB().Model(&models.User{}).Where("id = ?", dto.ID).Update("is_active", false).Error)
	_, err = svc.Login(ctx, LoginRequest{Email: "m@x.io", Password: "password1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRefreshAndLogout(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterPlayer(ctx, RegisterRequest{Email: "s@x.io", Password: "password1", Username: "switch"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, LoginRequest{Email: "s@x.io", Password: "password1"})
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	_, err = svc.Refresh(ctx, resp.AccessToken, resp.RefreshToken)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "old refresh token must not rotate twice")

	require.NoError(t, svc.Logout(ctx, pair.AccessToken))
	claims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	require.NoError(t, err)
	require.NotContains(t, sessions.tokens, claims.ID)
}

func TestResolveActor(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.RegisterPlayer(ctx, RegisterRequest{Email: "p@x.io", Password: "password1", Username: "cypher"})
	require.NoError(t, err)

	actor, err := svc.ResolveActor(ctx, dto.ID)
	require.NoError(t, err)
	id, ok := actor.ActivePlayerID()
	require.True(t, ok)
	require.Equal(t, dto.Player.ID, id)

	require.NoError(t, client.DB().Model(&models.Player{}).Where("id = ?", dto.Player.ID).Update("is_active", false).Error)
	actor, err = svc.ResolveActor(ctx, dto.ID)
	require.NoError(t, err)
	_, ok = actor.ActivePlayerID()
	require.False(t, ok)

	admin := &models.User{Email: "root@x.io", PasswordHash: "x", Role: enums.UserRoleAdmin, IsActive: true, JoinDate: time.Now()}
	dbtest.MustCreate(t, client.DB(), admin)
	actor, err = svc.ResolveActor(ctx, admin.ID)
	require.NoError(t, err)
	require.True(t, actor.IsAdmin())

	_, err = svc.ResolveActor(ctx, 4242)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginUpgradesOutdatedPasswordHash(t *testing.T) {
	svc, client, sessions := newTestService(t)
	ctx := context.Background()

	dto, err := svc.RegisterPlayer(ctx, RegisterRequest{Email: "tank@x.io", Password: "password1", Username: "tank"})
	require.NoError(t, err)

	stronger, err := NewService(ServiceParams{
		DB:             client,
		Users:          users.NewRepository(client.DB()),
		SessionManager: sessions,
		Hasher: security.NewHasher(config.PasswordConfig{
			ArgonMemoryKB: 8192, ArgonTime: 2, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
		}),
		JWTConfig: testJWT,
	})
	require.NoError(t, err)

	_, err = stronger.Login(ctx, LoginRequest{Email: "tank@x.io", Password: "password1"})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, client.DB().First(&user, dto.ID).Error)
	require.Contains(t, user.PasswordHash, "$m=8192,t=2,p=1$")

	_, err = svc.Login(ctx, LoginRequest{Email: "tank@x.io", Password: "password1"})
	require.NoError(t, err, "upgraded hash must verify under any configured costs")
}

func TestProfileReadAndUpdate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.RegisterPlayer(ctx, RegisterRequest{Email: "oracle@x.io", Password: "password1", Username: "oracle"})
	require.NoError(t, err)
	_, err = svc.RegisterPlayer(ctx, RegisterRequest{Email: "seraph@x.io", Password: "password1", Username: "seraph"})
	require.NoError(t, err)
	actor, err := svc.ResolveActor(ctx, dto.ID)
	require.NoError(t, err)

	profile, err := svc.GetProfile(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, "oracle@x.io", profile.Email)
	require.Equal(t, "oracle", profile.Player.Username)

	avatar := " avatars/oracle.png "
	updated, err := svc.UpdateProfile(ctx, actor, UpdateProfileRequest{Username: " The Oracle ", AvatarPath: &avatar})
	require.NoError(t, err)
	require.Equal(t, "The Oracle", updated.Player.Username)
	require.Equal(t, "avatars/oracle.png", *updated.Player.AvatarPath)

	// Keeping the own name is not a conflict.
	same, err := svc.UpdateProfile(ctx, actor, UpdateProfileRequest{Username: "the oracle"})
	require.NoError(t, err)
	require.Nil(t, same.Player.AvatarPath)

	_, err = svc.UpdateProfile(ctx, actor, UpdateProfileRequest{Username: "SERAPH"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.UpdateProfile(ctx, actor, UpdateProfileRequest{Username: " ab "})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	admin := pkgAuth.Actor{UserID: dto.ID, Role: enums.UserRoleAdmin, IsActive: true}
	_, err = svc.UpdateProfile(ctx, admin, UpdateProfileRequest{Username: "architect"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.GetProfile(ctx, pkgAuth.Actor{UserID: 4242})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.RegisterPlayer(ctx, RegisterRequest{Email: "niobe@x.io", Password: "password1", Username: "niobe"})
	require.NoError(t, err)
	actor, err := svc.ResolveActor(ctx, dto.ID)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, actor, ChangePasswordRequest{OldPassword: "wrong-pass", NewPassword: "password2"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "Invalid old password", pkgerrors.As(err).Message())

	err = svc.ChangePassword(ctx, actor, ChangePasswordRequest{OldPassword: "password1", NewPassword: "password1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.ChangePassword(ctx, actor, ChangePasswordRequest{OldPassword: "password1", NewPassword: "password2"}))

	_, err = svc.Login(ctx, LoginRequest{Email: "niobe@x.io", Password: "password1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = svc.Login(ctx, LoginRequest{Email: "niobe@x.io", Password: "password2"})
	require.NoError(t, err)
}

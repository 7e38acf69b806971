package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/internal/users"
	pkgAuth "github.com/gamehub/gamehub-backend/pkg/auth"
	"github.com/gamehub/gamehub-backend/pkg/auth/session"
	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/db"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/enums"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the account operations used by the auth controllers and middleware.
type Service interface {
	RegisterPlayer(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	ResolveActor(ctx context.Context, userID int64) (pkgAuth.Actor, error)
	GetProfile(ctx context.Context, actor pkgAuth.Actor) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, actor pkgAuth.Actor, req UpdateProfileRequest) (*users.UserDTO, error)
	ChangePassword(ctx context.Context, actor pkgAuth.Actor, req ChangePasswordRequest) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	CreatePlayer(ctx context.Context, player *models.Player) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindPlayerByUserID(ctx context.Context, userID int64) (*models.Player, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	UsernameTakenByOther(ctx context.Context, username string, playerID int64) (bool, error)
	UpdatePlayerProfile(ctx context.Context, playerID int64, username string, avatarPath *string) error
	UpdatePlayerLastLogin(ctx context.Context, playerID int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             txRunner
	Users          userRepository
	UsersForTx     func(tx *gorm.DB) userRepository
	SessionManager sessionManager
	Hasher         passwordHasher
	JWTConfig      config.JWTConfig
	Now            func() time.Time
}

type service struct {
	db      txRunner
	users   userRepository
	usersTx func(tx *gorm.DB) userRepository
	session sessionManager
	hasher  passwordHasher
	jwtCfg  config.JWTConfig
	now     func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	usersTx := params.UsersForTx
	if usersTx == nil {
		usersTx = func(tx *gorm.DB) userRepository { return users.NewRepository(tx) }
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:      params.DB,
		users:   params.Users,
		usersTx: usersTx,
		session: params.SessionManager,
		hasher:  params.Hasher,
		jwtCfg:  params.JWTConfig,
		now:     now,
	}, nil
}

func (s *service) RegisterPlayer(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and username are required")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	var (
		user   *models.User
		player *models.Player
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.usersTx(tx)

		if _, err := repo.FindUserByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		taken, err := repo.UsernameTaken(ctx, username)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}

		user = &models.User{
			Email:        email,
			PasswordHash: passwordHash,
			Role:         enums.UserRolePlayer,
			IsActive:     true,
			JoinDate:     s.now().UTC(),
		}
		if err := repo.CreateUser(ctx, user); err != nil {
			return mapUniqueViolation(err, "create user")
		}

		player = &models.Player{UserID: user.ID, Username: username, IsActive: true}
		if err := repo.CreatePlayer(ctx, player); err != nil {
			return mapUniqueViolation(err, "create player")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(user, player), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	player, err := s.playerFor(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if player != nil {
		if err := s.users.UpdatePlayerLastLogin(ctx, player.ID, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
		}
		player.LastLogin = &now
	}

	pair, err := s.issueTokens(ctx, now, user, player)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         users.FromModel(user, player),
	}, nil
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	// Role and player are re-read so deactivations take effect on refresh.
	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !user.IsActive {
		_ = s.session.Revoke(ctx, newAccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is inactive")
	}
	player, err := s.playerFor(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), payloadFor(user, player, newAccessID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: token, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

// ResolveActor loads the caller once per request. Inactive users are rejected;
// an inactive player profile yields an actor with IsActive=false.
func (s *service) ResolveActor(ctx context.Context, userID int64) (pkgAuth.Actor, error) {
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return pkgAuth.Actor{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !user.IsActive {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is inactive")
	}

	actor := pkgAuth.Actor{UserID: user.ID, Role: user.Role, IsActive: true}
	if user.Role != enums.UserRolePlayer {
		return actor, nil
	}
	player, err := s.users.FindPlayerByUserID(ctx, user.ID)
	if err != nil {
		if db.IsNotFound(err) {
			actor.IsActive = false
			return actor, nil
		}
		return pkgAuth.Actor{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load player")
	}
	id := player.ID
	actor.PlayerID = &id
	actor.IsActive = player.IsActive
	return actor, nil
}

func (s *service) GetProfile(ctx context.Context, actor pkgAuth.Actor) (*users.UserDTO, error) {
	user, err := s.users.FindUserByID(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	var player *models.Player
	if user.Role == enums.UserRolePlayer {
		player, err = s.users.FindPlayerByUserID(ctx, user.ID)
		if err != nil && !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load player")
		}
	}
	return users.FromModel(user, player), nil
}

// UpdateProfile is limited to active players; admins have no storefront profile.
func (s *service) UpdateProfile(ctx context.Context, actor pkgAuth.Actor, req UpdateProfileRequest) (*users.UserDTO, error) {
	playerID, ok := actor.ActivePlayerID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Current user is not an active player")
	}
	username := strings.TrimSpace(req.Username)
	if len([]rune(username)) < 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Username must be at least 3 characters long")
	}

	taken, err := s.users.UsernameTakenByOther(ctx, username, playerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Username already exists")
	}

	var avatar *string
	if req.AvatarPath != nil {
		if v := strings.TrimSpace(*req.AvatarPath); v != "" {
			avatar = &v
		}
	}
	if err := s.users.UpdatePlayerProfile(ctx, playerID, username, avatar); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Username already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return s.GetProfile(ctx, actor)
}

func (s *service) ChangePassword(ctx context.Context, actor pkgAuth.Actor, req ChangePasswordRequest) error {
	user, err := s.users.FindUserByID(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "User not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	valid, err := s.hasher.Verify(req.OldPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid old password")
	}
	if req.NewPassword == req.OldPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "New password must differ from the old password")
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindUserByEmail(ctx, input)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		// best effort; the old hash keeps working if this fails
		if upgraded, hashErr := s.hasher.Hash(password); hashErr == nil {
			if s.users.UpdatePasswordHash(ctx, user.ID, upgraded) == nil {
				user.PasswordHash = upgraded
			}
		}
	}
	return user, nil
}

func (s *service) playerFor(ctx context.Context, user *models.User) (*models.Player, error) {
	if user.Role != enums.UserRolePlayer {
		return nil, nil
	}
	player, err := s.users.FindPlayerByUserID(ctx, user.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load player")
	}
	return player, nil
}

func (s *service) issueTokens(ctx context.Context, now time.Time, user *models.User, player *models.Player) (*TokenPair, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, payloadFor(user, player, accessID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func payloadFor(user *models.User, player *models.Player, accessID string) pkgAuth.AccessTokenPayload {
	payload := pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	}
	if player != nil {
		id := player.ID
		payload.PlayerID = &id
	}
	return payload
}

func mapUniqueViolation(err error, step string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "email or username already registered")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, step)
}

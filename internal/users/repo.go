package users

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gamehub/gamehub-backend/internal/repo"
	"github.com/gamehub/gamehub-backend/pkg/db/models"
)

// Repository exposes user and player persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a copy bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Create(user).Error
}

func (r *Repository) CreatePlayer(ctx context.Context, player *models.Player) error {
	return r.DB(ctx).Create(player).Error
}

// FindUserByEmail matches case-insensitively.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) FindPlayerByUserID(ctx context.Context, userID int64) (*models.Player, error) {
	var player models.Player
	if err := r.DB(ctx).Where("user_id = ?", userID).First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *Repository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Player{}).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		Count(&count).Error
	return count > 0, err
}

// UsernameTakenByOther reports whether another player already uses username.
func (r *Repository) UsernameTakenByOther(ctx context.Context, username string, playerID int64) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Player{}).
		Where("LOWER(username) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(username)), playerID).
		Count(&count).Error
	return count > 0, err
}

// UpdatePlayerProfile rewrites the editable profile fields.
func (r *Repository) UpdatePlayerProfile(ctx context.Context, playerID int64, username string, avatarPath *string) error {
	return r.DB(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		Updates(map[string]any{"username": username, "avatar_path": avatarPath}).Error
}

// UpdatePlayerLastLogin refreshes the player's last_login timestamp.
func (r *Repository) UpdatePlayerLastLogin(ctx context.Context, playerID int64, at time.Time) error {
	return r.DB(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		UpdateColumn("last_login", at).Error
}

// UpdatePasswordHash replaces the stored hash, e.g. after Argon2 costs were raised.
func (r *Repository) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("password_hash", hash).Error
}

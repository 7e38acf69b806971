package users

import (
	"time"

	"github.com/gamehub/gamehub-backend/pkg/db/models"
	"github.com/gamehub/gamehub-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID       int64          `json:"id"`
	Email    string         `json:"email"`
	Role     enums.UserRole `json:"role"`
	IsActive bool           `json:"is_active"`
	JoinDate time.Time      `json:"join_date"`
	Player   *PlayerDTO     `json:"player,omitempty"`
}

type PlayerDTO struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	AvatarPath *string    `json:"avatar_path,omitempty"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

func FromModel(u *models.User, p *models.Player) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
		JoinDate: u.JoinDate,
	}
	if p != nil {
		dto.Player = &PlayerDTO{
			ID:         p.ID,
			Username:   p.Username,
			AvatarPath: p.AvatarPath,
			LastLogin:  p.LastLogin,
		}
	}
	return dto
}

package auth

import "github.com/gamehub/gamehub-backend/pkg/enums"

// Actor is the caller resolved once per request from the token and the users table.
type Actor struct {
	UserID   int64
	PlayerID *int64
	Role     enums.UserRole
	IsActive bool
}

func (a Actor) IsAdmin() bool {
	return a.IsActive && a.Role == enums.UserRoleAdmin
}

// ActivePlayerID returns the player id when the actor is an active player account.
func (a Actor) ActivePlayerID() (int64, bool) {
	if !a.IsActive || a.Role != enums.UserRolePlayer || a.PlayerID == nil || *a.PlayerID <= 0 {
		return 0, false
	}
	return *a.PlayerID, true
}

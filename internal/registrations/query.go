package registrations

import "gorm.io/gorm"

const (
	joinPlayers = "JOIN players ON players.id = game_registrations.player_id"
	joinUsers   = "JOIN users ON users.id = players.user_id"

	gameExists = "EXISTS (SELECT 1 FROM game_registration_details d JOIN games g ON g.id = d.game_id " +
		"WHERE d.registration_id = game_registrations.id AND "
	catalogSearch = "EXISTS (SELECT 1 FROM game_registration_details d JOIN games g ON g.id = d.game_id " +
		"LEFT JOIN game_categories c ON c.id = g.category_id " +
		"LEFT JOIN developers dv ON dv.id = g.developer_id " +
		"WHERE d.registration_id = game_registrations.id AND " +
		"(LOWER(g.title) LIKE ? OR LOWER(c.category_name) LIKE ? OR LOWER(dv.developer_name) LIKE ?))"
)

// applyLedgerFilter adds the joins and conditions for q. Callers must pass a
// fresh statement each time since Count and Find cannot share one.
func applyLedgerFilter(db *gorm.DB, q ledgerQuery) *gorm.DB {
	db = db.Joins(joinPlayers).Joins(joinUsers)

	if q.PlayerID != nil {
		db = db.Where("game_registrations.player_id = ?", *q.PlayerID)
	}
	if q.PlayerUsername != "" {
		db = db.Where("LOWER(players.username) LIKE ?", like(q.PlayerUsername))
	}
	if q.PlayerEmail != "" {
		db = db.Where("LOWER(users.email) LIKE ?", like(q.PlayerEmail))
	}
	if q.GameTitle != "" {
		db = db.Where(gameExists+"LOWER(g.title) LIKE ?)", like(q.GameTitle))
	}
	if q.GameCategoryID != nil {
		db = db.Where(gameExists+"g.category_id = ?)", *q.GameCategoryID)
	}
	if q.DeveloperID != nil {
		db = db.Where(gameExists+"g.developer_id = ?)", *q.DeveloperID)
	}
	if q.StartDate != nil {
		db = db.Where("game_registrations.registration_date >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		db = db.Where("game_registrations.registration_date < ?", q.EndDate.AddDate(0, 0, 1))
	}
	if q.IsActive != nil {
		db = db.Where("game_registrations.is_active = ?", *q.IsActive)
	}
	if q.Search != "" {
		term := like(q.Search)
		db = db.Where(
			db.Session(&gorm.Session{NewDB: true}).
				Where("LOWER(players.username) LIKE ?", term).
				Or("LOWER(users.email) LIKE ?", term).
				Or(catalogSearch, term, term, term),
		)
	}
	return db
}

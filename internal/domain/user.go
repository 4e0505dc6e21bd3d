package domain

import "time"

// User represents a user in the system, keyed by their Discord ID
type User struct {
	DiscordID        string    `json:"discord_id" db:"discord_id"`
	Username         string    `json:"username" db:"username"`
	AvatarURL        *string   `json:"avatar_url" db:"avatar_url"`
	Level            Level     `json:"level" db:"level"`
	Balance          int64     `json:"balance" db:"balance"`
	Approved         bool      `json:"approved" db:"approved"`
	Blocked          bool      `json:"blocked" db:"blocked"`
	OpenedCasesCount int       `json:"opened_cases_count" db:"opened_cases_count"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// CanAccess reports whether the user may use authenticated API endpoints
func (u *User) CanAccess() bool {
	return !u.Blocked && u.Approved && u.Level != LevelPending
}

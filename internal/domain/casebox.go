package domain

import "time"

// Case represents an openable case with its prize pool and scarcity limits.
// MaxPerUser and MaxTotal of zero mean unlimited.
type Case struct {
	Name        string    `json:"name" db:"name"`
	Price       int64     `json:"price" db:"price"`
	MinLevel    Level     `json:"min_level" db:"min_level"`
	MaxPerUser  int       `json:"max_per_user" db:"max_per_user"`
	MaxTotal    int       `json:"max_total" db:"max_total"`
	TotalOpened int       `json:"total_opened" db:"total_opened"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	Disabled    bool      `json:"disabled" db:"disabled"`
	Prizes      []Prize   `json:"prizes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Prize represents a single prize entry inside a case.
// A nil Quantity means unlimited stock; otherwise Remaining tracks what is left.
type Prize struct {
	ID        int64   `json:"id" db:"id"`
	CaseName  string  `json:"-" db:"case_name"`
	Name      string  `json:"name" db:"name"`
	Rarity    string  `json:"rarity" db:"rarity"`
	Quantity  *int    `json:"quantity" db:"quantity"`
	Remaining *int    `json:"remaining" db:"remaining"`
	Image     *string `json:"image" db:"image"`
}

// Available reports whether the prize still has stock to award
func (p *Prize) Available() bool {
	return p.Remaining == nil || *p.Remaining > 0
}

// CaseOpen represents a recorded case opening.
// Records are immutable once created except for the confirmation timestamp.
type CaseOpen struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	CaseName    string     `json:"case_name" db:"case_name"`
	Prize       string     `json:"prize" db:"prize"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at" db:"confirmed_at"`
}

package dto

import (
	"time"

	"github.com/dropforge/case-service/internal/domain"
)

// OpenCaseRequest represents a case-opening request
type OpenCaseRequest struct {
	Name string `json:"name" binding:"required,min=1"`
}

// BalanceRequest represents an admin balance adjustment
type BalanceRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

// LevelRequest represents an admin level change
type LevelRequest struct {
	Level string `json:"level" binding:"required,min=1"`
}

// DecisionRequest represents an admin approval decision
type DecisionRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// BlockRequest represents an admin block/unblock action
type BlockRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

// ConfirmPrizeRequest represents an admin prize delivery confirmation
type ConfirmPrizeRequest struct {
	CaseName string `json:"caseName" binding:"required,min=1"`
	Prize    string `json:"prize" binding:"required,min=1"`
}

// UpsertCaseRequest represents an admin case create/update
type UpsertCaseRequest struct {
	Name       string         `json:"name" binding:"required,min=1"`
	Price      int64          `json:"price" binding:"min=0"`
	MinLevel   string         `json:"minLevel"`
	MaxPerUser int            `json:"maxPerUser" binding:"min=0"`
	MaxTotal   int            `json:"maxTotal" binding:"min=0"`
	ImageURL   string         `json:"imageUrl"`
	Disabled   bool           `json:"disabled"`
	Prizes     []PrizeRequest `json:"prizes" binding:"required,min=1,dive"`
}

// PrizeRequest represents one prize entry in a case upsert
type PrizeRequest struct {
	Name     string `json:"name" binding:"required,min=1"`
	Rarity   string `json:"rarity" binding:"required,min=1"`
	Quantity *int   `json:"quantity"`
	Image    string `json:"image"`
}

// DeleteCaseRequest represents an admin case deletion
type DeleteCaseRequest struct {
	Name string `json:"name" binding:"required,min=1"`
}

// CsrfResponse carries the raw CSRF token; its hash travels in the cookie
type CsrfResponse struct {
	CsrfToken string `json:"csrf_token"`
}

// CaseListResponse wraps the player-facing case projections
type CaseListResponse struct {
	Cases []CaseSummary `json:"cases"`
}

// AdminCaseListResponse wraps the unprojected case definitions
type AdminCaseListResponse struct {
	Cases []*domain.Case `json:"cases"`
}

// CaseSummary is the per-case projection returned to players
type CaseSummary struct {
	Name             string       `json:"name"`
	Price            int64        `json:"price"`
	MinLevel         string       `json:"minLevel"`
	RemainingTotal   *int         `json:"remainingTotal"`
	RemainingPerUser *int         `json:"remainingPerUser"`
	ImageURL         *string      `json:"imageUrl"`
	Disabled         bool         `json:"disabled"`
	Prizes           []PrizeBrief `json:"prizesBrief"`
}

// PrizeBrief is the prize projection inside a case summary
type PrizeBrief struct {
	Name   string  `json:"name"`
	Rarity string  `json:"rarity"`
	Emoji  *string `json:"emoji"`
}

// OpenResult carries the awarded prize plus the cosmetic display sequence
type OpenResult struct {
	Prize   PrizeInfo `json:"prize"`
	Display []string  `json:"display"`
}

// PrizeInfo describes the awarded prize
type PrizeInfo struct {
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
}

// UserInfo represents user information in responses
type UserInfo struct {
	DiscordID string     `json:"discordId"`
	Username  string     `json:"username"`
	Level     string     `json:"level"`
	Balance   int64      `json:"balance"`
	Approved  bool       `json:"approved"`
	Blocked   bool       `json:"blocked"`
	AvatarURL *string    `json:"avatarUrl"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// PendingUserInfo is the reduced projection for not-yet-approved users
type PendingUserInfo struct {
	DiscordID string  `json:"discordId"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
}

// PrizeRecord is one entry of a user's prize history
type PrizeRecord struct {
	CaseName    string     `json:"caseName"`
	Prize       string     `json:"prize"`
	CreatedAt   time.Time  `json:"createdAt"`
	ConfirmedAt *time.Time `json:"confirmedAt"`
}

// ProfileResponse is returned by the /api/me endpoint
type ProfileResponse struct {
	User   UserInfo      `json:"user"`
	Prizes []PrizeRecord `json:"prizes"`
}

// UserListResponse groups users by approval state for the admin panel
type UserListResponse struct {
	Approved []UserInfo        `json:"approved"`
	Pending  []PendingUserInfo `json:"pending"`
}

// UserDetailResponse is the admin view of a single user
type UserDetailResponse struct {
	User   UserInfo      `json:"user"`
	Prizes []PrizeRecord `json:"prizes"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

package repository

import (
	"context"
	"time"

	"github.com/dropforge/case-service/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	UpsertOnLogin(ctx context.Context, discordID, username string, avatarURL *string) (*domain.User, error)
	GetByID(ctx context.Context, discordID string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	AdjustBalance(ctx context.Context, discordID string, delta int64) error
	SetLevel(ctx context.Context, discordID string, level domain.Level) error
	SetDecision(ctx context.Context, discordID string, approved bool) error
	SetBlocked(ctx context.Context, discordID string, blocked bool) error
}

// SessionRepository defines methods for refresh-session operations
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByRefreshHash(ctx context.Context, refreshHash string) (*domain.Session, error)
	Rotate(ctx context.Context, refreshHash, replacedBy string) error
	RevokeByRefreshHash(ctx context.Context, refreshHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	EnforceSessionCap(ctx context.Context, userID string, maxActive int) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// OAuthStateRepository defines methods for single-use OAuth attempt state
// and consumed-code dedup records
type OAuthStateRepository interface {
	CreateAttempt(ctx context.Context, attempt *domain.OAuthAttempt, ttl time.Duration) error
	ConsumeAttempt(ctx context.Context, state string) (*domain.OAuthAttempt, error)
	MarkCodeUsed(ctx context.Context, codeHash string, ttl time.Duration) error
}

// CaseRepository defines methods for case and prize operations
type CaseRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Case, error)
	List(ctx context.Context) ([]*domain.Case, error)
	Upsert(ctx context.Context, box *domain.Case) error
	Delete(ctx context.Context, name string) error
	Open(ctx context.Context, params OpenParams) (*domain.CaseOpen, error)
}

// CaseOpenRepository defines methods for case-open records
type CaseOpenRepository interface {
	CountByUserAndCase(ctx context.Context, userID, caseName string) (int, error)
	CountByUserGrouped(ctx context.Context, userID string) (map[string]int, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.CaseOpen, error)
	Confirm(ctx context.Context, userID, caseName, prize string) error
}

// OpenParams carries everything the atomic case-open commit needs.
// Every limit is re-checked inside the transaction at write time.
type OpenParams struct {
	UserID     string
	CaseName   string
	Price      int64
	PrizeID    int64
	PrizeName  string
	Finite     bool
	MaxPerUser int
	MaxTotal   int
}

package service

import (
	"context"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/dto"
)

// AuthService drives the OAuth exchange flow and the refresh-session
// state machine
type AuthService interface {
	StartLogin(ctx context.Context, ip, userAgent string) (string, error)
	HandleCallback(ctx context.Context, code, state, ip, userAgent string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken, ip, userAgent string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken, ip string) error
	ValidateAccessToken(token string) (*domain.TokenClaims, error)
	IssueCsrfToken() (token, hash string, err error)
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// LoginResult carries the freshly issued credentials after a login,
// callback or refresh
type LoginResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// CaseService exposes the player-facing case operations
type CaseService interface {
	ListCases(ctx context.Context, userID string) (*dto.CaseListResponse, error)
	GetProfile(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	Open(ctx context.Context, userID, caseName string) (*dto.OpenResult, error)
}

// AdminService exposes leadership/dev-level mutations
type AdminService interface {
	ListUsers(ctx context.Context) (*dto.UserListResponse, error)
	GetUserDetail(ctx context.Context, targetID string) (*dto.UserDetailResponse, error)
	AdjustBalance(ctx context.Context, actorID, targetID string, delta int64) error
	SetLevel(ctx context.Context, actor *domain.User, targetID string, level domain.Level) error
	Decide(ctx context.Context, actorID, targetID string, approved bool) error
	SetBlocked(ctx context.Context, actorID, targetID string, blocked bool) error
	ConfirmPrize(ctx context.Context, actorID, targetID, caseName, prize string) error
	UpsertCase(ctx context.Context, actorID string, req *dto.UpsertCaseRequest) error
	DeleteCase(ctx context.Context, actorID, name string) error
	ListCasesFull(ctx context.Context) (*dto.AdminCaseListResponse, error)
}

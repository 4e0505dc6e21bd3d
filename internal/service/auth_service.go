package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/internal/oauth"
	"github.com/dropforge/case-service/internal/repository"
	"github.com/dropforge/case-service/internal/utils"
	"go.uber.org/zap"
)

// codeDedupTTL bounds how long a consumed authorization code hash is kept
// to reject replays of a captured redirect URL
const codeDedupTTL = 10 * time.Minute

// authService implements AuthService
type authService struct {
	userRepo           repository.UserRepository
	sessionRepo        repository.SessionRepository
	oauthStateRepo     repository.OAuthStateRepository
	discord            *oauth.DiscordClient
	jwtManager         *utils.JWTManager
	csrfManager        *utils.CsrfManager
	audit              *Audit
	refreshSecret      string
	refreshTokenExpiry time.Duration
	oauthAttemptExpiry time.Duration
	maxActiveSessions  int
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	oauthStateRepo repository.OAuthStateRepository,
	discord *oauth.DiscordClient,
	jwtManager *utils.JWTManager,
	csrfManager *utils.CsrfManager,
	audit *Audit,
	refreshSecret string,
	refreshTokenExpiry time.Duration,
	oauthAttemptExpiry time.Duration,
	maxActiveSessions int,
) AuthService {
	return &authService{
		userRepo:           userRepo,
		sessionRepo:        sessionRepo,
		oauthStateRepo:     oauthStateRepo,
		discord:            discord,
		jwtManager:         jwtManager,
		csrfManager:        csrfManager,
		audit:              audit,
		refreshSecret:      refreshSecret,
		refreshTokenExpiry: refreshTokenExpiry,
		oauthAttemptExpiry: oauthAttemptExpiry,
		maxActiveSessions:  maxActiveSessions,
	}
}

// StartLogin creates a single-use OAuth attempt and returns the provider
// authorization URL to redirect the client to
func (s *authService) StartLogin(ctx context.Context, ip, userAgent string) (string, error) {
	state, err := utils.GenerateStateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	attempt := &domain.OAuthAttempt{
		State:           state,
		RedirectURI:     s.discord.RedirectURI(),
		IPAddress:       ip,
		FingerprintHash: s.fingerprintHash(userAgent),
		CreatedAt:       time.Now(),
	}

	if err := s.oauthStateRepo.CreateAttempt(ctx, attempt, s.oauthAttemptExpiry); err != nil {
		return "", fmt.Errorf("failed to store oauth attempt: %w", err)
	}

	return s.discord.AuthorizeURL(state), nil
}

// HandleCallback validates the OAuth callback, exchanges the code exactly
// once, provisions the local user and creates the initial session
func (s *authService) HandleCallback(ctx context.Context, code, state, ip, userAgent string) (*LoginResult, error) {
	attempt, err := s.oauthStateRepo.ConsumeAttempt(ctx, state)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			s.audit.Event("oauth_invalid_state", zap.String("ip", ip))
			return nil, domain.ErrOAuthStateInvalid
		}
		return nil, fmt.Errorf("failed to consume oauth attempt: %w", err)
	}

	if attempt.RedirectURI != s.discord.RedirectURI() {
		s.audit.Event("oauth_invalid_state", zap.String("ip", ip))
		return nil, domain.ErrOAuthStateInvalid
	}

	// The code hash dedup closes replay of a captured redirect URL
	if err := s.oauthStateRepo.MarkCodeUsed(ctx, utils.HashValue(s.refreshSecret, code), codeDedupTTL); err != nil {
		if errors.Is(err, repository.ErrCodeAlreadyUsed) {
			s.audit.Event("oauth_code_reuse", zap.String("ip", ip))
			return nil, domain.ErrOAuthCodeReplay
		}
		return nil, fmt.Errorf("failed to record oauth code: %w", err)
	}

	providerToken, err := s.discord.ExchangeCode(ctx, code)
	if err != nil {
		s.audit.Event("oauth_token_error", zap.String("ip", ip), zap.Error(err))
		if errors.Is(err, domain.ErrOAuthScope) {
			return nil, domain.ErrOAuthScope
		}
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	profile, err := s.discord.FetchProfile(ctx, providerToken)
	if err != nil {
		s.audit.Event("oauth_user_fetch_failed", zap.String("ip", ip), zap.Error(err))
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}

	user, err := s.userRepo.UpsertOnLogin(ctx, profile.ID, profile.DisplayName(), profile.AvatarURL())
	if err != nil {
		return nil, fmt.Errorf("user provisioning failed: %w", err)
	}

	result, err := s.issueSession(ctx, user, ip, userAgent)
	if err != nil {
		return nil, err
	}

	s.audit.Event("login", zap.String("user_id", user.DiscordID), zap.String("ip", ip))
	return result, nil
}

// Refresh rotates the presented refresh credential. Reuse of an already
// rotated or revoked credential, an expired session, or a fingerprint
// mismatch all terminate the whole lineage.
func (s *authService) Refresh(ctx context.Context, refreshToken, ip, userAgent string) (*LoginResult, error) {
	refreshHash := utils.HashValue(s.refreshSecret, refreshToken)

	session, err := s.sessionRepo.GetByRefreshHash(ctx, refreshHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if !session.IsActive(time.Now()) {
		return nil, s.revokeLineage(ctx, session.UserID, ip, "refresh_reuse")
	}

	if session.FingerprintHash != s.fingerprintHash(userAgent) {
		return nil, s.revokeLineage(ctx, session.UserID, ip, "refresh_fingerprint_mismatch")
	}

	newToken, err := utils.GenerateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	newHash := utils.HashValue(s.refreshSecret, newToken)

	// Conditional rotation: losing the race against a concurrent refresh of
	// the same credential is indistinguishable from reuse
	if err := s.sessionRepo.Rotate(ctx, refreshHash, newHash); err != nil {
		if errors.Is(err, repository.ErrSessionConsumed) {
			return nil, s.revokeLineage(ctx, session.UserID, ip, "refresh_reuse")
		}
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	newSession := &domain.Session{
		UserID:          session.UserID,
		RefreshHash:     newHash,
		FingerprintHash: session.FingerprintHash,
		IPAddress:       ip,
		ExpiresAt:       time.Now().Add(s.refreshTokenExpiry),
	}
	if err := s.sessionRepo.Create(ctx, newSession); err != nil {
		return nil, fmt.Errorf("failed to create rotated session: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.audit.Event("refresh", zap.String("user_id", user.DiscordID), zap.String("ip", ip))

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: newToken,
	}, nil
}

// Logout revokes the session matching the presented refresh credential.
// An unknown credential is a no-op; the caller clears cookies regardless.
func (s *authService) Logout(ctx context.Context, refreshToken, ip string) error {
	if refreshToken != "" {
		refreshHash := utils.HashValue(s.refreshSecret, refreshToken)
		if err := s.sessionRepo.RevokeByRefreshHash(ctx, refreshHash); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
	}

	s.audit.Event("logout", zap.String("ip", ip))
	return nil
}

// ValidateAccessToken verifies an access token, failing closed
func (s *authService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	return s.jwtManager.ValidateAccessToken(token)
}

// IssueCsrfToken builds a fresh CSRF token/hash pair
func (s *authService) IssueCsrfToken() (string, string, error) {
	return s.csrfManager.BuildToken()
}

// SweepExpiredSessions reclaims session records past their expiry
func (s *authService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, time.Now())
}

// issueSession creates a new active session for the user and enforces the
// active-session cap, evicting oldest sessions first
func (s *authService) issueSession(ctx context.Context, user *domain.User, ip, userAgent string) (*LoginResult, error) {
	refreshToken, err := utils.GenerateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &domain.Session{
		UserID:          user.DiscordID,
		RefreshHash:     utils.HashValue(s.refreshSecret, refreshToken),
		FingerprintHash: s.fingerprintHash(userAgent),
		IPAddress:       ip,
		ExpiresAt:       time.Now().Add(s.refreshTokenExpiry),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.sessionRepo.EnforceSessionCap(ctx, user.DiscordID, s.maxActiveSessions); err != nil {
		// Eviction failure should not fail the login itself
		s.audit.Event("session_cap_error", zap.String("user_id", user.DiscordID), zap.Error(err))
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// revokeLineage terminates every session of the user and reports the
// compromise as a session-revoked error
func (s *authService) revokeLineage(ctx context.Context, userID, ip, event string) error {
	if err := s.sessionRepo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	s.audit.Event(event, zap.String("user_id", userID), zap.String("ip", ip))
	return domain.ErrSessionRevoked
}

func (s *authService) fingerprintHash(userAgent string) string {
	return utils.HashValue(s.refreshSecret, utils.NormalizeUserAgent(userAgent))
}

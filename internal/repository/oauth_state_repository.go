package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// oauthStateRepository keeps single-use OAuth attempt records and consumed
// authorization-code markers in Redis, relying on key TTLs for expiry
type oauthStateRepository struct {
	redis *database.Redis
}

// NewOAuthStateRepository creates a new OAuth state repository
func NewOAuthStateRepository(redis *database.Redis) OAuthStateRepository {
	return &oauthStateRepository{redis: redis}
}

func attemptKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

func codeKey(codeHash string) string {
	return fmt.Sprintf("oauth:code:%s", codeHash)
}

// CreateAttempt stores a login attempt keyed by its state value.
// The TTL bounds how long an abandoned attempt can linger.
func (r *oauthStateRepository) CreateAttempt(ctx context.Context, attempt *domain.OAuthAttempt, ttl time.Duration) error {
	payload, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth attempt: %w", err)
	}

	if err := r.redis.Client.Set(ctx, attemptKey(attempt.State), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth attempt: %w", err)
	}

	return nil
}

// ConsumeAttempt atomically fetches and deletes the attempt for a state.
// A missing key means the attempt never existed or already expired; either
// way the state cannot be used again.
func (r *oauthStateRepository) ConsumeAttempt(ctx context.Context, state string) (*domain.OAuthAttempt, error) {
	payload, err := r.redis.Client.GetDel(ctx, attemptKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("oauth attempt for state not found: %w", ErrStateNotFound)
		}
		return nil, fmt.Errorf("failed to consume oauth attempt: %w", err)
	}

	attempt := &domain.OAuthAttempt{}
	if err := json.Unmarshal([]byte(payload), attempt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth attempt: %w", err)
	}

	return attempt, nil
}

// MarkCodeUsed records a consumed authorization code hash. SETNX makes the
// first caller win; a second presentation of the same code is a replay.
func (r *oauthStateRepository) MarkCodeUsed(ctx context.Context, codeHash string, ttl time.Duration) error {
	ok, err := r.redis.Client.SetNX(ctx, codeKey(codeHash), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to mark oauth code used: %w", err)
	}
	if !ok {
		return fmt.Errorf("oauth code hash already recorded: %w", ErrCodeAlreadyUsed)
	}

	return nil
}

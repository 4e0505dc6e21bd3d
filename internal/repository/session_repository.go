package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/pkg/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// sessionRepository implements SessionRepository interface
type sessionRepository struct {
	db *database.Postgres
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.Postgres) SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new active session record
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, fingerprint_hash, ip_address, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshHash,
		session.FingerprintHash,
		session.IPAddress,
		session.CreatedAt,
		session.ExpiresAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("session with refresh hash already exists: %w", ErrDuplicateSession)
			}
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByRefreshHash retrieves a session by its refresh token hash
func (r *sessionRepository) GetByRefreshHash(ctx context.Context, refreshHash string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, refresh_token_hash, fingerprint_hash, ip_address, created_at, expires_at, last_used_at, revoked_at, replaced_by
		FROM sessions
		WHERE refresh_token_hash = $1
	`

	session := &domain.Session{}
	var lastUsedAt, revokedAt sql.NullTime
	var replacedBy sql.NullString

	err := r.db.DB.QueryRowContext(ctx, query, refreshHash).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshHash,
		&session.FingerprintHash,
		&session.IPAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
		&lastUsedAt,
		&revokedAt,
		&replacedBy,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session with refresh hash not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session by refresh hash: %w", err)
	}

	if lastUsedAt.Valid {
		session.LastUsedAt = &lastUsedAt.Time
	}
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}
	if replacedBy.Valid {
		session.ReplacedBy = &replacedBy.String
	}

	return session, nil
}

// Rotate marks the presented session as rotated, recording its successor.
// The update is conditional on the session still being active at write time;
// hitting an already-consumed or expired session returns ErrSessionConsumed
// so callers can treat it as credential reuse.
func (r *sessionRepository) Rotate(ctx context.Context, refreshHash, replacedBy string) error {
	query := `
		UPDATE sessions
		SET revoked_at = $3, replaced_by = $2, last_used_at = $3
		WHERE refresh_token_hash = $1 AND revoked_at IS NULL AND expires_at > $3
	`

	result, err := r.db.DB.ExecContext(ctx, query, refreshHash, replacedBy, time.Now())
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session not active: %w", ErrSessionConsumed)
	}

	return nil
}

// RevokeByRefreshHash revokes a single session. Missing sessions are not an
// error: logout with an unknown cookie is a no-op.
func (r *sessionRepository) RevokeByRefreshHash(ctx context.Context, refreshHash string) error {
	query := `UPDATE sessions SET revoked_at = $2 WHERE refresh_token_hash = $1 AND revoked_at IS NULL`

	_, err := r.db.DB.ExecContext(ctx, query, refreshHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// RevokeAllForUser revokes every session belonging to the user, terminating
// the whole refresh lineage
func (r *sessionRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query := `UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`

	_, err := r.db.DB.ExecContext(ctx, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	return nil
}

// EnforceSessionCap deletes the user's oldest active sessions beyond maxActive
func (r *sessionRepository) EnforceSessionCap(ctx context.Context, userID string, maxActive int) error {
	query := `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id FROM sessions
			WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $3
			ORDER BY created_at DESC
			OFFSET $2
		)
	`

	_, err := r.db.DB.ExecContext(ctx, query, userID, maxActive, time.Now())
	if err != nil {
		return fmt.Errorf("failed to enforce session cap: %w", err)
	}

	return nil
}

// DeleteExpired reclaims session records past their expiry
func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`

	result, err := r.db.DB.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

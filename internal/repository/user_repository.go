package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/pkg/database"
	"github.com/lib/pq"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `discord_id, username, avatar_url, level, balance, approved, blocked, opened_cases_count, created_at, updated_at`

// UpsertOnLogin creates the user on first login and refreshes profile fields
// on subsequent logins. Level, balance, approval and counters are only set
// on insert so admin decisions survive re-login.
func (r *userRepository) UpsertOnLogin(ctx context.Context, discordID, username string, avatarURL *string) (*domain.User, error) {
	query := `
		INSERT INTO users (discord_id, username, avatar_url, level, balance, approved, blocked, opened_cases_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, FALSE, FALSE, 0, $5, $5)
		ON CONFLICT (discord_id) DO UPDATE
		SET username = EXCLUDED.username, avatar_url = EXCLUDED.avatar_url, updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	row := r.db.DB.QueryRowContext(ctx, query, discordID, username, avatarURL, domain.LevelPending, time.Now())

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by Discord ID
func (r *userRepository) GetByID(ctx context.Context, discordID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE discord_id = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, discordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", discordID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// List retrieves all users ordered by creation time
func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// AdjustBalance applies a signed delta to the user's balance.
// The balance >= 0 check constraint rejects deltas that would go negative.
func (r *userRepository) AdjustBalance(ctx context.Context, discordID string, delta int64) error {
	query := `UPDATE users SET balance = balance + $2, updated_at = $3 WHERE discord_id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, discordID, delta, time.Now())
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23514" { // check_violation
				return fmt.Errorf("balance cannot go negative: %w", domain.ErrInsufficientBalance)
			}
		}
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	return requireRowAffected(result, discordID)
}

// SetLevel updates the user's authorization level and marks them approved
func (r *userRepository) SetLevel(ctx context.Context, discordID string, level domain.Level) error {
	query := `UPDATE users SET level = $2, approved = TRUE, updated_at = $3 WHERE discord_id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, discordID, level, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}

	return requireRowAffected(result, discordID)
}

// SetDecision approves a pending user (promoting them to user level) or
// denies them (demoting back to pending)
func (r *userRepository) SetDecision(ctx context.Context, discordID string, approved bool) error {
	level := domain.LevelPending
	if approved {
		level = domain.LevelUser
	}

	query := `UPDATE users SET approved = $2, level = $3, updated_at = $4 WHERE discord_id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, discordID, approved, level, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set decision: %w", err)
	}

	return requireRowAffected(result, discordID)
}

// SetBlocked updates the user's blocked flag
func (r *userRepository) SetBlocked(ctx context.Context, discordID string, blocked bool) error {
	query := `UPDATE users SET blocked = $2, updated_at = $3 WHERE discord_id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, discordID, blocked, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set blocked: %w", err)
	}

	return requireRowAffected(result, discordID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var avatarURL sql.NullString

	err := row.Scan(
		&user.DiscordID,
		&user.Username,
		&avatarURL,
		&user.Level,
		&user.Balance,
		&user.Approved,
		&user.Blocked,
		&user.OpenedCasesCount,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if avatarURL.Valid {
		user.AvatarURL = &avatarURL.String
	}

	return user, nil
}

func requireRowAffected(result sql.Result, discordID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", discordID, ErrNotFound)
	}

	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dropforge/case-service/internal/domain"
	"github.com/dropforge/case-service/pkg/database"
)

// caseOpenRepository implements CaseOpenRepository interface
type caseOpenRepository struct {
	db *database.Postgres
}

// NewCaseOpenRepository creates a new case-open repository
func NewCaseOpenRepository(db *database.Postgres) CaseOpenRepository {
	return &caseOpenRepository{db: db}
}

// CountByUserAndCase counts the user's historical opens of one case
func (r *caseOpenRepository) CountByUserAndCase(ctx context.Context, userID, caseName string) (int, error) {
	query := `SELECT COUNT(*) FROM case_opens WHERE user_id = $1 AND case_name = $2`

	var count int
	if err := r.db.DB.QueryRowContext(ctx, query, userID, caseName).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count case opens: %w", err)
	}

	return count, nil
}

// CountByUserGrouped returns the user's open counts grouped by case name
func (r *caseOpenRepository) CountByUserGrouped(ctx context.Context, userID string) (map[string]int, error) {
	query := `SELECT case_name, COUNT(*) FROM case_opens WHERE user_id = $1 GROUP BY case_name`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count case opens by case: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan case open count: %w", err)
		}
		counts[name] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate case open counts: %w", err)
	}

	return counts, nil
}

// ListByUser returns the user's most recent case opens
func (r *caseOpenRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.CaseOpen, error) {
	query := `
		SELECT id, user_id, case_name, prize, created_at, confirmed_at
		FROM case_opens
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list case opens: %w", err)
	}
	defer rows.Close()

	var opens []*domain.CaseOpen
	for rows.Next() {
		open := &domain.CaseOpen{}
		var confirmedAt sql.NullTime

		err := rows.Scan(&open.ID, &open.UserID, &open.CaseName, &open.Prize, &open.CreatedAt, &confirmedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case open: %w", err)
		}

		if confirmedAt.Valid {
			open.ConfirmedAt = &confirmedAt.Time
		}

		opens = append(opens, open)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate case opens: %w", err)
	}

	return opens, nil
}

// Confirm marks the oldest matching unconfirmed open as delivered.
// Confirmation is set at most once per record.
func (r *caseOpenRepository) Confirm(ctx context.Context, userID, caseName, prize string) error {
	query := `
		UPDATE case_opens
		SET confirmed_at = $4
		WHERE id = (
			SELECT id FROM case_opens
			WHERE user_id = $1 AND case_name = $2 AND prize = $3 AND confirmed_at IS NULL
			ORDER BY created_at ASC
			LIMIT 1
		)
	`

	result, err := r.db.DB.ExecContext(ctx, query, userID, caseName, prize, time.Now())
	if err != nil {
		return fmt.Errorf("failed to confirm case open: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("unconfirmed case open not found: %w", ErrNotFound)
	}

	return nil
}

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

// caseRepository implements CaseRepository interface
type caseRepository struct {
	db *database.Postgres
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *database.Postgres) CaseRepository {
	return &caseRepository{db: db}
}

const caseColumns = `name, price, min_level, max_per_user, max_total, total_opened, image_url, disabled, created_at, updated_at`

// GetByName retrieves a case with its prizes
func (r *caseRepository) GetByName(ctx context.Context, name string) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE name = $1`

	box, err := scanCase(r.db.DB.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case %s not found: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get case by name: %w", err)
	}

	prizes, err := r.loadPrizes(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	box.Prizes = prizes[name]

	return box, nil
}

// List retrieves all cases with their prizes
func (r *caseRepository) List(ctx context.Context) ([]*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY name ASC`

	rows, err := r.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var boxes []*domain.Case
	var names []string
	for rows.Next() {
		box, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		boxes = append(boxes, box)
		names = append(names, box.Name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cases: %w", err)
	}

	prizes, err := r.loadPrizes(ctx, names)
	if err != nil {
		return nil, err
	}
	for _, box := range boxes {
		box.Prizes = prizes[box.Name]
	}

	return boxes, nil
}

// Upsert creates or replaces a case definition. Prizes are replaced
// wholesale with remaining reset to quantity, matching the admin contract:
// editing a case redefines its prize pool.
func (r *caseRepository) Upsert(ctx context.Context, box *domain.Case) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	caseQuery := `
		INSERT INTO cases (name, price, min_level, max_per_user, max_total, total_opened, image_url, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $8)
		ON CONFLICT (name) DO UPDATE
		SET price = EXCLUDED.price, min_level = EXCLUDED.min_level,
			max_per_user = EXCLUDED.max_per_user, max_total = EXCLUDED.max_total,
			image_url = EXCLUDED.image_url, disabled = EXCLUDED.disabled,
			updated_at = EXCLUDED.updated_at
	`

	_, err = tx.ExecContext(ctx, caseQuery,
		box.Name, box.Price, box.MinLevel, box.MaxPerUser, box.MaxTotal,
		box.ImageURL, box.Disabled, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert case: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM prizes WHERE case_name = $1`, box.Name); err != nil {
		return fmt.Errorf("failed to clear prizes: %w", err)
	}

	prizeQuery := `
		INSERT INTO prizes (case_name, position, name, rarity, quantity, remaining, image)
		VALUES ($1, $2, $3, $4, $5, $5, $6)
	`
	for i, prize := range box.Prizes {
		if _, err := tx.ExecContext(ctx, prizeQuery, box.Name, i, prize.Name, prize.Rarity, prize.Quantity, prize.Image); err != nil {
			return fmt.Errorf("failed to insert prize: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit case upsert: %w", err)
	}

	return nil
}

// Delete removes a case; prizes cascade
func (r *caseRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM cases WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("case %s not found: %w", name, ErrNotFound)
	}

	return nil
}

// Open commits a case opening as a single transaction. Every effect is a
// conditional update that re-checks its precondition at write time, so two
// concurrent openings cannot jointly oversell a prize or exceed a limit.
// The user row is updated first: its lock serializes concurrent openings by
// the same user, which makes the per-user count guard reliable.
func (r *caseRepository) Open(ctx context.Context, params OpenParams) (*domain.CaseOpen, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	balanceQuery := `
		UPDATE users
		SET balance = balance - $2, opened_cases_count = opened_cases_count + 1, updated_at = $3
		WHERE discord_id = $1 AND balance >= $2 AND blocked = FALSE
	`
	if err := execGuard(ctx, tx, domain.ErrInsufficientBalance, balanceQuery, params.UserID, params.Price, now); err != nil {
		return nil, err
	}

	totalQuery := `
		UPDATE cases
		SET total_opened = total_opened + 1, updated_at = $2
		WHERE name = $1 AND disabled = FALSE AND (max_total = 0 OR total_opened < max_total)
	`
	if err := execGuard(ctx, tx, domain.ErrCaseTotalLimit, totalQuery, params.CaseName, now); err != nil {
		return nil, err
	}

	if params.Finite {
		prizeQuery := `UPDATE prizes SET remaining = remaining - 1 WHERE id = $1 AND remaining > 0`
		if err := execGuard(ctx, tx, domain.ErrNoPrizesAvailable, prizeQuery, params.PrizeID); err != nil {
			return nil, err
		}
	}

	record := &domain.CaseOpen{
		ID:        uuid.New().String(),
		UserID:    params.UserID,
		CaseName:  params.CaseName,
		Prize:     params.PrizeName,
		CreatedAt: now,
	}

	openQuery := `
		INSERT INTO case_opens (id, user_id, case_name, prize, created_at)
		SELECT $1, $2, $3, $4, $5
		WHERE $6 = 0 OR (SELECT COUNT(*) FROM case_opens WHERE user_id = $2 AND case_name = $3) < $6
	`
	if err := execGuard(ctx, tx, domain.ErrUserCaseLimit, openQuery,
		record.ID, record.UserID, record.CaseName, record.Prize, record.CreatedAt, params.MaxPerUser); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit case open: %w", err)
	}

	return record, nil
}

// execGuard runs a conditional statement and converts "no rows affected"
// into the supplied guard error, rolling the transaction back via the caller
func execGuard(ctx context.Context, tx *sql.Tx, guardErr error, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute guard update: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return guardErr
	}

	return nil
}

func scanCase(row rowScanner) (*domain.Case, error) {
	box := &domain.Case{}
	var imageURL sql.NullString

	err := row.Scan(
		&box.Name,
		&box.Price,
		&box.MinLevel,
		&box.MaxPerUser,
		&box.MaxTotal,
		&box.TotalOpened,
		&imageURL,
		&box.Disabled,
		&box.CreatedAt,
		&box.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if imageURL.Valid {
		box.ImageURL = &imageURL.String
	}

	return box, nil
}

func (r *caseRepository) loadPrizes(ctx context.Context, names []string) (map[string][]domain.Prize, error) {
	prizes := make(map[string][]domain.Prize, len(names))
	if len(names) == 0 {
		return prizes, nil
	}

	query := `
		SELECT id, case_name, name, rarity, quantity, remaining, image
		FROM prizes
		WHERE case_name = ANY($1)
		ORDER BY case_name, position
	`

	rows, err := r.db.DB.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to load prizes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var prize domain.Prize
		var quantity, remaining sql.NullInt64
		var image sql.NullString

		err := rows.Scan(&prize.ID, &prize.CaseName, &prize.Name, &prize.Rarity, &quantity, &remaining, &image)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prize: %w", err)
		}

		if quantity.Valid {
			q := int(quantity.Int64)
			prize.Quantity = &q
		}
		if remaining.Valid {
			rem := int(remaining.Int64)
			prize.Remaining = &rem
		}
		if image.Valid {
			prize.Image = &image.String
		}

		prizes[prize.CaseName] = append(prizes[prize.CaseName], prize)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prizes: %w", err)
	}

	return prizes, nil
}

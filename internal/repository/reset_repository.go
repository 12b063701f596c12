package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpilot/taskpilot/internal/models"
)

// ==============================================
// ERRORS
// ==============================================

var (
	ErrResetNotFound = errors.New("password reset record not found")
)

// ==============================================
// RESET REPOSITORY
// ==============================================

// ResetRepository persists the reset-attempt ledger. A user may
// accumulate several records across retries; lookups always take the
// most recent, so an exhausted or used record is simply never selected
// again once a newer one exists.
type ResetRepository struct {
	db *pgxpool.Pool
}

func NewResetRepository(db *pgxpool.Pool) *ResetRepository {
	return &ResetRepository{db: db}
}

// ==============================================
// CREATE
// ==============================================

func (r *ResetRepository) CreateReset(ctx context.Context, reset *models.PasswordReset) error {
	query := `
		INSERT INTO password_resets (user_id, expires_at)
		VALUES ($1, $2)
		RETURNING id, used, attempts, created_at
	`

	err := r.db.QueryRow(ctx, query,
		reset.UserID,
		reset.ExpiresAt,
	).Scan(&reset.ID, &reset.Used, &reset.Attempts, &reset.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}

	return nil
}

// ==============================================
// READ
// ==============================================

// GetLatestByUserID returns the most recent reset record for the user.
func (r *ResetRepository) GetLatestByUserID(ctx context.Context, userID int) (*models.PasswordReset, error) {
	query := `
		SELECT id, user_id, expires_at, used, attempts, created_at
		FROM password_resets
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var reset models.PasswordReset
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&reset.ID,
		&reset.UserID,
		&reset.ExpiresAt,
		&reset.Used,
		&reset.Attempts,
		&reset.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResetNotFound
		}
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}

	return &reset, nil
}

// ==============================================
// UPDATE
// ==============================================

// IncrementAttempts records one failed reset submission.
func (r *ResetRepository) IncrementAttempts(ctx context.Context, resetID int) error {
	query := `
		UPDATE password_resets
		SET attempts = attempts + 1
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, resetID); err != nil {
		return fmt.Errorf("failed to increment reset attempts: %w", err)
	}

	return nil
}

// CompleteReset swaps in the new password hash and marks the record
// used in one transaction, so the ledger can never disagree with the
// stored credential.
func (r *ResetRepository) CompleteReset(ctx context.Context, resetID, userID int, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID,
	); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE password_resets SET used = TRUE WHERE id = $1`,
		resetID,
	); err != nil {
		return fmt.Errorf("failed to mark reset as used: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}

	return nil
}

// ==============================================
// CLEANUP
// ==============================================

// DeleteExpired prunes records whose safety-net expiry has long passed.
func (r *ResetRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM password_resets WHERE expires_at < NOW() - INTERVAL '1 day'`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired resets: %w", err)
	}

	return tag.RowsAffected(), nil
}

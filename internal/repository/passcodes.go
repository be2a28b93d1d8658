package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PasscodeRepository stores the single live passcode per email.
type PasscodeRepository struct {
	db *sql.DB
}

func NewPasscodeRepository(db *sql.DB) *PasscodeRepository {
	return &PasscodeRepository{db: db}
}

// Replace invalidates any live passcode for email and stores the new one.
// Delete-then-insert keeps the one-live-passcode invariant without relying on
// a unique constraint.
func (r *PasscodeRepository) Replace(ctx context.Context, email, code string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin passcode tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passcodes WHERE email = ?`, email); err != nil {
		return fmt.Errorf("failed to delete old passcodes: %w", err)
	}

	query := `INSERT INTO passcodes (email, code, expires_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, email, code, expiresAt); err != nil {
		return fmt.Errorf("failed to insert passcode: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit passcode tx: %w", err)
	}
	return nil
}

// Consume deletes the passcode iff a matching, unexpired record exists and
// reports whether it did. Expired or mismatched records are left untouched.
func (r *PasscodeRepository) Consume(ctx context.Context, email, code string, now time.Time) (bool, error) {
	query := `DELETE FROM passcodes WHERE email = ? AND code = ? AND expires_at > ?`

	res, err := r.db.ExecContext(ctx, query, email, code, now)
	if err != nil {
		return false, fmt.Errorf("failed to consume passcode: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read passcode result: %w", err)
	}
	return affected > 0, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradmate/gradmate/internal/domain/practice"
)

const (
	createAttemptSQL = `INSERT INTO practice_attempts
		(id, user_id, exam, sections, analysis, composite)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getAttemptSQL = `SELECT id::text, user_id::text, exam, sections, analysis, created_at
		FROM practice_attempts WHERE user_id = $1 AND id = $2`

	listAttemptsSQL = `SELECT id::text, user_id::text, exam, sections, analysis, created_at
		FROM practice_attempts WHERE user_id = $1 ORDER BY created_at DESC`
)

var _ practice.Repository = (*PracticeRepository)(nil)

// PracticeRepository implements practice.Repository backed by PostgreSQL.
type PracticeRepository struct {
	pool *pgxpool.Pool
}

func NewPracticeRepository(pool *pgxpool.Pool) *PracticeRepository {
	return &PracticeRepository{pool: pool}
}

func (r *PracticeRepository) Create(ctx context.Context, a *practice.Attempt) error {
	sections, err := json.Marshal(a.Sections)
	if err != nil {
		return fmt.Errorf("marshaling sections: %w", err)
	}
	analysis, err := json.Marshal(a.Analysis)
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}

	_, err = r.pool.Exec(ctx, createAttemptSQL,
		a.ID, a.UserID, a.Exam, sections, analysis, a.Analysis.Composite,
	)
	if err != nil {
		return fmt.Errorf("creating attempt %q: %w", a.ID, err)
	}
	return nil
}

func (r *PracticeRepository) Get(ctx context.Context, userID, id string) (*practice.Attempt, error) {
	rows, err := r.pool.Query(ctx, getAttemptSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("finding attempt %q: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAttempt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, practice.ErrNotFound
		}
		return nil, fmt.Errorf("finding attempt %q: %w", id, err)
	}
	return &a, nil
}

func (r *PracticeRepository) List(ctx context.Context, userID string) ([]practice.Attempt, error) {
	rows, err := r.pool.Query(ctx, listAttemptsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	attempts, err := pgx.CollectRows(rows, scanAttempt)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	return attempts, nil
}

func scanAttempt(row pgx.CollectableRow) (practice.Attempt, error) {
	var (
		a        practice.Attempt
		exam     string
		sections []byte
		analysis []byte
	)
	err := row.Scan(&a.ID, &a.UserID, &exam, &sections, &analysis, &a.CreatedAt)
	if err != nil {
		return a, err
	}
	a.Exam = practice.Exam(exam)
	if err := json.Unmarshal(sections, &a.Sections); err != nil {
		return a, fmt.Errorf("unmarshaling sections: %w", err)
	}
	if err := json.Unmarshal(analysis, &a.Analysis); err != nil {
		return a, fmt.Errorf("unmarshaling analysis: %w", err)
	}
	return a, nil
}

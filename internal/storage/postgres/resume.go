package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradmate/gradmate/internal/domain/resume"
)

const (
	resumeColumns = `id::text, user_id::text, file_name, mime_type, object_key,
		size_bytes, status, parsed, error, created_at, updated_at`

	createResumeSQL = `INSERT INTO resumes
		(id, user_id, file_name, mime_type, object_key, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getResumeSQL = `SELECT ` + resumeColumns + ` FROM resumes
		WHERE user_id = $1 AND id = $2`

	listResumesSQL = `SELECT ` + resumeColumns + ` FROM resumes
		WHERE user_id = $1 ORDER BY created_at DESC`

	setResumeStatusSQL = `UPDATE resumes SET
		status = $2, parsed = $3, error = $4, updated_at = now()
		WHERE id = $1`

	deleteResumeSQL = `DELETE FROM resumes WHERE user_id = $1 AND id = $2`
)

var _ resume.Repository = (*ResumeRepository)(nil)

// ResumeRepository implements resume.Repository backed by PostgreSQL.
type ResumeRepository struct {
	pool *pgxpool.Pool
}

func NewResumeRepository(pool *pgxpool.Pool) *ResumeRepository {
	return &ResumeRepository{pool: pool}
}

func (r *ResumeRepository) Create(ctx context.Context, rec *resume.Resume) error {
	_, err := r.pool.Exec(ctx, createResumeSQL,
		rec.ID, rec.UserID, rec.FileName, rec.MIMEType, rec.ObjectKey,
		rec.SizeBytes, rec.Status,
	)
	if err != nil {
		return fmt.Errorf("creating resume %q: %w", rec.ID, err)
	}
	return nil
}

func (r *ResumeRepository) Get(ctx context.Context, userID, id string) (*resume.Resume, error) {
	rows, err := r.pool.Query(ctx, getResumeSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("finding resume %q: %w", id, err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanResume)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, resume.ErrNotFound
		}
		return nil, fmt.Errorf("finding resume %q: %w", id, err)
	}
	return &rec, nil
}

func (r *ResumeRepository) List(ctx context.Context, userID string) ([]resume.Resume, error) {
	rows, err := r.pool.Query(ctx, listResumesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing resumes: %w", err)
	}
	resumes, err := pgx.CollectRows(rows, scanResume)
	if err != nil {
		return nil, fmt.Errorf("listing resumes: %w", err)
	}
	return resumes, nil
}

func (r *ResumeRepository) SetStatus(ctx context.Context, id string, status resume.Status, parsed *resume.Parsed, errMsg string) error {
	var parsedJSON []byte
	if parsed != nil {
		var err error
		parsedJSON, err = json.Marshal(parsed)
		if err != nil {
			return fmt.Errorf("marshaling parsed resume: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, setResumeStatusSQL, id, status, parsedJSON, errMsg)
	if err != nil {
		return fmt.Errorf("updating resume %q: %w", id, err)
	}
	return nil
}

func (r *ResumeRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, deleteResumeSQL, userID, id)
	if err != nil {
		return fmt.Errorf("deleting resume %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return resume.ErrNotFound
	}
	return nil
}

func scanResume(row pgx.CollectableRow) (resume.Resume, error) {
	var (
		rec    resume.Resume
		status string
		parsed []byte
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.FileName, &rec.MIMEType, &rec.ObjectKey,
		&rec.SizeBytes, &status, &parsed, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return rec, err
	}
	rec.Status = resume.Status(status)
	if len(parsed) > 0 {
		err = json.Unmarshal(parsed, &rec.Parsed)
	}
	return rec, err
}

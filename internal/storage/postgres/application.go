package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradmate/gradmate/internal/domain/application"
)

const (
	applicationColumns = `id::text, user_id::text, company, role, location, url,
		status, deadline, applied_at, notes, created_at, updated_at`

	createApplicationSQL = `INSERT INTO applications
		(id, user_id, company, role, location, url, status, deadline, applied_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getApplicationSQL = `SELECT ` + applicationColumns + ` FROM applications
		WHERE user_id = $1 AND id = $2`

	listApplicationsSQL = `SELECT ` + applicationColumns + ` FROM applications
		WHERE user_id = $1 AND ($2 = '' OR status = $2) ORDER BY created_at DESC`

	updateApplicationSQL = `UPDATE applications SET
		company = $3, role = $4, location = $5, url = $6, status = $7,
		deadline = $8, applied_at = $9, notes = $10, updated_at = now()
		WHERE user_id = $1 AND id = $2`

	deleteApplicationSQL = `DELETE FROM applications WHERE user_id = $1 AND id = $2`
)

var _ application.Repository = (*ApplicationRepository)(nil)

// ApplicationRepository implements application.Repository backed by PostgreSQL.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

func (r *ApplicationRepository) Create(ctx context.Context, app *application.Application) error {
	_, err := r.pool.Exec(ctx, createApplicationSQL,
		app.ID, app.UserID, app.Company, app.Role, app.Location, app.URL,
		app.Status, app.Deadline, app.AppliedAt, app.Notes,
	)
	if err != nil {
		return fmt.Errorf("creating application %q: %w", app.ID, err)
	}
	return nil
}

func (r *ApplicationRepository) Get(ctx context.Context, userID, id string) (*application.Application, error) {
	rows, err := r.pool.Query(ctx, getApplicationSQL, userID, id)
	if err != nil {
		return nil, fmt.Errorf("finding application %q: %w", id, err)
	}
	app, err := pgx.CollectExactlyOneRow(rows, scanApplication)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrNotFound
		}
		return nil, fmt.Errorf("finding application %q: %w", id, err)
	}
	return &app, nil
}

func (r *ApplicationRepository) List(ctx context.Context, userID string, status application.Status) ([]application.Application, error) {
	rows, err := r.pool.Query(ctx, listApplicationsSQL, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	apps, err := pgx.CollectRows(rows, scanApplication)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	return apps, nil
}

func (r *ApplicationRepository) Update(ctx context.Context, app *application.Application) error {
	tag, err := r.pool.Exec(ctx, updateApplicationSQL,
		app.UserID, app.ID, app.Company, app.Role, app.Location, app.URL,
		app.Status, app.Deadline, app.AppliedAt, app.Notes,
	)
	if err != nil {
		return fmt.Errorf("updating application %q: %w", app.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, deleteApplicationSQL, userID, id)
	if err != nil {
		return fmt.Errorf("deleting application %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}

func scanApplication(row pgx.CollectableRow) (application.Application, error) {
	var (
		app    application.Application
		status string
	)
	err := row.Scan(
		&app.ID, &app.UserID, &app.Company, &app.Role, &app.Location, &app.URL,
		&status, &app.Deadline, &app.AppliedAt, &app.Notes, &app.CreatedAt, &app.UpdatedAt,
	)
	app.Status = application.Status(status)
	return app, err
}

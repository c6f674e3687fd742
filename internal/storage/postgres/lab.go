package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradmate/gradmate/internal/domain/lab"
)

const (
	listSchoolsSQL = `SELECT id::text, name, domain, created_at FROM schools ORDER BY name`

	getSchoolSQL = `SELECT id::text, name, domain, created_at FROM schools WHERE id = $1`

	findSchoolByNameSQL = `SELECT id::text, name, domain, created_at FROM schools
		WHERE name ILIKE '%' || $1 || '%' ORDER BY name LIMIT 1`

	upsertSchoolSQL = `INSERT INTO schools (name, domain) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			domain = CASE WHEN EXCLUDED.domain <> '' THEN EXCLUDED.domain ELSE schools.domain END
		RETURNING id::text`

	labColumns = `id::text, COALESCE(school_id::text, ''), name, description, lab_url, created_at, updated_at`

	listLabsSQL = `SELECT ` + labColumns + ` FROM labs
		WHERE ($1 = '' OR school_id = $1::uuid) ORDER BY name`

	getLabSQL = `SELECT ` + labColumns + ` FROM labs WHERE id = $1`

	findLabsByTitleSQL = `SELECT ` + labColumns + ` FROM labs
		WHERE name ILIKE '%' || $1 || '%' AND ($2 = '' OR school_id = $2::uuid)
		ORDER BY name`

	updateLabContentSQL = `UPDATE labs SET
		description = $2,
		lab_url = CASE WHEN $3 <> '' THEN $3 ELSE lab_url END,
		updated_at = now()
		WHERE id = $1`

	upsertLabSQL = `INSERT INTO labs (school_id, name, description, lab_url)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4)
		ON CONFLICT (school_id, name) DO UPDATE SET
			description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE labs.description END,
			lab_url = CASE WHEN EXCLUDED.lab_url <> '' THEN EXCLUDED.lab_url ELSE labs.lab_url END,
			updated_at = now()
		RETURNING id::text`

	listProfessorsSQL = `SELECT id::text, lab_id::text, name, email, role
		FROM professors WHERE lab_id = $1 ORDER BY name`

	upsertProfessorSQL = `INSERT INTO professors (lab_id, name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lab_id, name) DO UPDATE SET
			email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE professors.email END,
			role = EXCLUDED.role`
)

var _ lab.Repository = (*LabRepository)(nil)

// LabRepository implements lab.Repository backed by PostgreSQL.
type LabRepository struct {
	pool *pgxpool.Pool
}

func NewLabRepository(pool *pgxpool.Pool) *LabRepository {
	return &LabRepository{pool: pool}
}

func (r *LabRepository) ListSchools(ctx context.Context) ([]lab.School, error) {
	rows, err := r.pool.Query(ctx, listSchoolsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing schools: %w", err)
	}
	schools, err := pgx.CollectRows(rows, scanSchool)
	if err != nil {
		return nil, fmt.Errorf("listing schools: %w", err)
	}
	return schools, nil
}

func (r *LabRepository) GetSchool(ctx context.Context, id string) (*lab.School, error) {
	rows, err := r.pool.Query(ctx, getSchoolSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding school %q: %w", id, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSchool)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lab.ErrSchoolNotFound
		}
		return nil, fmt.Errorf("finding school %q: %w", id, err)
	}
	return &s, nil
}

func (r *LabRepository) FindSchoolByName(ctx context.Context, name string) (*lab.School, error) {
	rows, err := r.pool.Query(ctx, findSchoolByNameSQL, name)
	if err != nil {
		return nil, fmt.Errorf("finding school by name %q: %w", name, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSchool)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lab.ErrSchoolNotFound
		}
		return nil, fmt.Errorf("finding school by name %q: %w", name, err)
	}
	return &s, nil
}

func (r *LabRepository) UpsertSchool(ctx context.Context, s *lab.School) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, upsertSchoolSQL, s.Name, s.Domain).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting school %q: %w", s.Name, err)
	}
	return id, nil
}

func (r *LabRepository) ListLabs(ctx context.Context, schoolID string) ([]lab.Lab, error) {
	rows, err := r.pool.Query(ctx, listLabsSQL, schoolID)
	if err != nil {
		return nil, fmt.Errorf("listing labs: %w", err)
	}
	labs, err := pgx.CollectRows(rows, scanLab)
	if err != nil {
		return nil, fmt.Errorf("listing labs: %w", err)
	}
	return labs, nil
}

func (r *LabRepository) GetLab(ctx context.Context, id string) (*lab.Lab, error) {
	rows, err := r.pool.Query(ctx, getLabSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding lab %q: %w", id, err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanLab)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lab.ErrNotFound
		}
		return nil, fmt.Errorf("finding lab %q: %w", id, err)
	}
	return &l, nil
}

func (r *LabRepository) FindLabsByTitle(ctx context.Context, title, schoolID string) ([]lab.Lab, error) {
	rows, err := r.pool.Query(ctx, findLabsByTitleSQL, title, schoolID)
	if err != nil {
		return nil, fmt.Errorf("finding labs by title %q: %w", title, err)
	}
	labs, err := pgx.CollectRows(rows, scanLab)
	if err != nil {
		return nil, fmt.Errorf("finding labs by title %q: %w", title, err)
	}
	return labs, nil
}

func (r *LabRepository) UpdateLabContent(ctx context.Context, id, description, labURL string) error {
	_, err := r.pool.Exec(ctx, updateLabContentSQL, id, description, labURL)
	if err != nil {
		return fmt.Errorf("updating lab %q: %w", id, err)
	}
	return nil
}

// UpsertLab inserts the lab or refreshes an existing row with the same
// school and name, never overwriting content with empty values.
func (r *LabRepository) UpsertLab(ctx context.Context, l *lab.Lab) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, upsertLabSQL, l.SchoolID, l.Name, l.Description, l.URL).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upserting lab %q: %w", l.Name, err)
	}
	return id, nil
}

func (r *LabRepository) ListProfessors(ctx context.Context, labID string) ([]lab.Professor, error) {
	rows, err := r.pool.Query(ctx, listProfessorsSQL, labID)
	if err != nil {
		return nil, fmt.Errorf("listing professors for lab %q: %w", labID, err)
	}
	profs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (lab.Professor, error) {
		var p lab.Professor
		err := row.Scan(&p.ID, &p.LabID, &p.Name, &p.Email, &p.Role)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing professors for lab %q: %w", labID, err)
	}
	return profs, nil
}

func (r *LabRepository) UpsertProfessor(ctx context.Context, p *lab.Professor) error {
	role := p.Role
	if role == "" {
		role = "Professor"
	}
	_, err := r.pool.Exec(ctx, upsertProfessorSQL, p.LabID, p.Name, p.Email, role)
	if err != nil {
		return fmt.Errorf("upserting professor %q: %w", p.Name, err)
	}
	return nil
}

func scanSchool(row pgx.CollectableRow) (lab.School, error) {
	var s lab.School
	err := row.Scan(&s.ID, &s.Name, &s.Domain, &s.CreatedAt)
	return s, err
}

func scanLab(row pgx.CollectableRow) (lab.Lab, error) {
	var l lab.Lab
	err := row.Scan(&l.ID, &l.SchoolID, &l.Name, &l.Description, &l.URL, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

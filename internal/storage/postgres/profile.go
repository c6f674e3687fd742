package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradmate/gradmate/internal/domain/profile"
)

const (
	getProfileSQL = `SELECT id::text, full_name, current_school, graduation_year, gpa,
		major, minor, interests, skills, certifications, projects, created_at, updated_at
		FROM profiles WHERE id = $1`

	upsertProfileSQL = `INSERT INTO profiles
		(id, full_name, current_school, graduation_year, gpa, major, minor,
		 interests, skills, certifications, projects, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			current_school = EXCLUDED.current_school,
			graduation_year = EXCLUDED.graduation_year,
			gpa = EXCLUDED.gpa,
			major = EXCLUDED.major,
			minor = EXCLUDED.minor,
			interests = EXCLUDED.interests,
			skills = EXCLUDED.skills,
			certifications = EXCLUDED.certifications,
			projects = EXCLUDED.projects,
			updated_at = now()`
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository implements profile.Repository backed by PostgreSQL.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Get returns the profile for a user id, or profile.ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	rows, err := r.pool.Query(ctx, getProfileSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("finding profile %q: %w", userID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProfile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("finding profile %q: %w", userID, err)
	}
	return &p, nil
}

// Upsert creates or replaces the user's profile row.
func (r *ProfileRepository) Upsert(ctx context.Context, p *profile.Profile) error {
	projects, err := json.Marshal(p.Projects)
	if err != nil {
		return fmt.Errorf("marshaling projects: %w", err)
	}
	if p.Projects == nil {
		projects = []byte("[]")
	}

	_, err = r.pool.Exec(ctx, upsertProfileSQL,
		p.ID, p.FullName, p.CurrentSchool, p.GraduationYear, p.GPA,
		p.Major, p.Minor, textArray(p.Interests), textArray(p.Skills),
		textArray(p.Certifications), projects,
	)
	if err != nil {
		return fmt.Errorf("upserting profile %q: %w", p.ID, err)
	}
	return nil
}

func scanProfile(row pgx.CollectableRow) (profile.Profile, error) {
	var (
		p        profile.Profile
		projects []byte
	)
	err := row.Scan(
		&p.ID, &p.FullName, &p.CurrentSchool, &p.GraduationYear, &p.GPA,
		&p.Major, &p.Minor, &p.Interests, &p.Skills, &p.Certifications,
		&projects, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if len(projects) > 0 {
		err = json.Unmarshal(projects, &p.Projects)
	}
	return p, err
}

// textArray keeps array columns NOT NULL friendly.
func textArray(vals []string) []string {
	if vals == nil {
		return []string{}
	}
	return vals
}

// Package lab models university research groups and their faculty, lookup
// for email generation, and keyword-based matching against student profiles.
package lab

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested lab does not exist.
	ErrNotFound = errors.New("lab not found")
	// ErrSchoolNotFound is returned when a requested school does not exist.
	ErrSchoolNotFound = errors.New("school not found")
)

// School is a university record.
type School struct {
	ID        string
	Name      string
	Domain    string
	CreatedAt time.Time
}

// Lab is a research group record with an optional parent school.
type Lab struct {
	ID          string
	SchoolID    string
	Name        string
	Description string
	URL         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Professor is a faculty contact attached to a lab.
type Professor struct {
	ID    string
	LabID string
	Name  string
	Email string
	Role  string
}

// Repository defines persistence operations for schools, labs, and professors.
type Repository interface {
	ListSchools(ctx context.Context) ([]School, error)
	GetSchool(ctx context.Context, id string) (*School, error)
	FindSchoolByName(ctx context.Context, name string) (*School, error)
	UpsertSchool(ctx context.Context, s *School) (string, error)

	ListLabs(ctx context.Context, schoolID string) ([]Lab, error)
	GetLab(ctx context.Context, id string) (*Lab, error)
	// FindLabsByTitle returns labs whose name contains the given title
	// (case-insensitive), optionally scoped to one school.
	FindLabsByTitle(ctx context.Context, title, schoolID string) ([]Lab, error)
	// UpdateLabContent refreshes a lab's scraped description and, when
	// non-empty, its URL.
	UpdateLabContent(ctx context.Context, id, description, labURL string) error
	UpsertLab(ctx context.Context, l *Lab) (string, error)

	ListProfessors(ctx context.Context, labID string) ([]Professor, error)
	UpsertProfessor(ctx context.Context, p *Professor) error
}

// Resolve finds the lab best matching a free-form title, optionally scoped by
// school name: exact substring match first, then fuzzy matching over all labs
// with a 0.7 similarity threshold. A nil lab with nil error means no match.
func Resolve(ctx context.Context, repo Repository, title, schoolName string) (*Lab, error) {
	schoolID := ""
	if schoolName != "" {
		school, err := repo.FindSchoolByName(ctx, schoolName)
		if err != nil && !errors.Is(err, ErrSchoolNotFound) {
			return nil, errors.Wrap(err, "find school")
		}
		if school != nil {
			schoolID = school.ID
		}
	}

	labs, err := repo.FindLabsByTitle(ctx, title, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "find labs by title")
	}
	if len(labs) > 0 {
		return &labs[0], nil
	}

	// Fuzzy fallback over the candidate pool.
	all, err := repo.ListLabs(ctx, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "list labs")
	}
	return ClosestByName(title, all, fuzzyThreshold), nil
}

const fuzzyThreshold = 0.7

// ClosestByName returns the lab whose name is most similar to title, or nil
// when no candidate reaches the threshold.
func ClosestByName(title string, labs []Lab, threshold float64) *Lab {
	var (
		best      *Lab
		bestScore float64
	)
	for i := range labs {
		score := SimilarityRatio(title, labs[i].Name)
		if score > bestScore {
			best = &labs[i]
			bestScore = score
		}
	}
	if bestScore < threshold {
		return nil
	}
	return best
}

// Package application tracks internship and research applications a
// student has in flight.
package application

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrNotFound      = errors.New("application not found")
	ErrInvalidStatus = errors.New("invalid application status")
)

type Status string

const (
	StatusInterested Status = "interested"
	StatusApplied    Status = "applied"
	StatusInterview  Status = "interview"
	StatusOffer      Status = "offer"
	StatusRejected   Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInterested, StatusApplied, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// Application is a single tracked opportunity. Deadline and AppliedAt are
// optional; Notes is free-form.
type Application struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Company   string     `json:"company"`
	Role      string     `json:"role"`
	Location  string     `json:"location,omitempty"`
	URL       string     `json:"url,omitempty"`
	Status    Status     `json:"status"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (a *Application) Validate() error {
	if a.Company == "" || a.Role == "" {
		return errors.New("company and role are required")
	}
	if !a.Status.Valid() {
		return errors.Wrapf(ErrInvalidStatus, "%q", a.Status)
	}
	return nil
}

// Repository persists applications. All operations are scoped to the
// owning user; lookups for other users' rows return ErrNotFound.
type Repository interface {
	Create(ctx context.Context, app *Application) error
	Get(ctx context.Context, userID, id string) (*Application, error)
	List(ctx context.Context, userID string, status Status) ([]Application, error)
	Update(ctx context.Context, app *Application) error
	Delete(ctx context.Context, userID, id string) error
}

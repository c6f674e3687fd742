// Package resume holds uploaded résumé records and the parsed structure
// extracted from them by the background worker.
package resume

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrNotFound        = errors.New("resume not found")
	ErrUnsupportedType = errors.New("unsupported resume file type")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusParsed     Status = "parsed"
	StatusFailed     Status = "failed"
)

// Parsed is the structured payload the worker extracts with the LLM.
type Parsed struct {
	Skills     []string `json:"skills"`
	Education  []string `json:"education"`
	Experience []string `json:"experience"`
	Projects   []string `json:"projects"`
	GPA        string   `json:"gpa,omitempty"`
}

// Resume is one uploaded file. ObjectKey is its location in the storage
// bucket; Error carries the failure reason when Status is failed.
type Resume struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	FileName  string    `json:"file_name"`
	MIMEType  string    `json:"mime_type"`
	ObjectKey string    `json:"-"`
	SizeBytes int64     `json:"size_bytes"`
	Status    Status    `json:"status"`
	Parsed    *Parsed   `json:"parsed,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository interface {
	Create(ctx context.Context, r *Resume) error
	Get(ctx context.Context, userID, id string) (*Resume, error)
	List(ctx context.Context, userID string) ([]Resume, error)
	// SetStatus records a state transition; parsed may be nil.
	SetStatus(ctx context.Context, id string, status Status, parsed *Parsed, errMsg string) error
	Delete(ctx context.Context, userID, id string) error
}

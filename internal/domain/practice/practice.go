// Package practice analyzes mock SAT/ACT attempts: raw and scaled section
// scores, per-topic accuracy, and weakest-topic detection used to drive
// study-plan generation.
package practice

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Exam identifies the mock test kind.
type Exam string

const (
	ExamSAT Exam = "sat"
	ExamACT Exam = "act"
)

var (
	// ErrNotFound is returned when a requested attempt does not exist.
	ErrNotFound = errors.New("attempt not found")
	// ErrUnknownExam is returned for an exam other than sat or act.
	ErrUnknownExam = errors.New("exam must be \"sat\" or \"act\"")
	// ErrNoSections is returned when an attempt has no answer sheets.
	ErrNoSections = errors.New("at least one section is required")
	// ErrEmptySection is returned when a section has no questions.
	ErrEmptySection = errors.New("section has no questions")
)

// Question is a single answered question tagged with its topic.
type Question struct {
	Topic   string `json:"topic"`
	Correct bool   `json:"correct"`
}

// Section is one answer sheet of an attempt (e.g. "Math", "Reading").
type Section struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// SectionResult is the computed outcome for one section.
type SectionResult struct {
	Name   string `json:"name"`
	Raw    int    `json:"raw"`
	Total  int    `json:"total"`
	Scaled int    `json:"scaled"`
}

// TopicResult is accuracy aggregated over all sections for a topic.
type TopicResult struct {
	Topic    string  `json:"topic"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// Analysis is the full computed result for an attempt.
type Analysis struct {
	Exam          Exam            `json:"exam"`
	Sections      []SectionResult `json:"sections"`
	Composite     int             `json:"composite"`
	Topics        []TopicResult   `json:"topics"`
	WeakestTopics []string        `json:"weakest_topics"`
	StudyPlan     string          `json:"study_plan,omitempty"`
}

// Attempt is a persisted practice attempt with its analysis.
type Attempt struct {
	ID        string
	UserID    string
	Exam      Exam
	Sections  []Section
	Analysis  Analysis
	CreatedAt time.Time
}

// Repository defines persistence operations for attempts.
type Repository interface {
	Create(ctx context.Context, a *Attempt) error
	Get(ctx context.Context, userID, id string) (*Attempt, error)
	List(ctx context.Context, userID string) ([]Attempt, error)
}

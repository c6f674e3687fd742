// Package profile models a student's stored academic and personal details.
// The profile is both a CRUD resource and the personalization source for
// generated outreach emails.
package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no profile exists for a user.
var ErrNotFound = errors.New("profile not found")

// Project is a student project entry stored in the profile's JSONB column.
type Project struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Profile is a student's academic record. The ID is the Supabase auth user id.
type Profile struct {
	ID             string
	FullName       string
	CurrentSchool  string
	GraduationYear string
	GPA            *decimal.Decimal
	Major          string
	Minor          string
	Interests      []string
	Skills         []string
	Certifications []string
	Projects       []Project
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Repository defines persistence operations for profiles.
type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}

// Name returns the student's full name, or empty for a missing profile.
func (p *Profile) Name() string {
	if p == nil {
		return ""
	}
	return p.FullName
}

// Summary renders the profile as the bullet-point block embedded in email
// prompts. Empty fields are omitted; the placeholder line is returned when
// nothing is known about the student.
func (p *Profile) Summary() string {
	if p == nil {
		return "(no additional profile information provided)"
	}

	var lines []string
	add := func(label, val string) {
		if val != "" {
			lines = append(lines, fmt.Sprintf("• %s: %s", label, val))
		}
	}

	add("Name", p.FullName)
	add("School", p.CurrentSchool)
	add("Major", p.Major)
	add("Minor", p.Minor)
	if p.GPA != nil {
		add("GPA", p.GPA.String())
	}
	add("Professional Interests", strings.Join(p.Interests, ", "))
	add("Skills", strings.Join(p.Skills, ", "))
	add("Certifications", strings.Join(p.Certifications, ", "))

	// Only the first two project titles make it into the prompt.
	if len(p.Projects) > 0 {
		titles := make([]string, 0, 2)
		for _, pr := range p.Projects {
			titles = append(titles, pr.Title)
			if len(titles) == 2 {
				break
			}
		}
		add("Projects", strings.Join(titles, ", "))
	}

	if len(lines) == 0 {
		return "(no additional profile information provided)"
	}
	return strings.Join(lines, "\n")
}

// Keywords returns the lowercased interest and skill terms used for lab
// matching.
func (p *Profile) Keywords() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Interests)+len(p.Skills))
	for _, s := range p.Interests {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	for _, s := range p.Skills {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}

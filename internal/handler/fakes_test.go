package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/gradmate/gradmate/internal/discovery"
	"github.com/gradmate/gradmate/internal/domain/application"
	"github.com/gradmate/gradmate/internal/domain/auth"
	"github.com/gradmate/gradmate/internal/domain/email"
	"github.com/gradmate/gradmate/internal/domain/lab"
	"github.com/gradmate/gradmate/internal/domain/practice"
	"github.com/gradmate/gradmate/internal/domain/profile"
	"github.com/gradmate/gradmate/internal/domain/resume"
	"github.com/gradmate/gradmate/internal/llm"
	"github.com/gradmate/gradmate/internal/queue"
	"github.com/gradmate/gradmate/pkg/httpmiddleware"
	"github.com/gradmate/gradmate/pkg/supabase"
)

type fakeLabRepo struct {
	schools    map[string]lab.School
	labs       map[string]lab.Lab
	professors map[string][]lab.Professor
	nextID     int
}

func newFakeLabRepo() *fakeLabRepo {
	return &fakeLabRepo{
		schools:    map[string]lab.School{},
		labs:       map[string]lab.Lab{},
		professors: map[string][]lab.Professor{},
	}
}

func (f *fakeLabRepo) id(prefix string) string {
	f.nextID++
	return prefix + "-" + strconv.Itoa(f.nextID)
}

func (f *fakeLabRepo) ListSchools(context.Context) ([]lab.School, error) {
	out := make([]lab.School, 0, len(f.schools))
	for _, s := range f.schools {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeLabRepo) GetSchool(_ context.Context, id string) (*lab.School, error) {
	if s, ok := f.schools[id]; ok {
		return &s, nil
	}
	return nil, lab.ErrSchoolNotFound
}

func (f *fakeLabRepo) FindSchoolByName(_ context.Context, name string) (*lab.School, error) {
	for _, s := range f.schools {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, lab.ErrSchoolNotFound
}

func (f *fakeLabRepo) UpsertSchool(_ context.Context, s *lab.School) (string, error) {
	for id, existing := range f.schools {
		if existing.Name == s.Name {
			return id, nil
		}
	}
	id := f.id("school")
	s.ID = id
	f.schools[id] = *s
	return id, nil
}

func (f *fakeLabRepo) ListLabs(_ context.Context, schoolID string) ([]lab.Lab, error) {
	var out []lab.Lab
	for _, l := range f.labs {
		if schoolID == "" || l.SchoolID == schoolID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeLabRepo) GetLab(_ context.Context, id string) (*lab.Lab, error) {
	if l, ok := f.labs[id]; ok {
		return &l, nil
	}
	return nil, lab.ErrNotFound
}

func (f *fakeLabRepo) FindLabsByTitle(_ context.Context, title, schoolID string) ([]lab.Lab, error) {
	var out []lab.Lab
	for _, l := range f.labs {
		if schoolID != "" && l.SchoolID != schoolID {
			continue
		}
		if l.Name == title {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLabRepo) UpdateLabContent(_ context.Context, id, description, labURL string) error {
	l, ok := f.labs[id]
	if !ok {
		return lab.ErrNotFound
	}
	l.Description = description
	if labURL != "" {
		l.URL = labURL
	}
	f.labs[id] = l
	return nil
}

func (f *fakeLabRepo) UpsertLab(_ context.Context, l *lab.Lab) (string, error) {
	for id, existing := range f.labs {
		if existing.SchoolID == l.SchoolID && existing.Name == l.Name {
			return id, nil
		}
	}
	id := f.id("lab")
	l.ID = id
	f.labs[id] = *l
	return id, nil
}

func (f *fakeLabRepo) ListProfessors(_ context.Context, labID string) ([]lab.Professor, error) {
	return f.professors[labID], nil
}

func (f *fakeLabRepo) UpsertProfessor(_ context.Context, p *lab.Professor) error {
	f.professors[p.LabID] = append(f.professors[p.LabID], *p)
	return nil
}

type fakeProfileRepo struct {
	profiles map[string]profile.Profile
}

func (f *fakeProfileRepo) Get(_ context.Context, userID string) (*profile.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		return &p, nil
	}
	return nil, profile.ErrNotFound
}

func (f *fakeProfileRepo) Upsert(_ context.Context, p *profile.Profile) error {
	f.profiles[p.ID] = *p
	return nil
}

type fakeResumeRepo struct {
	resumes map[string]resume.Resume
}

func (f *fakeResumeRepo) Create(_ context.Context, r *resume.Resume) error {
	f.resumes[r.ID] = *r
	return nil
}

func (f *fakeResumeRepo) Get(_ context.Context, userID, id string) (*resume.Resume, error) {
	if r, ok := f.resumes[id]; ok && r.UserID == userID {
		return &r, nil
	}
	return nil, resume.ErrNotFound
}

func (f *fakeResumeRepo) List(_ context.Context, userID string) ([]resume.Resume, error) {
	var out []resume.Resume
	for _, r := range f.resumes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResumeRepo) SetStatus(_ context.Context, id string, status resume.Status, parsed *resume.Parsed, errMsg string) error {
	r, ok := f.resumes[id]
	if !ok {
		return resume.ErrNotFound
	}
	r.Status = status
	r.Parsed = parsed
	r.Error = errMsg
	f.resumes[id] = r
	return nil
}

func (f *fakeResumeRepo) Delete(_ context.Context, userID, id string) error {
	if r, ok := f.resumes[id]; ok && r.UserID == userID {
		delete(f.resumes, id)
		return nil
	}
	return resume.ErrNotFound
}

type fakePracticeRepo struct {
	attempts map[string]practice.Attempt
}

func (f *fakePracticeRepo) Create(_ context.Context, a *practice.Attempt) error {
	a.CreatedAt = time.Now()
	f.attempts[a.ID] = *a
	return nil
}

func (f *fakePracticeRepo) Get(_ context.Context, userID, id string) (*practice.Attempt, error) {
	if a, ok := f.attempts[id]; ok && a.UserID == userID {
		return &a, nil
	}
	return nil, practice.ErrNotFound
}

func (f *fakePracticeRepo) List(_ context.Context, userID string) ([]practice.Attempt, error) {
	var out []practice.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeApplicationRepo struct {
	apps map[string]application.Application
}

func (f *fakeApplicationRepo) Create(_ context.Context, app *application.Application) error {
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	f.apps[app.ID] = *app
	return nil
}

func (f *fakeApplicationRepo) Get(_ context.Context, userID, id string) (*application.Application, error) {
	if a, ok := f.apps[id]; ok && a.UserID == userID {
		return &a, nil
	}
	return nil, application.ErrNotFound
}

func (f *fakeApplicationRepo) List(_ context.Context, userID string, status application.Status) ([]application.Application, error) {
	var out []application.Application
	for _, a := range f.apps {
		if a.UserID != userID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeApplicationRepo) Update(_ context.Context, app *application.Application) error {
	if _, ok := f.apps[app.ID]; !ok {
		return application.ErrNotFound
	}
	app.UpdatedAt = time.Now()
	f.apps[app.ID] = *app
	return nil
}

func (f *fakeApplicationRepo) Delete(_ context.Context, userID, id string) error {
	if a, ok := f.apps[id]; ok && a.UserID == userID {
		delete(f.apps, id)
		return nil
	}
	return application.ErrNotFound
}

type fakePublisher struct {
	jobs []queue.ResumeJob
	err  error
}

func (f *fakePublisher) PublishResumeJob(_ context.Context, job queue.ResumeJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeEmailer struct {
	draft *email.Draft
	err   error
	got   *email.Request
}

func (f *fakeEmailer) Generate(_ context.Context, req *email.Request) (*email.Draft, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.got = req
	return f.draft, f.err
}

type fakeDiscoverer struct {
	result *discovery.Result
	err    error
}

func (f *fakeDiscoverer) Discover(_ context.Context, college, major string) (*discovery.Result, error) {
	return f.result, f.err
}

const (
	testJWTSecret = "handler-test-secret"
	testUserID    = "0b6f9ba4-user"
	testAPIKey    = "gm_test_key"
)

var testPepper = []byte("handler-test-pepper")

type testEnv struct {
	h       *Handler
	router  http.Handler
	labs    *fakeLabRepo
	profs   *fakeProfileRepo
	resumes *fakeResumeRepo
	pract   *fakePracticeRepo
	apps    *fakeApplicationRepo
	pub     *fakePublisher
	emailer *fakeEmailer
	disc    *fakeDiscoverer
	supaSrv *httptest.Server
}

type apiKeyStore map[string]*auth.APIKeyInfo

func (s apiKeyStore) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if k, ok := s[hash]; ok {
		return k, nil
	}
	return nil, auth.ErrUnauthorized
}

func newTestEnv(t *testing.T, supaHandler http.Handler) *testEnv {
	t.Helper()

	if supaHandler == nil {
		supaHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
		})
	}
	supaSrv := httptest.NewServer(supaHandler)
	t.Cleanup(supaSrv.Close)

	supa, err := supabase.New(supabase.Config{
		ProjectURL: supaSrv.URL,
		AnonKey:    "anon",
		ServiceKey: "service",
	})
	require.NoError(t, err)

	env := &testEnv{
		labs:    newFakeLabRepo(),
		profs:   &fakeProfileRepo{profiles: map[string]profile.Profile{}},
		resumes: &fakeResumeRepo{resumes: map[string]resume.Resume{}},
		pract:   &fakePracticeRepo{attempts: map[string]practice.Attempt{}},
		apps:    &fakeApplicationRepo{apps: map[string]application.Application{}},
		pub:     &fakePublisher{},
		emailer: &fakeEmailer{draft: &email.Draft{Email: "Dear Professor", LabSummary: "summary"}},
		disc:    &fakeDiscoverer{},
		supaSrv: supaSrv,
	}

	env.h = &Handler{
		Labs:         env.labs,
		Profiles:     env.profs,
		Resumes:      env.resumes,
		Practice:     env.pract,
		Applications: env.apps,
		Supabase:     supa,
		Bucket:       "resumes",
		Queue:        env.pub,
		Emails:       env.emailer,
		Discovery:    env.disc,
		Planner: llm.ClientFunc(func(_ context.Context, req llm.Request) (string, error) {
			return "Day 1: review algebra", nil
		}),
	}

	verifier := auth.NewTokenVerifier([]byte(testJWTSecret))
	keyHash := auth.HashAPIKey(testAPIKey, testPepper)
	keys := apiKeyStore{keyHash: {ID: "key-1", KeyHash: keyHash, Name: "test"}}

	env.router = env.h.Routes(
		httpmiddleware.UserAuth(verifier),
		httpmiddleware.APIKeyAuth(keys, testPepper),
	)
	return env
}

func userToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   testUserID,
		"aud":   "authenticated",
		"email": "student@gatech.edu",
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return raw
}

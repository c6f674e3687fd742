package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradmate/gradmate/internal/discovery"
	"github.com/gradmate/gradmate/internal/domain/lab"
	"github.com/gradmate/gradmate/internal/domain/resume"
)

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), "body: %s", w.Body.String())
	return v
}

func TestAuthPassthrough(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/signup":
			_, _ = w.Write([]byte(`{"id": "user-9", "email": "new@b.edu"}`))
		case "/auth/v1/token":
			switch r.URL.Query().Get("grant_type") {
			case "password":
				_, _ = w.Write([]byte(`{"access_token": "jwt", "refresh_token": "ref"}`))
			case "refresh_token":
				_, _ = w.Write([]byte(`{"access_token": "jwt2", "refresh_token": "ref2"}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	w := do(t, env.router, http.MethodPost, "/api/v1/auth/signup", "",
		map[string]string{"email": "new@b.edu", "password": "pw"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, env.router, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "new@b.edu", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	session := decodeBody[map[string]any](t, w)
	assert.Equal(t, "jwt", session["access_token"])

	w = do(t, env.router, http.MethodPost, "/api/v1/auth/refresh", "",
		map[string]string{"refresh_token": "ref"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, env.router, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "new@b.edu"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRecover(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/recover", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))

	w := do(t, env.router, http.MethodPost, "/api/v1/auth/recover", "",
		map[string]string{"email": "a@b.edu"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = do(t, env.router, http.MethodPost, "/api/v1/auth/recover", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthPassthroughError(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description": "Invalid login credentials"}`))
	}))

	w := do(t, env.router, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "a@b.edu", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody[errorResponse](t, w)
	assert.Equal(t, "auth_error", body.Code)
	assert.Equal(t, "Invalid login credentials", body.Message)
}

func TestSchoolsAndLabs(t *testing.T) {
	env := newTestEnv(t, nil)
	env.labs.schools["school-1"] = lab.School{ID: "school-1", Name: "Georgia Tech", Domain: "gatech.edu"}
	env.labs.labs["lab-1"] = lab.Lab{ID: "lab-1", SchoolID: "school-1", Name: "Systems Lab", Description: "operating systems"}
	env.labs.professors["lab-1"] = []lab.Professor{{ID: "prof-1", LabID: "lab-1", Name: "Jane Doe", Role: "Professor"}}

	w := do(t, env.router, http.MethodGet, "/api/v1/schools", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	schools := decodeBody[[]schoolResponse](t, w)
	require.Len(t, schools, 1)
	assert.Equal(t, "Georgia Tech", schools[0].Name)

	w = do(t, env.router, http.MethodGet, "/api/v1/schools/school-1/labs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	labs := decodeBody[[]labResponse](t, w)
	require.Len(t, labs, 1)
	assert.Equal(t, "Systems Lab", labs[0].Name)

	w = do(t, env.router, http.MethodGet, "/api/v1/schools/nope/labs", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, env.router, http.MethodGet, "/api/v1/labs/lab-1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, env.router, http.MethodGet, "/api/v1/labs/lab-1/professors", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	profs := decodeBody[[]professorResponse](t, w)
	require.Len(t, profs, 1)
	assert.Equal(t, "Jane Doe", profs[0].Name)

	w = do(t, env.router, http.MethodGet, "/api/v1/labs/nope", "", nil)
	body := decodeBody[errorResponse](t, w)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", body.Code)
}

func TestMatchLabs(t *testing.T) {
	env := newTestEnv(t, nil)
	token := userToken(t)
	env.labs.labs["lab-1"] = lab.Lab{ID: "lab-1", Name: "Machine Learning Lab", Description: "deep learning and vision"}
	env.labs.labs["lab-2"] = lab.Lab{ID: "lab-2", Name: "Theory Group", Description: "complexity and algorithms"}

	t.Run("explicit keywords", func(t *testing.T) {
		w := do(t, env.router, http.MethodPost, "/api/v1/labs/match", token,
			matchRequest{Keywords: []string{"machine learning"}})
		require.Equal(t, http.StatusOK, w.Code)
		matches := decodeBody[[]matchResponse](t, w)
		require.NotEmpty(t, matches)
		assert.Equal(t, "Machine Learning Lab", matches[0].Lab.Name)
		assert.Positive(t, matches[0].Score)
	})

	t.Run("requires auth", func(t *testing.T) {
		w := do(t, env.router, http.MethodPost, "/api/v1/labs/match", "",
			matchRequest{Keywords: []string{"vision"}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("profile keywords", func(t *testing.T) {
		w := do(t, env.router, http.MethodPut, "/api/v1/profile", token, profilePayload{
			FullName:  "Alex Kim",
			Interests: []string{"Algorithms"},
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = do(t, env.router, http.MethodPost, "/api/v1/labs/match", token, matchRequest{})
		require.Equal(t, http.StatusOK, w.Code)
		matches := decodeBody[[]matchResponse](t, w)
		require.NotEmpty(t, matches)
		assert.Equal(t, "Theory Group", matches[0].Lab.Name)
	})
}

func TestProfileRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	token := userToken(t)

	w := do(t, env.router, http.MethodGet, "/api/v1/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, env.router, http.MethodPut, "/api/v1/profile", token, profilePayload{
		FullName: "Alex Kim",
		Major:    "Computer Science",
		Skills:   []string{"Go", "Python"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, env.router, http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decodeBody[profilePayload](t, w)
	assert.Equal(t, "Alex Kim", p.FullName)
	assert.Equal(t, []string{"Go", "Python"}, p.Skills)
}

func TestResumeUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	token := userToken(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "resume.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("Alex Kim\nSkills: Go, Python"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	rec := decodeBody[resume.Resume](t, w)
	assert.Equal(t, resume.StatusPending, rec.Status)
	assert.Equal(t, "text/plain", rec.MIMEType)

	require.Len(t, env.pub.jobs, 1)
	assert.Equal(t, rec.ID, env.pub.jobs[0].ResumeID)
	assert.Equal(t, testUserID+"/"+rec.ID, env.pub.jobs[0].ObjectKey)

	w2 := do(t, env.router, http.MethodGet, "/api/v1/resumes/"+rec.ID, token, nil)
	require.Equal(t, http.StatusOK, w2.Code)

	w3 := do(t, env.router, http.MethodDelete, "/api/v1/resumes/"+rec.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w3.Code)
	assert.Empty(t, env.resumes.resumes)
}

func TestResumeUploadUnsupportedType(t *testing.T) {
	env := newTestEnv(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "resume.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+userToken(t))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, env.pub.jobs)
}

func TestGenerateEmailRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t, nil)

	w := do(t, env.router, http.MethodPost, "/api/v1/emails/generate", "",
		map[string]string{"lab_title": "Systems Lab"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateEmail(t *testing.T) {
	env := newTestEnv(t, nil)

	body, _ := json.Marshal(map[string]string{"lab_title": "Systems Lab", "school": "Georgia Tech"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/emails/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", testAPIKey)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	draft := decodeBody[map[string]string](t, w)
	assert.Equal(t, "Dear Professor", draft["email"])
	require.NotNil(t, env.emailer.got)
	assert.Equal(t, "Georgia Tech", env.emailer.got.School)

	// Missing lab_title maps to 422.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/emails/generate", strings.NewReader(`{}`))
	req.Header.Set("X-Api-Key", testAPIKey)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDiscoverLabs(t *testing.T) {
	env := newTestEnv(t, nil)
	env.disc.result = &discovery.Result{
		ResearchURL: "https://www.cc.gatech.edu/research",
		Labs: []discovery.Lab{{
			Name:        "Systems Lab",
			Description: "distributed systems",
			URL:         "https://www.cc.gatech.edu/systems",
			Faculty:     []discovery.Faculty{{Name: "Jane Doe", Role: "Professor", Email: "jdoe@cc.gatech.edu"}},
		}},
	}

	body, _ := json.Marshal(map[string]string{"college": "Georgia Tech"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/labs/discover", bytes.NewReader(body))
	req.Header.Set("X-Api-Key", testAPIKey)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeBody[discovery.Result](t, w)
	require.Len(t, result.Labs, 1)

	// Crawl results are persisted for later matching.
	require.Len(t, env.labs.schools, 1)
	for _, s := range env.labs.schools {
		assert.Equal(t, "Georgia Tech", s.Name)
		assert.Equal(t, "cc.gatech.edu", s.Domain)
	}
	require.Len(t, env.labs.labs, 1)
	for id, l := range env.labs.labs {
		assert.Equal(t, "Systems Lab", l.Name)
		require.Len(t, env.labs.professors[id], 1)
	}

	// college is required.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/labs/discover", strings.NewReader(`{"major":"CS"}`))
	req.Header.Set("X-Api-Key", testAPIKey)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

package supabase

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		ProjectURL: srv.URL,
		AnonKey:    "anon-key",
		ServiceKey: "service-key",
	})
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{AnonKey: "k"})
	require.Error(t, err)

	_, err = New(Config{ProjectURL: "https://proj.supabase.co"})
	require.Error(t, err)

	c, err := New(Config{ProjectURL: "https://proj.supabase.co/", AnonKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://proj.supabase.co/auth/v1", c.authURL)
	assert.Equal(t, "https://proj.supabase.co/storage/v1", c.storageURL)
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "jwt-token",
			"token_type": "bearer",
			"expires_in": 3600,
			"refresh_token": "refresh",
			"user": {"id": "user-1", "email": "a@b.edu"}
		}`))
	}))

	session, err := c.Auth().SignInWithPassword(context.Background(), "a@b.edu", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", session.AccessToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "user-1", session.User.ID)
}

func TestSignInInvalidCredentials(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant", "error_description": "Invalid login credentials"}`))
	}))

	_, err := c.Auth().SignInWithPassword(context.Background(), "a@b.edu", "wrong")
	require.Error(t, err)

	var sbErr *Error
	require.ErrorAs(t, err, &sbErr)
	assert.Equal(t, http.StatusBadRequest, sbErr.StatusCode)
	assert.Equal(t, "Invalid login credentials", sbErr.Message)
}

func TestSignUpPendingConfirmation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": "user-2", "email": "new@b.edu"}`))
	}))

	session, err := c.Auth().SignUp(context.Background(), "new@b.edu", "secret")
	require.NoError(t, err)
	assert.Empty(t, session.AccessToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "user-2", session.User.ID)
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		_, _ = w.Write([]byte(`{"id": "user-1", "email": "a@b.edu", "role": "authenticated"}`))
	}))

	user, err := c.Auth().GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "authenticated", user.Role)
}

func TestStorageUploadDownload(t *testing.T) {
	var uploaded []byte
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/resumes/user-1/resume.pdf", r.URL.Path)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
			assert.Equal(t, "true", r.Header.Get("x-upsert"))
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			uploaded = body
			_, _ = w.Write([]byte(`{"Key": "resumes/user-1/resume.pdf"}`))
		case http.MethodGet:
			_, _ = w.Write(uploaded)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	ctx := context.Background()
	err := c.Storage().Upload(ctx, "resumes", "user-1/resume.pdf", []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	data, err := c.Storage().Download(ctx, "resumes", "user-1/resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestStorageDeleteMissing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Object not found"}`))
	}))

	err := c.Storage().Delete(context.Background(), "resumes", "user-1/missing.pdf")
	require.NoError(t, err)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message": "upstream hiccup"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "user-1", "email": "a@b.edu"}`))
	}))

	user, err := c.Auth().GetUser(context.Background(), "jwt-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "rate limit exceeded"}`))
	}))

	_, err := c.Auth().GetUser(context.Background(), "jwt-token")
	require.Error(t, err)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusTooManyRequests, serr.StatusCode)
	assert.Equal(t, int32(retryAttempts), atomic.LoadInt32(&calls))
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "bad email"}`))
	}))

	_, err := c.Auth().SignUp(context.Background(), "not-an-email", "pw")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRecoverPassword(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/recover", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))

	require.NoError(t, c.Auth().RecoverPassword(context.Background(), "a@b.edu"))
}

func TestCreateBucketDuplicate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/bucket", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code": "Duplicate", "message": "Bucket already exists"}`))
	}))

	require.NoError(t, c.Storage().CreateBucket(context.Background(), "resumes"))
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message": "boom"}`, "boom"},
		{"msg field", `{"msg": "gotrue style"}`, "gotrue style"},
		{"error description", `{"error": "code", "error_description": "described"}`, "described"},
		{"error only", `{"error": "bare"}`, "bare"},
		{"non json", `upstream exploded`, "upstream exploded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := parseError([]byte(tt.body), http.StatusBadRequest)
			assert.Equal(t, tt.want, e.Message)
			assert.Equal(t, http.StatusBadRequest, e.StatusCode)
		})
	}
}

package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// AuthClient talks to the GoTrue auth service.
type AuthClient struct {
	client *Client
}

// User is a Supabase user record.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Session is an authenticated session with its tokens.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// SignUp registers a new user. Depending on project settings the returned
// session may lack tokens until the email is confirmed.
func (a *AuthClient) SignUp(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	respBody, status, err := a.client.request(ctx, http.MethodPost, a.client.authURL+"/signup", body, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseError(respBody, status)
	}

	return decodeSession(respBody)
}

// SignInWithPassword exchanges email and password for a session.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	respBody, status, err := a.client.request(ctx, http.MethodPost, a.client.authURL+"/token?grant_type=password", body, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseError(respBody, status)
	}

	return decodeSession(respBody)
}

// RefreshToken exchanges a refresh token for a fresh session.
func (a *AuthClient) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	respBody, status, err := a.client.request(ctx, http.MethodPost, a.client.authURL+"/token?grant_type=refresh_token", body, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseError(respBody, status)
	}

	return decodeSession(respBody)
}

// GetUser fetches the user identified by an access token.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	respBody, status, err := a.client.requestWithToken(ctx, http.MethodGet, a.client.authURL+"/user", nil, nil, accessToken)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseError(respBody, status)
	}

	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, errors.Wrap(err, "decode user")
	}
	return &user, nil
}

// RecoverPassword asks GoTrue to send a password recovery email.
func (a *AuthClient) RecoverPassword(ctx context.Context, email string) error {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	respBody, status, err := a.client.request(ctx, http.MethodPost, a.client.authURL+"/recover", body, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return parseError(respBody, status)
	}
	return nil
}

// SignOut revokes the session behind an access token.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	respBody, status, err := a.client.requestWithToken(ctx, http.MethodPost, a.client.authURL+"/logout", nil, nil, accessToken)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return parseError(respBody, status)
	}
	return nil
}

func decodeSession(body []byte) (*Session, error) {
	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	// Signup with email confirmation pending returns the bare user object.
	if session.AccessToken == "" && session.User == nil {
		var user User
		if err := json.Unmarshal(body, &user); err == nil && user.ID != "" {
			session.User = &user
		}
	}
	return &session, nil
}

// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/clients"
)

type fakeAccounts struct {
	mu         sync.Mutex
	registered []clients.RegisterInput
	logins     []clients.LoginInput
	checked    []string
	profiles   []string
	err        error
}

func (f *fakeAccounts) Register(ctx context.Context, in clients.RegisterInput) (*clients.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, in)
	if f.err != nil {
		return nil, f.err
	}
	return &clients.AuthResult{Success: true, User: &clients.UserProfile{ID: "u-new", Email: in.Email, Role: "user"}}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, in clients.LoginInput) (*clients.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, in)
	if f.err != nil {
		return nil, f.err
	}
	return &clients.AuthResult{Success: true, Token: &clients.TokenData{AccessToken: "at", TokenType: "Bearer", ExpiresIn: 3600}}, nil
}

func (f *fakeAccounts) CheckToken(ctx context.Context, token string) (*clients.TokenStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, token)
	if f.err != nil {
		return nil, f.err
	}
	if token == userToken {
		return &clients.TokenStatus{Valid: true, UserID: "user-1", Role: "user"}, nil
	}
	return &clients.TokenStatus{Valid: false, Message: "token expired"}, nil
}

func (f *fakeAccounts) Profile(ctx context.Context, userID string) (*clients.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, userID)
	if f.err != nil {
		return nil, f.err
	}
	return &clients.UserProfile{ID: userID, Email: userID + "@stox.test"}, nil
}

func jsonBody(s string) *strings.Reader { return strings.NewReader(s) }

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/register", "",
		jsonBody(`{"email":" ana@stox.test ","password":"Str0ng!pass","firstName":"Ana","lastName":"Lee"}`),
		"Content-Type", "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var out clients.AuthResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Success || out.User == nil || out.User.Email != "ana@stox.test" {
		t.Errorf("result = %+v", out)
	}
	if env.tokens.calls != 0 {
		t.Error("register should not authenticate")
	}
}

func TestRegister_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"weak password", `{"email":"a@stox.test","password":"alllowercase","firstName":"A","lastName":"B"}`},
		{"bad email", `{"email":"not-an-email","password":"Str0ng!pass","firstName":"A","lastName":"B"}`},
		{"admin role", `{"email":"a@stox.test","password":"Str0ng!pass","firstName":"A","lastName":"B","role":"admin"}`},
		{"missing names", `{"email":"a@stox.test","password":"Str0ng!pass"}`},
		{"not json", `email=a`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/v1/auth/register", "", jsonBody(tt.body), "Content-Type", "application/json")
			assertError(t, rec, http.StatusBadRequest, apierr.KindValidation)
		})
	}
	if len(env.accounts.registered) != 0 {
		t.Errorf("invalid payloads reached the backend: %d", len(env.accounts.registered))
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/login", "", jsonBody(`{"email":"ana@stox.test","password":"x"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"accessToken":"at"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	env.accounts.err = apierr.Unauthorized("invalid credentials", nil)
	rec = env.do(http.MethodPost, "/api/v1/auth/login", "", jsonBody(`{"email":"ana@stox.test","password":"wrong"}`))
	assertError(t, rec, http.StatusUnauthorized, apierr.KindAuth)
}

func TestValidateTokenRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/validate", "", jsonBody(`{"token":"user-token"}`))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"valid":true`) {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/v1/auth/validate", "", jsonBody(`{"token":"stale"}`))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"valid":false`) {
		t.Fatalf("invalid token: status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/v1/auth/validate", "", jsonBody(`{"token":"  "}`))
	assertError(t, rec, http.StatusBadRequest, apierr.KindValidation)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/auth/profile", "", nil)
	assertError(t, rec, http.StatusUnauthorized, apierr.KindAuth)

	rec = env.do(http.MethodGet, "/api/v1/auth/profile", userToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if env.accounts.profiles[0] != "user-1" {
		t.Errorf("profile looked up %q, want caller", env.accounts.profiles[0])
	}

	rec = env.do(http.MethodGet, "/api/v1/auth/profile?userId=42", userToken, nil)
	assertError(t, rec, http.StatusForbidden, apierr.KindAuth)

	rec = env.do(http.MethodGet, "/api/v1/auth/profile?userId=42", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/v1/auth/profile?userId=not%20an%20id", adminToken, nil)
	assertError(t, rec, http.StatusBadRequest, apierr.KindValidation)

	if len(env.accounts.profiles) != 2 {
		t.Errorf("profile lookups = %v", env.accounts.profiles)
	}
}

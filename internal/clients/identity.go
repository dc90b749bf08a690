// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/auth"
	"github.com/tomtom215/stox-gateway/internal/backend"
)

// Identity is the identity backend client: token validation for the auth
// interceptor plus the account routes proxied under /api/v1/auth.
type Identity struct {
	src HandleSource
}

func NewIdentity(src HandleSource) *Identity {
	return &Identity{src: src}
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type validateTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Exp    int64  `json:"exp"`
}

// ValidateToken implements auth.TokenValidator.
func (c *Identity) ValidateToken(ctx context.Context, token string) (auth.Principal, error) {
	var resp validateTokenResponse
	err := call(ctx, c.src, ServiceIdentity, backend.Request{
		Method: http.MethodPost,
		Path:   "/v1/tokens/validate",
		Body:   validateTokenRequest{Token: token},
	}, &resp)
	if err != nil {
		return auth.Principal{}, err
	}
	if !resp.Valid || resp.UserID == "" {
		return auth.Principal{}, auth.ErrInvalidToken
	}

	p := auth.Principal{
		SubjectID: resp.UserID,
		Email:     resp.Email,
		Role:      resp.Role,
	}
	if resp.Exp > 0 {
		p.ExpiresAt = time.Unix(resp.Exp, 0)
	}
	return p, nil
}

// RegisterInput is a new account. Role may only request the self-service
// roles; the identity backend assigns "user" when it is empty.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128,password_strength"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Role      string `json:"role,omitempty" validate:"omitempty,oneof=user seller"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type TokenCheckInput struct {
	Token string `json:"token" validate:"required,max=4096"`
}

// UserProfile is an account as the identity backend reports it.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TokenData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    *UserProfile `json:"userData,omitempty"`
	Token   *TokenData   `json:"tokenData,omitempty"`
}

// TokenStatus is the identity backend's verdict on a token.
type TokenStatus struct {
	Valid   bool   `json:"valid"`
	UserID  string `json:"userId,omitempty"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	Exp     int64  `json:"exp,omitempty"`
	Message string `json:"message,omitempty"`
}

func (c *Identity) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var out AuthResult
	if err := call(ctx, c.src, ServiceIdentity, backend.Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/register",
		Body:   in,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Identity) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	var out AuthResult
	if err := call(ctx, c.src, ServiceIdentity, backend.Request{
		Method: http.MethodPost,
		Path:   "/v1/auth/login",
		Body:   in,
	}, &out); err != nil {
		return nil, credentialError(err)
	}
	return &out, nil
}

// CheckToken returns the raw validation verdict. Unlike ValidateToken it
// does not turn an invalid token into an error.
func (c *Identity) CheckToken(ctx context.Context, token string) (*TokenStatus, error) {
	var out TokenStatus
	if err := call(ctx, c.src, ServiceIdentity, backend.Request{
		Method: http.MethodPost,
		Path:   "/v1/tokens/validate",
		Body:   validateTokenRequest{Token: token},
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// credentialError turns an identity 401 or 403 into an auth error. Other
// backends answering 401 are misconfigured and stay BackendUnavailable.
func credentialError(err error) error {
	var se *backend.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.StatusCode {
	case http.StatusUnauthorized:
		msg := se.Message
		if msg == "" {
			msg = "invalid credentials"
		}
		return apierr.Unauthorized(msg, err)
	case http.StatusForbidden:
		msg := se.Message
		if msg == "" {
			msg = "account disabled"
		}
		return apierr.Forbidden(msg)
	}
	return err
}

func (c *Identity) Profile(ctx context.Context, userID string) (*UserProfile, error) {
	var out struct {
		Success bool         `json:"success"`
		User    *UserProfile `json:"userData"`
	}
	if err := call(ctx, c.src, ServiceIdentity, backend.Request{
		Path: "/v1/users/" + url.PathEscape(userID),
	}, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, apierr.NotFound("user profile not found")
	}
	return out.User, nil
}

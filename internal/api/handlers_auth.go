// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/authz"
	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/validation"
)

// User ids are UUIDs or positive integers.
var userIDPattern = regexp.MustCompile(`^([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}|[1-9][0-9]{0,19})$`)

// Register creates an account on the identity backend.
//
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body clients.RegisterInput true "Account"
// @Success 200 {object} clients.AuthResult
// @Failure 400 {object} ErrorEnvelope
// @Failure 409 {object} ErrorEnvelope
// @Router /api/v1/auth/register [post]
func (router *Router) Register(w http.ResponseWriter, r *http.Request) error {
	var in clients.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Validate(in); err != nil {
		return err
	}

	out, err := router.deps.Accounts.Register(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// Login exchanges credentials for tokens.
//
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body clients.LoginInput true "Credentials"
// @Success 200 {object} clients.AuthResult
// @Failure 400 {object} ErrorEnvelope
// @Router /api/v1/auth/login [post]
func (router *Router) Login(w http.ResponseWriter, r *http.Request) error {
	var in clients.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Validate(in); err != nil {
		return err
	}

	out, err := router.deps.Accounts.Login(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// ValidateToken reports whether a token is valid. An invalid token is a
// 200 with valid=false, not an error.
//
// @Summary Check a token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body clients.TokenCheckInput true "Token"
// @Success 200 {object} clients.TokenStatus
// @Failure 400 {object} ErrorEnvelope
// @Router /api/v1/auth/validate [post]
func (router *Router) ValidateToken(w http.ResponseWriter, r *http.Request) error {
	var in clients.TokenCheckInput
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	in.Token = strings.TrimSpace(in.Token)
	if err := validation.Validate(in); err != nil {
		return err
	}

	out, err := router.deps.Accounts.CheckToken(r.Context(), in.Token)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// Profile returns the caller's profile. The userId query parameter reads
// another account and needs users:manage_any.
//
// @Summary Get a user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Param userId query string false "User id (UUID or number); defaults to the caller"
// @Success 200 {object} clients.UserProfile
// @Failure 400 {object} ErrorEnvelope
// @Failure 401 {object} ErrorEnvelope
// @Failure 403 {object} ErrorEnvelope
// @Router /api/v1/auth/profile [get]
func (router *Router) Profile(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	switch {
	case userID == "" || userID == p.SubjectID:
		userID = p.SubjectID
	case !userIDPattern.MatchString(userID):
		return apierr.Validation("userId must be a valid UUID or positive integer")
	default:
		ok, err := router.deps.Enforcer.Enforce(p.Role, authz.ResourceUsers, authz.ActionManageAny)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("users manage_any check failed")
		}
		if !ok {
			return apierr.Forbidden("cannot read another user's profile")
		}
	}

	out, err := router.deps.Accounts.Profile(r.Context(), userID)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package authz decides whether an authenticated principal may perform an
// action on a resource, using a Casbin RBAC model.
//
// Subjects are roles reported by the identity backend. The embedded policy
// defines user, seller and admin, each inheriting the one before it:
//
//	images:   read, write, delete    (user)
//	products: read                   (user)
//	products: write, orders: read    (seller)
//	*: *                             (admin)
//
// A deployment may replace the model and policy with files.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/stox-gateway/internal/config"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Resources and actions used by the route table.
const (
	ResourceImages   = "images"
	ResourceProducts = "products"
	ResourceOrders   = "orders"
	ResourceUsers    = "users"

	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"

	// ActionManageAny acts on resources owned by other principals.
	ActionManageAny = "manage_any"
)

// Enforcer wraps a synced Casbin enforcer.
type Enforcer struct {
	enforcer    *casbin.SyncedEnforcer
	defaultRole string
}

// NewEnforcer loads the model and policy from cfg, falling back to the
// embedded ones for empty or missing paths.
func NewEnforcer(cfg config.AuthzConfig) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	return &Enforcer{enforcer: enforcer, defaultRole: cfg.DefaultRole}, nil
}

// loadPolicy parses policy CSV lines into the enforcer.
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) >= 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) >= 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object. An empty role
// is treated as the configured default role.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	if role == "" {
		role = e.defaultRole
	}
	allowed, err := e.enforcer.Enforce(strings.ToLower(role), object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package cdn invalidates cached image paths and builds delivery URLs.
package cdn

import (
	"context"
	"strings"
)

// Invalidator is the CDN contract used by uploads and deletes.
type Invalidator interface {
	Invalidate(ctx context.Context, paths []string) error
	URL(key string) string
}

// DeliveryURL returns https://{domain}/{key}.
func DeliveryURL(domain, key string) string {
	return "https://" + strings.TrimRight(domain, "/") + "/" + strings.TrimLeft(key, "/")
}

// NormalizePaths prefixes every path with "/" and drops empties.
func NormalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, p)
	}
	return out
}

// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

const HeaderRequestTimeout = "X-Request-Timeout"

// RequestTimeout bounds every request context by def. A client may shorten
// the deadline with X-Request-Timeout, given as a Go duration ("1500ms")
// or whole milliseconds ("1500"); it can never extend it. Unparseable or
// non-positive values are ignored.
func RequestTimeout(def time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timeout := def
			if d, ok := ParseRequestTimeout(r.Header.Get(HeaderRequestTimeout)); ok && (timeout <= 0 || d < timeout) {
				timeout = d
			}
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseRequestTimeout parses an X-Request-Timeout header value.
func ParseRequestTimeout(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms <= 0 {
			return 0, false
		}
		return time.Duration(ms) * time.Millisecond, true
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

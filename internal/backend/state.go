// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package backend

// State is the connection state of a backend handle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of one backend for diagnostics.
type Status struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Required bool   `json:"required"`
}

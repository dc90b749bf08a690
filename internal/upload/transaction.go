// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package upload

import (
	"fmt"
	"sync"
	"time"
)

// State of an upload transaction.
type State string

const (
	StateReceived    State = "Received"
	StateStored      State = "Stored"
	StateRegistered  State = "Registered"
	StateInvalidated State = "Invalidated"
	StateCompleted   State = "Completed"
	StateFailed      State = "Failed"
	StateCompensated State = "Compensated"
)

// Step is a side effect with its own rollback.
type Step string

const (
	StepStore      Step = "store"
	StepRegister   Step = "register"
	StepInvalidate Step = "invalidate"
)

// transitions lists the forward moves. Every non-terminal state may also
// move to Failed, and Failed only moves to Compensated. Registered may skip
// Invalidated when invalidation is deferred.
var transitions = map[State][]State{
	StateReceived:    {StateStored},
	StateStored:      {StateRegistered},
	StateRegistered:  {StateInvalidated, StateCompleted},
	StateInvalidated: {StateCompleted},
	StateFailed:      {StateCompensated},
}

// Transition is one entry of a transaction's history.
type Transition struct {
	From  State
	To    State
	At    time.Time
	Error string
}

// Transaction tracks one upload through the state machine.
type Transaction struct {
	ID             string
	IdempotencyKey string
	OwnerID        string
	ObjectKey      string
	RegistrationID string

	mu        sync.Mutex
	state     State
	completed []Step
	history   []Transition
	lastErr   error
}

func newTransaction(id, ownerID, idempotencyKey, objectKey string) *Transaction {
	return &Transaction{
		ID:             id,
		IdempotencyKey: idempotencyKey,
		OwnerID:        ownerID,
		ObjectKey:      objectKey,
		state:          StateReceived,
	}
}

func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err is the error that moved the transaction to Failed, if any.
func (t *Transaction) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// CompletedSteps returns the side effects that took place, in order.
func (t *Transaction) CompletedSteps() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Step(nil), t.completed...)
}

// History returns every state change in order.
func (t *Transaction) History() []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Transition(nil), t.history...)
}

// States is History reduced to the visited states, starting at Received.
func (t *Transaction) States() []State {
	h := t.History()
	out := make([]State, 0, len(h)+1)
	out = append(out, StateReceived)
	for _, tr := range h {
		out = append(out, tr.To)
	}
	return out
}

// Done reports whether the transaction reached a terminal state.
func (t *Transaction) Done() bool {
	s := t.State()
	return s == StateCompleted || s == StateCompensated
}

func (t *Transaction) advance(to State, step Step) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !allowed(t.state, to) {
		return fmt.Errorf("invalid upload transition %s -> %s", t.state, to)
	}
	t.history = append(t.history, Transition{From: t.state, To: to, At: time.Now()})
	t.state = to
	if step != "" {
		t.completed = append(t.completed, step)
	}
	return nil
}

func (t *Transaction) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateCompleted || t.state == StateFailed || t.state == StateCompensated {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.history = append(t.history, Transition{From: t.state, To: StateFailed, At: time.Now(), Error: msg})
	t.state = StateFailed
	t.lastErr = err
}

func (t *Transaction) hasCompleted(step Step) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.completed {
		if s == step {
			return true
		}
	}
	return false
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"context"
	"sync"
	"time"
)

// Transaction is the unit of work tracked for a single HTTP request.  All methods
// are safe to call on a nil Transaction, in which case they do nothing.
type Transaction struct {
	lock       sync.Mutex
	category   string
	name       string
	ignored    bool
	statusCode int
	start      time.Time
	end        time.Time
}

// New creates a Transaction with an initial name that started at the given time.
func New(category, name string, start time.Time) *Transaction {
	return &Transaction{
		category: category,
		name:     name,
		start:    start,
	}
}

// SetName replaces the category and name of this transaction.
func (t *Transaction) SetName(category, name string) {
	if t == nil {
		return
	}

	t.lock.Lock()
	t.category = category
	t.name = name
	t.lock.Unlock()
}

// Name returns the category/name pair for this transaction.
func (t *Transaction) Name() string {
	if t == nil {
		return ""
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	switch {
	case len(t.category) == 0:
		return t.name

	case len(t.name) == 0:
		return t.category

	default:
		return t.category + "/" + t.name
	}
}

// Ignore excludes this transaction from error-rate reporting.
func (t *Transaction) Ignore() {
	if t == nil {
		return
	}

	t.lock.Lock()
	t.ignored = true
	t.lock.Unlock()
}

// Ignored reports whether Ignore has been called.
func (t *Transaction) Ignored() bool {
	if t == nil {
		return false
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	return t.ignored
}

// StatusCode is the response code the transaction ended with, or zero if it hasn't ended.
func (t *Transaction) StatusCode() int {
	if t == nil {
		return 0
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	return t.statusCode
}

// Duration is the elapsed time between start and end.  Zero is returned
// for a transaction that hasn't ended.
func (t *Transaction) Duration() time.Duration {
	if t == nil {
		return 0
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	if t.end.IsZero() {
		return 0
	}

	return t.end.Sub(t.start)
}

// End marks this transaction as complete.  Only the first call has any effect.
func (t *Transaction) End(statusCode int, end time.Time) {
	if t == nil {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	if t.end.IsZero() {
		t.statusCode = statusCode
		t.end = end
	}
}

type contextKey struct{}

// With returns a context carrying the given Transaction.
func With(ctx context.Context, t *Transaction) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the Transaction in the given context, or nil.  Since
// Transaction methods are nil-safe, callers need not check the result.
func FromContext(ctx context.Context) *Transaction {
	t, _ := ctx.Value(contextKey{}).(*Transaction)
	return t
}

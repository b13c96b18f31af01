// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/xmidt-org/httpcapture/observe"
)

// DefaultCategory is the category given to transactions that nothing renames.
const DefaultCategory = "Uri"

// Reporter receives each transaction once its request has completed.
type Reporter interface {
	Report(*Transaction, *http.Request)
}

// ReporterFunc is a closure type that implements Reporter.
type ReporterFunc func(*Transaction, *http.Request)

func (rf ReporterFunc) Report(t *Transaction, r *http.Request) { rf(t, r) }

// LoggerReporter writes completed transactions to a structured logger.  Ignored
// transactions are logged only at debug level.
type LoggerReporter struct {
	// Logger is the destination.  If unset, slog.Default() is used.
	Logger *slog.Logger
}

func (lr LoggerReporter) Report(t *Transaction, request *http.Request) {
	logger := lr.Logger
	if logger == nil {
		logger = slog.Default()
	}

	level := slog.LevelInfo
	switch {
	case t.Ignored():
		level = slog.LevelDebug

	case t.StatusCode() >= http.StatusInternalServerError:
		level = slog.LevelError
	}

	logger.LogAttrs(request.Context(), level, "transaction",
		slog.String("name", t.Name()),
		slog.String("method", request.Method),
		slog.Int("status", t.StatusCode()),
		slog.Duration("duration", t.Duration()),
		slog.Bool("ignored", t.Ignored()),
	)
}

type decorator struct {
	next      http.Handler
	now       func() time.Time
	reporters []Reporter
}

func (d *decorator) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	var (
		t  = New(DefaultCategory, request.URL.Path, d.now())
		ow = observe.New(response)
	)

	d.next.ServeHTTP(ow, request.WithContext(With(request.Context(), t)))

	statusCode := ow.StatusCode()
	if statusCode == 0 {
		// net/http writes this implicitly when a handler writes nothing
		statusCode = http.StatusOK
	}

	t.End(statusCode, d.now())

	// the server cancels the request context when the client goes away
	if statusCode >= http.StatusInternalServerError && request.Context().Err() != nil {
		t.Ignore()
	}

	for _, r := range d.reporters {
		r.Report(t, request)
	}
}

// Option is a configurable option for the transaction middleware.
type Option interface {
	apply(*decorator)
}

type optionFunc func(*decorator)

func (of optionFunc) apply(d *decorator) { of(d) }

// WithReporter adds zero or more Reporters.  This option is cumulative.
func WithReporter(r ...Reporter) Option {
	return optionFunc(func(d *decorator) {
		d.reporters = append(d.reporters, r...)
	})
}

// WithClock sets the source of start and end times.  By default, time.Now is used.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(d *decorator) {
		if now != nil {
			d.now = now
		}
	})
}

// Middleware creates a decorator that tracks a Transaction for each request.  The
// Transaction is available to downstream handlers through FromContext, which lets
// them rename it.
//
// When a request ends with a server error (5xx) and the client has already
// disconnected, the Transaction is ignored so that it does not count against error rates.
func Middleware(options ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		d := &decorator{
			next: next,
			now:  time.Now,
		}

		for _, o := range options {
			o.apply(d)
		}

		return d
	}
}

// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package recovery

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/xmidt-org/httpcapture"
)

// OnRecover is a callback that receives information about a recovery object.
// Both the argument passed to panic and the debug stack trace are passed to this closure.
type OnRecover func(r interface{}, stack []byte)

// RecoverBody is a custom closure for writing recovery information.  By default,
// DefaultRecoverBody is used.
type RecoverBody func(w io.Writer, r interface{}, stack []byte)

// DefaultRecoverBody writes only a string representation of r.  Stack traces are
// not sent to clients; use WithLogger or WithOnRecover to record them.
func DefaultRecoverBody(w io.Writer, r interface{}, _ []byte) {
	fmt.Fprintf(w, "%v\n", r)
}

type decorator struct {
	next http.Handler

	header     httpcapture.Header
	body       RecoverBody
	statusCode int
	onRecover  []OnRecover
}

func (d *decorator) writeStatusCode(response http.ResponseWriter, r interface{}) {
	type statusCoder interface {
		StatusCode() int
	}

	sc, ok := r.(statusCoder)
	switch {
	case ok:
		response.WriteHeader(sc.StatusCode())

	case d.statusCode >= 100:
		response.WriteHeader(d.statusCode)

	default:
		response.WriteHeader(http.StatusInternalServerError)
	}
}

func (d *decorator) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if r == http.ErrAbortHandler {
			// net/http's sentinel for aborting a response must keep propagating
			panic(r)
		}

		stack := debug.Stack()
		d.header.SetTo(response.Header())
		d.writeStatusCode(response, r)

		body := d.body
		if body == nil {
			body = DefaultRecoverBody
		}

		body(response, r, stack)
		for _, f := range d.onRecover {
			f(r, stack)
		}
	}()

	d.next.ServeHTTP(response, request)
}

// Option is a configurable option for a recovery decorator.
type Option interface {
	apply(*decorator)
}

type optionFunc func(*decorator)

func (of optionFunc) apply(d *decorator) { of(d) }

// WithOnRecover adds zero or more OnRecover callbacks to the middleware.
func WithOnRecover(f ...OnRecover) Option {
	return optionFunc(func(d *decorator) {
		d.onRecover = append(d.onRecover, f...)
	})
}

// WithLogger adds an OnRecover callback that logs the panic value and stack at error level.
// A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(d *decorator) {
		if l == nil {
			return
		}

		d.onRecover = append(d.onRecover, func(r interface{}, stack []byte) {
			l.Error("recovered from panic",
				slog.Any("panic", r),
				slog.String("stack", string(stack)),
			)
		})
	})
}

// WithRecoverBody sets a custom strategy for writing out recover objects.
func WithRecoverBody(rb RecoverBody) Option {
	return optionFunc(func(d *decorator) {
		d.body = rb
	})
}

// WithStatusCode sets a custom status code to use when a panic occurs.
func WithStatusCode(sc int) Option {
	return optionFunc(func(d *decorator) {
		d.statusCode = sc
	})
}

// WithHeader sets headers to write when a panic occurs.
func WithHeader(h httpcapture.Header) Option {
	return optionFunc(func(d *decorator) {
		d.header = h
	})
}

// Middleware creates a http.Handler decorator that recovers any panics
// from downstream handlers.
//
// By default, http.StatusInternalServerError is written along with the panic value.
// A panic value with a StatusCode() int method overrides the status.  Handlers that
// already wrote the header before panicking keep their original status.
func Middleware(options ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		d := &decorator{
			next: next,
		}

		for _, o := range options {
			o.apply(d)
		}

		return d
	}
}

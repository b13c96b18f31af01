// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package bodylog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/xmidt-org/httpcapture"
	"github.com/xmidt-org/httpcapture/capture"
	"github.com/xmidt-org/httpcapture/observe"
	"github.com/xmidt-org/httpcapture/transaction"
)

// DefaultPath is the request path whose responses are captured when no Matcher is configured.
const DefaultPath = "/api/values"

// RequestIDHeader is the request header consulted for a correlation id.  When absent,
// a random UUID is generated.
const RequestIDHeader = "X-Request-Id"

type decorator struct {
	next     http.Handler
	matcher  httpcapture.Matcher
	sink     Sink
	limit    int
	category string
	name     string
}

func (d *decorator) requestID(request *http.Request) string {
	if id := request.Header.Get(RequestIDHeader); len(id) > 0 {
		return id
	}

	return uuid.NewString()
}

func (d *decorator) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	if !d.matcher.Match(request) {
		d.next.ServeHTTP(response, request)
		return
	}

	var (
		ow     = observe.New(response)
		stream = ow.Capture(capture.WithLimit(d.limit))
		record = Record{
			RequestID: d.requestID(request),
			Method:    request.Method,
			Path:      request.URL.Path,
		}
	)

	defer stream.Release()
	if len(d.category) > 0 || len(d.name) > 0 {
		transaction.FromContext(request.Context()).SetName(d.category, d.name)
	}

	d.next.ServeHTTP(ow, request)

	// waits on any async writes, so the capture is complete.  Flushing here would
	// commit the response before net/http could compute a Content-Length.
	stream.Wait()

	record.StatusCode = ow.StatusCode()
	if record.StatusCode == 0 {
		record.StatusCode = http.StatusOK
	}

	record.Status = observe.Status(record.StatusCode)
	record.Body = stream.DumpData()
	record.Size = ow.ContentLength()
	record.Truncated = stream.Truncated()

	d.sink.Trace(request.Context(), record)
}

// Option is a configurable option for the body logging middleware.
type Option interface {
	apply(*decorator)
}

type optionFunc func(*decorator)

func (of optionFunc) apply(d *decorator) { of(d) }

// WithMatcher sets the predicate that selects which requests have their responses
// captured.  A nil Matcher disables capture entirely.
func WithMatcher(m httpcapture.Matcher) Option {
	return optionFunc(func(d *decorator) {
		d.matcher = m
	})
}

// WithSink sets the destination for captured responses.  A nil Sink restores the default.
func WithSink(s Sink) Option {
	return optionFunc(func(d *decorator) {
		d.sink = s
	})
}

// WithLimit bounds the number of body bytes retained per response.  Zero or
// negative, the default, means unlimited.
func WithLimit(n int) Option {
	return optionFunc(func(d *decorator) {
		d.limit = n
	})
}

// WithTransactionName renames the request's transaction, if any, whenever a
// response is captured.
func WithTransactionName(category, name string) Option {
	return optionFunc(func(d *decorator) {
		d.category = category
		d.name = name
	})
}

// Middleware creates a decorator that captures the response body of matching requests
// and hands it to a Sink once the next handler has returned.
//
// By default, only requests for DefaultPath are captured and records are written to
// LoggerSink using slog.Default().  Requests that do not match are passed to next
// untouched.
func Middleware(options ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		d := &decorator{
			next:    next,
			matcher: httpcapture.PathEquals(DefaultPath),
		}

		for _, o := range options {
			o.apply(d)
		}

		if d.sink == nil {
			d.sink = LoggerSink{}
		}

		return d
	}
}

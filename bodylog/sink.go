// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package bodylog

import (
	"context"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Record is the diagnostic information gathered for one captured response.
type Record struct {
	// RequestID correlates the log lines emitted for the same response.
	RequestID string

	Method string
	Path   string

	// StatusCode is the response code, and Status is the full status line, e.g. "200 OK".
	StatusCode int
	Status     string

	// Body is the captured response body as text.
	Body string

	// Size is the number of bytes written to the response body, which can exceed
	// len(Body) when capture was limited or started late.
	Size int64

	// Truncated is true if the capture limit dropped part of the body.
	Truncated bool
}

// Sink is a diagnostic trace destination for captured responses.
type Sink interface {
	Trace(context.Context, Record)
}

// SinkFunc is a closure type that implements Sink.
type SinkFunc func(context.Context, Record)

func (sf SinkFunc) Trace(ctx context.Context, r Record) { sf(ctx, r) }

// LoggerSink emits two informational log lines per Record, one for the status
// line and one for the body.
type LoggerSink struct {
	// Logger is the destination.  If unset, slog.Default() is used.
	Logger *slog.Logger
}

func (ls LoggerSink) Trace(ctx context.Context, r Record) {
	logger := ls.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("requestID", r.RequestID),
		slog.String("method", r.Method),
		slog.String("path", r.Path),
	)

	logger.LogAttrs(ctx, slog.LevelInfo, "Response Status: "+r.Status,
		slog.Int("status", r.StatusCode),
	)

	logger.LogAttrs(ctx, slog.LevelInfo, "Response Body: "+r.Body,
		slog.String("size", humanize.IBytes(uint64(r.Size))),
		slog.Bool("truncated", r.Truncated),
	)
}

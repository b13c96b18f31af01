// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"
)

// ErrUnsupported is returned when an operation cannot be performed through a Stream.
// Repositioning is always unsupported, since it would desynchronize the capture
// buffer from the underlying writer.  Optional capabilities the underlying writer
// lacks are reported with this error as well.
var ErrUnsupported = fmt.Errorf("capture: %w", errors.ErrUnsupported)

// Flusher is implemented by underlying writers that can flush and report an error.
type Flusher interface {
	Flush() error
}

// Truncater is implemented by underlying writers that can change their length.
// *os.File implements this interface.
type Truncater interface {
	Truncate(int64) error
}

// Lener is implemented by underlying writers that report their length directly.
// *bytes.Buffer implements this interface.
type Lener interface {
	Len() int
}

// simpleFlusher is the http.Flusher style of flushing
type simpleFlusher interface {
	Flush()
}

// WriteCapabler is implemented by underlying writers that can refuse writes, such
// as a body that has already been closed.
type WriteCapabler interface {
	CanWrite() bool
}

var pool bytebufferpool.Pool

// Stream is a write-append-only decorator around an underlying io.Writer.  Every byte
// sequence written to a Stream is appended to an in-memory capture buffer and then
// forwarded to the underlying writer.
//
// A Stream never closes its underlying writer.  A Stream is intended for use by a single
// goroutine, typically the one serving an HTTP request.
type Stream struct {
	underlying io.Writer
	buffer     *bytebufferpool.ByteBuffer
	limit      int
	truncated  bool

	// pending is closed when the most recently issued async forward completes
	pending chan struct{}
}

// Option is a configurable option for a Stream.
type Option interface {
	apply(*Stream)
}

type optionFunc func(*Stream)

func (of optionFunc) apply(s *Stream) { of(s) }

// WithLimit bounds the number of bytes held in the capture buffer.  Bytes beyond
// the limit are still forwarded, but they are not captured and Truncated will report true.
// A limit that is zero or negative means unlimited, which is the default.
func WithLimit(n int) Option {
	return optionFunc(func(s *Stream) {
		s.limit = n
	})
}

// NewStream creates a Stream that forwards to underlying.  The capture buffer starts empty.
func NewStream(underlying io.Writer, options ...Option) *Stream {
	s := &Stream{
		underlying: underlying,
		buffer:     pool.Get(),
	}

	for _, o := range options {
		o.apply(s)
	}

	return s
}

// capture appends p to the buffer, honoring any limit
func (s *Stream) capture(p []byte) {
	if s.buffer == nil || len(p) == 0 {
		return
	}

	if s.limit > 0 {
		remaining := s.limit - s.buffer.Len()
		if remaining < len(p) {
			s.truncated = true
			if remaining <= 0 {
				return
			}

			p = p[:remaining]
		}
	}

	s.buffer.Write(p)
}

// Wait blocks until every async forward issued so far has completed.  Unlike Flush,
// the underlying writer is not touched.
func (s *Stream) Wait() {
	s.wait()
}

func (s *Stream) wait() {
	if s.pending != nil {
		<-s.pending
		s.pending = nil
	}
}

// Write appends p to the capture buffer, then forwards p to the underlying writer.
// The result of the forward is returned as is.
func (s *Stream) Write(p []byte) (int, error) {
	s.capture(p)
	s.wait()
	return s.underlying.Write(p)
}

// WriteString is the io.StringWriter variant of Write.
func (s *Stream) WriteString(v string) (int, error) {
	if s.buffer != nil && (s.limit <= 0 || s.buffer.Len()+len(v) <= s.limit) {
		s.buffer.WriteString(v)
	} else {
		s.capture([]byte(v))
	}

	s.wait()
	return io.WriteString(s.underlying, v)
}

// WriteByte is the single byte variant of Write.
func (s *Stream) WriteByte(c byte) error {
	s.capture([]byte{c})
	s.wait()
	if bw, ok := s.underlying.(io.ByteWriter); ok {
		return bw.WriteByte(c)
	}

	_, err := s.underlying.Write([]byte{c})
	return err
}

// WriteAsync appends p to the capture buffer before returning, then forwards p to the
// underlying writer on another goroutine.  The returned channel receives the result of
// the forward and is then closed.  The caller must not modify p until that result is received.
//
// Forwards happen in the order they were issued, and any subsequent synchronous Write,
// Flush, or Release waits for them.  If ctx is done before the forward starts, the forward
// is skipped and ctx.Err() is delivered.  The captured bytes are not rolled back in that case.
func (s *Stream) WriteAsync(ctx context.Context, p []byte) <-chan error {
	s.capture(p)

	var (
		result = make(chan error, 1)
		prev   = s.pending
		done   = make(chan struct{})
	)

	s.pending = done
	go func() {
		defer close(result)
		defer close(done)
		if prev != nil {
			<-prev
		}

		if err := ctx.Err(); err != nil {
			result <- err
			return
		}

		_, err := s.underlying.Write(p)
		result <- err
	}()

	return result
}

// Read passes through to the underlying writer, if it is also an io.Reader.
// Reads are never captured.
func (s *Stream) Read(p []byte) (int, error) {
	if r, ok := s.underlying.(io.Reader); ok {
		return r.Read(p)
	}

	return 0, ErrUnsupported
}

// CanRead reports whether the underlying writer is also an io.Reader.
func (s *Stream) CanRead() bool {
	_, ok := s.underlying.(io.Reader)
	return ok
}

// CanWrite reports whether the underlying writer accepts writes.  Writers that do
// not implement WriteCapabler are assumed to.
func (s *Stream) CanWrite() bool {
	if wc, ok := s.underlying.(WriteCapabler); ok {
		return wc.CanWrite()
	}

	return true
}

// CanSeek reports whether the underlying writer is an io.Seeker.  Note that the
// Stream itself still refuses to seek.
func (s *Stream) CanSeek() bool {
	_, ok := s.underlying.(io.Seeker)
	return ok
}

// Length returns the length of the underlying writer.  Either Lener or io.Seeker
// is required.  When seeking is used to compute the length, the underlying position
// is restored afterward.
func (s *Stream) Length() (int64, error) {
	switch u := s.underlying.(type) {
	case Lener:
		return int64(u.Len()), nil

	case io.Seeker:
		current, err := u.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}

		end, err := u.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}

		_, err = u.Seek(current, io.SeekStart)
		return end, err

	default:
		return 0, ErrUnsupported
	}
}

// Flush waits for any pending async writes, then flushes the underlying writer
// if it supports flushing.  An underlying writer that cannot flush is not an error.
func (s *Stream) Flush() error {
	s.wait()
	switch u := s.underlying.(type) {
	case Flusher:
		return u.Flush()

	case simpleFlusher:
		u.Flush()
	}

	return nil
}

// Position returns the current position of the underlying writer, which
// must be an io.Seeker.
func (s *Stream) Position() (int64, error) {
	if sk, ok := s.underlying.(io.Seeker); ok {
		return sk.Seek(0, io.SeekCurrent)
	}

	return 0, ErrUnsupported
}

// SetPosition always returns ErrUnsupported.
func (s *Stream) SetPosition(int64) error {
	return ErrUnsupported
}

// Seek always returns ErrUnsupported.  Neither the buffer nor the underlying
// writer is touched.
func (s *Stream) Seek(int64, int) (int64, error) {
	return 0, ErrUnsupported
}

// Truncate sets both the capture buffer and the underlying writer to length n.
// If the buffer is shorter than n, it is extended with zero bytes.  The underlying
// writer must implement Truncater, and it is truncated first.  The buffer is left
// alone if the underlying writer cannot be truncated or fails to.
func (s *Stream) Truncate(n int64) error {
	if n < 0 {
		return fmt.Errorf("capture: negative length %d", n)
	}

	t, ok := s.underlying.(Truncater)
	if !ok {
		return ErrUnsupported
	}

	s.wait()
	if err := t.Truncate(n); err != nil {
		return err
	}

	if s.buffer != nil {
		switch l := int64(s.buffer.Len()); {
		case n < l:
			s.buffer.B = s.buffer.B[:n]

		case n > l:
			s.buffer.B = append(s.buffer.B, make([]byte, n-l)...)
		}
	}

	return nil
}

// DumpData returns the captured bytes as UTF-8 text.  Each byte that is not part of
// a valid UTF-8 sequence is replaced with utf8.RuneError.  This method does not
// modify the buffer.
func (s *Stream) DumpData() string {
	if s.buffer == nil {
		return ""
	}

	if utf8.Valid(s.buffer.B) {
		return s.buffer.String()
	}

	var (
		b    = s.buffer.B
		text strings.Builder
	)

	text.Grow(len(b) + len(b)/2)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		text.WriteRune(r)
		b = b[size:]
	}

	return text.String()
}

// Bytes returns a copy of the captured bytes.
func (s *Stream) Bytes() []byte {
	if s.buffer == nil {
		return nil
	}

	return append([]byte(nil), s.buffer.B...)
}

// Len returns the count of captured bytes.
func (s *Stream) Len() int {
	if s.buffer == nil {
		return 0
	}

	return s.buffer.Len()
}

// Truncated reports whether any bytes were dropped from the capture buffer due to a limit.
func (s *Stream) Truncated() bool {
	return s.truncated
}

// Release waits for any pending async writes and returns the capture buffer to a pool.
// After Release, the Stream still forwards writes but captures nothing.  This method is idempotent.
func (s *Stream) Release() {
	s.wait()
	if s.buffer != nil {
		pool.Put(s.buffer)
		s.buffer = nil
	}
}

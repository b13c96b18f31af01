// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package observe

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/xmidt-org/httpcapture/capture"
)

// OnWriteHeader is a callback that is invoked once a handler either invokes WriteHeader
// or calls Write for the first time.  Note that if a handler never writes to the response
// for any reason, including panicing, these callbacks will not be invoked.
type OnWriteHeader func(int)

// StatusCoder is the interface implemented by an observable http.ResponseWriter.
type StatusCoder interface {
	// StatusCode returns the response code reported through WriteHeader.  Certain
	// methods cause WriteHeader to be called implicitly, with a status of http.StatusOK.
	//
	// If no status code has been written yet, this method returns zero (0).
	StatusCode() int

	// Status returns the HTTP status line for the response, e.g. "200 OK".  If no
	// status code has been written yet, this method returns the empty string.
	Status() string
}

// ResponseBody is the interface implemented by an observable http.ResponseWriter
type ResponseBody interface {
	// ContentLength returns the count of bytes actually written to the response body.
	// It does not consult the Content-Length header.
	ContentLength() int64

	// Capture installs a capture.Stream as a filter in front of the response body, so that
	// every byte subsequently written is also retained in memory.  This method is idempotent:
	// if a stream is already installed, it is returned and the options are ignored.
	//
	// Bytes written before Capture is called are not captured.
	Capture(...capture.Option) *capture.Stream

	// Captured returns the installed capture.Stream, or nil if Capture was never called.
	Captured() *capture.Stream
}

// Writer is the decorator interface for instrumented http.ResponseWriter instances.
// Instances of this interface are created with New to decorate an existing response writer.
type Writer interface {
	http.ResponseWriter
	StatusCoder
	ResponseBody

	// OnWriteHeader appends callbacks that are invoked when WriteHeader is called, whether
	// explicitly or implicitly due to calling methods like Flush.
	//
	// If the status code for the response has already been established, these callbacks
	// are invoked immediately.
	OnWriteHeader(...OnWriteHeader)
}

// Status formats an HTTP status line from a code, in the same form as http.Response.Status.
func Status(code int) string {
	if text := http.StatusText(code); len(text) > 0 {
		return strconv.Itoa(code) + " " + text
	}

	return strconv.Itoa(code)
}

// writer is the basic decorator for an http.ResponseWriter
type writer struct {
	http.ResponseWriter
	headerWritten bool
	onWriteHeader []OnWriteHeader
	statusCode    int
	contentLength int64
	stream        *capture.Stream
}

func (w *writer) StatusCode() int {
	return w.statusCode
}

func (w *writer) Status() string {
	if w.statusCode == 0 {
		return ""
	}

	return Status(w.statusCode)
}

func (w *writer) ContentLength() int64 {
	return w.contentLength
}

func (w *writer) Capture(o ...capture.Option) *capture.Stream {
	if w.stream == nil {
		w.stream = capture.NewStream(bodyWriter{w}, o...)
	}

	return w.stream
}

func (w *writer) Captured() *capture.Stream {
	return w.stream
}

// Unwrap allows http.ResponseController to reach the decorated writer
func (w *writer) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *writer) OnWriteHeader(c ...OnWriteHeader) {
	if w.headerWritten {
		for _, f := range c {
			f(w.statusCode)
		}
	} else {
		w.onWriteHeader = append(w.onWriteHeader, c...)
	}
}

// bodyWriter is the response body as seen by a capture stream.  Every byte reaching
// the response, including async forwards, goes through the same status and length
// bookkeeping as a direct Write.
type bodyWriter struct {
	w *writer
}

func (bw bodyWriter) Write(p []byte) (int, error) {
	if !bw.w.headerWritten {
		// make sure any listener gets invoked properly
		bw.w.WriteHeader(http.StatusOK)
	}

	c, err := bw.w.ResponseWriter.Write(p)
	bw.w.contentLength += int64(c)
	return c, err
}

func (bw bodyWriter) Flush() {
	if f, ok := bw.w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *writer) Write(p []byte) (int, error) {
	if w.stream != nil {
		return w.stream.Write(p)
	}

	return bodyWriter{w}.Write(p)
}

func (w *writer) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.statusCode = statusCode
		for _, f := range w.onWriteHeader {
			f(statusCode)
		}
	}

	// multiple WriteHeader calls is a bug, but we don't want
	// to hide that bug
	w.headerWritten = true
	w.ResponseWriter.WriteHeader(statusCode)
}

type flushWriter struct {
	*writer
}

func (fw flushWriter) Flush() {
	if !fw.headerWritten {
		fw.WriteHeader(http.StatusOK)
	}

	if fw.stream != nil {
		// waits on any pending async writes, then flushes the response
		fw.stream.Flush()
		return
	}

	fw.ResponseWriter.(http.Flusher).Flush()
}

type pushWriter struct {
	*writer
}

func (pw pushWriter) Push(target string, opts *http.PushOptions) error {
	return pw.ResponseWriter.(http.Pusher).Push(target, opts)
}

type hijackWriter struct {
	*writer
}

func (hw hijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return hw.ResponseWriter.(http.Hijacker).Hijack()
}

type readFromWriter struct {
	*writer
}

func (rw readFromWriter) ReadFrom(r io.Reader) (c int64, err error) {
	if !rw.headerWritten {
		rw.WriteHeader(http.StatusOK)
	}

	if rw.stream != nil {
		// the stream deliberately has no ReadFrom, so io.Copy routes every
		// chunk through Stream.Write, which does the length bookkeeping
		return io.Copy(rw.stream, r)
	}

	c, err = rw.ResponseWriter.(io.ReaderFrom).ReadFrom(r)
	rw.contentLength += c
	return
}

const (
	pusher = 1 << iota
	flusher
	hijacker
	readerFrom
)

// decorators maps a bit mask of optional interfaces onto a factory that
// exposes exactly those interfaces
var decorators = [16]func(*writer) Writer{
	// 0000
	func(w *writer) Writer {
		return w
	},
	// 0001
	func(w *writer) Writer {
		return struct {
			*writer
			http.Pusher
		}{w, pushWriter{w}}
	},
	// 0010
	func(w *writer) Writer {
		return struct {
			*writer
			http.Flusher
		}{w, flushWriter{w}}
	},
	// 0011
	func(w *writer) Writer {
		return struct {
			*writer
			http.Flusher
			http.Pusher
		}{w, flushWriter{w}, pushWriter{w}}
	},
	// 0100
	func(w *writer) Writer {
		return struct {
			*writer
			http.Hijacker
		}{w, hijackWriter{w}}
	},
	// 0101
	func(w *writer) Writer {
		return struct {
			*writer
			http.Hijacker
			http.Pusher
		}{w, hijackWriter{w}, pushWriter{w}}
	},
	// 0110
	func(w *writer) Writer {
		return struct {
			*writer
			http.Hijacker
			http.Flusher
		}{w, hijackWriter{w}, flushWriter{w}}
	},
	// 0111
	func(w *writer) Writer {
		return struct {
			*writer
			http.Hijacker
			http.Flusher
			http.Pusher
		}{w, hijackWriter{w}, flushWriter{w}, pushWriter{w}}
	},
	// 1000
	func(w *writer) Writer {
		return struct {
			*writer
			io.ReaderFrom
		}{w, readFromWriter{w}}
	},
	// 1001
	func(w *writer) Writer {
		return struct {
			*writer
			io.ReaderFrom
			http.Pusher
		}{w, readFromWriter{w}, pushWriter{w}}
	},
	// 1010
	func(w *writer) Writer {
		return struct {
			*writer
			io.ReaderFrom
			http.Flusher
		}{w, readFromWriter{w}, flushWriter{w}}
	},
	// 1011
	func(w *writer) Writer {
		return struct {
			*writer
			io.ReaderFrom
			http.Flusher
			http.Pusher
		}{w, readFromWriter{w}, flushWriter{w}, pushWriter{w}}
	},
	// 1100
	func(w *writer) Writer {
		return struct {
			*writer
			io.ReaderFrom
			http.Hijacker
		}{w, readFromWriter{w}, hijackWriter{w}}
	},
	// 1101
	func(w *writer) Writer {
		return struct {
			*writer
			io.ReaderFrom
			http.Hijacker
			http.Pusher
		}{w, readFromWriter{w}, hijackWriter{w}, pushWriter{w}}
	},
	// 1110
	func(w *writer) Writer {
		return struct {
			*writer
			io.ReaderFrom
			http.Hijacker
			http.Flusher
		}{w, readFromWriter{w}, hijackWriter{w}, flushWriter{w}}
	},
	// 1111
	func(w *writer) Writer {
		return struct {
			*writer
			io.ReaderFrom
			http.Hijacker
			http.Flusher
			http.Pusher
		}{w, readFromWriter{w}, hijackWriter{w}, flushWriter{w}, pushWriter{w}}
	},
}

// New decorates an http.ResponseWriter to produce a Writer.
// If the delegate is already a Writer, it is returned as is.
//
// The returned Writer implements the same optional net/http interfaces as the delegate,
// from among http.Pusher, http.Flusher, http.Hijacker, and io.ReaderFrom.
func New(delegate http.ResponseWriter) Writer {
	if ow, ok := delegate.(Writer); ok {
		return ow
	}

	w := &writer{
		ResponseWriter: delegate,
	}

	mask := 0
	if _, ok := delegate.(http.Pusher); ok {
		mask |= pusher
	}

	if _, ok := delegate.(http.Flusher); ok {
		mask |= flusher
	}

	if _, ok := delegate.(http.Hijacker); ok {
		mask |= hijacker
	}

	if _, ok := delegate.(io.ReaderFrom); ok {
		mask |= readerFrom
	}

	return decorators[mask](w)
}

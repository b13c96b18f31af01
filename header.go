// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package httpcapture

import (
	"net/http"
	"sort"
)

// Header is a preprocessed, immutable list of HTTP headers that is cheap to
// apply to many responses.  Names are held in canonical form and in sorted order.
type Header struct {
	names  []string
	values [][]string
}

func newHeader(v http.Header) Header {
	if len(v) == 0 {
		return Header{}
	}

	h := Header{
		names:  make([]string, 0, len(v)),
		values: make([][]string, 0, len(v)),
	}

	canonical := make(http.Header, len(v))
	for name, values := range v {
		key := http.CanonicalHeaderKey(name)
		canonical[key] = append(canonical[key], values...)
	}

	for name := range canonical {
		h.names = append(h.names, name)
	}

	sort.Strings(h.names)
	for _, name := range h.names {
		h.values = append(h.values, canonical[name])
	}

	return h
}

// NewHeader creates a Header from an http.Header.  The given http.Header is not retained.
func NewHeader(v http.Header) Header {
	return newHeader(v)
}

// NewHeaderFromMap creates a Header from a simple map of single-valued headers.
// This is the form headers take in configuration files.
func NewHeaderFromMap(v map[string]string) Header {
	h := make(http.Header, len(v))
	for name, value := range v {
		h.Add(name, value)
	}

	return newHeader(h)
}

// NewHeaders interprets v as alternating name/value pairs.  Duplicate names
// produce multivalued headers.  If v has an odd length, the last name gets a blank value.
func NewHeaders(v ...string) Header {
	h := make(http.Header, len(v)/2+1)

	var i, j int
	for i, j = 0, 1; j < len(v); i, j = i+2, j+2 {
		h.Add(v[i], v[j])
	}

	if i < len(v) {
		h.Add(v[i], "")
	}

	return newHeader(h)
}

// Len returns the number of distinct header names.
func (h Header) Len() int {
	return len(h.names)
}

// SetTo overwrites headers in the destination with the ones defined by
// this Header.
func (h Header) SetTo(dst http.Header) {
	for i, name := range h.names {
		dst[name] = append([]string(nil), h.values[i]...)
	}
}

// Then is a server middleware that sets these headers on every response before
// invoking next.  If this Header is empty, next is returned as is.
func (h Header) Then(next http.Handler) http.Handler {
	if len(h.names) == 0 {
		return next
	}

	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		// have to set headers first, as the next handler will likely invoke WriteHeader or Write
		h.SetTo(response.Header())
		next.ServeHTTP(response, request)
	})
}

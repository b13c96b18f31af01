// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"
	"strconv"

	"github.com/xmidt-org/httpcapture"
	"github.com/xmidt-org/httpcapture/internal/config"
)

// endpoint serves the fixed response described by a configured [[endpoints]] entry.
// Everything, including the entity headers, is computed once up front.
type endpoint struct {
	status int
	header httpcapture.Header
	body   []byte
}

func newEndpoint(e config.Endpoint) *endpoint {
	h := make(http.Header, len(e.Headers)+2)
	for name, value := range e.Headers {
		h.Set(name, value)
	}

	// the configured body determines the entity headers, overriding any configured ones
	if len(e.Body) > 0 {
		h.Set("Content-Length", strconv.Itoa(len(e.Body)))
		if len(e.ContentType) > 0 {
			h.Set("Content-Type", e.ContentType)
		}
	}

	return &endpoint{
		status: e.Status,
		header: httpcapture.NewHeader(h),
		body:   []byte(e.Body),
	}
}

func (ep *endpoint) ServeHTTP(response http.ResponseWriter, _ *http.Request) {
	ep.header.SetTo(response.Header())

	// an unset status falls through to net/http's implicit 200
	if ep.status > 0 {
		response.WriteHeader(ep.status)
	}

	if len(ep.body) > 0 {
		response.Write(ep.body)
	}
}

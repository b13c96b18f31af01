// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package httpcapture

import (
	"net/http"
	"strings"
)

// ServerMiddleware represents a bundle of decorators for HTTP handlers.
// justinas/alice.Chain implements this interface.
type ServerMiddleware interface {
	Then(http.Handler) http.Handler
}

// Matcher is a predicate that selects requests for special handling, such as
// capturing the response body.  A nil Matcher matches nothing.
type Matcher func(*http.Request) bool

// Match invokes this Matcher, treating nil as a Matcher that never matches.
func (m Matcher) Match(request *http.Request) bool {
	return m != nil && m(request)
}

// PathEquals matches requests whose URL path is exactly one of the given paths.
func PathEquals(paths ...string) Matcher {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}

	return func(request *http.Request) bool {
		return set[request.URL.Path]
	}
}

// PathPrefix matches requests whose URL path starts with any of the given prefixes.
func PathPrefix(prefixes ...string) Matcher {
	prefixes = append([]string(nil), prefixes...)
	return func(request *http.Request) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(request.URL.Path, p) {
				return true
			}
		}

		return false
	}
}

// Any matches a request if at least one of the given matchers does.  Nil matchers are skipped.
func Any(matchers ...Matcher) Matcher {
	matchers = append([]Matcher(nil), matchers...)
	return func(request *http.Request) bool {
		for _, m := range matchers {
			if m.Match(request) {
				return true
			}
		}

		return false
	}
}

// Never returns a Matcher that matches no request.
func Never() Matcher {
	return func(*http.Request) bool { return false }
}

// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package observe

import "net/http"

type observableHandler struct {
	next http.Handler
}

func (oh observableHandler) ServeHTTP(response http.ResponseWriter, request *http.Request) {
	oh.next.ServeHTTP(
		New(response),
		request,
	)
}

// Then is a serverside middleware that ensures the next handler sees
// an observable Writer in its ServeHTTP method.  This function is idempotent.
func Then(next http.Handler) http.Handler {
	if _, ok := next.(observableHandler); ok {
		return next
	}

	return observableHandler{
		next: next,
	}
}

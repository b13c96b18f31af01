// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package observe decorates http.ResponseWriter objects so that the status, size, and
optionally the full body of a response can be examined once a handler has finished.

Body capture is opt-in per request:  Writer.Capture installs a capture.Stream in front
of the response body, much like swapping in an output filter.
*/
package observe

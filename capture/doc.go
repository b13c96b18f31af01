// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package capture implements a tee-style stream that mirrors every byte written
through it into an in-memory buffer while forwarding the same bytes, unchanged,
to an underlying writer.

The primary use is capturing an HTTP response body so that it can be logged
after the response has been written.  See the observe and bodylog packages for
the HTTP integration.
*/
package capture

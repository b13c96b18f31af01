// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package bodylog implements server middleware that captures response bodies for
selected requests and writes them, along with the response status line, to a
diagnostic sink after the response is complete.

Capturing is installed before the next handler runs and read only after it returns,
so handlers need no knowledge of it.
*/
package bodylog

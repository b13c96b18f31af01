// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package transaction provides lightweight, APM-style transaction tracking for HTTP servers.

Each request gets a Transaction that downstream code may rename, and that is excluded
from error reporting when a server error is caused by a client that has already gone away.
*/
package transaction

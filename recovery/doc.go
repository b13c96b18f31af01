// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package recovery implements an http.Handler that recovers from panics, turning them
into server error responses that the rest of the pipeline can observe and log.
*/
package recovery

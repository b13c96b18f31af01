// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package bodylog

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Trace(ctx context.Context, r Record) {
	m.Called(ctx, r)
}

func (m *mockSink) ExpectTrace(r Record) *mock.Call {
	return m.On("Trace", mock.Anything, r)
}

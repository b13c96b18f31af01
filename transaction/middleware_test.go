// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package transaction

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MiddlewareSuite struct {
	suite.Suite

	now      time.Time
	reported []*Transaction
}

func (suite *MiddlewareSuite) SetupTest() {
	suite.now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.reported = nil
}

// clock advances by one second on every call
func (suite *MiddlewareSuite) clock() time.Time {
	suite.now = suite.now.Add(time.Second)
	return suite.now
}

func (suite *MiddlewareSuite) reporter() Reporter {
	return ReporterFunc(func(t *Transaction, _ *http.Request) {
		suite.reported = append(suite.reported, t)
	})
}

func (suite *MiddlewareSuite) serve(next http.Handler, request *http.Request) *httptest.ResponseRecorder {
	decorated := Middleware(
		WithClock(suite.clock),
		WithReporter(suite.reporter()),
	)(next)

	suite.Require().NotNil(decorated)
	response := httptest.NewRecorder()
	decorated.ServeHTTP(response, request)
	return response
}

func (suite *MiddlewareSuite) TestDefaultName() {
	response := suite.serve(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
		httptest.NewRequest("GET", "/test", nil),
	)

	suite.Equal(http.StatusOK, response.Code)
	suite.Require().Len(suite.reported, 1)

	t := suite.reported[0]
	suite.Equal("Uri//test", t.Name())
	suite.Equal(http.StatusOK, t.StatusCode())
	suite.Equal(time.Second, t.Duration())
	suite.False(t.Ignored())
}

func (suite *MiddlewareSuite) TestRenamedDownstream() {
	suite.serve(
		http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
			FromContext(request.Context()).SetName("Api", "Values")
			response.WriteHeader(http.StatusCreated)
		}),
		httptest.NewRequest("GET", "/api/values", nil),
	)

	suite.Require().Len(suite.reported, 1)
	suite.Equal("Api/Values", suite.reported[0].Name())
	suite.Equal(http.StatusCreated, suite.reported[0].StatusCode())
}

func (suite *MiddlewareSuite) TestServerErrorClientConnected() {
	suite.serve(
		http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
			response.WriteHeader(http.StatusInternalServerError)
		}),
		httptest.NewRequest("GET", "/", nil),
	)

	suite.Require().Len(suite.reported, 1)
	suite.False(suite.reported[0].Ignored())
}

func (suite *MiddlewareSuite) TestServerErrorClientDisconnected() {
	for _, statusCode := range []int{http.StatusInternalServerError, http.StatusBadGateway} {
		suite.reported = nil
		ctx, cancel := context.WithCancel(context.Background())
		suite.serve(
			http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
				// the client hangs up while the handler is running
				cancel()
				response.WriteHeader(statusCode)
			}),
			httptest.NewRequest("GET", "/", nil).WithContext(ctx),
		)

		suite.Require().Len(suite.reported, 1)
		suite.True(suite.reported[0].Ignored())
		suite.Equal(statusCode, suite.reported[0].StatusCode())
	}
}

func (suite *MiddlewareSuite) TestSuccessClientDisconnected() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite.serve(
		http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
			response.WriteHeader(http.StatusNotFound)
		}),
		httptest.NewRequest("GET", "/", nil).WithContext(ctx),
	)

	suite.Require().Len(suite.reported, 1)
	suite.False(suite.reported[0].Ignored())
}

func (suite *MiddlewareSuite) TestLoggerReporter() {
	var (
		output bytes.Buffer
		logger = slog.New(slog.NewJSONHandler(&output, &slog.HandlerOptions{Level: slog.LevelDebug}))

		request = httptest.NewRequest("GET", "/api/values", nil)
		t       = New("Api", "Values", time.Now())
	)

	t.End(http.StatusInternalServerError, time.Now())
	LoggerReporter{Logger: logger}.Report(t, request)

	var record map[string]interface{}
	suite.Require().NoError(json.Unmarshal(output.Bytes(), &record))
	suite.Equal("ERROR", record["level"])
	suite.Equal("transaction", record["msg"])
	suite.Equal("Api/Values", record["name"])
	suite.Equal("GET", record["method"])
	suite.Equal(float64(500), record["status"])
	suite.Equal(false, record["ignored"])

	output.Reset()
	t.Ignore()
	LoggerReporter{Logger: logger}.Report(t, request)
	suite.Require().NoError(json.Unmarshal(output.Bytes(), &record))
	suite.Equal("DEBUG", record["level"])
	suite.Equal(true, record["ignored"])
}

func TestMiddleware(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

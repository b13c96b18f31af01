// SPDX-FileCopyrightText: 2024 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package bodylog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/xmidt-org/httpcapture"
	"github.com/xmidt-org/httpcapture/observe"
	"github.com/xmidt-org/httpcapture/transaction"
)

const valuesJSON = `["value1","value2"]`

// writeText writes body without setting a Content-Length
func writeText(body string) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
		response.Write([]byte(body))
	})
}

type MiddlewareSuite struct {
	suite.Suite
	records []Record
	values  http.Handler
}

func (suite *MiddlewareSuite) SetupTest() {
	suite.records = nil
	suite.values = http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
		response.Header().Set("Content-Type", "application/json; charset=utf-8")
		response.Write([]byte(valuesJSON))
	})
}

func (suite *MiddlewareSuite) sink() Sink {
	return SinkFunc(func(_ context.Context, r Record) {
		suite.records = append(suite.records, r)
	})
}

func (suite *MiddlewareSuite) serve(decorated http.Handler, request *http.Request) *httptest.ResponseRecorder {
	suite.Require().NotNil(decorated)
	response := httptest.NewRecorder()
	decorated.ServeHTTP(response, request)
	return response
}

func (suite *MiddlewareSuite) TestDefaultPath() {
	var (
		decorated = Middleware(WithSink(suite.sink()))(suite.values)
		response  = suite.serve(decorated, httptest.NewRequest("GET", DefaultPath, nil))
	)

	suite.Equal(http.StatusOK, response.Code)
	suite.JSONEq(`["value1","value2"]`, response.Body.String())

	suite.Require().Len(suite.records, 1)
	r := suite.records[0]
	suite.Equal("GET", r.Method)
	suite.Equal(DefaultPath, r.Path)
	suite.Equal(http.StatusOK, r.StatusCode)
	suite.Equal("200 OK", r.Status)
	suite.Equal(response.Body.String(), r.Body)
	suite.Equal(int64(response.Body.Len()), r.Size)
	suite.False(r.Truncated)

	_, err := uuid.Parse(r.RequestID)
	suite.NoError(err)
}

func (suite *MiddlewareSuite) TestNotMatched() {
	var (
		recorder = httptest.NewRecorder()
		next     = http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
			// nothing is decorated for requests that aren't captured
			suite.Same(recorder, response)
			response.Write([]byte("untouched"))
		})

		decorated = Middleware(WithSink(suite.sink()))(next)
	)

	decorated.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/values/1", nil))
	suite.Equal("untouched", recorder.Body.String())
	suite.Empty(suite.records)
}

func (suite *MiddlewareSuite) TestNilMatcher() {
	decorated := Middleware(WithMatcher(nil), WithSink(suite.sink()))(suite.values)
	response := suite.serve(decorated, httptest.NewRequest("GET", DefaultPath, nil))
	suite.Equal(http.StatusOK, response.Code)
	suite.Empty(suite.records)
}

func (suite *MiddlewareSuite) TestCustomMatcher() {
	var (
		next = http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
			response.WriteHeader(http.StatusTeapot)
			response.Write([]byte("ab"))
			response.Write([]byte("cd"))
		})

		decorated = Middleware(
			WithMatcher(httpcapture.PathPrefix("/debug/")),
			WithSink(suite.sink()),
		)(next)
	)

	suite.serve(decorated, httptest.NewRequest("POST", "/debug/thing", nil))
	suite.serve(decorated, httptest.NewRequest("POST", DefaultPath, nil))

	suite.Require().Len(suite.records, 1)
	suite.Equal("/debug/thing", suite.records[0].Path)
	suite.Equal("POST", suite.records[0].Method)
	suite.Equal(http.StatusTeapot, suite.records[0].StatusCode)
	suite.Equal("418 I'm a teapot", suite.records[0].Status)
	suite.Equal("abcd", suite.records[0].Body)
}

func (suite *MiddlewareSuite) TestRequestIDHeader() {
	request := httptest.NewRequest("GET", DefaultPath, nil)
	request.Header.Set(RequestIDHeader, "expected-id")

	suite.serve(Middleware(WithSink(suite.sink()))(suite.values), request)
	suite.Require().Len(suite.records, 1)
	suite.Equal("expected-id", suite.records[0].RequestID)
}

func (suite *MiddlewareSuite) TestEmptyResponse() {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	suite.serve(Middleware(WithSink(suite.sink()))(next), httptest.NewRequest("GET", DefaultPath, nil))

	suite.Require().Len(suite.records, 1)
	suite.Equal(http.StatusOK, suite.records[0].StatusCode)
	suite.Equal("200 OK", suite.records[0].Status)
	suite.Empty(suite.records[0].Body)
	suite.Zero(suite.records[0].Size)
}

func (suite *MiddlewareSuite) TestLimit() {
	body := strings.Repeat("x", 100)
	next := writeText(body)

	response := suite.serve(
		Middleware(WithSink(suite.sink()), WithLimit(10))(next),
		httptest.NewRequest("GET", DefaultPath, nil),
	)

	suite.Equal(body, response.Body.String())
	suite.Require().Len(suite.records, 1)
	suite.Equal(body[:10], suite.records[0].Body)
	suite.Equal(int64(100), suite.records[0].Size)
	suite.True(suite.records[0].Truncated)
}

func (suite *MiddlewareSuite) TestAsyncWrites() {
	next := http.HandlerFunc(func(response http.ResponseWriter, _ *http.Request) {
		stream := response.(observe.Writer).Captured()
		suite.Require().NotNil(stream)
		stream.WriteAsync(context.Background(), []byte("async"))
	})

	response := suite.serve(Middleware(WithSink(suite.sink()))(next), httptest.NewRequest("GET", DefaultPath, nil))
	suite.Equal(http.StatusOK, response.Code)
	suite.Equal("async", response.Body.String())
	suite.False(response.Flushed)

	suite.Require().Len(suite.records, 1)
	suite.Equal(http.StatusOK, suite.records[0].StatusCode)
	suite.Equal("async", suite.records[0].Body)
	suite.Equal(int64(5), suite.records[0].Size)
}

func (suite *MiddlewareSuite) TestWireUnchanged() {
	get := func(h http.Handler) (*http.Response, string) {
		server := httptest.NewServer(h)
		defer server.Close()

		response, err := http.Get(server.URL + DefaultPath)
		suite.Require().NoError(err)
		defer response.Body.Close()

		body, err := io.ReadAll(response.Body)
		suite.Require().NoError(err)
		return response, string(body)
	}

	var (
		plain, plainBody       = get(writeText("hello"))
		captured, capturedBody = get(Middleware(WithSink(suite.sink()))(writeText("hello")))
	)

	suite.Equal(int64(5), plain.ContentLength)
	suite.Equal(plain.ContentLength, captured.ContentLength)
	suite.Equal(plain.TransferEncoding, captured.TransferEncoding)
	suite.Equal(plain.Header.Get("Content-Length"), captured.Header.Get("Content-Length"))
	suite.Equal(plainBody, capturedBody)

	suite.Require().Len(suite.records, 1)
	suite.Equal("hello", suite.records[0].Body)
}

func (suite *MiddlewareSuite) TestTransactionName() {
	var names []string
	decorated := transaction.Middleware(
		transaction.WithReporter(transaction.ReporterFunc(func(t *transaction.Transaction, _ *http.Request) {
			names = append(names, t.Name())
		})),
	)(
		Middleware(
			WithSink(suite.sink()),
			WithTransactionName("Api", "Values"),
		)(suite.values),
	)

	suite.serve(decorated, httptest.NewRequest("GET", DefaultPath, nil))
	suite.serve(decorated, httptest.NewRequest("GET", "/other", nil))
	suite.Equal([]string{"Api/Values", "Uri//other"}, names)
	suite.Len(suite.records, 1)
}

func (suite *MiddlewareSuite) TestSinkCalledOnce() {
	var (
		sink      = new(mockSink)
		decorated = Middleware(WithSink(sink))(suite.values)
		request   = httptest.NewRequest("PUT", DefaultPath, nil)
	)

	request.Header.Set(RequestIDHeader, "abc")
	sink.ExpectTrace(Record{
		RequestID:  "abc",
		Method:     "PUT",
		Path:       DefaultPath,
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       valuesJSON,
		Size:       int64(len(valuesJSON)),
	}).Once()

	suite.serve(decorated, request)
	sink.AssertExpectations(suite.T())
}

func TestMiddleware(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

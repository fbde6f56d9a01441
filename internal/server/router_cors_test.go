package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPreflightAllowsDashboardOrigin(testContext *testing.T) {
	handler, _ := newTestHandler(testContext)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodOptions, "/reviews", http.NoBody)
	request.Header.Set("Origin", "http://localhost:3000")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		testContext.Fatalf("unexpected preflight status: %d", recorder.Code)
	}
	if allowOrigin := recorder.Header().Get("Access-Control-Allow-Origin"); allowOrigin != "*" {
		testContext.Fatalf("unexpected allow origin: %q", allowOrigin)
	}
}

func TestResponsesCarryRequestID(testContext *testing.T) {
	handler, _ := newTestHandler(testContext)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/reviews?city=Mumbai", http.NoBody)
	handler.ServeHTTP(recorder, request)

	if recorder.Header().Get("X-Request-ID") == "" {
		testContext.Fatalf("expected generated request id header")
	}

	echoRecorder := httptest.NewRecorder()
	echoRequest := httptest.NewRequest(http.MethodGet, "/reviews?city=Mumbai", http.NoBody)
	echoRequest.Header.Set("X-Request-ID", "caller-supplied")
	handler.ServeHTTP(echoRecorder, echoRequest)

	if got := echoRecorder.Header().Get("X-Request-ID"); got != "caller-supplied" {
		testContext.Fatalf("expected request id echo, got %q", got)
	}
}

// Package testutil provides shared test fixtures: synthetic helix roads,
// a small fitter configuration and HTTP helpers for the diagnostics routes.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// LoopbackAddr is the RemoteAddr of requests built by Serve. The debug
// routes only answer loopback callers.
const LoopbackAddr = "127.0.0.1:40000"

// Serve sends a body-less request to h from LoopbackAddr and returns the
// recorded response.
func Serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = LoopbackAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// MustGet issues a GET through Serve and fails the test unless it returns
// 200.
func MustGet(t testing.TB, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := Serve(h, http.MethodGet, target)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s: status = %d, want %d; body: %s", target, rec.Code, http.StatusOK, rec.Body.String())
	}
	return rec
}

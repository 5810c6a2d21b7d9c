// Package testutil provides shared helpers for Healora tests: a controllable
// clock and JSON request helpers for the HTTP API.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/Healora/internal/models"
)

// Clock is a manually advanced time source. Its Now method can be passed to any WithClock option.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// DoJSON sends a request with an optional raw JSON body through h and decodes the
// APIResponse envelope.
func DoJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode JSON response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertAPIStatus checks the envelope status field.
func AssertAPIStatus(t *testing.T, resp models.APIResponse, expected models.APIStatus, context string) {
	t.Helper()
	if resp.Status != string(expected) {
		t.Errorf("%s: expected API status %q, got %q (message: %q)", context, expected, resp.Status, resp.Message)
	}
}

// ResultMap returns the envelope result as a JSON object, failing the test otherwise.
func ResultMap(t *testing.T, resp models.APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object result, got %#v", resp.Result)
	}
	return m
}

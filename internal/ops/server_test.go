package ops

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func doRequest(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	api := New(ReadyProbe{}, "test-version")
	rr := doRequest(t, api.Handler(), "/healthz")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeJSON(t, rr)
	if body["status"] != "ok" || body["version"] != "test-version" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyzWithoutDB(t *testing.T) {
	api := New(ReadyProbe{}, "test")
	rr := doRequest(t, api.Handler(), "/readyz")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeJSON(t, rr); body["status"] != "ready" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyzUnreachableDB(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	api := New(ReadyProbe{DB: db}, "test")
	rr := doRequest(t, api.Handler(), "/readyz")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeJSON(t, rr); body["status"] != "not_ready" {
		t.Fatalf("body = %v", body)
	}
}

func TestUnknownPath(t *testing.T) {
	api := New(ReadyProbe{}, "test")
	if rr := doRequest(t, api.Handler(), "/nope"); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := RateLimit(next, 2, 1)

	for i := 0; i < 2; i++ {
		if rr := doRequest(t, h, "/healthz"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}
	if rr := doRequest(t, h, "/healthz"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("over-burst status = %d", rr.Code)
	}
}

func TestRateLimitPerIP(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := RateLimit(next, 1, 1)

	if rr := doRequest(t, h, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("first ip: status = %d", rr.Code)
	}
	if rr := doRequest(t, h, "/healthz"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("first ip over burst: status = %d", rr.Code)
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("second ip: status = %d", rr.Code)
	}
}

func TestClientIPForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("remote addr ip = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("forwarded ip = %q", got)
	}
}

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServer_Ping(t *testing.T) {
	server := NewServer(testConfig(), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/ping", nil)
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestServer_HealthMemoryMode(t *testing.T) {
	server := NewServer(testConfig(), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/health", nil)
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["db"] != "memory" {
		t.Errorf("db = %v, want memory", resp["db"])
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	server := NewServer(testConfig(), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/nope", nil)
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

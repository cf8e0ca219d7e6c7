package graph

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, callCount *atomic.Int32, token string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount != nil {
			callCount.Add(1)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.FormValue("grant_type") != "client_credentials" {
			t.Errorf("grant_type: got %q, want %q", r.FormValue("grant_type"), "client_credentials")
		}
		if r.FormValue("scope") != graphScope {
			t.Errorf("scope: got %q, want %q", r.FormValue("scope"), graphScope)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: token,
			ExpiresIn:   3600,
			TokenType:   "Bearer",
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTokenCache_AcquiresToken(t *testing.T) {
	t.Parallel()

	server := newTokenServer(t, nil, "test-access-token")
	tc := newTokenCache(server.URL, "client", "secret", server.Client())

	token, err := tc.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "test-access-token" {
		t.Errorf("token: got %q, want %q", token, "test-access-token")
	}
}

func TestTokenCache_CachesToken(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	server := newTokenServer(t, &callCount, "cached-token")
	tc := newTokenCache(server.URL, "client", "secret", server.Client())

	for i := 0; i < 3; i++ {
		if _, err := tc.Token(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := callCount.Load(); got != 1 {
		t.Errorf("token endpoint calls: got %d, want 1", got)
	}
}

func TestTokenCache_ForceRefresh(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	server := newTokenServer(t, &callCount, "fresh-token")
	tc := newTokenCache(server.URL, "client", "secret", server.Client())

	if _, err := tc.Token(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tc.ForceRefresh(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := callCount.Load(); got != 2 {
		t.Errorf("token endpoint calls: got %d, want 2", got)
	}
}

func TestTokenCache_ExpiredTokenRefreshed(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	server := newTokenServer(t, &callCount, "short-lived")
	tc := newTokenCache(server.URL, "client", "secret", server.Client())

	if _, err := tc.Token(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Push the expiry into the past; the next call must hit the endpoint.
	tc.mu.Lock()
	tc.expiresAt = time.Now().Add(-time.Minute)
	tc.mu.Unlock()

	if _, err := tc.Token(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := callCount.Load(); got != 2 {
		t.Errorf("token endpoint calls: got %d, want 2", got)
	}
}

func TestTokenCache_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	tc := newTokenCache(server.URL, "client", "secret", server.Client())

	if _, err := tc.Token(); err == nil {
		t.Fatal("expected error from failing token endpoint")
	}
}

func TestTokenCache_EmptyAccessToken(t *testing.T) {
	t.Parallel()

	server := newTokenServer(t, nil, "")
	tc := newTokenCache(server.URL, "client", "secret", server.Client())

	if _, err := tc.Token(); err == nil {
		t.Fatal("expected error for empty access_token")
	}
}

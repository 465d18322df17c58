package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sahabat/chatapi"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"081234567890", "+6281234567890"},
		{"81234567890", "+6281234567890"},
		{"6281234567890", "+6281234567890"},
		{"+6281234567890", "+6281234567890"},
		{"0812 3456 7890", "+6281234567890"},
		{"0812-3456-7890", "+6281234567890"},
		{"", ""},
	}

	for _, test := range tests {
		if got := NormalizePhone(test.input); got != test.expected {
			t.Errorf("NormalizePhone(%q): expected %q, got %q", test.input, test.expected, got)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStoreAt(filepath.Join(t.TempDir(), "session.json"))
}

func TestSignInStoresSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.String())
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("Expected apikey header, got %q", r.Header.Get("apikey"))
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["phone"] != "+6281234567890" || body["password"] != "123456" {
			t.Errorf("Unexpected credentials: %v", body)
		}

		fmt.Fprint(w, `{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"user":{"id":"u-1","phone":"6281234567890"}}`)
	}))
	defer server.Close()

	store := newTestStore(t)
	c, err := NewClient(server.URL, "anon-key", store)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	session, err := c.SignIn(context.Background(), "081234567890", "123456")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if session.AccessToken != "at-1" || session.User.ID != "u-1" {
		t.Errorf("Unexpected session: %+v", session)
	}

	// A fresh client picks the session up from disk.
	c2, err := NewClient(server.URL, "anon-key", store)
	if err != nil {
		t.Fatalf("Failed to create second client: %v", err)
	}
	token, err := c2.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token != "at-1" {
		t.Errorf("Expected persisted token, got %q", token)
	}
}

func TestSignInErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "anon-key", newTestStore(t))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = c.SignIn(context.Background(), "0812", "000000")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "Invalid login credentials") {
		t.Errorf("Expected server message in error, got %q", err.Error())
	}
}

func TestTokenWithoutSession(t *testing.T) {
	c, err := NewClient("http://unused", "anon-key", newTestStore(t))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := c.Token(); err != chatapi.ErrNotAuthenticated {
		t.Errorf("Expected ErrNotAuthenticated, got %v", err)
	}
}

func TestTokenRefreshesExpiredSession(t *testing.T) {
	var refreshed bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "refresh_token" {
			t.Errorf("Expected refresh grant, got %q", r.URL.Query().Get("grant_type"))
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "rt-old" {
			t.Errorf("Unexpected refresh token: %q", body["refresh_token"])
		}
		refreshed = true
		fmt.Fprint(w, `{"access_token":"at-new","refresh_token":"rt-new","expires_in":3600}`)
	}))
	defer server.Close()

	store := newTestStore(t)
	expired := &Session{
		AccessToken:  "at-old",
		RefreshToken: "rt-old",
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
	}
	if err := store.Save(expired); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	c, err := NewClient(server.URL, "anon-key", store)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	token, err := c.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if !refreshed || token != "at-new" {
		t.Errorf("Expected refreshed token, got %q (refreshed=%v)", token, refreshed)
	}

	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to load persisted session: %v", err)
	}
	if persisted.RefreshToken != "rt-new" {
		t.Errorf("Expected rotated refresh token on disk, got %q", persisted.RefreshToken)
	}
}

func TestSignOutClearsSession(t *testing.T) {
	var loggedOut bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			loggedOut = true
			if r.Header.Get("Authorization") != "Bearer at-1" {
				t.Errorf("Expected bearer on logout, got %q", r.Header.Get("Authorization"))
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fmt.Fprint(w, `{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600}`)
	}))
	defer server.Close()

	store := newTestStore(t)
	c, err := NewClient(server.URL, "anon-key", store)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	if _, err := c.SignIn(context.Background(), "0812", "123456"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	if err := c.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if !loggedOut {
		t.Error("Expected server-side logout call")
	}
	if c.CurrentSession() != nil {
		t.Error("Expected local session cleared")
	}

	session, err := store.Load()
	if err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}
	if session != nil {
		t.Error("Expected persisted session removed")
	}
}

func TestSignUpWithoutSessionFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Confirmation pending: user record, no tokens.
		fmt.Fprint(w, `{"user":{"id":"u-1"}}`)
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "anon-key", newTestStore(t))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := c.SignUp(context.Background(), "0812", "123456"); err == nil {
		t.Error("Expected error when confirmation is pending")
	}
}

func TestStoreMissingFile(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "absent.json"))

	session, err := store.Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if session != nil {
		t.Errorf("Expected nil session, got %+v", session)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("Clear on missing file should succeed, got %v", err)
	}
}

func TestStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStoreAt(path)
	if err := store.Save(&Session{AccessToken: "at"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestRegistrationBypassFlow(t *testing.T) {
	var otpRequested bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/otp":
			otpRequested = true
			w.WriteHeader(http.StatusOK)
		case "/auth/v1/signup":
			fmt.Fprint(w, `{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"user":{"id":"u-1"}}`)
		default:
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	c, err := NewClient(server.URL, "anon-key", newTestStore(t))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	reg := NewRegistration(c, true)
	if err := reg.Start(context.Background(), "081234567890"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if otpRequested {
		t.Error("Expected no OTP request in bypass mode")
	}
	if err := reg.Verify(context.Background(), "000000"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	session, err := reg.CreatePin(context.Background(), "123456")
	if err != nil {
		t.Fatalf("CreatePin failed: %v", err)
	}
	if session.AccessToken != "at-1" {
		t.Errorf("Unexpected session: %+v", session)
	}
	if reg.Phone() != "" {
		t.Errorf("Expected pending phone cleared, got %q", reg.Phone())
	}
}

func TestRegistrationRequiresVerification(t *testing.T) {
	c, err := NewClient("http://unused", "anon-key", newTestStore(t))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	reg := NewRegistration(c, true)
	if _, err := reg.CreatePin(context.Background(), "123456"); err == nil {
		t.Error("Expected error before Start")
	}

	if err := reg.Start(context.Background(), "0812"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Verify skipped.
	regCopy := NewRegistration(c, true)
	if err := regCopy.Start(context.Background(), "0812"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := regCopy.CreatePin(context.Background(), "123456"); err == nil {
		t.Error("Expected error before Verify")
	}
}

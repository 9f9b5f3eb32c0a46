package cloudapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOAuthProviderData_CachesAndDeduplicates(t *testing.T) {
	var fetches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/oauth/provider" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		atomic.AddInt64(&fetches, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"auth_url":  "https://idp.example.com/authorize",
			"token_url": "https://idp.example.com/token",
			"client_id": "nimbus-ide",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := client.GetOAuthProviderData(ctx)
			if err != nil {
				t.Errorf("GetOAuthProviderData failed: %v", err)
				return
			}
			if data.AuthURL != "https://idp.example.com/authorize" {
				t.Errorf("unexpected auth URL %q", data.AuthURL)
			}
		}()
	}
	wg.Wait()

	// Subsequent call must hit the cache.
	if _, err := client.GetOAuthProviderData(ctx); err != nil {
		t.Fatalf("cached fetch failed: %v", err)
	}

	if n := atomic.LoadInt64(&fetches); n != 1 {
		t.Errorf("expected exactly 1 provider fetch, got %d", n)
	}
}

func TestGetNewCredentialsFromRefreshCode(t *testing.T) {
	t.Run("success with rotated refresh token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/oauth/refresh" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["refresh_token"] != "old-refresh" {
				t.Errorf("unexpected refresh token %q", body["refresh_token"])
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "new-access",
				"expires_in":    3600,
				"refresh_token": "new-refresh",
			})
		}))
		defer server.Close()

		creds, err := NewClient(server.URL).GetNewCredentialsFromRefreshCode(context.Background(), "old-refresh")
		if err != nil {
			t.Fatalf("refresh failed: %v", err)
		}

		access, ok := creds.AccessToken()
		if !ok || access != "new-access" {
			t.Errorf("expected access token new-access, got %q (ok=%v)", access, ok)
		}
		refresh, _ := creds.RefreshToken()
		if refresh != "new-refresh" {
			t.Errorf("expected rotated refresh token, got %q", refresh)
		}
	})

	t.Run("missing refresh token carries old one forward", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "new-access",
				"expires_in":   3600,
			})
		}))
		defer server.Close()

		creds, err := NewClient(server.URL).GetNewCredentialsFromRefreshCode(context.Background(), "old-refresh")
		if err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		refresh, _ := creds.RefreshToken()
		if refresh != "old-refresh" {
			t.Errorf("expected old refresh token carried forward, got %q", refresh)
		}
	})

	t.Run("server rejection yields ResponseError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid_grant", http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).GetNewCredentialsFromRefreshCode(context.Background(), "rejected")
		respErr, ok := AsResponseError(err)
		if !ok {
			t.Fatalf("expected ResponseError, got %v", err)
		}
		if !respErr.IsAuthError() {
			t.Errorf("expected auth error for status %d", respErr.StatusCode)
		}
		if IsOffline(err) {
			t.Error("server rejection must not be classified as offline")
		}
	})

	t.Run("unreachable server yields offline error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // Closed before use: connection refused.

		_, err := NewClient(server.URL).GetNewCredentialsFromRefreshCode(context.Background(), "any")
		if !IsOffline(err) {
			t.Errorf("expected offline error, got %v", err)
		}
		if _, ok := AsResponseError(err); ok {
			t.Error("offline error must not be a ResponseError")
		}
	})
}

func TestUserAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/user":
			json.NewEncoder(w).Encode(map[string]string{"id": "u-1", "email": "dev@example.com"})
		case "/api/user/licenses":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"id": "l-1", "missing": true},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	api := NewClient(server.URL).UserAPI(StaticTokenSource("token-1"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := api.GetUserInfo(ctx)
	if err != nil {
		t.Fatalf("GetUserInfo failed: %v", err)
	}
	if info.ID != "u-1" || info.Email != "dev@example.com" {
		t.Errorf("unexpected user info %+v", info)
	}

	licenses, err := api.GetUserLicenses(ctx)
	if err != nil {
		t.Fatalf("GetUserLicenses failed: %v", err)
	}
	if len(licenses) != 1 || !licenses[0].Missing {
		t.Errorf("unexpected licenses %+v", licenses)
	}
}

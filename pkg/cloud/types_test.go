package cloud

import (
	"testing"
	"time"
)

func TestNormalizeFrontendURL(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"https://cloud.example.com", "https://cloud.example.com"},
		{"https://cloud.example.com/", "https://cloud.example.com"},
		{"https://cloud.example.com/api", "https://cloud.example.com"},
		{"https://cloud.example.com/api/", "https://cloud.example.com"},
	}

	for _, tc := range testCases {
		if got := NormalizeFrontendURL(tc.input); got != tc.expected {
			t.Errorf("NormalizeFrontendURL(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestCredentials_AccessToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		creds := NewCredentials("access", time.Now().Add(1*time.Hour), "refresh")
		token, ok := creds.AccessToken()
		if !ok {
			t.Fatal("expected access token to be usable")
		}
		if token != "access" {
			t.Errorf("expected token %q, got %q", "access", token)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		creds := NewCredentials("access", time.Now().Add(-1*time.Minute), "refresh")
		if _, ok := creds.AccessToken(); ok {
			t.Error("expected expired token to be unusable")
		}
	})

	t.Run("token inside expiry margin", func(t *testing.T) {
		creds := NewCredentials("access", time.Now().Add(10*time.Second), "refresh")
		if _, ok := creds.AccessToken(); ok {
			t.Error("expected token expiring within margin to be unusable")
		}
	})

	t.Run("no expiry means valid", func(t *testing.T) {
		creds := NewCredentials("access", time.Time{}, "refresh")
		if _, ok := creds.AccessToken(); !ok {
			t.Error("expected token without expiry to be usable")
		}
	})

	t.Run("refresh-only credentials have no access token", func(t *testing.T) {
		creds := RefreshOnlyCredentials("refresh")
		if _, ok := creds.AccessToken(); ok {
			t.Error("expected refresh-only credentials to have no usable access token")
		}
		refresh, ok := creds.RefreshToken()
		if !ok || refresh != "refresh" {
			t.Errorf("expected refresh token %q, got %q (ok=%v)", "refresh", refresh, ok)
		}
	})
}

func TestCredentials_ToOAuth2Token(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	creds := NewCredentials("access", expiry, "refresh")

	token := creds.ToOAuth2Token()
	if token.AccessToken != "access" {
		t.Errorf("expected access token %q, got %q", "access", token.AccessToken)
	}
	if token.RefreshToken != "refresh" {
		t.Errorf("expected refresh token %q, got %q", "refresh", token.RefreshToken)
	}
	if token.TokenType != "Bearer" {
		t.Errorf("expected token type Bearer, got %q", token.TokenType)
	}
	if !token.Expiry.Equal(expiry) {
		t.Errorf("expected expiry %v, got %v", expiry, token.Expiry)
	}
}

func TestHasMissingLicense(t *testing.T) {
	if HasMissingLicense(nil) {
		t.Error("expected no missing licenses for empty list")
	}
	if HasMissingLicense([]License{{ID: "l1", Missing: false}}) {
		t.Error("expected no missing licenses when all accepted")
	}
	if !HasMissingLicense([]License{{ID: "l1"}, {ID: "l2", Missing: true}}) {
		t.Error("expected missing license to be detected")
	}
}

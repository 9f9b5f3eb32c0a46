package browserauth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGeneratePKCE(t *testing.T) {
	pkce, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE failed: %v", err)
	}

	if pkce.CodeChallengeMethod != "S256" {
		t.Errorf("expected S256 method, got %s", pkce.CodeChallengeMethod)
	}

	if len(pkce.CodeVerifier) < 43 {
		t.Errorf("verifier too short: %d chars", len(pkce.CodeVerifier))
	}

	// The challenge must be the base64url-encoded SHA256 of the verifier.
	hash := sha256.Sum256([]byte(pkce.CodeVerifier))
	expected := base64.RawURLEncoding.EncodeToString(hash[:])
	if pkce.CodeChallenge != expected {
		t.Errorf("challenge does not match verifier hash")
	}
}

func TestGeneratePKCE_Unique(t *testing.T) {
	a, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE failed: %v", err)
	}
	b, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE failed: %v", err)
	}
	if a.CodeVerifier == b.CodeVerifier {
		t.Error("expected unique verifiers")
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}
	if len(state) < 32 {
		t.Errorf("state too short: %d chars", len(state))
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}
	if state == other {
		t.Error("expected unique state values")
	}
}

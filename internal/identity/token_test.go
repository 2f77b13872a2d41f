package identity

import (
	"errors"
	"testing"

	"github.com/MendesCorporation/automata/internal/apierr"
)

func TestTokenIssuer_IssueAndVerifyRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("a-test-master-secret-value")

	token, expiresAt, err := issuer.Issue("consumer-abc123", CallerConsumer, "203.0.113.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatal("expected a non-zero expiry")
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.CallerID != "consumer-abc123" {
		t.Errorf("claims.CallerID = %q, want %q", claims.CallerID, "consumer-abc123")
	}
	if claims.Type != CallerConsumer {
		t.Errorf("claims.Type = %q, want %q", claims.Type, CallerConsumer)
	}
}

func TestTokenIssuer_VerifyRejectsForgedToken(t *testing.T) {
	issuer := NewTokenIssuer("a-test-master-secret-value")
	forgedIssuer := NewTokenIssuer("a-different-master-secret")

	token, _, err := forgedIssuer.Issue("consumer-abc123", CallerConsumer, "203.0.113.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = issuer.Verify(token)
	if err == nil {
		t.Fatal("expected verification to fail against a different signing secret")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != apierr.AuthInvalid {
		t.Errorf("expected AUTH_INVALID, got %v", err)
	}
}

func TestTokenIssuer_VerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("a-test-master-secret-value")
	if _, err := issuer.Verify("not-a-jwt-at-all"); err == nil {
		t.Fatal("expected an error for a non-JWT string")
	}
}

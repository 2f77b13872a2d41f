package identity

import (
	"context"
	"testing"
	"time"
)

func TestMintExecKey_SignsWithMasterSecretWhenProviderHasNone(t *testing.T) {
	issuer := NewTokenIssuer("master-secret-value")

	key, expiresAt, keyID, err := issuer.MintExecKey("consumer-1", "agent:w:br", nil)
	if err != nil {
		t.Fatalf("MintExecKey: %v", err)
	}
	if key == "" || keyID == "" || expiresAt.IsZero() {
		t.Fatalf("MintExecKey returned incomplete result: key=%q keyID=%q expiresAt=%v", key, keyID, expiresAt)
	}

	claims, err := issuer.VerifyExecKey(context.Background(), key, nil)
	if err != nil {
		t.Fatalf("VerifyExecKey: %v", err)
	}
	if claims.AgentID != "agent:w:br" || claims.ConsumerCallerID != "consumer-1" || claims.KeyID != keyID {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestMintExecKey_SignsWithProviderSecretWhenPresent(t *testing.T) {
	issuer := NewTokenIssuer("master-secret-value")
	providerSecret := "provider-plaintext-secret"

	key, _, _, err := issuer.MintExecKey("consumer-1", "agent:w:br", &providerSecret)
	if err != nil {
		t.Fatalf("MintExecKey: %v", err)
	}

	if _, err := issuer.VerifyExecKey(context.Background(), key, nil); err == nil {
		t.Error("expected verification against the master secret to fail for a provider-signed key")
	}
	if _, err := issuer.VerifyExecKey(context.Background(), key, &providerSecret); err != nil {
		t.Errorf("expected verification against the provider secret to succeed: %v", err)
	}
}

func TestMintExecKey_KeyIDsAreUnique(t *testing.T) {
	issuer := NewTokenIssuer("master-secret-value")

	_, _, id1, err := issuer.MintExecKey("consumer-1", "agent:w:br", nil)
	if err != nil {
		t.Fatalf("MintExecKey: %v", err)
	}
	_, _, id2, err := issuer.MintExecKey("consumer-1", "agent:w:br", nil)
	if err != nil {
		t.Fatalf("MintExecKey: %v", err)
	}
	if id1 == id2 {
		t.Error("expected distinct key ids across mints")
	}
}

func TestMintExecKey_ExpiresInFiveMinutes(t *testing.T) {
	issuer := NewTokenIssuer("master-secret-value")
	before := time.Now()

	_, expiresAt, _, err := issuer.MintExecKey("consumer-1", "agent:w:br", nil)
	if err != nil {
		t.Fatalf("MintExecKey: %v", err)
	}

	ttl := expiresAt.Sub(before)
	if ttl <= 0 || ttl > 5*time.Minute {
		t.Errorf("expiresAt - now = %v, want (0, 5m]", ttl)
	}
}

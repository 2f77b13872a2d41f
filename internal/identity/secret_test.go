package identity

import "testing"

func TestEncryptDecryptSecret_RoundTrips(t *testing.T) {
	const master = "a-sixteen-byte-master-secret!!"
	const plaintext = "provider-webhook-secret-value"

	encoded, err := EncryptSecret(master, plaintext)
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	decoded, err := DecryptSecret(master, encoded)
	if err != nil {
		t.Fatalf("DecryptSecret: %v", err)
	}
	if decoded != plaintext {
		t.Errorf("round trip = %q, want %q", decoded, plaintext)
	}
}

func TestEncryptSecret_FormatIsIVColonCiphertext(t *testing.T) {
	encoded, err := EncryptSecret("master-secret-value", "hello")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	parts := 0
	for _, r := range encoded {
		if r == ':' {
			parts++
		}
	}
	if parts != 1 {
		t.Errorf("expected exactly one ':' separator, got %d in %q", parts, encoded)
	}
}

func TestDecryptSecret_RejectsMalformedInput(t *testing.T) {
	if _, err := DecryptSecret("master-secret-value", "not-hex-no-colon"); err == nil {
		t.Error("expected an error for malformed ciphertext")
	}
}

func TestDecryptSecret_WrongMasterFailsCleanly(t *testing.T) {
	encoded, err := EncryptSecret("correct-master-secret", "top-secret")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}
	if _, err := DecryptSecret("wrong-master-secret!!", encoded); err == nil {
		t.Error("expected decrypting with the wrong master secret to fail")
	}
}

func TestHashSecret_IsDeterministicAndOneWay(t *testing.T) {
	h1 := HashSecret("token-value")
	h2 := HashSecret("token-value")
	if h1 != h2 {
		t.Errorf("HashSecret must be deterministic: %q != %q", h1, h2)
	}
	if h1 == "token-value" {
		t.Error("HashSecret must not return the plaintext")
	}
}

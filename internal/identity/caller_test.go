package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeriveIdentifier_PrefersXClientID(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/search", nil)
	r.Header.Set("X-Client-Id", "my-app")
	r.RemoteAddr = "198.51.100.7:1234"

	got := DeriveIdentifier(r, false)
	want := "my-app|198.51.100.7"
	if got != want {
		t.Errorf("DeriveIdentifier = %q, want %q", got, want)
	}
}

func TestDeriveIdentifier_FallsBackToForwardedForWhenTrusted(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/search", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.RemoteAddr = "10.0.0.1:1234"

	got := DeriveIdentifier(r, true)
	if got != "203.0.113.9" {
		t.Errorf("DeriveIdentifier with trusted proxy = %q, want %q", got, "203.0.113.9")
	}
}

func TestDeriveIdentifier_IgnoresForwardedForWhenNotTrusted(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/search", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	r.RemoteAddr = "10.0.0.1:1234"

	got := DeriveIdentifier(r, false)
	if got != "10.0.0.1" {
		t.Errorf("DeriveIdentifier without trusted proxy = %q, want peer ip %q", got, "10.0.0.1")
	}
}

func TestDeriveIdentifier_FallsBackToRawRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/search", nil)
	r.RemoteAddr = "not-a-valid-addr"

	got := DeriveIdentifier(r, false)
	if got != "not-a-valid-addr" {
		t.Errorf("DeriveIdentifier should fall back to the raw RemoteAddr, got %q", got)
	}
}

func TestCallerID_IsStableAndPrefixed(t *testing.T) {
	id1 := CallerID(CallerConsumer, "198.51.100.7")
	id2 := CallerID(CallerConsumer, "198.51.100.7")
	if id1 != id2 {
		t.Errorf("CallerID must be deterministic: %q != %q", id1, id2)
	}
	if len(id1) != len("consumer-")+16 {
		t.Errorf("CallerID length = %d, want %d", len(id1), len("consumer-")+16)
	}
}

func TestCallerID_DiffersByType(t *testing.T) {
	consumerID := CallerID(CallerConsumer, "198.51.100.7")
	providerID := CallerID(CallerProvider, "198.51.100.7")
	if consumerID == providerID {
		t.Error("CallerID must differ between consumer and provider for the same identifier")
	}
}

func TestCheckSpoofing_AllowsSameIdentifier(t *testing.T) {
	if err := CheckSpoofing("my-app|1.2.3.4", "my-app|1.2.3.4"); err != nil {
		t.Errorf("expected no error for a matching existing identifier, got %v", err)
	}
}

func TestCheckSpoofing_AllowsFirstTimeClientID(t *testing.T) {
	if err := CheckSpoofing("my-app|1.2.3.4", ""); err != nil {
		t.Errorf("expected no error when no caller previously held this client-id, got %v", err)
	}
}

func TestCheckSpoofing_RejectsCollision(t *testing.T) {
	if err := CheckSpoofing("my-app|1.2.3.4", "my-app|9.9.9.9"); err == nil {
		t.Error("expected an error when the client-id is bound to a different peer")
	}
}

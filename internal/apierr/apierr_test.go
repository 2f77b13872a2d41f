package apierr

import (
	"net/http"
	"testing"
)

func TestHTTPStatus_Table(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{ValidationError, http.StatusBadRequest},
		{BlockedSpam, http.StatusBadRequest},
		{AuthRequired, http.StatusUnauthorized},
		{AuthInvalid, http.StatusForbidden},
		{IdentityMismatch, http.StatusForbidden},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{RateLimited, http.StatusTooManyRequests},
		{Timeout, http.StatusGatewayTimeout},
		{Internal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := c.kind.HTTPStatus(); got != c.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestError_ImplementsErrorInterface(t *testing.T) {
	err := New(NotFound, "agent not found")
	if err.Error() != "agent not found" {
		t.Errorf("Error() = %q, want %q", err.Error(), "agent not found")
	}
	if err.Kind != NotFound {
		t.Errorf("Kind = %q, want %q", err.Kind, NotFound)
	}
}

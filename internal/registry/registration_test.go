package registry

import (
	"errors"
	"testing"

	"github.com/MendesCorporation/automata/internal/apierr"
)

func validRequest() RegisterRequest {
	return RegisterRequest{
		ID:         "agent:w:br",
		Name:       "Weather BR",
		Endpoint:   "https://weather.example.com/execute",
		Intents:    []string{"weather.forecast"},
		Categories: []string{"weather"},
		Languages:  []string{"pt-BR"},
	}
}

func TestValidate_AcceptsHTTPSInProduction(t *testing.T) {
	s := &Service{isProduction: true}
	if err := s.validate(validRequest()); err != nil {
		t.Errorf("expected a valid request to pass, got %v", err)
	}
}

func TestValidate_RejectsHTTPInProduction(t *testing.T) {
	s := &Service{isProduction: true}
	req := validRequest()
	req.Endpoint = "http://weather.example.com/execute"

	err := s.validate(req)
	assertValidationError(t, err)
}

func TestValidate_AllowsLoopbackHTTPInDevelopment(t *testing.T) {
	s := &Service{isProduction: false}
	req := validRequest()
	req.Endpoint = "http://localhost:8080/execute"

	if err := s.validate(req); err != nil {
		t.Errorf("expected loopback http to be allowed in development, got %v", err)
	}
}

func TestValidate_RejectsNonLoopbackHTTPInDevelopment(t *testing.T) {
	s := &Service{isProduction: false}
	req := validRequest()
	req.Endpoint = "http://weather.example.com/execute"

	err := s.validate(req)
	assertValidationError(t, err)
}

func TestValidate_RequiresIDNameIntentsCategoriesLanguages(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*RegisterRequest)
	}{
		{"missing id", func(r *RegisterRequest) { r.ID = "" }},
		{"missing name", func(r *RegisterRequest) { r.Name = "" }},
		{"missing intents", func(r *RegisterRequest) { r.Intents = nil }},
		{"missing categories", func(r *RegisterRequest) { r.Categories = nil }},
		{"missing languages", func(r *RegisterRequest) { r.Languages = nil }},
	}
	s := &Service{isProduction: false}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := validRequest()
			c.mutate(&req)
			assertValidationError(t, s.validate(req))
		})
	}
}

func TestValidate_RejectsMalformedEndpoint(t *testing.T) {
	s := &Service{isProduction: false}
	req := validRequest()
	req.Endpoint = "not a url"

	assertValidationError(t, s.validate(req))
}

func TestLocationScopeOrDefault_DefaultsToGlobal(t *testing.T) {
	if got := locationScopeOrDefault(""); got != "Global" {
		t.Errorf("locationScopeOrDefault(\"\") = %q, want %q", got, "Global")
	}
	if got := locationScopeOrDefault("Austin,TX,USA"); got != "Austin,TX,USA" {
		t.Errorf("locationScopeOrDefault preserved = %q", got)
	}
}

func TestNonNil_ReplacesNilWithEmptySlice(t *testing.T) {
	got := nonNil(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("nonNil(nil) = %v, want an empty non-nil slice", got)
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Kind != apierr.ValidationError {
		t.Errorf("expected a VALIDATION_ERROR, got %v", err)
	}
}

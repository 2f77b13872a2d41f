// Package identity implements caller derivation, session-token and
// execution-key issuance, and provider-secret encryption — the
// Identity & Key Service.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/MendesCorporation/automata/internal/apierr"
)

// CallerType distinguishes the two roles a caller may hold.
type CallerType string

const (
	CallerConsumer CallerType = "consumer"
	CallerProvider CallerType = "provider"
)

// DeriveIdentifier implements the identifier derivation order of §4.2:
// (a) "{x-client-id}|{client-ip}" when x-client-id is present, (b) the
// first IP in X-Forwarded-For, (c) the socket peer IP, (d) "unknown".
func DeriveIdentifier(r *http.Request, trustProxy bool) string {
	clientIP := peerIP(r, trustProxy)

	if clientID := strings.TrimSpace(r.Header.Get("X-Client-Id")); clientID != "" {
		return clientID + "|" + clientIP
	}

	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if first != "" {
				return first
			}
		}
	}

	if clientIP != "" {
		return clientIP
	}

	return "unknown"
}

func peerIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if first != "" {
				return first
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// CallerID computes `"{type}-{first 16 hex chars of sha256(type+":"+identifier)}"`.
func CallerID(callerType CallerType, identifier string) string {
	sum := sha256.Sum256([]byte(string(callerType) + ":" + identifier))
	return fmt.Sprintf("%s-%s", callerType, hex.EncodeToString(sum[:])[:16])
}

// CheckSpoofing implements the anti-spoofing rule of §4.2: when the
// caller presented an X-Client-Id, no *other* identifier sharing that
// same client-id prefix may already be registered. existingIdentifier
// is the identifier on file for a caller found with the same prefix,
// if any; an empty string means none was found.
func CheckSpoofing(presentedIdentifier, existingIdentifier string) error {
	if existingIdentifier != "" && existingIdentifier != presentedIdentifier {
		return apierr.New(apierr.IdentityMismatch, "client-id is already bound to a different peer")
	}
	return nil
}

// ClientIDPrefix extracts the "{x-client-id}" portion used to search for
// spoofing collisions, or "" if the request carries no X-Client-Id.
func ClientIDPrefix(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Client-Id"))
}

package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MendesCorporation/automata/internal/apierr"
)

// SessionTTL is the lifetime of an issued session token, per §4.2.
const SessionTTL = 24 * time.Hour

// SessionClaims carries the fields a session token must hold:
// caller_id, type, identifier.
type SessionClaims struct {
	CallerID   string     `json:"caller_id"`
	Type       CallerType `json:"type"`
	Identifier string     `json:"identifier"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens with the process-wide
// master secret, read once at startup and cached in memory (§9: secret
// rotation requires a restart).
type TokenIssuer struct {
	masterSecret []byte
	replayGuard  *ReplayGuard
}

// NewTokenIssuer caches the master secret for the process lifetime.
func NewTokenIssuer(masterSecret string) *TokenIssuer {
	return &TokenIssuer{masterSecret: []byte(masterSecret)}
}

// SetReplayGuard attaches an optional execution-key replay guard.
// VerifyExecKey rejects a key whose key_id has already been claimed
// once a guard is attached.
func (t *TokenIssuer) SetReplayGuard(g *ReplayGuard) {
	t.replayGuard = g
}

// Issue mints a 24h session token carrying {caller_id, type, identifier}.
func (t *TokenIssuer) Issue(callerID string, callerType CallerType, identifier string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(SessionTTL)

	claims := SessionClaims{
		CallerID:   callerID,
		Type:       callerType,
		Identifier: identifier,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.masterSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a session token, returning its claims or
// an AUTH_INVALID error. There is no revocation list, per §4.2 — an
// unexpired, correctly-signed token is always accepted.
func (t *TokenIssuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Method)
		}
		return t.masterSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, apierr.New(apierr.AuthInvalid, "session token is invalid or expired")
	}
	return claims, nil
}

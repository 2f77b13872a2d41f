package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExecKeyTTL is the lifetime of a minted execution key, per §4.2.
const ExecKeyTTL = 5 * time.Minute

// ExecKeyClaims is the payload minted for a consumer to present to a
// provider's /execute endpoint.
type ExecKeyClaims struct {
	ConsumerCallerID string `json:"consumer_caller_id"`
	AgentID          string `json:"agent_id"`
	KeyID            string `json:"key_id"`
	jwt.RegisteredClaims
}

// MintExecKey signs an execution key for one search result (§4.2,
// §4.3 step 10). It is signed with the provider's plaintext secret
// when one is on file, falling back to the master secret otherwise —
// a documented limitation (§9 Open Question) rather than a bug: a
// provider that has never authenticated cannot yet have a secret to
// sign with. The key is stateless; nothing is persisted here.
func (t *TokenIssuer) MintExecKey(consumerCallerID, agentID string, providerSecret *string) (key string, expiresAt time.Time, keyID string, err error) {
	keyIDBytes := make([]byte, 16)
	if _, err := rand.Read(keyIDBytes); err != nil {
		return "", time.Time{}, "", fmt.Errorf("generating key id: %w", err)
	}
	keyID = hex.EncodeToString(keyIDBytes)

	now := time.Now()
	expiresAt = now.Add(ExecKeyTTL)

	claims := ExecKeyClaims{
		ConsumerCallerID: consumerCallerID,
		AgentID:          agentID,
		KeyID:            keyID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signingKey := t.masterSecret
	if providerSecret != nil && *providerSecret != "" {
		signingKey = []byte(*providerSecret)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("signing execution key: %w", err)
	}
	return signed, expiresAt, keyID, nil
}

// VerifyExecKey validates an execution key against a specific signing
// key (the provider's plaintext secret, or the master secret when the
// provider has none) — exposed for the registry's own verification
// tooling, not for the provider's own /execute endpoint (out of scope).
// When a replay guard is attached, a key_id presented twice is rejected
// on its second presentation.
func (t *TokenIssuer) VerifyExecKey(ctx context.Context, tokenString string, providerSecret *string) (*ExecKeyClaims, error) {
	signingKey := t.masterSecret
	if providerSecret != nil && *providerSecret != "" {
		signingKey = []byte(*providerSecret)
	}

	claims := &ExecKeyClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Method)
		}
		return signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("execution key is invalid or expired")
	}

	if t.replayGuard != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if remaining <= 0 {
			return nil, fmt.Errorf("execution key is invalid or expired")
		}
		claimed, err := t.replayGuard.ClaimOnce(ctx, claims.KeyID, remaining)
		if err != nil {
			return nil, fmt.Errorf("checking execution key replay: %w", err)
		}
		if !claimed {
			return nil, fmt.Errorf("execution key has already been used")
		}
	}

	return claims, nil
}

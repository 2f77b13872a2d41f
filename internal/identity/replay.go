package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard records execution-key ids with a TTL so a second
// presentation of the same key can be rejected by the registry's own
// tooling before the provider even sees it. Optional, default off
// Optional, default off — it rejects a second presentation of the same
// execution key additively, without changing the stateless minting
// contract.
type ReplayGuard struct {
	client    *redis.Client
	keyPrefix string
}

// NewReplayGuard connects to Redis, pinging on construction and
// prefixing keys per concern.
func NewReplayGuard(addr, password string) (*ReplayGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &ReplayGuard{client: client, keyPrefix: "registry:exec-key:"}, nil
}

// Close releases the connection.
func (g *ReplayGuard) Close() error {
	return g.client.Close()
}

// ClaimOnce records keyID for the remaining lifetime of the key. It
// returns false if the key has already been claimed (a replay).
func (g *ReplayGuard) ClaimOnce(ctx context.Context, keyID string, remaining time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.keyPrefix+keyID, "1", remaining).Result()
	if err != nil {
		return false, fmt.Errorf("claiming execution key: %w", err)
	}
	return ok, nil
}

// Package clientstate persists per-session UI state (cart contents, wizard
// progress) in Redis behind a schema-versioned JSON envelope. Payloads written
// under an older schema version are treated as absent rather than decoded.
package clientstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	redisclient "github.com/lumastore/storefront-backend/pkg/redis"
)

// SchemaVersion is bumped whenever a stored payload shape changes.
const SchemaVersion = 1

const defaultTTL = 14 * 24 * time.Hour

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type stateKeyer interface {
	ClientStateKey(scope, sessionID, name string) string
}

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Store reads and writes one scope of client state.
type Store struct {
	store kvStore
	keyer stateKeyer
	scope string
	ttl   time.Duration
}

// NewStore constructs a store for the given scope backed by Redis.
func NewStore(client *redisclient.Client, scope string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(scope) == "" {
		return nil, fmt.Errorf("scope is required")
	}
	return &Store{
		store: client,
		keyer: client,
		scope: scope,
		ttl:   defaultTTL,
	}, nil
}

// Save serializes v under the session's named slot, refreshing the TTL.
func (s *Store) Save(ctx context.Context, sessionID, name string, v any) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding client state: %w", err)
	}
	payload, err := json.Marshal(envelope{Version: SchemaVersion, Data: data})
	if err != nil {
		return fmt.Errorf("encoding client state envelope: %w", err)
	}
	return s.store.Set(ctx, s.keyer.ClientStateKey(s.scope, sessionID, name), payload, s.ttl)
}

// Load decodes the session's named slot into dst. It reports false when the
// slot is empty, unreadable, or written under a different schema version;
// stale state is discarded, never surfaced as an error to the caller.
func (s *Store) Load(ctx context.Context, sessionID, name string, dst any) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("session id is required")
	}
	raw, err := s.store.Get(ctx, s.keyer.ClientStateKey(s.scope, sessionID, name))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return false, nil
	}
	if env.Version != SchemaVersion {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes the named slots for the session.
func (s *Store) Delete(ctx context.Context, sessionID string, names ...string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, s.keyer.ClientStateKey(s.scope, sessionID, name))
	}
	if len(keys) == 0 {
		return nil
	}
	return s.store.Del(ctx, keys...)
}

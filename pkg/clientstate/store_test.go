package clientstate

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type memoryKV struct {
	data map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if b, ok := value.([]byte); ok {
		m.data[key] = string(b)
	} else {
		m.data[key] = fmt.Sprint(value)
	}
	return nil
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryKV) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

type flatKeyer struct{}

func (flatKeyer) ClientStateKey(scope, sessionID, name string) string {
	key := scope + ":" + sessionID
	if name != "" {
		key += ":" + name
	}
	return key
}

func newTestStore(scope string) (*Store, *memoryKV) {
	kv := newMemoryKV()
	return &Store{store: kv, keyer: flatKeyer{}, scope: scope, ttl: time.Hour}, kv
}

type cartPayload struct {
	Items []string `json:"items"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore("cart")

	saved := cartPayload{Items: []string{"a", "b"}}
	if err := store.Save(ctx, "sess-1", "items", saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var loaded cartPayload
	found, err := store.Load(ctx, "sess-1", "items", &loaded)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !found {
		t.Fatal("expected state to be found")
	}
	if len(loaded.Items) != 2 || loaded.Items[0] != "a" {
		t.Fatalf("unexpected payload %+v", loaded)
	}
}

func TestLoadMissingReportsNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore("cart")

	var dst cartPayload
	found, err := store.Load(ctx, "sess-1", "items", &dst)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if found {
		t.Fatal("expected not found for empty slot")
	}
}

func TestLoadDiscardsOtherSchemaVersions(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore("wizard")

	stale, _ := json.Marshal(envelope{Version: SchemaVersion + 1, Data: json.RawMessage(`{"items":["x"]}`)})
	kv.data["wizard:sess-1:fields"] = string(stale)

	var dst cartPayload
	found, err := store.Load(ctx, "sess-1", "fields", &dst)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if found {
		t.Fatal("stale schema version must read as absent")
	}
}

func TestLoadDiscardsCorruptPayloads(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore("wizard")
	kv.data["wizard:sess-1:fields"] = "{not json"

	var dst cartPayload
	found, err := store.Load(ctx, "sess-1", "fields", &dst)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if found {
		t.Fatal("corrupt payload must read as absent")
	}
}

func TestDeleteRemovesSlots(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore("cart")

	if err := store.Save(ctx, "sess-1", "items", cartPayload{Items: []string{"a"}}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(ctx, "sess-1", "items"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(kv.data) != 0 {
		t.Fatalf("expected empty store, got %v", kv.data)
	}
}

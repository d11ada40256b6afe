package experiments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hustlexp/insight/internal/storage"
)

func TestAssignmentStore_LoadsPersistedStateBeforeReads(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	persisted := map[string][]Assignment{
		"u1": {{ExperimentID: "exp1", Variant: "test_a", AssignedAt: time.Now().UTC()}},
	}
	data, err := json.Marshal(persisted)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if err := kv.Put(ctx, StorageKey, data); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	// The first read must observe the persisted assignment even though the
	// load runs asynchronously.
	store := NewAssignmentStore(kv)
	got, ok, err := store.Get(ctx, "u1", "exp1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted assignment to be visible")
	}
	if got.Variant != "test_a" {
		t.Errorf("Variant = %q, want test_a", got.Variant)
	}
}

func TestAssignmentStore_AddPersistsWholeMap(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	store := NewAssignmentStore(kv)

	a1 := Assignment{ExperimentID: "exp1", Variant: "control", AssignedAt: time.Now().UTC()}
	a2 := Assignment{ExperimentID: "exp2", Variant: "test_b", AssignedAt: time.Now().UTC()}
	if err := store.Add(ctx, "u1", a1); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := store.Add(ctx, "u2", a2); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	data, err := kv.Get(ctx, StorageKey)
	if err != nil {
		t.Fatalf("kv.Get error: %v", err)
	}
	var loaded map[string][]Assignment
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("persisted users = %d, want 2", len(loaded))
	}
	if len(loaded["u1"]) != 1 || loaded["u1"][0].ExperimentID != "exp1" {
		t.Errorf("u1 assignments = %+v", loaded["u1"])
	}
}

func TestAssignmentStore_CorruptStateDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	if err := kv.Put(ctx, StorageKey, []byte("not json")); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	store := NewAssignmentStore(kv)
	_, ok, err := store.Get(ctx, "u1", "exp1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Error("corrupt state should yield no assignments")
	}
}

func TestAssignmentStore_ContextCancelledWhileWaiting(t *testing.T) {
	kv := &blockingKV{unblock: make(chan struct{})}
	store := NewAssignmentStore(kv)
	defer close(kv.unblock)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := store.Get(ctx, "u1", "exp1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

// blockingKV blocks Get until unblocked, simulating slow storage.
type blockingKV struct {
	unblock chan struct{}
}

func (b *blockingKV) Get(ctx context.Context, key string) ([]byte, error) {
	<-b.unblock
	return nil, storage.ErrNotFound
}

func (b *blockingKV) Put(ctx context.Context, key string, value []byte) error { return nil }
func (b *blockingKV) Close() error                                            { return nil }

package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hustlexp/insight/pkg/models"
)

func TestSQLiteStoreFIFO(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(SQLiteStoreConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	kinds := []models.EventKind{models.KindMatch, models.KindCompletion, models.KindTrade}
	for i, kind := range kinds {
		entry := &Entry{Kind: kind, Payload: json.RawMessage(`{"n":` + string(rune('0'+i)) + `}`)}
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("Append(%s) failed: %v", kind, err)
		}
		if entry.ID == 0 {
			t.Errorf("Append(%s) did not assign an id", kind)
		}
	}

	for _, want := range kinds {
		head, err := store.Head(ctx)
		if err != nil {
			t.Fatalf("Head failed: %v", err)
		}
		if head == nil {
			t.Fatalf("Head returned nil, want %s", want)
		}
		if head.Kind != want {
			t.Errorf("head kind = %s, want %s", head.Kind, want)
		}
		if err := store.Remove(ctx, head.ID); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
	}

	head, err := store.Head(ctx)
	if err != nil {
		t.Fatalf("Head on empty store failed: %v", err)
	}
	if head != nil {
		t.Errorf("head = %+v on a drained store, want nil", head)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	store, err := NewSQLiteStore(SQLiteStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	entry := &Entry{Kind: models.KindOutcome, Payload: json.RawMessage(`{"eventId":"evt-1"}`)}
	if err := store.Append(ctx, entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.MarkAttempt(ctx, entry.ID); err != nil {
		t.Fatalf("MarkAttempt failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(SQLiteStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	head, err := reopened.Head(ctx)
	if err != nil {
		t.Fatalf("Head after reopen failed: %v", err)
	}
	if head == nil {
		t.Fatal("pending entry lost across reopen")
	}
	if head.Kind != models.KindOutcome {
		t.Errorf("kind = %s after reopen, want outcome", head.Kind)
	}
	if head.Attempts != 1 {
		t.Errorf("attempts = %d after reopen, want 1", head.Attempts)
	}
	if !strings.Contains(string(head.Payload), "evt-1") {
		t.Errorf("payload = %s after reopen, want original body", head.Payload)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestSQLiteStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insight", "queue.db")
	store, err := NewSQLiteStore(SQLiteStoreConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore failed for a missing parent directory: %v", err)
	}
	defer store.Close()

	entry := &Entry{Kind: models.KindMatch, Payload: json.RawMessage(`{}`)}
	if err := store.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func TestSQLiteStoreAppendError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO feedback_queue").WillReturnError(errors.New("disk full"))

	store := &SQLiteStore{db: db}
	appendErr := store.Append(context.Background(), &Entry{
		Kind: models.KindMatch, Payload: json.RawMessage(`{}`),
	})
	if appendErr == nil {
		t.Fatal("Append succeeded against a failing database")
	}
	if !strings.Contains(appendErr.Error(), "disk full") {
		t.Errorf("error = %v, want wrapped driver error", appendErr)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMemoryStoreFIFO(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := &Entry{Kind: models.KindMatch, Payload: json.RawMessage(`{"id":"a"}`)}
	b := &Entry{Kind: models.KindTrade, Payload: json.RawMessage(`{"id":"b"}`)}
	for _, entry := range []*Entry{a, b} {
		if err := store.Append(ctx, entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	head, _ := store.Head(ctx)
	if head.ID != a.ID {
		t.Errorf("head id = %d, want %d", head.ID, a.ID)
	}
	if err := store.MarkAttempt(ctx, a.ID); err != nil {
		t.Fatalf("MarkAttempt failed: %v", err)
	}
	head, _ = store.Head(ctx)
	if head.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", head.Attempts)
	}

	if err := store.Remove(ctx, a.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	head, _ = store.Head(ctx)
	if head.ID != b.ID {
		t.Errorf("head id = %d after remove, want %d", head.ID, b.ID)
	}
}

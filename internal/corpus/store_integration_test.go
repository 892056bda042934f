//go:build integration
// +build integration

package corpus

import (
	"context"
	"testing"

	"github.com/darslabs/darsbot/internal/log"
	"github.com/darslabs/darsbot/internal/rag"
	"github.com/darslabs/darsbot/internal/testutil"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	store, err := New(db.Pool, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	docs := []rag.Document{
		{Text: "ROS 2 is a middleware framework.", Source: "ch1/intro.md", ChunkIndex: 0, Vector: testutil.HashVector("ros")},
		{Text: "Gazebo simulates robot physics.", Source: "ch3/sim.md", ChunkIndex: 0, Vector: testutil.HashVector("gazebo")},
	}
	if err := store.Upsert(ctx, docs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}

	// The exact query vector of a stored passage must rank it first.
	passages, err := store.Search(ctx, testutil.HashVector("ros"), 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("Search() returned %d passages, want 2", len(passages))
	}
	if passages[0].Text != "ROS 2 is a middleware framework." {
		t.Errorf("top passage = %q, want the ROS chunk", passages[0].Text)
	}
	if passages[0].Source != "ch1/intro.md" {
		t.Errorf("top passage source = %q", passages[0].Source)
	}
	if passages[0].Score < passages[1].Score {
		t.Errorf("passages not in descending score order: %v then %v", passages[0].Score, passages[1].Score)
	}
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	doc := rag.Document{Text: "v1", Source: "a.md", ChunkIndex: 0, Vector: testutil.HashVector("a")}
	if err := store.Upsert(ctx, []rag.Document{doc}); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	doc.Text = "v2"
	if err := store.Upsert(ctx, []rag.Document{doc}); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after re-ingesting the same chunk", count)
	}

	passages, err := store.Search(ctx, testutil.HashVector("a"), 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(passages) != 1 || passages[0].Text != "v2" {
		t.Errorf("re-ingestion should replace content, got %v", passages)
	}
}

func TestStore_EnsureReadyReset(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	doc := rag.Document{Text: "x", Source: "a.md", ChunkIndex: 0, Vector: testutil.HashVector("a")}
	if err := store.Upsert(ctx, []rag.Document{doc}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := store.EnsureReady(ctx, true); err != nil {
		t.Fatalf("EnsureReady(reset) error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d after reset, want 0", count)
	}
}

func TestStore_Search_RejectsWrongDimension(t *testing.T) {
	store := setupStore(t)

	if _, err := store.Search(context.Background(), make([]float32, 3), 1); err == nil {
		t.Error("Search() with wrong dimensionality should error")
	}
}

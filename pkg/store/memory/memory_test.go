package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"
)

func TestGetContacts_WorkspaceIsolation(t *testing.T) {
	st := NewContactMemoryStorage()
	st.AddContact("ws1", common.Contact{ID: "a"})
	st.AddContact("ws2", common.Contact{ID: "b"})

	contacts, err := st.GetContacts(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contacts) != 1 || contacts[0].ID != "a" {
		t.Fatalf("expected only ws1 contacts, got %+v", contacts)
	}
}

func TestGetContacts_PreservesInsertionOrder(t *testing.T) {
	st := NewContactMemoryStorage()
	ids := []string{"z", "a", "m"}
	for _, id := range ids {
		st.AddContact("ws1", common.Contact{ID: id})
	}

	contacts, err := st.GetContacts(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, id := range ids {
		if contacts[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, contacts[i].ID)
		}
	}
}

func TestGetContact_NotFound(t *testing.T) {
	st := NewContactMemoryStorage()
	_, err := st.GetContact(context.Background(), "ws1", "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestGetActivitySince_FiltersWindow(t *testing.T) {
	st := NewContactMemoryStorage()
	now := time.Now()
	st.AddActivity("ws1", common.ActivityEntry{ContactID: "a", OccurredAt: now.Add(-time.Hour)})
	st.AddActivity("ws1", common.ActivityEntry{ContactID: "b", OccurredAt: now.Add(-100 * 24 * time.Hour)})

	entries, err := st.GetActivitySince(context.Background(), "ws1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].ContactID != "a" {
		t.Fatalf("expected only the recent entry, got %+v", entries)
	}
}

func TestFindSimilarContacts_OrderAndLimit(t *testing.T) {
	st := NewContactMemoryStorage()
	ctx := context.Background()
	st.UpsertContactEmbedding(ctx, "ws1", "target", []float32{1, 0})
	st.UpsertContactEmbedding(ctx, "ws1", "close", []float32{1, 0.1})
	st.UpsertContactEmbedding(ctx, "ws1", "far", []float32{0, 1})
	st.UpsertContactEmbedding(ctx, "ws1", "opposite", []float32{-1, 0})

	similar, err := st.FindSimilarContacts(ctx, "ws1", "target", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(similar) != 2 {
		t.Fatalf("expected 2 results, got %d", len(similar))
	}
	if similar[0].ContactID != "close" || similar[1].ContactID != "far" {
		t.Fatalf("expected [close far], got %+v", similar)
	}
}

func TestFindSimilarContacts_MissingTarget(t *testing.T) {
	st := NewContactMemoryStorage()
	_, err := st.FindSimilarContacts(context.Background(), "ws1", "ghost", 5)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestUpsertContactEmbedding_CopiesVector(t *testing.T) {
	st := NewContactMemoryStorage()
	ctx := context.Background()
	vec := []float32{1, 0}
	st.UpsertContactEmbedding(ctx, "ws1", "a", vec)
	st.UpsertContactEmbedding(ctx, "ws1", "b", []float32{1, 0})

	// Mutating the caller's slice must not affect the stored embedding.
	vec[0] = -1
	similar, err := st.FindSimilarContacts(ctx, "ws1", "a", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if similar[0].Similarity < 0.99 {
		t.Fatalf("stored embedding was aliased to the caller's slice: %+v", similar)
	}
}

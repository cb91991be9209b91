package store

import (
	"context"
	"errors"
	"time"

	"github.com/vik9541/super-brain-digital-twin/pkg/common"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ContactStore defines the read/write surface of the relational store used
// by the recommendation subsystem. Contacts and activity logs are owned by
// the surrounding CRM layer and are read-only here; the semantic embedding
// table is owned by this subsystem.
type ContactStore interface {
	// GetContacts returns every contact of a workspace. An empty slice is a
	// valid result, not an error.
	GetContacts(ctx context.Context, workspaceID string) ([]common.Contact, error)

	// GetContact returns a single contact by id, or ErrNotFound.
	GetContact(ctx context.Context, workspaceID, contactID string) (*common.Contact, error)

	// GetActivitySince returns the workspace activity log entries that
	// occurred at or after the given time.
	GetActivitySince(ctx context.Context, workspaceID string, since time.Time) ([]common.ActivityEntry, error)

	// UpsertContactEmbedding stores the semantic embedding vector for a
	// contact, replacing any previous one.
	UpsertContactEmbedding(ctx context.Context, workspaceID, contactID string, embedding []float32) error

	// FindSimilarContacts returns the topN contacts of the workspace whose
	// stored embeddings are closest (cosine) to the target contact's
	// embedding, excluding the target itself. Returns ErrNotFound when the
	// target has no stored embedding.
	FindSimilarContacts(ctx context.Context, workspaceID, contactID string, topN int) ([]common.SimilarContact, error)
}

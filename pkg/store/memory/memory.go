package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"
)

// ContactMemoryStorage implements store.ContactStore entirely in process
// memory. It backs tests and single-process setups that have no database;
// the pgx implementation is the production backend.
type ContactMemoryStorage struct {
	mu sync.RWMutex

	contacts map[string]map[string]common.Contact
	order    map[string][]string
	activity map[string][]common.ActivityEntry

	embeddings map[string]map[string][]float32
	embUpdated map[string]map[string]time.Time
}

var _ store.ContactStore = (*ContactMemoryStorage)(nil)

func NewContactMemoryStorage() *ContactMemoryStorage {
	return &ContactMemoryStorage{
		contacts:   make(map[string]map[string]common.Contact),
		order:      make(map[string][]string),
		activity:   make(map[string][]common.ActivityEntry),
		embeddings: make(map[string]map[string][]float32),
		embUpdated: make(map[string]map[string]time.Time),
	}
}

// AddContact inserts or replaces a contact. New contacts keep insertion
// order in GetContacts, mirroring the created_at ordering of the database
// backend.
func (s *ContactMemoryStorage) AddContact(workspaceID string, contact common.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.contacts[workspaceID]
	if !ok {
		ws = make(map[string]common.Contact)
		s.contacts[workspaceID] = ws
	}
	if _, exists := ws[contact.ID]; !exists {
		s.order[workspaceID] = append(s.order[workspaceID], contact.ID)
	}
	ws[contact.ID] = contact
}

// AddActivity appends one interaction log entry.
func (s *ContactMemoryStorage) AddActivity(workspaceID string, entry common.ActivityEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[workspaceID] = append(s.activity[workspaceID], entry)
}

func (s *ContactMemoryStorage) GetContacts(_ context.Context, workspaceID string) ([]common.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order[workspaceID]
	contacts := make([]common.Contact, 0, len(ids))
	for _, id := range ids {
		contacts = append(contacts, s.contacts[workspaceID][id])
	}
	return contacts, nil
}

func (s *ContactMemoryStorage) GetContact(_ context.Context, workspaceID, contactID string) (*common.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[workspaceID][contactID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &contact, nil
}

func (s *ContactMemoryStorage) GetActivitySince(_ context.Context, workspaceID string, since time.Time) ([]common.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]common.ActivityEntry, 0)
	for _, e := range s.activity[workspaceID] {
		if !e.OccurredAt.Before(since) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *ContactMemoryStorage) UpsertContactEmbedding(_ context.Context, workspaceID, contactID string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddings[workspaceID] == nil {
		s.embeddings[workspaceID] = make(map[string][]float32)
		s.embUpdated[workspaceID] = make(map[string]time.Time)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	s.embeddings[workspaceID][contactID] = vec
	s.embUpdated[workspaceID][contactID] = time.Now().UTC()
	return nil
}

func (s *ContactMemoryStorage) FindSimilarContacts(_ context.Context, workspaceID, contactID string, topN int) ([]common.SimilarContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.embeddings[workspaceID][contactID]
	if !ok {
		return nil, store.ErrNotFound
	}

	similar := make([]common.SimilarContact, 0)
	for id, vec := range s.embeddings[workspaceID] {
		if id == contactID {
			continue
		}
		similar = append(similar, common.SimilarContact{
			ContactID:  id,
			Similarity: cosine(target, vec),
			UpdatedAt:  s.embUpdated[workspaceID][id],
		})
	}

	sort.SliceStable(similar, func(a, b int) bool {
		return similar[a].Similarity > similar[b].Similarity
	})
	if len(similar) > topN {
		similar = similar[:topN]
	}
	return similar, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

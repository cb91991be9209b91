package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vik9541/super-brain-digital-twin/pkg/ai"
	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"
	"github.com/vik9541/super-brain-digital-twin/pkg/store/memory"
)

// stubEmbeddingClient returns a fixed-dimension vector per input and can be
// told to fail for specific documents.
type stubEmbeddingClient struct {
	mu       sync.Mutex
	calls    int
	failDocs map[string]bool
}

func (c *stubEmbeddingClient) GenerateEmbedding(_ context.Context, input []byte) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	fail := c.failDocs[string(input)]
	c.mu.Unlock()
	if fail {
		return nil, errors.New("embedding backend unavailable")
	}
	vec := make([]float32, 4)
	for i, b := range input {
		vec[i%4] += float32(b)
	}
	return vec, nil
}

func (c *stubEmbeddingClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		vec, err := c.GenerateEmbedding(ctx, input)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (c *stubEmbeddingClient) ResetMetrics() {}

func (c *stubEmbeddingClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func TestContactDocument(t *testing.T) {
	tests := []struct {
		name    string
		contact common.Contact
		want    string
	}{
		{
			name: "full contact",
			contact: common.Contact{
				FirstName:    "Ada",
				LastName:     "Lovelace",
				Organization: "Analytical Engines",
				Tags:         []string{"math", "computing"},
				Notes:        "First programmer",
			},
			want: "Ada Lovelace Organization: Analytical Engines Tags: math, computing Notes: First programmer",
		},
		{
			name:    "name only",
			contact: common.Contact{FirstName: "Ada"},
			want:    "Ada",
		},
		{
			name:    "empty contact",
			contact: common.Contact{},
			want:    "Unknown contact",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContactDocument(tt.contact); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGenerateForContact_StoresVector(t *testing.T) {
	st := memory.NewContactMemoryStorage()
	st.AddContact("ws1", common.Contact{ID: "c1", FirstName: "Ada"})
	client := &stubEmbeddingClient{}
	svc := NewService(ServiceParams{Contacts: st, Client: client})

	if err := svc.GenerateForContact(context.Background(), "ws1", "c1"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 embedding call, got %d", client.calls)
	}

	st.AddContact("ws1", common.Contact{ID: "c2", FirstName: "Ada"})
	if err := svc.GenerateForContact(context.Background(), "ws1", "c2"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	similar, err := svc.FindSimilar(context.Background(), "ws1", "c1", 5)
	if err != nil {
		t.Fatalf("find similar failed: %v", err)
	}
	if len(similar) != 1 || similar[0].ContactID != "c2" {
		t.Fatalf("expected c2 as only neighbor, got %+v", similar)
	}
}

func TestGenerateForContact_UnknownContact(t *testing.T) {
	svc := NewService(ServiceParams{
		Contacts: memory.NewContactMemoryStorage(),
		Client:   &stubEmbeddingClient{},
	})

	err := svc.GenerateForContact(context.Background(), "ws1", "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestGenerateForContact_ExhaustsRetries(t *testing.T) {
	st := memory.NewContactMemoryStorage()
	st.AddContact("ws1", common.Contact{ID: "c1", FirstName: "Flaky"})
	client := &stubEmbeddingClient{failDocs: map[string]bool{"Flaky": true}}
	svc := NewService(ServiceParams{Contacts: st, Client: client})

	err := svc.GenerateForContact(context.Background(), "ws1", "c1")
	if err == nil {
		t.Fatal("expected error for persistently failing backend")
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
}

func TestGenerateForWorkspace_CountsFailures(t *testing.T) {
	st := memory.NewContactMemoryStorage()
	for i := 0; i < 5; i++ {
		st.AddContact("ws1", common.Contact{ID: fmt.Sprintf("c%d", i+1), FirstName: fmt.Sprintf("N%d", i+1)})
	}
	// One contact's document always fails.
	client := &stubEmbeddingClient{failDocs: map[string]bool{"N3": true}}
	svc := NewService(ServiceParams{Contacts: st, Client: client, BatchSize: 2})

	report, err := svc.GenerateForWorkspace(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if report.Total != 5 {
		t.Fatalf("expected total 5, got %d", report.Total)
	}
	if report.Successful != 4 || report.Failed != 1 {
		t.Fatalf("expected 4 successes and 1 failure, got %+v", report)
	}
}

func TestGenerateForWorkspace_EmptyWorkspace(t *testing.T) {
	svc := NewService(ServiceParams{
		Contacts: memory.NewContactMemoryStorage(),
		Client:   &stubEmbeddingClient{},
	})

	report, err := svc.GenerateForWorkspace(context.Background(), "ws-empty")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if report.Total != 0 || report.Failed != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestFindSimilar_DefaultTopN(t *testing.T) {
	st := memory.NewContactMemoryStorage()
	st.AddContact("ws1", common.Contact{ID: "c1"})
	svc := NewService(ServiceParams{Contacts: st, Client: &stubEmbeddingClient{}})

	// topN <= 0 falls back to the default instead of failing; the target
	// has no stored embedding, so the lookup itself reports not found.
	_, err := svc.FindSimilar(context.Background(), "ws1", "c1", 0)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound for missing embedding, got %v", err)
	}
}

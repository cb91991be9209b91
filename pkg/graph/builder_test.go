package graph

import (
	"context"
	"testing"
	"time"

	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/store/memory"
)

func TestBuild_EmptyWorkspace(t *testing.T) {
	builder := NewBuilder(memory.NewContactMemoryStorage())

	g, err := builder.Build(context.Background(), "ws-empty")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !g.IsDegenerate() {
		t.Fatal("expected degenerate graph for empty workspace")
	}
	if g.NumNodes() != 1 {
		t.Fatalf("expected 1 placeholder node, got %d", g.NumNodes())
	}
	if g.NumEdges() != 0 {
		t.Fatalf("expected 0 edges, got %d", g.NumEdges())
	}
}

func TestBuild_SharedTagEdges(t *testing.T) {
	st := memory.NewContactMemoryStorage()
	for _, id := range []string{"c1", "c2", "c3"} {
		st.AddContact("ws1", common.Contact{ID: id, FirstName: id, Tags: []string{"golang"}})
	}

	g, err := NewBuilder(st).Build(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if g.NumNodes() != 3 {
		t.Fatalf("expected 3 nodes, got %d", g.NumNodes())
	}
	// 3 contact pairs sharing one tag, each edge symmetrized.
	if g.NumEdges() != 6 {
		t.Fatalf("expected 6 directed edges, got %d", g.NumEdges())
	}
	seen := make(map[[2]int]float64)
	for _, e := range g.Edges {
		seen[[2]int{e.Src, e.Dst}] = e.Weight
	}
	for pair, w := range seen {
		reverse, ok := seen[[2]int{pair[1], pair[0]}]
		if !ok {
			t.Fatalf("edge %v has no reverse", pair)
		}
		if reverse != w {
			t.Fatalf("edge %v weight %f, reverse %f", pair, w, reverse)
		}
		if w != 1.0 {
			t.Fatalf("expected weight 1.0 for single shared tag, got %f", w)
		}
	}
}

func TestBuild_TagWeightNormalizedByLargerSet(t *testing.T) {
	st := memory.NewContactMemoryStorage()
	st.AddContact("ws1", common.Contact{ID: "a", Tags: []string{"x"}})
	st.AddContact("ws1", common.Contact{ID: "b", Tags: []string{"x", "y", "z", "w"}})

	g, err := NewBuilder(st).Build(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if g.NumEdges() != 2 {
		t.Fatalf("expected 2 directed edges, got %d", g.NumEdges())
	}
	if g.Edges[0].Weight != 0.25 {
		t.Fatalf("expected weight 1/4, got %f", g.Edges[0].Weight)
	}
}

func TestBuild_InteractionWindowAndThreshold(t *testing.T) {
	st := memory.NewContactMemoryStorage()
	st.AddContact("ws1", common.Contact{ID: "a"})
	st.AddContact("ws1", common.Contact{ID: "b"})

	now := time.Now()
	// Two recent events for a, one stale event for b.
	st.AddActivity("ws1", common.ActivityEntry{ContactID: "a", ActivityType: "call", OccurredAt: now.Add(-time.Hour)})
	st.AddActivity("ws1", common.ActivityEntry{ContactID: "a", ActivityType: "email", OccurredAt: now.Add(-2 * time.Hour)})
	st.AddActivity("ws1", common.ActivityEntry{ContactID: "b", ActivityType: "call", OccurredAt: now.Add(-200 * 24 * time.Hour)})

	builder := NewBuilderWithOptions(st, BuildOptions{
		MinInteractionCount: 2,
		IncludeSharedTags:   false,
		ActivityWindow:      90 * 24 * time.Hour,
	})
	g, err := builder.Build(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// a's pair meets the threshold, b's single stale event does not survive
	// the window. One edge plus its reverse.
	if g.NumEdges() != 2 {
		t.Fatalf("expected 2 directed edges, got %d", g.NumEdges())
	}
	aIdx := g.IDToIndex["a"]
	if g.Edges[0].Src != aIdx || g.Edges[0].Weight != 2 {
		t.Fatalf("expected edge for a with weight 2, got %+v", g.Edges[0])
	}
}

func TestBuild_IDIndexBijection(t *testing.T) {
	st := memory.NewContactMemoryStorage()
	ids := []string{"c1", "c2", "c3", "c4"}
	for _, id := range ids {
		st.AddContact("ws1", common.Contact{ID: id})
	}

	g, err := NewBuilder(st).Build(context.Background(), "ws1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(g.IDToIndex) != len(ids) || len(g.IndexToID) != len(ids) {
		t.Fatalf("expected %d mappings, got %d/%d", len(ids), len(g.IDToIndex), len(g.IndexToID))
	}
	for id, idx := range g.IDToIndex {
		if g.IndexToID[idx] != id {
			t.Fatalf("mapping mismatch for %s: index %d maps back to %s", id, idx, g.IndexToID[idx])
		}
	}
}

func TestExtractFeatures(t *testing.T) {
	tests := []struct {
		name    string
		contact common.Contact
		want    []float64
	}{
		{
			name:    "typical contact",
			contact: common.Contact{InfluenceScore: 50, Tags: []string{"a", "b"}, Organization: "Acme"},
			want:    []float64{0.5, 0.2, 1.0},
		},
		{
			name:    "clamped above",
			contact: common.Contact{InfluenceScore: 250, Tags: make([]string, 15)},
			want:    []float64{1.0, 1.0, 0.0},
		},
		{
			name:    "negative influence clamped",
			contact: common.Contact{InfluenceScore: -10},
			want:    []float64{0.0, 0.0, 0.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractFeatures(tt.contact)
			if len(got) != FeatureDim {
				t.Fatalf("expected %d features, got %d", FeatureDim, len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("feature %d: expected %f, got %f", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestSymmetrize_EmptyGraphNoop(t *testing.T) {
	g := &Graph{Features: [][]float64{{0, 0, 0}}, Edges: []Edge{}}
	g.Symmetrize()
	if g.NumEdges() != 0 {
		t.Fatalf("expected 0 edges, got %d", g.NumEdges())
	}
}

package gnn

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/vik9541/super-brain-digital-twin/pkg/graph"
)

func testGraph(nodes int) ([][]float64, []graph.Edge) {
	features := make([][]float64, nodes)
	for i := range features {
		features[i] = []float64{
			float64(i) / float64(nodes),
			float64(nodes-i) / float64(nodes),
			float64(i % 2),
		}
	}
	edges := make([]graph.Edge, 0, 2*nodes)
	for i := 0; i < nodes-1; i++ {
		edges = append(edges, graph.Edge{Src: i, Dst: i + 1, Weight: 1})
		edges = append(edges, graph.Edge{Src: i + 1, Dst: i, Weight: 1})
	}
	return features, edges
}

func TestForward_OutputShape(t *testing.T) {
	features, edges := testGraph(5)
	net := NewNetwork(DefaultConfig(), 1)

	emb := net.Forward(features, edges, false)
	if len(emb) != 5 {
		t.Fatalf("expected 5 embedding rows, got %d", len(emb))
	}
	for i, row := range emb {
		if len(row) != DefaultConfig().OutDim {
			t.Fatalf("row %d: expected dim %d, got %d", i, DefaultConfig().OutDim, len(row))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("row %d col %d is not finite: %f", i, j, v)
			}
		}
	}
}

func TestForward_EvalDeterministic(t *testing.T) {
	features, edges := testGraph(4)
	net := NewNetwork(DefaultConfig(), 7)

	first := net.Forward(features, edges, false)
	second := net.Forward(features, edges, false)
	for i := range first {
		for j := range first[i] {
			if first[i][j] != second[i][j] {
				t.Fatalf("eval forward is not deterministic at [%d][%d]", i, j)
			}
		}
	}
}

func TestForward_IsolatedNode(t *testing.T) {
	features := [][]float64{{0.5, 0.5, 1}}
	net := NewNetwork(DefaultConfig(), 1)

	emb := net.Forward(features, nil, false)
	if len(emb) != 1 || len(emb[0]) != DefaultConfig().OutDim {
		t.Fatal("expected a single full-width embedding row")
	}
	for _, v := range emb[0] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("embedding value not finite: %f", v)
		}
	}
}

func TestTopK_ExcludesTargetAndListed(t *testing.T) {
	embeddings := [][]float64{
		{1, 0},
		{0.9, 0.1},
		{0, 1},
		{-1, 0},
	}

	top := TopK(embeddings, 0, 2, []int{1})
	if len(top) != 2 {
		t.Fatalf("expected 2 results, got %d", len(top))
	}
	for _, idx := range top {
		if idx == 0 || idx == 1 {
			t.Fatalf("excluded index %d returned", idx)
		}
	}
	if top[0] != 2 || top[1] != 3 {
		t.Fatalf("expected order [2 3], got %v", top)
	}
}

func TestTopK_KLargerThanCandidates(t *testing.T) {
	embeddings := make([][]float64, 10)
	for i := range embeddings {
		embeddings[i] = []float64{float64(i + 1), 1}
	}

	top := TopK(embeddings, 0, 1000, nil)
	if len(top) != 9 {
		t.Fatalf("expected 9 results, got %d", len(top))
	}
	prev := math.Inf(1)
	for _, idx := range top {
		sim := CosineSimilarity(embeddings[0], embeddings[idx])
		if sim > prev {
			t.Fatalf("results not sorted by similarity: %v", top)
		}
		prev = sim
	}
}

func TestTopK_NonPositiveK(t *testing.T) {
	embeddings := [][]float64{{1, 0}, {0, 1}}
	if got := TopK(embeddings, 0, 0, nil); len(got) != 0 {
		t.Fatalf("expected empty result for k=0, got %v", got)
	}
	if got := TopK(embeddings, 0, -3, nil); len(got) != 0 {
		t.Fatalf("expected empty result for negative k, got %v", got)
	}
}

func TestTopK_InvalidTarget(t *testing.T) {
	embeddings := [][]float64{{1, 0}, {0, 1}}
	if got := TopK(embeddings, 5, 1, nil); len(got) != 0 {
		t.Fatalf("expected empty result for out-of-range target, got %v", got)
	}
	if got := TopK(nil, 0, 1, nil); len(got) != 0 {
		t.Fatalf("expected empty result for empty embeddings, got %v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "zero norm", a: []float64{0, 0}, b: []float64{1, 1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestEncodeDecode_Roundtrip(t *testing.T) {
	net := NewNetwork(DefaultConfig(), 42)

	data, err := net.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := DecodeNetwork(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Config != net.Config {
		t.Fatalf("config mismatch: %+v vs %+v", decoded.Config, net.Config)
	}
	if len(decoded.Layers) != len(net.Layers) {
		t.Fatalf("layer count mismatch: %d vs %d", len(decoded.Layers), len(net.Layers))
	}

	features, edges := testGraph(4)
	a := net.Forward(features, edges, false)
	b := decoded.Forward(features, edges, false)
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("decoded network diverges at [%d][%d]", i, j)
			}
		}
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	net := NewNetwork(DefaultConfig(), 42)

	if err := net.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := LoadNetwork(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Config != net.Config {
		t.Fatalf("config mismatch after load: %+v", loaded.Config)
	}
}

func TestLoadNetwork_MissingFile(t *testing.T) {
	if _, err := LoadNetwork(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

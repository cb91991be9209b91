package gnn

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/vik9541/super-brain-digital-twin/pkg/graph"
)

func trainerGraph(nodes int) *graph.Graph {
	features, edges := testGraph(nodes)
	g := &graph.Graph{
		Features:  features,
		Edges:     edges,
		IDToIndex: make(map[string]int, nodes),
		IndexToID: make([]string, nodes),
	}
	for i := 0; i < nodes; i++ {
		id := string(rune('a' + i))
		g.IDToIndex[id] = i
		g.IndexToID[i] = id
	}
	return g
}

func TestTrain_RequiresModel(t *testing.T) {
	tr := NewTrainer(1)
	_, err := tr.Train(context.Background(), trainerGraph(3), TrainOptions{})
	if !errors.Is(err, ErrModelNotCreated) {
		t.Fatalf("expected ErrModelNotCreated, got %v", err)
	}
}

func TestPredict_RequiresTraining(t *testing.T) {
	tr := NewTrainer(1)
	if _, err := tr.Predict(trainerGraph(3)); !errors.Is(err, ErrModelNotCreated) {
		t.Fatalf("expected ErrModelNotCreated, got %v", err)
	}

	tr.CreateModel(DefaultConfig())
	if _, err := tr.Predict(trainerGraph(3)); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}

func TestSaveModel_RequiresTraining(t *testing.T) {
	tr := NewTrainer(1)
	tr.CreateModel(DefaultConfig())
	err := tr.SaveModel(filepath.Join(t.TempDir(), "model.json"))
	if !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}

func TestTrain_LossBoundedAndHistoryFull(t *testing.T) {
	tr := NewTrainer(42)
	tr.CreateModel(DefaultConfig())

	opts := TrainOptions{Epochs: 8, LearningRate: 0.01, NegativeSamples: 3}
	result, err := tr.Train(context.Background(), trainerGraph(6), opts)
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	if len(result.History) != opts.Epochs {
		t.Fatalf("expected %d history entries, got %d", opts.Epochs, len(result.History))
	}
	if result.FinalLoss != result.History[len(result.History)-1] {
		t.Fatal("final loss does not match last history entry")
	}
	// Each hinge term is bounded by 2, so the combined loss stays in [0, 4].
	for i, loss := range result.History {
		if math.IsNaN(loss) || loss < 0 || loss > 4 {
			t.Fatalf("epoch %d loss out of range: %f", i+1, loss)
		}
	}
}

func TestTrain_EdgelessGraphSucceeds(t *testing.T) {
	g := trainerGraph(4)
	g.Edges = nil

	tr := NewTrainer(1)
	tr.CreateModel(DefaultConfig())
	result, err := tr.Train(context.Background(), g, TrainOptions{Epochs: 3})
	if err != nil {
		t.Fatalf("expected success on edgeless graph, got %v", err)
	}
	if result.FinalLoss != 0 {
		t.Fatalf("expected zero loss, got %f", result.FinalLoss)
	}
	if _, err := tr.Predict(g); err != nil {
		t.Fatalf("predict after edgeless training failed: %v", err)
	}
}

func TestTrain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTrainer(1)
	tr.CreateModel(DefaultConfig())
	_, err := tr.Train(ctx, trainerGraph(4), TrainOptions{Epochs: 5})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := tr.Predict(trainerGraph(4)); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained after aborted run, got %v", err)
	}
}

func TestTrain_DefaultsApplied(t *testing.T) {
	tr := NewTrainer(3)
	tr.CreateModel(DefaultConfig())

	result, err := tr.Train(context.Background(), trainerGraph(3), TrainOptions{Epochs: 2})
	if err != nil {
		t.Fatalf("training failed: %v", err)
	}
	if len(result.History) != 2 {
		t.Fatalf("expected 2 epochs, got %d", len(result.History))
	}
}

func TestAdoptModel_EnablesPredict(t *testing.T) {
	g := trainerGraph(4)

	tr := NewTrainer(9)
	tr.CreateModel(DefaultConfig())
	if _, err := tr.Train(context.Background(), g, TrainOptions{Epochs: 2}); err != nil {
		t.Fatalf("training failed: %v", err)
	}
	data, err := tr.Model().Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	restored, err := DecodeNetwork(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	adopter := NewTrainer(1)
	adopter.AdoptModel(restored)
	emb, err := adopter.Predict(g)
	if err != nil {
		t.Fatalf("predict after adopt failed: %v", err)
	}
	if len(emb) != g.NumNodes() {
		t.Fatalf("expected %d embedding rows, got %d", g.NumNodes(), len(emb))
	}
}

func TestContrastiveLoss_PerfectEmbeddingsNearZero(t *testing.T) {
	// Two connected nodes with identical embeddings: positive term is zero,
	// negatives may still draw the node itself, so only the positive part is
	// asserted.
	g := &graph.Graph{
		Features: [][]float64{{1, 0, 0}, {1, 0, 0}},
		Edges:    []graph.Edge{{Src: 0, Dst: 1, Weight: 1}, {Src: 1, Dst: 0, Weight: 1}},
	}
	emb := [][]float64{{1, 1}, {1, 1}}

	tr := NewTrainer(5)
	loss, dEmb := tr.contrastiveLossAndGrad(emb, g, 1)
	if dEmb == nil {
		t.Fatal("expected gradient for graph with edges")
	}
	// All pairs are identical vectors, so every similarity is 1: positive
	// loss 0, each negative draw contributes 2.
	if math.Abs(loss-2) > 1e-9 {
		t.Fatalf("expected loss 2, got %f", loss)
	}
}

func TestContrastiveLoss_EdgelessNil(t *testing.T) {
	g := &graph.Graph{Features: [][]float64{{1, 0, 0}}}
	tr := NewTrainer(5)
	loss, dEmb := tr.contrastiveLossAndGrad([][]float64{{1, 1}}, g, 3)
	if loss != 0 {
		t.Fatalf("expected zero loss, got %f", loss)
	}
	if dEmb != nil {
		t.Fatal("expected nil gradient for edgeless graph")
	}
}

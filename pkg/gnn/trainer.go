package gnn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/vik9541/super-brain-digital-twin/pkg/graph"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
)

var (
	// ErrModelNotCreated is returned when Train/Predict/SaveModel is called
	// before CreateModel.
	ErrModelNotCreated = errors.New("model not created, call CreateModel first")
	// ErrNotTrained is returned when Predict or SaveModel is called before a
	// successful training run.
	ErrNotTrained = errors.New("model not trained yet")
	// ErrTrainingDiverged is returned when the loss becomes non-finite. The
	// model must not be cached or persisted in that state.
	ErrTrainingDiverged = errors.New("training diverged: loss is not finite")
)

type trainerState int

const (
	stateUninitialized trainerState = iota
	stateModelCreated
	stateTrained
)

// TrainOptions parametrize one training run. Zero values fall back to the
// production defaults (20 epochs, lr 0.01, 5 negative rounds).
type TrainOptions struct {
	Epochs          int
	LearningRate    float64
	NegativeSamples int
}

// DefaultTrainOptions returns the production training defaults.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Epochs:          20,
		LearningRate:    0.01,
		NegativeSamples: 5,
	}
}

func (o TrainOptions) withDefaults() TrainOptions {
	def := DefaultTrainOptions()
	if o.Epochs <= 0 {
		o.Epochs = def.Epochs
	}
	if o.LearningRate <= 0 {
		o.LearningRate = def.LearningRate
	}
	if o.NegativeSamples <= 0 {
		o.NegativeSamples = def.NegativeSamples
	}
	return o
}

// TrainResult reports the outcome of a training run.
type TrainResult struct {
	FinalLoss float64
	History   []float64
}

// Trainer owns exactly one Network at a time and runs the self-supervised
// contrastive optimization over it. A Trainer is not safe for concurrent
// use; the recommendation service serializes training per workspace.
type Trainer struct {
	model *Network
	state trainerState
	rng   *rand.Rand
	adam  *adamState
}

// NewTrainer creates a trainer seeded from the given source. The seed only
// affects weight initialization, dropout and negative sampling.
func NewTrainer(seed int64) *Trainer {
	return &Trainer{rng: rand.New(rand.NewSource(seed))}
}

// CreateModel instantiates a fresh network owned by this trainer.
func (t *Trainer) CreateModel(cfg Config) *Network {
	t.model = NewNetwork(cfg, t.rng.Int63())
	t.state = stateModelCreated
	t.adam = nil
	return t.model
}

// AdoptModel makes the trainer own an already trained network, e.g. one
// restored from persisted weights. The trainer moves straight to the
// trained state.
func (t *Trainer) AdoptModel(model *Network) {
	t.model = model
	t.state = stateTrained
	t.adam = nil
}

// Model returns the currently owned network, or nil.
func (t *Trainer) Model() *Network {
	return t.model
}

// Train runs full-graph contrastive training. Every epoch processes the
// whole edge list: connected pairs are pushed toward cosine similarity +1,
// uniformly sampled random pairs toward -1. The context is only checked
// between epochs so an epoch never ends with half-applied updates.
func (t *Trainer) Train(ctx context.Context, g *graph.Graph, opts TrainOptions) (*TrainResult, error) {
	if t.model == nil {
		return nil, ErrModelNotCreated
	}
	opts = opts.withDefaults()

	t.adam = newAdamState(t.model, opts.LearningRate)
	history := make([]float64, 0, opts.Epochs)
	finalLoss := 0.0

	logger.Info("[GNN] Starting training", "epochs", opts.Epochs, "nodes", g.NumNodes(), "edges", g.NumEdges())

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training aborted after %d epochs: %w", epoch, err)
		}

		embeddings, caches := t.model.forward(g.Features, g.Edges, true)

		loss, dEmb := t.contrastiveLossAndGrad(embeddings, g, opts.NegativeSamples)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, fmt.Errorf("epoch %d: %w", epoch+1, ErrTrainingDiverged)
		}

		if dEmb != nil {
			grads := t.model.backward(caches, g.Edges, dEmb)
			t.adam.step(t.model, grads)
		}

		history = append(history, loss)
		finalLoss = loss
		if epoch == 0 || (epoch+1)%5 == 0 {
			logger.Info("[GNN] Training epoch", "epoch", epoch+1, "total", opts.Epochs, "loss", loss)
		}
	}

	t.state = stateTrained
	logger.Info("[GNN] Training complete", "final_loss", finalLoss)

	return &TrainResult{FinalLoss: finalLoss, History: history}, nil
}

// Predict runs an evaluation-mode forward pass over the trained model.
func (t *Trainer) Predict(g *graph.Graph) ([][]float64, error) {
	if t.model == nil {
		return nil, ErrModelNotCreated
	}
	if t.state != stateTrained {
		return nil, ErrNotTrained
	}
	return t.model.Forward(g.Features, g.Edges, false), nil
}

// SaveModel persists the trained weights; invalid before training.
func (t *Trainer) SaveModel(path string) error {
	if t.model == nil {
		return ErrModelNotCreated
	}
	if t.state != stateTrained {
		return ErrNotTrained
	}
	return t.model.Save(path)
}

// contrastiveLossAndGrad computes the hinge contrastive loss and its
// gradient with respect to the embedding matrix. With an edgeless graph the
// loss is the zero constant and there is nothing to propagate, which keeps
// the optimizer step a no-op instead of a failure.
func (t *Trainer) contrastiveLossAndGrad(embeddings [][]float64, g *graph.Graph, negRounds int) (float64, [][]float64) {
	numEdges := len(g.Edges)
	if numEdges == 0 {
		return 0, nil
	}

	n := len(embeddings)
	dim := len(embeddings[0])
	norms := make([]float64, n)
	for i, row := range embeddings {
		norms[i] = vectorNorm(row)
	}

	dEmb := make([][]float64, n)
	for i := range dEmb {
		dEmb[i] = make([]float64, dim)
	}

	// Positive pairs: every directed edge, pushed toward +1.
	posLoss := 0.0
	posCoeff := 1.0 / float64(numEdges)
	for _, e := range g.Edges {
		sim := cosineWithNorms(embeddings[e.Src], embeddings[e.Dst], norms[e.Src], norms[e.Dst])
		if sim < 1 {
			posLoss += 1 - sim
			accumulateCosineGrad(dEmb, embeddings, norms, e.Src, e.Dst, sim, -posCoeff)
		}
	}
	posLoss /= float64(numEdges)

	// Negative rounds: uniform random partners pushed toward -1. True
	// neighbors are not excluded from the draw; the occasional false
	// negative is tolerated noise.
	negLoss := 0.0
	negCoeff := 1.0 / float64(numEdges*negRounds)
	for round := 0; round < negRounds; round++ {
		roundLoss := 0.0
		for _, e := range g.Edges {
			neg := t.rng.Intn(n)
			sim := cosineWithNorms(embeddings[e.Src], embeddings[neg], norms[e.Src], norms[neg])
			if sim > -1 {
				roundLoss += sim + 1
				accumulateCosineGrad(dEmb, embeddings, norms, e.Src, neg, sim, negCoeff)
			}
		}
		negLoss += roundLoss / float64(numEdges)
	}
	negLoss /= float64(negRounds)

	return posLoss + negLoss, dEmb
}

// accumulateCosineGrad adds coeff * d cos(a,b) / d{a,b} into the embedding
// gradient. For s = a.b/(|a||b|): ds/da = b/(|a||b|) - s*a/|a|^2 and
// symmetrically for b. Near-zero norms contribute nothing, mirroring the
// epsilon-guarded similarity itself.
func accumulateCosineGrad(dEmb, embeddings [][]float64, norms []float64, a, b int, sim, coeff float64) {
	normA, normB := norms[a], norms[b]
	if normA*normB < cosEpsilon {
		return
	}
	va, vb := embeddings[a], embeddings[b]
	invAB := 1 / (normA * normB)
	invAA := 1 / (normA * normA)
	invBB := 1 / (normB * normB)
	for k := range va {
		dEmb[a][k] += coeff * (vb[k]*invAB - sim*va[k]*invAA)
		dEmb[b][k] += coeff * (va[k]*invAB - sim*vb[k]*invBB)
	}
}

// layerGrads mirrors the trainable parameters of one layer.
type layerGrads struct {
	dWSelf  [][]float64
	dWNeigh [][]float64
	dBias   []float64
	dGamma  []float64
	dBeta   []float64
}

// backward propagates the embedding gradient through every layer in reverse
// order and returns per-layer parameter gradients. The forward caches carry
// the activations needed here.
func (n *Network) backward(caches []*layerCache, edges []graph.Edge, dOut [][]float64) []*layerGrads {
	grads := make([]*layerGrads, len(n.Layers))
	g := dOut

	for li := len(n.Layers) - 1; li >= 0; li-- {
		l := n.Layers[li]
		cache := caches[li]
		nRows := len(cache.input)

		lg := &layerGrads{
			dWSelf:  zeroMatrix(l.InDim, l.OutDim),
			dWNeigh: zeroMatrix(l.InDim, l.OutDim),
			dBias:   make([]float64, l.OutDim),
		}

		dPre := g
		if l.hasNorm() {
			// Dropout backward: rescale by the stored keep mask.
			if cache.dropMask != nil {
				masked := make([][]float64, nRows)
				for i := 0; i < nRows; i++ {
					masked[i] = make([]float64, l.OutDim)
					for j := 0; j < l.OutDim; j++ {
						masked[i][j] = g[i][j] * cache.dropMask[i][j]
					}
				}
				g = masked
			}

			// ReLU backward: zero where the normalized activation was <= 0.
			// The batch-norm output sign equals gamma*xhat+beta > 0.
			lg.dGamma = make([]float64, l.OutDim)
			lg.dBeta = make([]float64, l.OutDim)
			dPre = zeroMatrix(nRows, l.OutDim)

			for j := 0; j < l.OutDim; j++ {
				sumDXhat := 0.0
				sumDXhatXhat := 0.0
				col := make([]float64, nRows)
				for i := 0; i < nRows; i++ {
					bnOut := l.Gamma[j]*cache.bnXhat[i][j] + l.Beta[j]
					gij := g[i][j]
					if bnOut <= 0 {
						gij = 0
					}
					lg.dGamma[j] += gij * cache.bnXhat[i][j]
					lg.dBeta[j] += gij
					dxhat := gij * l.Gamma[j]
					col[i] = dxhat
					sumDXhat += dxhat
					sumDXhatXhat += dxhat * cache.bnXhat[i][j]
				}
				invN := 1 / float64(nRows)
				invStd := 1 / cache.bnStd[j]
				for i := 0; i < nRows; i++ {
					dPre[i][j] = (col[i] - sumDXhat*invN - cache.bnXhat[i][j]*sumDXhatXhat*invN) * invStd
				}
			}
		}

		// Linear part: pre = input*WSelf + agg*WNeigh + bias.
		for i := 0; i < nRows; i++ {
			for j := 0; j < l.OutDim; j++ {
				dij := dPre[i][j]
				if dij == 0 {
					continue
				}
				lg.dBias[j] += dij
				for k := 0; k < l.InDim; k++ {
					lg.dWSelf[k][j] += cache.input[i][k] * dij
					lg.dWNeigh[k][j] += cache.agg[i][k] * dij
				}
			}
		}
		grads[li] = lg

		if li == 0 {
			break
		}

		// Gradient w.r.t. the layer input: the self path plus the mean
		// aggregation transposed over the edge list.
		dInput := zeroMatrix(nRows, l.InDim)
		dAgg := zeroMatrix(nRows, l.InDim)
		for i := 0; i < nRows; i++ {
			for j := 0; j < l.OutDim; j++ {
				dij := dPre[i][j]
				if dij == 0 {
					continue
				}
				for k := 0; k < l.InDim; k++ {
					dInput[i][k] += dij * l.WSelf[k][j]
					dAgg[i][k] += dij * l.WNeigh[k][j]
				}
			}
		}
		for _, e := range edges {
			if e.Src < 0 || e.Src >= nRows || e.Dst < 0 || e.Dst >= nRows {
				continue
			}
			invDeg := 1 / cache.inDeg[e.Dst]
			for k := 0; k < l.InDim; k++ {
				dInput[e.Src][k] += dAgg[e.Dst][k] * invDeg
			}
		}
		g = dInput
	}

	return grads
}

func zeroMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

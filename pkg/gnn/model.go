package gnn

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/vik9541/super-brain-digital-twin/pkg/graph"
)

const (
	bnEpsilon  = 1e-5
	bnMomentum = 0.1
	cosEpsilon = 1e-8
)

// Config describes the network architecture. The defaults mirror the
// production setup: three mean-aggregation layers taking the 3-scalar node
// features through a 64-wide hidden space into 128-dimensional embeddings.
type Config struct {
	InFeatures int     `json:"in_features"`
	HiddenDim  int     `json:"hidden_dim"`
	OutDim     int     `json:"out_dim"`
	NumLayers  int     `json:"num_layers"`
	Dropout    float64 `json:"dropout"`
}

// DefaultConfig returns the production architecture.
func DefaultConfig() Config {
	return Config{
		InFeatures: graph.FeatureDim,
		HiddenDim:  64,
		OutDim:     128,
		NumLayers:  3,
		Dropout:    0.2,
	}
}

// layer is one neighborhood-aggregation layer: two projections (self and
// neighbor mean) plus a bias, followed by batch normalization on every layer
// except the last. RunningMean/RunningVar hold the statistics used in
// evaluation mode.
type layer struct {
	InDim  int `json:"in_dim"`
	OutDim int `json:"out_dim"`

	WSelf  [][]float64 `json:"w_self"`
	WNeigh [][]float64 `json:"w_neigh"`
	Bias   []float64   `json:"bias"`

	Gamma       []float64 `json:"gamma,omitempty"`
	Beta        []float64 `json:"beta,omitempty"`
	RunningMean []float64 `json:"running_mean,omitempty"`
	RunningVar  []float64 `json:"running_var,omitempty"`
}

// Network is the stacked neighborhood-aggregation embedding model. Its only
// state is the trained weights; the graph is passed into every forward call,
// so one set of weights works with any graph of the same feature width.
type Network struct {
	Config Config   `json:"config"`
	Layers []*layer `json:"layers"`

	rng *rand.Rand
}

// NewNetwork creates a network with Glorot-initialized weights.
func NewNetwork(cfg Config, seed int64) *Network {
	if cfg.NumLayers < 2 {
		cfg.NumLayers = 2
	}
	rng := rand.New(rand.NewSource(seed))

	dims := make([]int, 0, cfg.NumLayers+1)
	dims = append(dims, cfg.InFeatures)
	for i := 0; i < cfg.NumLayers-1; i++ {
		dims = append(dims, cfg.HiddenDim)
	}
	dims = append(dims, cfg.OutDim)

	layers := make([]*layer, cfg.NumLayers)
	for i := 0; i < cfg.NumLayers; i++ {
		layers[i] = newLayer(dims[i], dims[i+1], i < cfg.NumLayers-1, rng)
	}

	return &Network{Config: cfg, Layers: layers, rng: rng}
}

func newLayer(inDim, outDim int, withNorm bool, rng *rand.Rand) *layer {
	l := &layer{
		InDim:  inDim,
		OutDim: outDim,
		WSelf:  glorotMatrix(inDim, outDim, rng),
		WNeigh: glorotMatrix(inDim, outDim, rng),
		Bias:   make([]float64, outDim),
	}
	if withNorm {
		l.Gamma = make([]float64, outDim)
		l.Beta = make([]float64, outDim)
		l.RunningMean = make([]float64, outDim)
		l.RunningVar = make([]float64, outDim)
		for j := 0; j < outDim; j++ {
			l.Gamma[j] = 1
			l.RunningVar[j] = 1
		}
	}
	return l
}

func glorotMatrix(inDim, outDim int, rng *rand.Rand) [][]float64 {
	limit := math.Sqrt(6.0 / float64(inDim+outDim))
	m := make([][]float64, inDim)
	for i := range m {
		m[i] = make([]float64, outDim)
		for j := range m[i] {
			m[i][j] = (rng.Float64()*2 - 1) * limit
		}
	}
	return m
}

// hasNorm reports whether the layer carries batch normalization parameters.
func (l *layer) hasNorm() bool {
	return len(l.Gamma) > 0
}

// layerCache holds the intermediate activations of one layer needed by the
// backward pass.
type layerCache struct {
	input    [][]float64
	agg      [][]float64
	inDeg    []float64
	pre      [][]float64
	bnXhat   [][]float64
	bnStd    []float64
	dropMask [][]float64
	output   [][]float64
}

// Forward computes one embedding row per node. In training mode batch
// normalization uses batch statistics (and updates the running ones) and
// dropout is active; in evaluation mode the pass is fully deterministic.
func (n *Network) Forward(features [][]float64, edges []graph.Edge, training bool) [][]float64 {
	out, _ := n.forward(features, edges, training)
	return out
}

func (n *Network) forward(features [][]float64, edges []graph.Edge, training bool) ([][]float64, []*layerCache) {
	x := features
	caches := make([]*layerCache, len(n.Layers))

	for li, l := range n.Layers {
		cache := &layerCache{input: x}
		cache.agg, cache.inDeg = aggregateNeighborMean(x, edges, l.InDim)

		h := make([][]float64, len(x))
		for i := range x {
			row := make([]float64, l.OutDim)
			for j := 0; j < l.OutDim; j++ {
				sum := l.Bias[j]
				for k := 0; k < l.InDim; k++ {
					sum += x[i][k]*l.WSelf[k][j] + cache.agg[i][k]*l.WNeigh[k][j]
				}
				row[j] = sum
			}
			h[i] = row
		}
		cache.pre = h

		if !l.hasNorm() {
			// Last layer: its raw output is the embedding space.
			cache.output = h
			caches[li] = cache
			x = h
			continue
		}

		normed := l.batchNorm(h, training, cache)
		activated := make([][]float64, len(normed))
		for i := range normed {
			row := make([]float64, l.OutDim)
			for j := range row {
				if normed[i][j] > 0 {
					row[j] = normed[i][j]
				}
			}
			activated[i] = row
		}

		if training && n.Config.Dropout > 0 {
			keep := 1 - n.Config.Dropout
			mask := make([][]float64, len(activated))
			dropped := make([][]float64, len(activated))
			for i := range activated {
				mask[i] = make([]float64, l.OutDim)
				dropped[i] = make([]float64, l.OutDim)
				for j := range mask[i] {
					if n.rng.Float64() < keep {
						mask[i][j] = 1 / keep
						dropped[i][j] = activated[i][j] / keep
					}
				}
			}
			cache.dropMask = mask
			cache.output = dropped
		} else {
			cache.output = activated
		}

		caches[li] = cache
		x = cache.output
	}

	return x, caches
}

// batchNorm normalizes each output column. Training mode uses the statistics
// of the current node batch and folds them into the running averages; eval
// mode applies the running statistics, which keeps inference idempotent.
func (l *layer) batchNorm(h [][]float64, training bool, cache *layerCache) [][]float64 {
	nRows := len(h)
	out := make([][]float64, nRows)
	for i := range out {
		out[i] = make([]float64, l.OutDim)
	}

	if !training {
		for j := 0; j < l.OutDim; j++ {
			std := math.Sqrt(l.RunningVar[j] + bnEpsilon)
			for i := 0; i < nRows; i++ {
				xhat := (h[i][j] - l.RunningMean[j]) / std
				out[i][j] = l.Gamma[j]*xhat + l.Beta[j]
			}
		}
		return out
	}

	cache.bnXhat = make([][]float64, nRows)
	for i := range cache.bnXhat {
		cache.bnXhat[i] = make([]float64, l.OutDim)
	}
	cache.bnStd = make([]float64, l.OutDim)

	for j := 0; j < l.OutDim; j++ {
		mean := 0.0
		for i := 0; i < nRows; i++ {
			mean += h[i][j]
		}
		mean /= float64(nRows)

		variance := 0.0
		for i := 0; i < nRows; i++ {
			d := h[i][j] - mean
			variance += d * d
		}
		variance /= float64(nRows)

		std := math.Sqrt(variance + bnEpsilon)
		cache.bnStd[j] = std
		for i := 0; i < nRows; i++ {
			xhat := (h[i][j] - mean) / std
			cache.bnXhat[i][j] = xhat
			out[i][j] = l.Gamma[j]*xhat + l.Beta[j]
		}

		l.RunningMean[j] = (1-bnMomentum)*l.RunningMean[j] + bnMomentum*mean
		l.RunningVar[j] = (1-bnMomentum)*l.RunningVar[j] + bnMomentum*variance
	}

	return out
}

// aggregateNeighborMean computes, per node, the mean of its neighbors'
// feature rows. Edge direction follows the edge list: the source node's
// features flow to the target. Nodes without incoming edges aggregate to
// the zero vector.
func aggregateNeighborMean(x [][]float64, edges []graph.Edge, dim int) ([][]float64, []float64) {
	agg := make([][]float64, len(x))
	for i := range agg {
		agg[i] = make([]float64, dim)
	}
	inDeg := make([]float64, len(x))
	for _, e := range edges {
		if e.Src < 0 || e.Src >= len(x) || e.Dst < 0 || e.Dst >= len(x) {
			continue
		}
		inDeg[e.Dst]++
		for k := 0; k < dim; k++ {
			agg[e.Dst][k] += x[e.Src][k]
		}
	}
	for i := range agg {
		if inDeg[i] == 0 {
			continue
		}
		for k := 0; k < dim; k++ {
			agg[i][k] /= inDeg[i]
		}
	}
	return agg, inDeg
}

// TopK ranks all nodes by cosine similarity against the target row and
// returns the indices of the k most similar ones, best first. The target and
// every index in exclude are never returned. k is clamped to the number of
// available candidates; a clamp to zero or below yields an empty slice.
func TopK(embeddings [][]float64, targetIdx, k int, exclude []int) []int {
	n := len(embeddings)
	if n == 0 || targetIdx < 0 || targetIdx >= n {
		return []int{}
	}

	norms := make([]float64, n)
	for i, row := range embeddings {
		norms[i] = vectorNorm(row)
	}

	sims := make([]float64, n)
	for i := range embeddings {
		sims[i] = cosineWithNorms(embeddings[targetIdx], embeddings[i], norms[targetIdx], norms[i])
	}
	sims[targetIdx] = math.Inf(-1)
	for _, idx := range exclude {
		if idx >= 0 && idx < n {
			sims[idx] = math.Inf(-1)
		}
	}

	if k > n-1-len(exclude) {
		k = n - 1 - len(exclude)
	}
	if k <= 0 {
		return []int{}
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return sims[indices[a]] > sims[indices[b]]
	})

	top := make([]int, 0, k)
	for _, idx := range indices {
		if math.IsInf(sims[idx], -1) {
			continue
		}
		top = append(top, idx)
		if len(top) == k {
			break
		}
	}
	return top
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either has (near-)zero norm.
func CosineSimilarity(a, b []float64) float64 {
	return cosineWithNorms(a, b, vectorNorm(a), vectorNorm(b))
}

func cosineWithNorms(a, b []float64, normA, normB float64) float64 {
	denom := normA * normB
	if denom < cosEpsilon {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / denom
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Encode serializes the trained weights (not the graph, not any cache).
func (n *Network) Encode() ([]byte, error) {
	return json.Marshal(n)
}

// DecodeNetwork restores a network from serialized weights. The decoded
// network is immediately usable for inference with any graph whose feature
// width matches the encoded configuration.
func DecodeNetwork(data []byte) (*Network, error) {
	n := new(Network)
	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("decoding model weights: %w", err)
	}
	if len(n.Layers) == 0 {
		return nil, fmt.Errorf("decoding model weights: no layers")
	}
	n.rng = rand.New(rand.NewSource(1))
	return n, nil
}

// Save writes the trained weights to a file.
func (n *Network) Save(path string) error {
	data, err := n.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadNetwork reads trained weights from a file written by Save.
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeNetwork(data)
}

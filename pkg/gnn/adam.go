package gnn

import "math"

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

// adamState carries per-parameter first and second moment estimates for one
// training run, laid out to mirror layerGrads.
type adamState struct {
	lr     float64
	step64 float64

	layers []*adamLayerState
}

type adamLayerState struct {
	mWSelf, vWSelf   [][]float64
	mWNeigh, vWNeigh [][]float64
	mBias, vBias     []float64
	mGamma, vGamma   []float64
	mBeta, vBeta     []float64
}

func newAdamState(n *Network, lr float64) *adamState {
	s := &adamState{lr: lr, layers: make([]*adamLayerState, len(n.Layers))}
	for i, l := range n.Layers {
		ls := &adamLayerState{
			mWSelf:  zeroMatrix(l.InDim, l.OutDim),
			vWSelf:  zeroMatrix(l.InDim, l.OutDim),
			mWNeigh: zeroMatrix(l.InDim, l.OutDim),
			vWNeigh: zeroMatrix(l.InDim, l.OutDim),
			mBias:   make([]float64, l.OutDim),
			vBias:   make([]float64, l.OutDim),
		}
		if l.hasNorm() {
			ls.mGamma = make([]float64, l.OutDim)
			ls.vGamma = make([]float64, l.OutDim)
			ls.mBeta = make([]float64, l.OutDim)
			ls.vBeta = make([]float64, l.OutDim)
		}
		s.layers[i] = ls
	}
	return s
}

// step applies one bias-corrected Adam update across all layers.
func (s *adamState) step(n *Network, grads []*layerGrads) {
	s.step64++
	corr1 := 1 - math.Pow(adamBeta1, s.step64)
	corr2 := 1 - math.Pow(adamBeta2, s.step64)

	for li, l := range n.Layers {
		g := grads[li]
		ls := s.layers[li]

		s.updateMatrix(l.WSelf, g.dWSelf, ls.mWSelf, ls.vWSelf, corr1, corr2)
		s.updateMatrix(l.WNeigh, g.dWNeigh, ls.mWNeigh, ls.vWNeigh, corr1, corr2)
		s.updateVector(l.Bias, g.dBias, ls.mBias, ls.vBias, corr1, corr2)
		if l.hasNorm() {
			s.updateVector(l.Gamma, g.dGamma, ls.mGamma, ls.vGamma, corr1, corr2)
			s.updateVector(l.Beta, g.dBeta, ls.mBeta, ls.vBeta, corr1, corr2)
		}
	}
}

func (s *adamState) updateMatrix(w, grad, m, v [][]float64, corr1, corr2 float64) {
	for i := range w {
		s.updateVector(w[i], grad[i], m[i], v[i], corr1, corr2)
	}
}

func (s *adamState) updateVector(w, grad, m, v []float64, corr1, corr2 float64) {
	for j := range w {
		gj := grad[j]
		m[j] = adamBeta1*m[j] + (1-adamBeta1)*gj
		v[j] = adamBeta2*v[j] + (1-adamBeta2)*gj*gj
		mHat := m[j] / corr1
		vHat := v[j] / corr2
		w[j] -= s.lr * mHat / (math.Sqrt(vHat) + adamEpsilon)
	}
}

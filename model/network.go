package model

import (
	"fmt"
	"math"

	"cubezero/game"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Network is a value/policy estimator over one-hot cube features: a shared
// two-layer ELU trunk feeding a tanh value head and a softmax policy head.
type Network struct {
	inputDim  int
	hiddenDim int
	actionDim int

	w1 *mat.Dense // hidden x input
	b1 *mat.VecDense
	w2 *mat.Dense // hidden x hidden
	b2 *mat.VecDense
	wv *mat.Dense // 1 x hidden
	bv *mat.VecDense
	wp *mat.Dense // actions x hidden
	bp *mat.VecDense
}

// NewNetwork builds a network with Xavier-initialized weights.
func NewNetwork(inputDim, hiddenDim, actionDim int, rng *rand.Rand) *Network {
	if inputDim <= 0 || hiddenDim <= 0 || actionDim <= 0 {
		panic(fmt.Sprintf("invalid network dimensions %d/%d/%d", inputDim, hiddenDim, actionDim))
	}
	if rng == nil {
		panic("network requires a rand source")
	}
	return &Network{
		inputDim:  inputDim,
		hiddenDim: hiddenDim,
		actionDim: actionDim,
		w1:        xavier(hiddenDim, inputDim, rng),
		b1:        mat.NewVecDense(hiddenDim, nil),
		w2:        xavier(hiddenDim, hiddenDim, rng),
		b2:        mat.NewVecDense(hiddenDim, nil),
		wv:        xavier(1, hiddenDim, rng),
		bv:        mat.NewVecDense(1, nil),
		wp:        xavier(actionDim, hiddenDim, rng),
		bp:        mat.NewVecDense(actionDim, nil),
	}
}

func xavier(rows, cols int, rng *rand.Rand) *mat.Dense {
	scale := math.Sqrt(2.0 / float64(rows+cols))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
	return mat.NewDense(rows, cols, data)
}

func (n *Network) ActionDim() int { return n.actionDim }

// Predict implements game.Estimator.
func (n *Network) Predict(state game.State) (float64, []float64, error) {
	features := state.Features()
	if len(features) != n.inputDim {
		return 0, nil, fmt.Errorf("state has %d features, network expects %d", len(features), n.inputDim)
	}
	act := n.forward(mat.NewVecDense(n.inputDim, features))
	return act.value, act.policy.RawVector().Data, nil
}

// activations caches every intermediate result of one forward pass so the
// trainer can run backprop over it.
type activations struct {
	input  *mat.VecDense
	z1, h1 *mat.VecDense
	z2, h2 *mat.VecDense
	zv     float64
	value  float64
	policy *mat.VecDense
}

func (n *Network) forward(input *mat.VecDense) activations {
	z1 := mat.NewVecDense(n.hiddenDim, nil)
	z1.MulVec(n.w1, input)
	z1.AddVec(z1, n.b1)
	h1 := elu(z1)

	z2 := mat.NewVecDense(n.hiddenDim, nil)
	z2.MulVec(n.w2, h1)
	z2.AddVec(z2, n.b2)
	h2 := elu(z2)

	zv := mat.NewVecDense(1, nil)
	zv.MulVec(n.wv, h2)
	zv.AddVec(zv, n.bv)

	zp := mat.NewVecDense(n.actionDim, nil)
	zp.MulVec(n.wp, h2)
	zp.AddVec(zp, n.bp)

	return activations{
		input:  input,
		z1:     z1,
		h1:     h1,
		z2:     z2,
		h2:     h2,
		zv:     zv.AtVec(0),
		value:  math.Tanh(zv.AtVec(0)),
		policy: softmax(zp),
	}
}

func elu(z *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(z.Len(), nil)
	for i := 0; i < z.Len(); i++ {
		v := z.AtVec(i)
		if v < 0 {
			v = math.Exp(v) - 1
		}
		out.SetVec(i, v)
	}
	return out
}

// eluGrad is the derivative expressed through the activation output.
func eluGrad(h float64) float64 {
	if h < 0 {
		return h + 1
	}
	return 1
}

// softmax is max-shifted for numerical stability.
func softmax(z *mat.VecDense) *mat.VecDense {
	max := math.Inf(-1)
	for i := 0; i < z.Len(); i++ {
		if z.AtVec(i) > max {
			max = z.AtVec(i)
		}
	}
	out := mat.NewVecDense(z.Len(), nil)
	sum := 0.0
	for i := 0; i < z.Len(); i++ {
		e := math.Exp(z.AtVec(i) - max)
		out.SetVec(i, e)
		sum += e
	}
	for i := 0; i < z.Len(); i++ {
		out.SetVec(i, out.AtVec(i)/sum)
	}
	return out
}

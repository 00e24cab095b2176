package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Trainer runs minibatch SGD with momentum on a Network. The loss is the
// value MSE plus the policy cross-entropy, each sample scaled by its weight.
type Trainer struct {
	net          *Network
	learningRate float64
	momentum     float64

	vw1, vw2, vwv, vwp *mat.Dense
	vb1, vb2, vbv, vbp *mat.VecDense
}

func NewTrainer(net *Network, learningRate, momentum float64) *Trainer {
	if learningRate <= 0 {
		panic("trainer requires a positive learning rate")
	}
	if momentum < 0 || momentum >= 1 {
		panic("trainer momentum must be in [0, 1)")
	}
	return &Trainer{
		net:          net,
		learningRate: learningRate,
		momentum:     momentum,
		vw1:          mat.NewDense(net.hiddenDim, net.inputDim, nil),
		vb1:          mat.NewVecDense(net.hiddenDim, nil),
		vw2:          mat.NewDense(net.hiddenDim, net.hiddenDim, nil),
		vb2:          mat.NewVecDense(net.hiddenDim, nil),
		vwv:          mat.NewDense(1, net.hiddenDim, nil),
		vbv:          mat.NewVecDense(1, nil),
		vwp:          mat.NewDense(net.actionDim, net.hiddenDim, nil),
		vbp:          mat.NewVecDense(net.actionDim, nil),
	}
}

// Step backpropagates one minibatch and applies an SGD update. It returns the
// weighted batch loss before the update.
func (t *Trainer) Step(features [][]float64, policies [][]float64, values []float64, weights []float64) (float64, error) {
	if len(features) == 0 {
		return 0, fmt.Errorf("empty training batch")
	}
	if len(policies) != len(features) || len(values) != len(features) || len(weights) != len(features) {
		return 0, fmt.Errorf("mismatched batch: %d features, %d policies, %d values, %d weights",
			len(features), len(policies), len(values), len(weights))
	}

	n := t.net
	gw1 := mat.NewDense(n.hiddenDim, n.inputDim, nil)
	gb1 := mat.NewVecDense(n.hiddenDim, nil)
	gw2 := mat.NewDense(n.hiddenDim, n.hiddenDim, nil)
	gb2 := mat.NewVecDense(n.hiddenDim, nil)
	gwv := mat.NewDense(1, n.hiddenDim, nil)
	gbv := mat.NewVecDense(1, nil)
	gwp := mat.NewDense(n.actionDim, n.hiddenDim, nil)
	gbp := mat.NewVecDense(n.actionDim, nil)

	totalWeight := 0.0
	loss := 0.0

	for i, f := range features {
		if len(f) != n.inputDim {
			return 0, fmt.Errorf("sample %d has %d features, network expects %d", i, len(f), n.inputDim)
		}
		if len(policies[i]) != n.actionDim {
			return 0, fmt.Errorf("sample %d has policy of length %d, network expects %d", i, len(policies[i]), n.actionDim)
		}
		w := weights[i]
		if w <= 0 {
			w = 1
		}
		totalWeight += w

		act := n.forward(mat.NewVecDense(n.inputDim, f))

		// Value head: weighted squared error through the tanh.
		vErr := act.value - values[i]
		loss += w * vErr * vErr
		dzv := w * 2 * vErr * (1 - act.value*act.value)

		// Policy head: cross-entropy against the search policy; the
		// softmax+CE gradient collapses to p - target.
		dzp := mat.NewVecDense(n.actionDim, nil)
		for a := 0; a < n.actionDim; a++ {
			p := act.policy.AtVec(a)
			target := policies[i][a]
			if target > 0 {
				loss += -w * target * math.Log(math.Max(p, 1e-12))
			}
			dzp.SetVec(a, w*(p-target))
		}

		gwv.RankOne(gwv, dzv, oneVec(), act.h2)
		gbv.SetVec(0, gbv.AtVec(0)+dzv)
		gwp.RankOne(gwp, 1, dzp, act.h2)
		gbp.AddVec(gbp, dzp)

		// Trunk.
		dh2 := mat.NewVecDense(n.hiddenDim, nil)
		dh2.MulVec(n.wp.T(), dzp)
		dh2.AddScaledVec(dh2, dzv, rowVec(n.wv))

		dz2 := mat.NewVecDense(n.hiddenDim, nil)
		for j := 0; j < n.hiddenDim; j++ {
			dz2.SetVec(j, dh2.AtVec(j)*eluGrad(act.h2.AtVec(j)))
		}
		gw2.RankOne(gw2, 1, dz2, act.h1)
		gb2.AddVec(gb2, dz2)

		dh1 := mat.NewVecDense(n.hiddenDim, nil)
		dh1.MulVec(n.w2.T(), dz2)
		dz1 := mat.NewVecDense(n.hiddenDim, nil)
		for j := 0; j < n.hiddenDim; j++ {
			dz1.SetVec(j, dh1.AtVec(j)*eluGrad(act.h1.AtVec(j)))
		}
		gw1.RankOne(gw1, 1, dz1, act.input)
		gb1.AddVec(gb1, dz1)
	}

	scale := 1 / totalWeight
	t.apply(n.w1.RawMatrix().Data, t.vw1.RawMatrix().Data, gw1.RawMatrix().Data, scale)
	t.apply(n.b1.RawVector().Data, t.vb1.RawVector().Data, gb1.RawVector().Data, scale)
	t.apply(n.w2.RawMatrix().Data, t.vw2.RawMatrix().Data, gw2.RawMatrix().Data, scale)
	t.apply(n.b2.RawVector().Data, t.vb2.RawVector().Data, gb2.RawVector().Data, scale)
	t.apply(n.wv.RawMatrix().Data, t.vwv.RawMatrix().Data, gwv.RawMatrix().Data, scale)
	t.apply(n.bv.RawVector().Data, t.vbv.RawVector().Data, gbv.RawVector().Data, scale)
	t.apply(n.wp.RawMatrix().Data, t.vwp.RawMatrix().Data, gwp.RawMatrix().Data, scale)
	t.apply(n.bp.RawVector().Data, t.vbp.RawVector().Data, gbp.RawVector().Data, scale)

	return loss / totalWeight, nil
}

// apply folds the averaged gradient into the velocity and the velocity into
// the parameters.
func (t *Trainer) apply(params, velocity, grad []float64, scale float64) {
	floats.Scale(t.momentum, velocity)
	floats.AddScaled(velocity, -t.learningRate*scale, grad)
	floats.Add(params, velocity)
}

func oneVec() *mat.VecDense {
	return mat.NewVecDense(1, []float64{1})
}

// rowVec views the single row of a 1 x n weight matrix as a vector.
func rowVec(m *mat.Dense) *mat.VecDense {
	return mat.NewVecDense(len(m.RawMatrix().Data), m.RawMatrix().Data)
}

package model

import (
	"encoding/gob"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// checkpoint is the gob wire form of a network plus its training position.
type checkpoint struct {
	InputDim  int
	HiddenDim int
	ActionDim int
	Epoch     int

	W1, W2, WV, WP []float64
	B1, B2, BV, BP []float64
}

// Save writes the network and the epoch it was trained to.
func (n *Network) Save(path string, epoch int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	defer f.Close()

	ckpt := checkpoint{
		InputDim:  n.inputDim,
		HiddenDim: n.hiddenDim,
		ActionDim: n.actionDim,
		Epoch:     epoch,
		W1:        n.w1.RawMatrix().Data,
		W2:        n.w2.RawMatrix().Data,
		WV:        n.wv.RawMatrix().Data,
		WP:        n.wp.RawMatrix().Data,
		B1:        n.b1.RawVector().Data,
		B2:        n.b2.RawVector().Data,
		BV:        n.bv.RawVector().Data,
		BP:        n.bp.RawVector().Data,
	}
	if err := gob.NewEncoder(f).Encode(ckpt); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint and rebuilds the network it describes.
func Load(path string) (*Network, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	var ckpt checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, 0, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if ckpt.InputDim <= 0 || ckpt.HiddenDim <= 0 || ckpt.ActionDim <= 0 {
		return nil, 0, fmt.Errorf("checkpoint has invalid dimensions %d/%d/%d",
			ckpt.InputDim, ckpt.HiddenDim, ckpt.ActionDim)
	}

	n := &Network{
		inputDim:  ckpt.InputDim,
		hiddenDim: ckpt.HiddenDim,
		actionDim: ckpt.ActionDim,
		w1:        mat.NewDense(ckpt.HiddenDim, ckpt.InputDim, ckpt.W1),
		w2:        mat.NewDense(ckpt.HiddenDim, ckpt.HiddenDim, ckpt.W2),
		wv:        mat.NewDense(1, ckpt.HiddenDim, ckpt.WV),
		wp:        mat.NewDense(ckpt.ActionDim, ckpt.HiddenDim, ckpt.WP),
		b1:        mat.NewVecDense(ckpt.HiddenDim, ckpt.B1),
		b2:        mat.NewVecDense(ckpt.HiddenDim, ckpt.B2),
		bv:        mat.NewVecDense(1, ckpt.BV),
		bp:        mat.NewVecDense(ckpt.ActionDim, ckpt.BP),
	}
	return n, ckpt.Epoch, nil
}

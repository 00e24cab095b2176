package engine

import (
	"os"
	"path/filepath"
	"testing"

	"cubezero/config"
	"cubezero/experiments/metrics"
	"cubezero/game"
	"cubezero/model"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func tinyConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.MCTS.Simulations = 4
	cfg.Train.BatchSize = 4
	cfg.Train.BufferSize = 32
	cfg.Train.Epochs = 2
	cfg.Train.SampleEpoch = 1
	cfg.Train.SampleScrambleCount = 3
	cfg.Train.SampleCubeCount = 3
	cfg.Train.ValidationEpoch = 2
	cfg.Train.Workers = 2
	cfg.Train.Seed = 7
	cfg.Train.ModelPath = filepath.Join(t.TempDir(), "net.ckpt")
	cfg.Validation.MaxTimesteps = 4
	cfg.Validation.SampleScrambleCount = 2
	cfg.Validation.SampleCubeCount = 2
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestTrainerRunEndToEnd(t *testing.T) {
	cfg := tinyConfig(t)
	writer, err := metrics.NewWriter(t.TempDir())
	require.NoError(t, err)
	net := model.NewNetwork(game.FeatureDim, 16, game.NumMoves, rand.New(rand.NewSource(1)))

	trainer := NewTrainer(cfg, net, writer, 1)
	require.NoError(t, trainer.Run())

	// A checkpoint and the run records must exist afterwards.
	_, epoch, err := model.Load(cfg.Train.ModelPath)
	require.NoError(t, err)
	require.Equal(t, 2, epoch)

	for _, name := range []string{"training.csv", "validation.csv"} {
		_, err := os.Stat(filepath.Join(writer.Dir(), name))
		require.NoError(t, err, "expected %s to be written", name)
	}
}

func TestLookaheadValue(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	cube := game.NewCube(rng)

	t.Run("one move from the goal returns the terminal value", func(t *testing.T) {
		state := game.SolvedState().Apply(game.MoveU)
		cube.SetState(state)

		value := lookaheadValue(cube, constantEstimator(-0.4), state)

		require.Equal(t, 1.0, value)
		require.Equal(t, state.Key(), cube.State().Key(), "the environment must be restored afterwards")
	})

	t.Run("far from the goal bootstraps a discounted estimate", func(t *testing.T) {
		state := cube.Reset(6)

		value := lookaheadValue(cube, constantEstimator(-0.4), state)

		require.InDelta(t, valueDiscount*-0.4, value, 1e-12)
	})
}

type constantEstimator float64

func (c constantEstimator) Predict(game.State) (float64, []float64, error) {
	prior := make([]float64, game.NumMoves)
	for i := range prior {
		prior[i] = 1.0 / game.NumMoves
	}
	return float64(c), prior, nil
}

package agent

import (
	"testing"

	"cubezero/game"
	"cubezero/searcher"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestSample(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("degenerate policy always returns the hot action", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			require.Equal(t, 3, sample([]float64{0, 0, 0, 1, 0, 0}, rng))
		}
	})

	t.Run("sampled actions stay in range", func(t *testing.T) {
		policy := []float64{0.1, 0.2, 0.3, 0.2, 0.1, 0.1}
		for i := 0; i < 100; i++ {
			action := sample(policy, rng)
			require.GreaterOrEqual(t, action, 0)
			require.Less(t, action, len(policy))
		}
	})
}

func TestFindMax(t *testing.T) {
	require.Equal(t, 2, findMax([]float64{0.1, 0.2, 0.4, 0.3, 0, 0}))
	require.Equal(t, 0, findMax([]float64{1, 0, 0, 0, 0, 0}))
}

func TestEvaluationAgentSolvesOneMoveScramble(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	cube := game.NewCube(rng)
	cube.SetState(game.SolvedState().Apply(game.MoveR))
	start := cube.State()

	mcts := searcher.NewMCTS(cube, solvedBiasedEstimator{},
		searcher.WithSimulations(60),
		searcher.WithRand(rng))
	a := NewEvaluationAgent(mcts)

	move, err := a.FindMove(start)
	require.NoError(t, err)

	cube.SetState(start)
	_, _, done := cube.Step(move)
	require.True(t, done, "search should find the single undoing move %s, got %s",
		game.MoveName(game.MoveRPrime), game.MoveName(move))
}

// solvedBiasedEstimator is a stand-in for a trained network: neutral value,
// uniform prior. The terminal bonus alone must steer the search.
type solvedBiasedEstimator struct{}

func (solvedBiasedEstimator) Predict(game.State) (float64, []float64, error) {
	prior := make([]float64, game.NumMoves)
	for i := range prior {
		prior[i] = 1.0 / game.NumMoves
	}
	return 0, prior, nil
}

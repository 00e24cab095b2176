package agent

import (
	"cubezero/game"
	"cubezero/searcher"

	"golang.org/x/exp/rand"
)

type trainingAgent struct {
	mcts        *searcher.MCTS
	temperature float64
	rng         *rand.Rand
}

// NewTrainingAgent returns an agent for self-play during training: it samples
// from the temperature-adjusted search policy to keep trajectories diverse.
func NewTrainingAgent(mcts *searcher.MCTS, temperature float64, rng *rand.Rand) Agent {
	if temperature <= 0 {
		panic("training agent requires a positive temperature")
	}
	return trainingAgent{mcts: mcts, temperature: temperature, rng: rng}
}

func (a trainingAgent) FindMove(state game.State) (int, error) {
	policy, err := a.mcts.ActionProbabilities(state, a.temperature)
	if err != nil {
		return 0, err
	}
	return sample(policy, a.rng), nil
}

func sample(policy []float64, rng *rand.Rand) int {
	sampled := rng.Float64()
	cumulative := 0.0
	for action, prob := range policy {
		cumulative += prob
		if sampled < cumulative {
			return action
		}
	}
	return len(policy) - 1 // Fallback in case of rounding errors
}

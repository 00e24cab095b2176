package agent

import (
	"cubezero/game"
	"cubezero/searcher"
)

type evaluationAgent struct {
	mcts *searcher.MCTS
}

// NewEvaluationAgent returns an agent for actual solves during evaluation:
// it plays the most-visited action.
func NewEvaluationAgent(mcts *searcher.MCTS) Agent {
	return evaluationAgent{mcts: mcts}
}

func (a evaluationAgent) FindMove(state game.State) (int, error) {
	policy, err := a.mcts.ActionProbabilities(state, 0)
	if err != nil {
		return 0, err
	}
	return findMax(policy), nil
}

func findMax(policy []float64) int {
	maxAction := 0
	maxProb := policy[0]
	for action, prob := range policy {
		if prob > maxProb {
			maxProb = prob
			maxAction = action
		}
	}
	return maxAction
}

package game

// StateKey is a canonical identifier for a puzzle state. Two states describe
// the same position iff their keys are equal; every statistic the searcher
// keeps is indexed by it.
type StateKey string

// State is an immutable snapshot of a puzzle configuration.
type State interface {
	Key() StateKey
	// Features encodes the state for the estimator.
	Features() []float64
}

// Environment is a stateful puzzle that advances one action at a time.
// Step mutates the environment's own configuration; SetState restores a
// previously observed snapshot so a caller can re-walk from any state.
// An Environment must not be shared between concurrent searches.
type Environment interface {
	ActionSize() int
	State() State
	SetState(State)
	// Step applies action to the current configuration and reports the
	// resulting state, the reward, and whether the goal was reached.
	Step(action int) (next State, reward float64, done bool)
	// Reset scrambles the puzzle away from the goal by the given number of
	// random moves and returns the resulting state.
	Reset(scrambles int) State
}

// Estimator maps a state to a scalar value in [-1, 1] and a prior
// probability per action.
type Estimator interface {
	Predict(State) (value float64, prior []float64, err error)
}

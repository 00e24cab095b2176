package searcher

import "errors"

// Hyperparameter defaults for the search.

const (
	DefaultSimulations = 25
	DefaultExploration = 1.0
	DefaultMaxDepth    = 256

	// EPS keeps the exploration term nonzero for a freshly expanded node
	// whose visit count is still 0.
	EPS = 1e-8
)

// ErrDepthExceeded reports a simulation pass that walked deeper than the
// configured cap without reaching a leaf or terminal state.
var ErrDepthExceeded = errors.New("max search depth exceeded")

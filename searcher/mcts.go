package searcher

import (
	"fmt"
	"math"
	"time"

	"cubezero/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

type Option func(m *MCTS)

// edge identifies one (state, action) pair in the search tree.
type edge struct {
	key    game.StateKey
	action int
}

// MCTS runs estimator-guided tree search over a single environment instance.
// The statistics maps persist for the lifetime of the instance, so a solver
// that reuses one MCTS across a trajectory keeps its accumulated tree.
//
// Not safe for concurrent use: the maps and the environment are both mutated
// in place by every simulation pass.
type MCTS struct {
	env         game.Environment
	estimator   game.Estimator
	simulations int
	exploration float64
	maxDepth    int
	rng         *rand.Rand
	metrics     MetricsCollector

	qsa map[edge]float64            // running mean backed-up value per edge
	nsa map[edge]int                // visits per edge
	ns  map[game.StateKey]int       // visits per expanded state
	ps  map[game.StateKey][]float64 // estimator prior, set once at expansion
	es  map[game.StateKey]bool      // terminal flag, frozen at first sight
}

func WithSimulations(simulations int) Option {
	return func(m *MCTS) {
		if simulations > 0 {
			m.simulations = simulations
		}
	}
}

func WithExploration(c float64) Option {
	return func(m *MCTS) {
		if c > 0 {
			m.exploration = c
		}
	}
}

func WithMaxDepth(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// WithRand injects the source used to break ties in greedy mode.
func WithRand(rng *rand.Rand) Option {
	return func(m *MCTS) {
		if rng != nil {
			m.rng = rng
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = NewMetricsCollector()
	}
}

func NewMCTS(env game.Environment, estimator game.Estimator, options ...Option) *MCTS {
	if env == nil {
		panic("mcts requires an environment")
	}
	if estimator == nil {
		panic("mcts requires an estimator")
	}
	m := &MCTS{ // Default values
		env:         env,
		estimator:   estimator,
		simulations: DefaultSimulations,
		exploration: DefaultExploration,
		maxDepth:    DefaultMaxDepth,
		rng:         rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		metrics:     NewNoMetricsCollector(),
		qsa:         map[edge]float64{},
		nsa:         map[edge]int{},
		ns:          map[game.StateKey]int{},
		ps:          map[game.StateKey][]float64{},
		es:          map[game.StateKey]bool{},
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Metrics reports the statistics collected so far (zero-valued unless the
// search was built WithMetrics).
func (m *MCTS) Metrics() SearchMetrics {
	return m.metrics.Complete()
}

// ActionProbabilities runs the configured number of simulation passes from
// state and converts the root visit counts into an action distribution.
//
// With temperature 0 the result is a one-hot vector at a uniformly random
// index among the most-visited actions. Otherwise counts are raised to
// 1/temperature and normalized; if no root action was ever visited the
// distribution falls back to uniform.
func (m *MCTS) ActionProbabilities(state game.State, temperature float64) ([]float64, error) {
	m.metrics.Start()
	root := state.Key()

	for i := 0; i < m.simulations; i++ {
		// Every pass re-walks from the root, so the live environment must
		// be back at the root configuration before it starts.
		m.env.SetState(state)
		if err := m.simulate(state); err != nil {
			return nil, fmt.Errorf("simulation %d from root %q: %w", i+1, root, err)
		}
		m.metrics.AddSimulation()
	}

	counts := make([]float64, m.env.ActionSize())
	for action := range counts {
		counts[action] = float64(m.nsa[edge{key: root, action: action}])
	}
	return m.policyFromCounts(counts, temperature), nil
}

// frame records one level of the walk down the tree: the expanded state the
// walk passed through and the action it selected there.
type frame struct {
	key    game.StateKey
	action int
}

// simulate walks from state down to an unexpanded or terminal node, then
// backs the leaf value up along the walked path. The value handed to each
// level is negated on the way up, so a level always receives "how good is
// the position one step below me".
func (m *MCTS) simulate(state game.State) error {
	var path []frame
	current := state
	key := state.Key()
	terminalHint := false // the root is never claimed terminal by its caller
	var value float64

	for {
		// The terminal flag is cached at first sight and never recomputed:
		// later visits trust the first caller's claim.
		if _, seen := m.es[key]; !seen {
			m.es[key] = terminalHint
		}
		if m.es[key] {
			m.metrics.AddTerminal()
			value = 1 // terminal return is fixed and not negated
			break
		}

		prior, expanded := m.ps[key]
		if !expanded {
			v, p, err := m.predict(current, key)
			if err != nil {
				return err
			}
			m.ps[key] = p
			m.ns[key] = 0
			m.metrics.AddExpansion()
			value = -v
			break
		}

		if len(path) >= m.maxDepth {
			return fmt.Errorf("depth %d at state %q: %w", len(path), key, ErrDepthExceeded)
		}

		action := m.selectAction(key, prior)
		path = append(path, frame{key: key, action: action})

		next, _, done := m.env.Step(action)
		current = next
		key = next.Key()
		terminalHint = done
	}

	m.metrics.ObserveDepth(len(path))

	for i := len(path) - 1; i >= 0; i-- {
		e := edge{key: path[i].key, action: path[i].action}
		if visits, ok := m.nsa[e]; ok {
			m.qsa[e] = (float64(visits)*m.qsa[e] + value) / float64(visits+1)
			m.nsa[e] = visits + 1
		} else {
			m.qsa[e] = value
			m.nsa[e] = 1
		}
		m.ns[path[i].key]++
		value = -value
	}
	return nil
}

// selectAction picks the action with the highest upper confidence bound.
// Ties break toward the lowest action index: only a strictly greater score
// displaces the running best.
func (m *MCTS) selectAction(key game.StateKey, prior []float64) int {
	visits := float64(m.ns[key])
	best := -1
	bestScore := math.Inf(-1)

	for action := 0; action < len(prior); action++ {
		var u float64
		if n, ok := m.nsa[edge{key: key, action: action}]; ok {
			u = m.qsa[edge{key: key, action: action}] +
				m.exploration*prior[action]*math.Sqrt(visits)/float64(1+n)
		} else {
			u = m.exploration * prior[action] * math.Sqrt(visits+EPS)
		}
		if u > bestScore {
			bestScore = u
			best = action
		}
	}
	return best
}

// predict queries the estimator and enforces its contract at the call site.
func (m *MCTS) predict(state game.State, key game.StateKey) (float64, []float64, error) {
	value, prior, err := m.estimator.Predict(state)
	if err != nil {
		return 0, nil, fmt.Errorf("estimator failed at state %q: %w", key, err)
	}
	if len(prior) != m.env.ActionSize() {
		return 0, nil, fmt.Errorf("estimator returned prior of length %d for state %q, want %d",
			len(prior), key, m.env.ActionSize())
	}
	if value < -1 || value > 1 || math.IsNaN(value) {
		return 0, nil, fmt.Errorf("estimator returned value %v for state %q, want [-1, 1]", value, key)
	}
	return value, prior, nil
}

func (m *MCTS) policyFromCounts(counts []float64, temperature float64) []float64 {
	probs := make([]float64, len(counts))

	if temperature == 0 { // Greedy: one-hot among the most visited actions
		max := floats.Max(counts)
		ties := make([]int, 0, len(counts))
		for action, count := range counts {
			if count == max {
				ties = append(ties, action)
			}
		}
		probs[ties[m.rng.Intn(len(ties))]] = 1
		return probs
	}

	sum := 0.0
	for action, count := range counts {
		probs[action] = math.Pow(count, 1/temperature)
		sum += probs[action]
	}
	if sum == 0 {
		// No root action was ever visited; the normalization is undefined.
		log.Warn().Msgf("no root visits after %d simulations, using uniform policy", m.simulations)
		for action := range probs {
			probs[action] = 1 / float64(len(probs))
		}
		return probs
	}
	for action := range probs {
		probs[action] /= sum
	}
	return probs
}

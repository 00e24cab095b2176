package searcher

import (
	"errors"
	"fmt"
	"testing"

	"cubezero/game"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

/* scenarios:
- first simulation only expands the root: no edges, greedy policy is a random one-hot
- second simulation breaks the all-tie toward action 0 and creates the first edge
- visit counts stay conserved and action values stay bounded over many passes
- terminal flag is frozen at first sight; terminal passes return +1 unnegated
- degenerate cases: uniform fallback under zero counts, depth cap, estimator contract violations
*/

// fakeState identifies a node by the action path that reached it.
type fakeState struct {
	path string
}

func (s fakeState) Key() game.StateKey  { return game.StateKey("root" + s.path) }
func (s fakeState) Features() []float64 { return nil }

// fakeEnv is a tree-shaped environment: stepping appends the action to the
// current path. Keys listed in terminal report done when stepped into.
type fakeEnv struct {
	actions  int
	state    fakeState
	terminal map[string]bool
	steps    int
}

func newFakeEnv(actions int) *fakeEnv {
	return &fakeEnv{actions: actions, terminal: map[string]bool{}}
}

func (e *fakeEnv) ActionSize() int        { return e.actions }
func (e *fakeEnv) State() game.State      { return e.state }
func (e *fakeEnv) SetState(s game.State)  { e.state = s.(fakeState) }
func (e *fakeEnv) Reset(n int) game.State { e.state = fakeState{}; return e.state }

func (e *fakeEnv) Step(action int) (game.State, float64, bool) {
	e.steps++
	e.state = fakeState{path: e.state.path + fmt.Sprintf(".%d", action)}
	if e.terminal[e.state.path] {
		return e.state, 1, true
	}
	return e.state, 0, false
}

// fixedEstimator always returns the same value and a uniform prior of
// length actions (6 when unset, matching the default fakeEnv).
type fixedEstimator struct {
	value   float64
	actions int
	calls   int
}

func (f *fixedEstimator) Predict(game.State) (float64, []float64, error) {
	f.calls++
	actions := f.actions
	if actions == 0 {
		actions = 6
	}
	prior := make([]float64, actions)
	for i := range prior {
		prior[i] = 1.0 / float64(actions)
	}
	return f.value, prior, nil
}

func TestSingleSimulationExpandsRootOnly(t *testing.T) {
	env := newFakeEnv(6)
	estimator := &fixedEstimator{value: 0.5}
	m := NewMCTS(env, estimator,
		WithSimulations(1),
		WithRand(rand.New(rand.NewSource(7))))

	probs, err := m.ActionProbabilities(fakeState{}, 0)

	require.NoError(t, err)
	require.Equal(t, 1, estimator.calls, "the root should be evaluated exactly once")
	require.Zero(t, env.steps, "a fresh leaf returns before any action is taken")
	require.Empty(t, m.nsa, "no edge should exist after the first pass")
	require.Zero(t, m.ns[game.StateKey("root")])

	// All counts are tied at 0, so greedy mode picks a random one-hot.
	sum := 0.0
	for _, p := range probs {
		require.Contains(t, []float64{0, 1}, p)
		sum += p
	}
	require.Equal(t, 1.0, sum)
}

func TestSecondSimulationSelectsFirstAction(t *testing.T) {
	env := newFakeEnv(6)
	estimator := &fixedEstimator{value: 0.5}
	m := NewMCTS(env, estimator,
		WithSimulations(2),
		WithExploration(1.5),
		WithRand(rand.New(rand.NewSource(7))))

	probs, err := m.ActionProbabilities(fakeState{}, 0)

	require.NoError(t, err)
	// Pass 1 expands the root. Pass 2 finds it expanded with every U(a)
	// equal, so the ascending-order tie-break picks action 0, reaches a
	// fresh leaf and backs up -0.5.
	root := game.StateKey("root")
	require.Equal(t, 1, m.nsa[edge{key: root, action: 0}])
	require.Equal(t, -0.5, m.qsa[edge{key: root, action: 0}])
	require.Equal(t, 1, m.ns[root])
	require.Len(t, m.nsa, 1, "only the first edge should exist")
	require.Equal(t, []float64{1, 0, 0, 0, 0, 0}, probs)
}

func TestCountConservationAndValueBounds(t *testing.T) {
	env := newFakeEnv(6)
	env.terminal[".2"] = true // one short branch ends at the goal
	m := NewMCTS(env, &fixedEstimator{value: 0.5},
		WithSimulations(200),
		WithRand(rand.New(rand.NewSource(11))))

	_, err := m.ActionProbabilities(fakeState{}, 1)
	require.NoError(t, err)

	// visitCount[s] == sum over a of actionVisits[s,a] for every expanded
	// state with at least one action taken.
	sums := map[game.StateKey]int{}
	for e, n := range m.nsa {
		sums[e.key] += n
	}
	for key, total := range sums {
		require.Equal(t, m.ns[key], total, "visit counts must be conserved at %q", key)
	}

	for e, q := range m.qsa {
		require.GreaterOrEqual(t, q, -1.0, "action value out of range at %v", e)
		require.LessOrEqual(t, q, 1.0, "action value out of range at %v", e)
	}
}

func TestGreedyPolicyIsOneHotAtMaxCount(t *testing.T) {
	env := newFakeEnv(6)
	env.terminal[".0"] = true
	m := NewMCTS(env, &fixedEstimator{value: 0.5},
		WithSimulations(50),
		WithRand(rand.New(rand.NewSource(3))))

	probs, err := m.ActionProbabilities(fakeState{}, 0)
	require.NoError(t, err)

	root := game.StateKey("root")
	hot := -1
	for action, p := range probs {
		if p == 1 {
			hot = action
		} else {
			require.Zero(t, p)
		}
	}
	require.GreaterOrEqual(t, hot, 0, "greedy policy must be one-hot")

	maxVisits := 0
	for action := 0; action < 6; action++ {
		if n := m.nsa[edge{key: root, action: action}]; n > maxVisits {
			maxVisits = n
		}
	}
	require.Equal(t, maxVisits, m.nsa[edge{key: root, action: hot}],
		"the hot index must be among the most visited actions")
}

func TestUniformCountsGiveUniformPolicy(t *testing.T) {
	m := NewMCTS(newFakeEnv(6), &fixedEstimator{value: 0.5})

	for _, temperature := range []float64{0.25, 1, 4} {
		probs := m.policyFromCounts([]float64{3, 3, 3, 3, 3, 3}, temperature)
		for _, p := range probs {
			require.InDelta(t, 1.0/6, p, 1e-12, "equal counts must give the uniform policy at t=%v", temperature)
		}
	}
}

func TestZeroCountsFallBackToUniform(t *testing.T) {
	env := newFakeEnv(6)
	m := NewMCTS(env, &fixedEstimator{value: 0.5},
		WithSimulations(1))

	// One pass only expands the root, so every root count is zero and the
	// naive normalization would divide by zero.
	probs, err := m.ActionProbabilities(fakeState{}, 1)

	require.NoError(t, err)
	for _, p := range probs {
		require.InDelta(t, 1.0/6, p, 1e-12)
	}
}

func TestTerminalFrozenOnFirstSight(t *testing.T) {
	env := newFakeEnv(1) // single action: every pass walks the same chain
	env.terminal[".0"] = true
	m := NewMCTS(env, &fixedEstimator{value: 0.5, actions: 1}, WithSimulations(3))

	_, err := m.ActionProbabilities(fakeState{}, 1)
	require.NoError(t, err)

	child := game.StateKey("root.0")
	require.True(t, m.es[child])

	// Later passes claim the state is no longer terminal; the cached flag
	// must win and the terminal return stays +1, so the root edge keeps a
	// perfect mean value.
	env.terminal[".0"] = false
	_, err = m.ActionProbabilities(fakeState{}, 1)
	require.NoError(t, err)

	require.True(t, m.es[child], "terminal flag must stay frozen")
	root := game.StateKey("root")
	require.Equal(t, 1.0, m.qsa[edge{key: root, action: 0}],
		"every backup through the terminal child carries the fixed +1 return")
	_, expanded := m.ps[child]
	require.False(t, expanded, "a terminal state is never expanded")
}

func TestDepthCapAbortsRunawaySearch(t *testing.T) {
	env := newFakeEnv(1) // never terminal: the chain grows without bound
	m := NewMCTS(env, &fixedEstimator{value: 0.5, actions: 1},
		WithSimulations(10),
		WithMaxDepth(2))

	_, err := m.ActionProbabilities(fakeState{}, 1)

	require.ErrorIs(t, err, ErrDepthExceeded)
}

func TestEstimatorContractViolations(t *testing.T) {
	t.Run("prior length mismatch", func(t *testing.T) {
		bad := estimatorFunc(func(game.State) (float64, []float64, error) {
			return 0, []float64{1}, nil
		})
		m := NewMCTS(newFakeEnv(6), bad, WithSimulations(1))

		_, err := m.ActionProbabilities(fakeState{}, 1)
		require.ErrorContains(t, err, "prior of length 1")
	})

	t.Run("value out of range", func(t *testing.T) {
		bad := estimatorFunc(func(game.State) (float64, []float64, error) {
			return 1.5, make([]float64, 6), nil
		})
		m := NewMCTS(newFakeEnv(6), bad, WithSimulations(1))

		_, err := m.ActionProbabilities(fakeState{}, 1)
		require.ErrorContains(t, err, "want [-1, 1]")
	})

	t.Run("estimator error is attributed to the state", func(t *testing.T) {
		failure := errors.New("model unavailable")
		bad := estimatorFunc(func(game.State) (float64, []float64, error) {
			return 0, nil, failure
		})
		m := NewMCTS(newFakeEnv(6), bad, WithSimulations(1))

		_, err := m.ActionProbabilities(fakeState{}, 1)
		require.ErrorIs(t, err, failure)
		require.ErrorContains(t, err, `state "root"`)
	})
}

func TestPriorSetOnce(t *testing.T) {
	env := newFakeEnv(6)
	estimator := &fixedEstimator{value: 0.5}
	m := NewMCTS(env, estimator, WithSimulations(1))

	state := fakeState{}
	for i := 0; i < 4; i++ {
		_, err := m.ActionProbabilities(state, 1)
		require.NoError(t, err)
	}

	// 4 calls x 1 simulation: the root prior is queried once, then each
	// later pass expands exactly one new leaf.
	require.Equal(t, 4, estimator.calls)
	require.Len(t, m.ps[game.StateKey("root")], 6)
}

func TestTreePersistsAcrossCalls(t *testing.T) {
	env := newFakeEnv(6)
	m := NewMCTS(env, &fixedEstimator{value: 0.5}, WithSimulations(5))

	_, err := m.ActionProbabilities(fakeState{}, 1)
	require.NoError(t, err)
	before := m.ns[game.StateKey("root")]

	_, err = m.ActionProbabilities(fakeState{}, 1)
	require.NoError(t, err)

	require.Greater(t, m.ns[game.StateKey("root")], before,
		"a second call must accumulate onto the existing tree")
}

type estimatorFunc func(game.State) (float64, []float64, error)

func (f estimatorFunc) Predict(s game.State) (float64, []float64, error) { return f(s) }

package experiments

import (
	"fmt"
	"time"

	"cubezero/config"
	"cubezero/experiments/metrics"
	"cubezero/game"
	"cubezero/searcher"
	"cubezero/searcher/agent"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// RunSolveRate measures how often the search-driven agent solves cubes at
// each scramble depth within the validation step budget and writes the
// per-solve records as CSV.
func RunSolveRate(cfg config.Config, estimator game.Estimator, writer *metrics.Writer, seed uint64) error {
	valid := cfg.Validation
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(seed))

	log.Info().Msgf("starting solve-rate experiment: depths 1..%d, %d cubes each, %d simulations per move",
		valid.SampleScrambleCount, valid.SampleCubeCount, cfg.MCTS.Simulations)

	records := make([]metrics.SolveRecord, 0, valid.SampleScrambleCount*valid.SampleCubeCount)
	for depth := 1; depth <= valid.SampleScrambleCount; depth++ {
		solved := 0
		for i := 0; i < valid.SampleCubeCount; i++ {
			record, err := solveOne(cfg, estimator, rng, depth, i)
			if err != nil {
				return fmt.Errorf("depth %d cube %d: %w", depth, i, err)
			}
			if record.Solved {
				solved++
			}
			records = append(records, record)
		}
		log.Info().Msgf("depth %d: solved %d of %d", depth, solved, valid.SampleCubeCount)
	}

	if err := writer.WriteSolveRecords(records); err != nil {
		return err
	}
	log.Info().Msgf("finished solve-rate experiment, records in %s", writer.Dir())
	return nil
}

// solveOne scrambles a fresh cube and lets the evaluation agent play greedy
// search moves until it solves or runs out of budget. Each cube gets its own
// search so statistics never leak between solves.
func solveOne(cfg config.Config, estimator game.Estimator, rng *rand.Rand, depth, index int) (metrics.SolveRecord, error) {
	cube := game.NewCube(rng)
	search := searcher.NewMCTS(cube, estimator,
		searcher.WithSimulations(cfg.MCTS.Simulations),
		searcher.WithExploration(cfg.MCTS.Cpuct),
		searcher.WithMaxDepth(cfg.MCTS.MaxDepth),
		searcher.WithRand(rng),
		searcher.WithMetrics())
	solver := agent.NewEvaluationAgent(search)

	started := time.Now()
	state := cube.Reset(depth)
	record := metrics.SolveRecord{ScrambleDepth: depth, CubeIndex: index}

	for step := 0; step < cfg.Validation.MaxTimesteps; step++ {
		move, err := solver.FindMove(state)
		if err != nil {
			return metrics.SolveRecord{}, err
		}

		// The search leaves the environment wherever its last pass ended;
		// restore the decision state before committing the move.
		cube.SetState(state)
		next, _, done := cube.Step(move)
		record.Steps++
		if done {
			record.Solved = true
			break
		}
		state = next
	}

	sm := search.Metrics()
	record.Duration = time.Since(started)
	record.Simulations = sm.Simulations
	record.Expansions = sm.Expansions
	record.MaxSearchDepth = sm.MaxDepth
	return record, nil
}

package engine

import (
	"fmt"
	"sync"
	"time"

	"cubezero/config"
	"cubezero/experiments/metrics"
	"cubezero/game"
	"cubezero/model"
	"cubezero/searcher"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

// valueDiscount shrinks bootstrapped value targets by one step, so states
// farther from the goal learn strictly smaller values than their successors.
const valueDiscount = 0.9

// Trainer drives the self-play training loop: periodically regenerate
// search-labeled samples, take one optimization step per epoch, and validate
// and checkpoint on a fixed cadence.
type Trainer struct {
	cfg        config.Config
	net        *model.Network
	optimizer  *model.Trainer
	buffer     *Buffer
	writer     *metrics.Writer
	rng        *rand.Rand
	startEpoch int
}

func NewTrainer(cfg config.Config, net *model.Network, writer *metrics.Writer, startEpoch int) *Trainer {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("trainer built with invalid config: %v", err))
	}
	seed := cfg.Train.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if startEpoch < 1 {
		startEpoch = 1
	}
	return &Trainer{
		cfg:        cfg,
		net:        net,
		optimizer:  model.NewTrainer(net, cfg.Train.LearningRate, cfg.Train.Momentum),
		buffer:     NewBuffer(cfg.Train.BufferSize),
		writer:     writer,
		rng:        rand.New(rand.NewSource(seed)),
		startEpoch: startEpoch,
	}
}

// Run executes the training loop until cfg.Train.Epochs and writes the
// collected records through the metrics writer.
func (t *Trainer) Run() error {
	train := t.cfg.Train
	var trainingRecords []metrics.TrainingRecord
	var validationRecords []metrics.ValidationRecord

	log.Info().Msgf("training from epoch %d to %d (%d workers, %d simulations per decision)",
		t.startEpoch, train.Epochs, train.Workers, t.cfg.MCTS.Simulations)

	for epoch := t.startEpoch; epoch <= train.Epochs; epoch++ {
		if (epoch-1)%train.SampleEpoch == 0 {
			if err := t.generateSamples(); err != nil {
				return fmt.Errorf("sample generation at epoch %d: %w", epoch, err)
			}
		}

		loss, err := t.step()
		if err != nil {
			return fmt.Errorf("optimization at epoch %d: %w", epoch, err)
		}
		trainingRecords = append(trainingRecords, metrics.TrainingRecord{
			Epoch:      epoch,
			Loss:       loss,
			BufferSize: t.buffer.Len(),
		})

		if epoch%train.ValidationEpoch == 0 {
			rates := t.validate()
			for depth, rate := range rates {
				validationRecords = append(validationRecords, metrics.ValidationRecord{
					Epoch:           epoch,
					ScrambleDepth:   depth + 1,
					SolvePercentage: rate,
				})
			}
			log.Info().Msgf("epoch %d: loss=%.4f solve%%=%v", epoch, loss, rates)

			if err := t.net.Save(train.ModelPath, epoch); err != nil {
				return fmt.Errorf("checkpoint at epoch %d: %w", epoch, err)
			}
		}
	}

	if err := t.writer.WriteTrainingRecords(trainingRecords); err != nil {
		return err
	}
	if err := t.writer.WriteValidationRecords(validationRecords); err != nil {
		return err
	}
	log.Info().Msgf("training finished, records in %s", t.writer.Dir())
	return nil
}

// step draws one prioritized batch and applies a single SGD update.
func (t *Trainer) step() (float64, error) {
	batch, err := t.buffer.Draw(t.cfg.Train.BatchSize, t.rng)
	if err != nil {
		return 0, err
	}

	features := make([][]float64, len(batch))
	policies := make([][]float64, len(batch))
	values := make([]float64, len(batch))
	weights := make([]float64, len(batch))
	for i, s := range batch {
		features[i] = s.Features
		policies[i] = s.Policy
		values[i] = s.Value
		weights[i] = s.Weight
	}
	return t.optimizer.Step(features, policies, values, weights)
}

// generateSamples refills the replay buffer from freshly scrambled cubes.
// Each worker owns its own environment and search tree; search-labeled
// samples stream back to the single-writer buffer over a channel.
func (t *Trainer) generateSamples() error {
	train := t.cfg.Train
	started := time.Now()

	task := make(chan uint64, train.SampleCubeCount)
	for i := 0; i < train.SampleCubeCount; i++ {
		task <- t.rng.Uint64()
	}
	close(task)

	results := make(chan Sample, train.SampleCubeCount*train.SampleScrambleCount)
	errs := make(chan error, train.Workers)

	var wg sync.WaitGroup
	for w := 0; w < train.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for seed := range task {
				if err := t.labelOneCube(seed, results); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
		close(errs)
	}()

	added := 0
	for sample := range results {
		t.buffer.Add(sample)
		added++
	}
	if err := <-errs; err != nil {
		return err
	}

	log.Info().Msgf("generated %d samples in %s (buffer %d/%d)",
		added, time.Since(started).Round(time.Millisecond), t.buffer.Len(), train.BufferSize)
	return nil
}

// labelOneCube scrambles a cube one move at a time and labels every
// intermediate state with the search policy and a one-step lookahead value.
func (t *Trainer) labelOneCube(seed uint64, results chan<- Sample) error {
	rng := rand.New(rand.NewSource(seed))
	cube := game.NewCube(rng)
	search := searcher.NewMCTS(cube, t.net,
		searcher.WithSimulations(t.cfg.MCTS.Simulations),
		searcher.WithExploration(t.cfg.MCTS.Cpuct),
		searcher.WithMaxDepth(t.cfg.MCTS.MaxDepth),
		searcher.WithRand(rng))

	state := cube.Reset(0)
	for depth := 1; depth <= t.cfg.Train.SampleScrambleCount; depth++ {
		cube.SetState(state)
		next, _, _ := cube.Step(rng.Intn(cube.ActionSize()))
		state = next

		policy, err := search.ActionProbabilities(state, t.cfg.Train.Temperature)
		if err != nil {
			return err
		}
		value := lookaheadValue(cube, t.net, state)

		results <- Sample{
			Features: state.Features(),
			Policy:   policy,
			Value:    value,
			Weight:   1 / float64(depth),
		}
	}
	return nil
}

// lookaheadValue bootstraps a value target: the best over all actions of the
// terminal return, or the discounted estimator value of the successor.
func lookaheadValue(env game.Environment, estimator game.Estimator, state game.State) float64 {
	best := -1.0
	for action := 0; action < env.ActionSize(); action++ {
		env.SetState(state)
		next, _, done := env.Step(action)
		if done {
			env.SetState(state)
			return 1
		}
		v, _, err := estimator.Predict(next)
		if err != nil {
			continue
		}
		if value := valueDiscount * v; value > best {
			best = value
		}
	}
	env.SetState(state)
	return best
}

// validate greedily solves cubes with the bare policy head and reports the
// solve percentage per scramble depth.
func (t *Trainer) validate() []float64 {
	valid := t.cfg.Validation
	rates := make([]float64, valid.SampleScrambleCount)
	cube := game.NewCube(t.rng)

	for depth := 1; depth <= valid.SampleScrambleCount; depth++ {
		solved := 0
		for i := 0; i < valid.SampleCubeCount; i++ {
			state := cube.Reset(depth)
			for step := 0; step < valid.MaxTimesteps; step++ {
				_, prior, err := t.net.Predict(state)
				if err != nil {
					break
				}
				action := argmax(prior)
				next, _, done := cube.Step(action)
				if done {
					solved++
					break
				}
				state = next
			}
		}
		rates[depth-1] = 100 * float64(solved) / float64(valid.SampleCubeCount)
	}
	return rates
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

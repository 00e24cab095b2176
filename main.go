package main

import (
	"fmt"
	"os"
	"time"

	"cubezero/config"
	"cubezero/engine"
	"cubezero/experiments"
	"cubezero/experiments/metrics"
	"cubezero/game"
	"cubezero/model"
	"cubezero/searcher"
	"cubezero/searcher/agent"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	root := &cobra.Command{
		Use:          "cubezero",
		Short:        "Search-guided 2x2x2 pocket cube solver",
		SilenceUsage: true,
	}
	root.AddCommand(trainCommand(), solveCommand(), experimentCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func trainCommand() *cobra.Command {
	var configPath, resume string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the value/policy network by self-play",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			var net *model.Network
			startEpoch := 1
			if resume != "" {
				loaded, epoch, err := model.Load(resume)
				if err != nil {
					return err
				}
				net = loaded
				startEpoch = epoch + 1
				log.Info().Msgf("resuming from %s at epoch %d", resume, startEpoch)
			} else {
				seed := cfg.Train.Seed
				if seed == 0 {
					seed = uint64(time.Now().UnixNano())
				}
				net = model.NewNetwork(game.FeatureDim, cfg.Model.HiddenDim, game.NumMoves,
					rand.New(rand.NewSource(seed)))
			}

			writer, err := metrics.NewWriter(cfg.Train.MetricsDir)
			if err != nil {
				return err
			}
			return engine.NewTrainer(cfg, net, writer, startEpoch).Run()
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the training config")
	cmd.Flags().StringVar(&resume, "resume", "", "checkpoint to resume from")
	return cmd
}

func solveCommand() *cobra.Command {
	var modelPath string
	var scramble, simulations, maxSteps int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Scramble one cube and solve it with the trained network",
		RunE: func(cmd *cobra.Command, args []string) error {
			net, epoch, err := model.Load(modelPath)
			if err != nil {
				return err
			}
			log.Info().Msgf("loaded %s (epoch %d)", modelPath, epoch)

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			rng := rand.New(rand.NewSource(seed))

			cube := game.NewCube(rng)
			search := searcher.NewMCTS(cube, net,
				searcher.WithSimulations(simulations),
				searcher.WithRand(rng),
				searcher.WithMetrics())
			solver := agent.NewEvaluationAgent(search)

			output := termenv.NewOutput(os.Stdout)
			state := cube.Reset(scramble)
			fmt.Printf("scrambled %d moves (seed %d)\n", scramble, seed)

			for step := 1; step <= maxSteps; step++ {
				move, err := solver.FindMove(state)
				if err != nil {
					return err
				}
				cube.SetState(state)
				next, _, done := cube.Step(move)

				name := output.String(game.MoveName(move)).Foreground(output.Color("6")).Bold()
				fmt.Printf("step %2d: %s\n", step, name)

				if done {
					sm := search.Metrics()
					solvedMsg := output.String(fmt.Sprintf("solved in %d moves", step)).
						Foreground(output.Color("2")).Bold()
					fmt.Printf("%s (%d simulations, %d expansions)\n",
						solvedMsg, sm.Simulations, sm.Expansions)
					return nil
				}
				state = next
			}

			failed := output.String(fmt.Sprintf("not solved within %d moves", maxSteps)).
				Foreground(output.Color("1"))
			fmt.Println(failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "cubezero.ckpt", "checkpoint to load")
	cmd.Flags().IntVar(&scramble, "scramble", 6, "number of scramble moves")
	cmd.Flags().IntVar(&simulations, "simulations", 100, "search simulations per move")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 30, "step budget before giving up")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "scramble seed (0 = time)")
	return cmd
}

func experimentCommand() *cobra.Command {
	var configPath, modelPath string
	var seed uint64

	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Measure solve rates across scramble depths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			net, epoch, err := model.Load(modelPath)
			if err != nil {
				return err
			}
			log.Info().Msgf("loaded %s (epoch %d)", modelPath, epoch)

			writer, err := metrics.NewWriter(cfg.Train.MetricsDir)
			if err != nil {
				return err
			}
			return experiments.RunSolveRate(cfg, net, writer, seed)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the config")
	cmd.Flags().StringVar(&modelPath, "model", "cubezero.ckpt", "checkpoint to load")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "experiment seed (0 = time)")
	return cmd
}

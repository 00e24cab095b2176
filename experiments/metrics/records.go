package metrics

import "time"

// TrainingRecord captures one optimization epoch.
type TrainingRecord struct {
	Epoch      int
	Loss       float64
	BufferSize int
}

// ValidationRecord captures the solve rate for one scramble depth at one
// validation checkpoint.
type ValidationRecord struct {
	Epoch           int
	ScrambleDepth   int
	SolvePercentage float64
}

// SolveRecord captures one attempted solve during an experiment.
type SolveRecord struct {
	ScrambleDepth  int
	CubeIndex      int
	Solved         bool
	Steps          int
	Duration       time.Duration
	Simulations    int64
	Expansions     int64
	MaxSearchDepth int64
}

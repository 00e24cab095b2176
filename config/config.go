package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the training yaml file. Absent fields keep their defaults.
type Config struct {
	MCTS       MCTSConfig       `yaml:"mcts"`
	Train      TrainConfig      `yaml:"train"`
	Model      ModelConfig      `yaml:"model"`
	Validation ValidationConfig `yaml:"validation"`
}

type MCTSConfig struct {
	Simulations int     `yaml:"simulations"`
	Cpuct       float64 `yaml:"cpuct"`
	MaxDepth    int     `yaml:"maxDepth"`
}

type TrainConfig struct {
	BatchSize           int     `yaml:"batchSize"`
	LearningRate        float64 `yaml:"learningRate"`
	Momentum            float64 `yaml:"momentum"`
	Epochs              int     `yaml:"epochs"`
	SampleEpoch         int     `yaml:"sampleEpoch"`
	SampleScrambleCount int     `yaml:"sampleScrambleCount"`
	SampleCubeCount     int     `yaml:"sampleCubeCount"`
	BufferSize          int     `yaml:"bufferSize"`
	Temperature         float64 `yaml:"temperature"`
	ValidationEpoch     int     `yaml:"validationEpoch"`
	Workers             int     `yaml:"workers"`
	Seed                uint64  `yaml:"seed"`
	ModelPath           string  `yaml:"modelPath"`
	MetricsDir          string  `yaml:"metricsDir"`
}

type ModelConfig struct {
	HiddenDim int `yaml:"hiddenDim"`
}

type ValidationConfig struct {
	MaxTimesteps        int `yaml:"maxTimesteps"`
	SampleScrambleCount int `yaml:"sampleScrambleCount"`
	SampleCubeCount     int `yaml:"sampleCubeCount"`
}

// Default returns a configuration that trains a small solver end to end.
func Default() Config {
	return Config{
		MCTS: MCTSConfig{
			Simulations: 25,
			Cpuct:       1.0,
			MaxDepth:    256,
		},
		Train: TrainConfig{
			BatchSize:           64,
			LearningRate:        0.01,
			Momentum:            0.9,
			Epochs:              2000,
			SampleEpoch:         20,
			SampleScrambleCount: 10,
			SampleCubeCount:     20,
			BufferSize:          20000,
			Temperature:         1.0,
			ValidationEpoch:     200,
			Workers:             4,
			Seed:                0,
			ModelPath:           "cubezero.ckpt",
			MetricsDir:          "runs",
		},
		Model: ModelConfig{
			HiddenDim: 256,
		},
		Validation: ValidationConfig{
			MaxTimesteps:        30,
			SampleScrambleCount: 8,
			SampleCubeCount:     25,
		},
	}
}

// Load reads a yaml file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MCTS.Simulations <= 0 {
		return fmt.Errorf("mcts.simulations must be positive, got %d", c.MCTS.Simulations)
	}
	if c.MCTS.Cpuct <= 0 {
		return fmt.Errorf("mcts.cpuct must be positive, got %v", c.MCTS.Cpuct)
	}
	if c.MCTS.MaxDepth <= 0 {
		return fmt.Errorf("mcts.maxDepth must be positive, got %d", c.MCTS.MaxDepth)
	}
	if c.Train.BatchSize <= 0 {
		return fmt.Errorf("train.batchSize must be positive, got %d", c.Train.BatchSize)
	}
	if c.Train.LearningRate <= 0 {
		return fmt.Errorf("train.learningRate must be positive, got %v", c.Train.LearningRate)
	}
	if c.Train.Momentum < 0 || c.Train.Momentum >= 1 {
		return fmt.Errorf("train.momentum must be in [0, 1), got %v", c.Train.Momentum)
	}
	if c.Train.Epochs <= 0 {
		return fmt.Errorf("train.epochs must be positive, got %d", c.Train.Epochs)
	}
	if c.Train.SampleEpoch <= 0 {
		return fmt.Errorf("train.sampleEpoch must be positive, got %d", c.Train.SampleEpoch)
	}
	if c.Train.SampleScrambleCount <= 0 || c.Train.SampleCubeCount <= 0 {
		return fmt.Errorf("train sample counts must be positive, got %d scrambles x %d cubes",
			c.Train.SampleScrambleCount, c.Train.SampleCubeCount)
	}
	if c.Train.BufferSize < c.Train.BatchSize {
		return fmt.Errorf("train.bufferSize %d cannot be smaller than train.batchSize %d",
			c.Train.BufferSize, c.Train.BatchSize)
	}
	if c.Train.Temperature <= 0 {
		return fmt.Errorf("train.temperature must be positive, got %v", c.Train.Temperature)
	}
	if c.Train.ValidationEpoch <= 0 {
		return fmt.Errorf("train.validationEpoch must be positive, got %d", c.Train.ValidationEpoch)
	}
	if c.Train.Workers <= 0 {
		return fmt.Errorf("train.workers must be positive, got %d", c.Train.Workers)
	}
	if c.Train.ModelPath == "" {
		return fmt.Errorf("train.modelPath must be set")
	}
	if c.Model.HiddenDim <= 0 {
		return fmt.Errorf("model.hiddenDim must be positive, got %d", c.Model.HiddenDim)
	}
	if c.Validation.MaxTimesteps <= 0 {
		return fmt.Errorf("validation.maxTimesteps must be positive, got %d", c.Validation.MaxTimesteps)
	}
	if c.Validation.SampleScrambleCount <= 0 || c.Validation.SampleCubeCount <= 0 {
		return fmt.Errorf("validation sample counts must be positive, got %d scrambles x %d cubes",
			c.Validation.SampleScrambleCount, c.Validation.SampleCubeCount)
	}
	return nil
}

// Package config provides configuration loading and management for
// spotdecode. It handles loading configuration from YAML files, provides
// default values and builds the configured decoding algorithm. All decoder
// options are explicit here; no hidden global defaults change behavior
// between runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"spotdecode/pkg/decoder"
	"spotdecode/pkg/metric"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Decoder selects and parameterizes the decoding algorithm.
	Decoder struct {
		// Algorithm is one of simple-lookup, per-round-max,
		// metric-distance, check-all, multi-barcode.
		Algorithm string `yaml:"algorithm"`

		// Workers bounds the parallel spot fan-out. Zero uses all cores.
		Workers int `yaml:"workers"`

		// SimpleLookup configures the simple-lookup algorithm.
		SimpleLookup struct {
			// Threshold is the channel activation threshold.
			Threshold float64 `yaml:"threshold"`
		} `yaml:"simpleLookup"`

		// PerRoundMax configures the per-round-max algorithm.
		PerRoundMax struct {
			// MinIntensity is the per-round signal floor; zero disables it.
			MinIntensity float64 `yaml:"minIntensity"`
		} `yaml:"perRoundMax"`

		// MetricDistance configures the metric-distance algorithm.
		MetricDistance struct {
			// Metric is one of euclidean, squared-euclidean, manhattan, cosine.
			Metric string `yaml:"metric"`

			// Threshold is the maximum assignment distance.
			Threshold float64 `yaml:"threshold"`

			// Normalization is one of none, l2, per-round.
			Normalization string `yaml:"normalization"`

			// NormalizeTargets applies the same normalization to codebook vectors.
			NormalizeTargets bool `yaml:"normalizeTargets"`
		} `yaml:"metricDistance"`

		// CheckAll configures the check-all algorithm.
		CheckAll struct {
			// ErrorRounds is the maximum number of corrected rounds.
			ErrorRounds int `yaml:"errorRounds"`

			// MaxCost is the interpretation cost bound.
			MaxCost float64 `yaml:"maxCost"`

			// ErrorCost is the flat cost per corrected round.
			ErrorCost float64 `yaml:"errorCost"`

			// CostMode is rank or gap.
			CostMode string `yaml:"costMode"`
		} `yaml:"checkAll"`

		// Multi configures the multi-barcode aggregator.
		Multi struct {
			// Subs names the underlying algorithms to run, each configured
			// by its own section above.
			Subs []string `yaml:"subs"`

			// Priority optionally ranks the sub-decoders for conflict
			// resolution, lower rank wins. Empty means conflicting calls
			// are recorded as no-calls.
			Priority []int `yaml:"priority"`
		} `yaml:"multi"`
	} `yaml:"decoder"`

	// Output parameters.
	Output struct {
		// MinQuality filters the written table to calls at or above this
		// quality; zero writes everything.
		MinQuality float64 `yaml:"minQuality"`

		// Verbose controls the level of progress output.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Decoder.Algorithm = "per-round-max"
	cfg.Decoder.Workers = 0

	cfg.Decoder.SimpleLookup.Threshold = decoder.DefaultSimpleLookupOptions.Threshold

	cfg.Decoder.PerRoundMax.MinIntensity = decoder.DefaultPerRoundMaxChannelOptions.MinIntensity

	cfg.Decoder.MetricDistance.Metric = metric.Euclidean.String()
	cfg.Decoder.MetricDistance.Threshold = decoder.DefaultMetricDistanceOptions.Threshold
	cfg.Decoder.MetricDistance.Normalization = decoder.NormNone.String()
	cfg.Decoder.MetricDistance.NormalizeTargets = true

	cfg.Decoder.CheckAll.ErrorRounds = decoder.DefaultCheckAllOptions.ErrorRounds
	cfg.Decoder.CheckAll.MaxCost = decoder.DefaultCheckAllOptions.MaxCost
	cfg.Decoder.CheckAll.ErrorCost = decoder.DefaultCheckAllOptions.ErrorCost
	cfg.Decoder.CheckAll.CostMode = decoder.CostRank.String()

	cfg.Decoder.Multi.Subs = []string{"per-round-max", "metric-distance"}

	cfg.Output.MinQuality = 0
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// BuildDecoder constructs the decoder named by cfg.Decoder.Algorithm with
// its configured options. All option validation happens here, before any
// spot is processed.
func BuildDecoder(cfg *Config) (decoder.Decoder, error) {
	return buildAlgorithm(cfg, cfg.Decoder.Algorithm, true)
}

func buildAlgorithm(cfg *Config, name string, allowMulti bool) (decoder.Decoder, error) {
	workers := cfg.Decoder.Workers
	switch name {
	case "simple-lookup":
		return decoder.NewSimpleLookup(func(o *decoder.SimpleLookupOptions) {
			o.Threshold = cfg.Decoder.SimpleLookup.Threshold
			o.Workers = workers
		})

	case "per-round-max":
		return decoder.NewPerRoundMaxChannel(func(o *decoder.PerRoundMaxChannelOptions) {
			o.MinIntensity = cfg.Decoder.PerRoundMax.MinIntensity
			o.Workers = workers
		})

	case "metric-distance":
		m, err := metric.Parse(cfg.Decoder.MetricDistance.Metric)
		if err != nil {
			return nil, fmt.Errorf("decoder config: %w", err)
		}
		norm, err := decoder.ParseNormalization(cfg.Decoder.MetricDistance.Normalization)
		if err != nil {
			return nil, fmt.Errorf("decoder config: %w", err)
		}
		return decoder.NewMetricDistance(func(o *decoder.MetricDistanceOptions) {
			o.Metric = m
			o.Threshold = cfg.Decoder.MetricDistance.Threshold
			o.Normalization = norm
			o.NormalizeTargets = cfg.Decoder.MetricDistance.NormalizeTargets
			o.Workers = workers
		})

	case "check-all":
		mode, err := decoder.ParseCostMode(cfg.Decoder.CheckAll.CostMode)
		if err != nil {
			return nil, fmt.Errorf("decoder config: %w", err)
		}
		return decoder.NewCheckAll(func(o *decoder.CheckAllOptions) {
			o.ErrorRounds = cfg.Decoder.CheckAll.ErrorRounds
			o.MaxCost = cfg.Decoder.CheckAll.MaxCost
			o.ErrorCost = cfg.Decoder.CheckAll.ErrorCost
			o.CostMode = mode
			o.Workers = workers
		})

	case "multi-barcode":
		if !allowMulti {
			return nil, fmt.Errorf("decoder config: multi-barcode cannot nest itself")
		}
		subs := make([]decoder.Sub, 0, len(cfg.Decoder.Multi.Subs))
		for _, subName := range cfg.Decoder.Multi.Subs {
			sub, err := buildAlgorithm(cfg, subName, false)
			if err != nil {
				return nil, err
			}
			subs = append(subs, decoder.Sub{Decoder: sub})
		}
		return decoder.NewMultiBarcode(subs, func(o *decoder.MultiBarcodeOptions) {
			o.Priority = cfg.Decoder.Multi.Priority
		})

	default:
		return nil, fmt.Errorf("decoder config: unknown algorithm %q", name)
	}
}

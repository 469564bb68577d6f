// Package config handles configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	uap "github.com/jamesainslie/go-uap"
	"github.com/jamesainslie/go-uap/internal/bench"
	"github.com/jamesainslie/go-uap/internal/resultstore"
)

// Config holds all sweep configuration.
type Config struct {
	Dataset     string `envconfig:"UAP_DATASET" yaml:"dataset"`
	Subset      string `envconfig:"UAP_SUBSET" yaml:"subset"`
	GroundTruth string `envconfig:"UAP_GROUND_TRUTH" yaml:"ground_truth"` // ActivityNet-layout JSON
	Annotations string `envconfig:"UAP_ANNOTATIONS" yaml:"annotations"`   // "<id> <start> <end>##<text>" lines
	FeatureDir  string `envconfig:"UAP_FEATURE_DIR" yaml:"feature_dir"`

	Model  ModelConfig  `yaml:"model"`
	Params ParamsConfig `yaml:"params"`
	Output OutputConfig `yaml:"output"`
	Eval   EvalConfig   `yaml:"eval"`
	Log    LogConfig    `yaml:"log"`

	// Conventions overrides or extends the built-in frame-to-time
	// conventions, keyed by dataset name.
	Conventions map[string]uap.Convention `yaml:"conventions" ignored:"true"`
}

// ModelConfig holds proposal generator settings.
type ModelConfig struct {
	Path           string `envconfig:"UAP_MODEL_PATH" yaml:"path"`
	PoolSize       int    `envconfig:"UAP_MODEL_POOL_SIZE" yaml:"pool_size"`
	IntraOpThreads int    `envconfig:"UAP_MODEL_THREADS" yaml:"intra_op_threads"`
}

// ParamsConfig holds the generator parameters that are not swept.
type ParamsConfig struct {
	InitN int     `envconfig:"UAP_INIT_N" yaml:"init_n"`
	N     int     `envconfig:"UAP_N" yaml:"n"`
	BaseC float64 `envconfig:"UAP_BASE_C" yaml:"base_c"`
}

// OutputConfig holds output locations.
type OutputConfig struct {
	ResultDir    string `envconfig:"UAP_RESULT_DIR" yaml:"result_dir"`
	LogDir       string `envconfig:"UAP_LOG_DIR" yaml:"log_dir"`
	CurveDir     string `envconfig:"UAP_CURVE_DIR" yaml:"curve_dir"`
	ProgressName string `envconfig:"UAP_PROGRESS_NAME" yaml:"progress_name"`
	ScoreName    string `envconfig:"UAP_SCORE_NAME" yaml:"score_name"`
	Format       string `envconfig:"UAP_RESULT_FORMAT" yaml:"format"`
}

// EvalConfig holds AR-AN evaluation settings.
type EvalConfig struct {
	TIoUThresholds  []float64 `envconfig:"UAP_TIOU_THRESHOLDS" yaml:"tiou_thresholds"`
	MaxAvgProposals float64   `envconfig:"UAP_MAX_AVG_PROPOSALS" yaml:"max_avg_proposals"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"UAP_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"UAP_LOG_FORMAT" yaml:"format"`
}

// Load builds the configuration from defaults, the optional YAML file at
// configPath, the optional dotenv file at envPath and UAP_* environment
// variables, in increasing priority.
func Load(configPath, envPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	eval := bench.DefaultEvalConfig()
	return &Config{
		Dataset:     uap.Charades.Name,
		Subset:      "training",
		GroundTruth: "gt/charades_sta_train.json",
		Annotations: "gt/charades_sta_train_origin.txt",
		FeatureDir:  "features",
		Model: ModelConfig{
			Path:           "models/svc_rp.onnx",
			PoolSize:       4,
			IntraOpThreads: 1,
		},
		Params: ParamsConfig{
			InitN: 256,
			N:     256,
			BaseC: 0.019306,
		},
		Output: OutputConfig{
			ResultDir:    "res",
			LogDir:       "log",
			CurveDir:     "res/curves",
			ProgressName: "charades_optimizing",
			ScoreName:    "charades_optimization_result",
			Format:       string(resultstore.JSON),
		},
		Eval: EvalConfig{
			TIoUThresholds:  eval.TIoUThresholds,
			MaxAvgProposals: eval.MaxAvgProposals,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Dataset == "" {
		errs = append(errs, "dataset must be set")
	} else if _, err := c.Convention(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Subset == "" {
		errs = append(errs, "subset must be set")
	}
	if c.GroundTruth == "" {
		errs = append(errs, "ground_truth must be set")
	}
	if c.Annotations == "" {
		errs = append(errs, "annotations must be set")
	}

	if c.Model.PoolSize < 1 {
		errs = append(errs, "model.pool_size must be positive")
	}
	if c.Model.IntraOpThreads < 0 {
		errs = append(errs, "model.intra_op_threads must not be negative")
	}

	if c.Params.InitN < 1 {
		errs = append(errs, "params.init_n must be positive")
	}
	if c.Params.N < 1 {
		errs = append(errs, "params.n must be positive")
	}
	if c.Params.BaseC <= 0 {
		errs = append(errs, "params.base_c must be positive")
	}

	if c.Output.ResultDir == "" || c.Output.LogDir == "" {
		errs = append(errs, "output.result_dir and output.log_dir must be set")
	}
	if c.Output.ProgressName == "" || c.Output.ScoreName == "" {
		errs = append(errs, "output.progress_name and output.score_name must be set")
	}
	if _, err := resultstore.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, fmt.Sprintf("invalid result format: %s (must be json or pb)", c.Output.Format))
	}

	if len(c.Eval.TIoUThresholds) == 0 {
		errs = append(errs, "eval.tiou_thresholds must not be empty")
	}
	for _, th := range c.Eval.TIoUThresholds {
		if th <= 0 || th > 1 {
			errs = append(errs, fmt.Sprintf("tIoU threshold %v out of (0, 1]", th))
		}
	}
	if c.Eval.MaxAvgProposals <= 0 {
		errs = append(errs, "eval.max_avg_proposals must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Convention returns the frame-to-time convention of the configured
// dataset, preferring an entry in Conventions over the built-in one.
func (c *Config) Convention() (uap.Convention, error) {
	if conv, ok := c.Conventions[c.Dataset]; ok {
		if conv.Stride <= 0 {
			return uap.Convention{}, fmt.Errorf("convention %q: stride must be positive", c.Dataset)
		}
		if conv.Name == "" {
			conv.Name = c.Dataset
		}
		return conv, nil
	}
	return uap.ConventionFor(c.Dataset)
}

// Driver converts the configuration into a bench.DriverConfig. generate
// selects whether grid points are aggregated or only scored.
func (c *Config) Driver(generate bool) (bench.DriverConfig, error) {
	conv, err := c.Convention()
	if err != nil {
		return bench.DriverConfig{}, err
	}
	format, err := resultstore.ParseFormat(c.Output.Format)
	if err != nil {
		return bench.DriverConfig{}, err
	}

	return bench.DriverConfig{
		Dataset:      c.Dataset,
		Subset:       c.Subset,
		Convention:   conv,
		InitN:        c.Params.InitN,
		N:            c.Params.N,
		BaseC:        c.Params.BaseC,
		ResultDir:    c.Output.ResultDir,
		LogDir:       c.Output.LogDir,
		CurveDir:     c.Output.CurveDir,
		ProgressName: c.Output.ProgressName,
		ScoreName:    c.Output.ScoreName,
		Format:       format,
		Generate:     generate,
		Eval: bench.EvalConfig{
			TIoUThresholds:  c.Eval.TIoUThresholds,
			MaxAvgProposals: c.Eval.MaxAvgProposals,
		},
	}, nil
}

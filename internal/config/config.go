// Package config loads validator settings from the environment and an
// optional TOML tuning file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/patrol/internal/model"
	"github.com/alfredjeanlab/patrol/internal/scoring"
)

type Config struct {
	DatabaseURL string // PATROL_DATABASE_URL (required)
	GRPCAddr    string // PATROL_GRPC_ADDR (default ":9090")
	HTTPAddr    string // PATROL_HTTP_ADDR (default ":8080")
	NATSURL     string // PATROL_NATS_URL (optional, empty = no events)
	AuthToken   string // PATROL_AUTH_TOKEN (optional, empty = auth disabled)
	LogFormat   string // PATROL_LOG_FORMAT ("text" or "json", default "text")

	ChainURL   string // PATROL_CHAIN_URL (required by serve and ingest)
	ChainToken string // PATROL_CHAIN_TOKEN (optional)

	DashboardURL   string // PATROL_DASHBOARD_URL (optional, empty = no HTTP reporting)
	DashboardToken string // PATROL_DASHBOARD_TOKEN

	MinersJSON   string        // PATROL_MINERS_JSON (inline roster)
	MinersFile   string        // PATROL_MINERS_FILE (roster file, used when MinersJSON is empty)
	MinerTimeout time.Duration // PATROL_MINER_TIMEOUT (default 60s)

	EnableHotkeyOwnership bool // PATROL_ENABLE_HOTKEY_OWNERSHIP (default true)
	EnableColdkeySearch   bool // PATROL_ENABLE_COLDKEY_SEARCH (default false)

	BatchInterval  time.Duration // PATROL_BATCH_INTERVAL (default 500s)
	IngestInterval time.Duration // PATROL_INGEST_INTERVAL (default 1m; 0 = disabled)

	// Export settings
	ExportInterval   time.Duration // PATROL_EXPORT_INTERVAL (default 0 = disabled)
	ExportS3Bucket   string        // PATROL_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // PATROL_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // PATROL_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Prefix   string        // PATROL_EXPORT_S3_PREFIX (default "patrol/scores/")

	ParamsFile string // PATROL_PARAMS_FILE (optional TOML overrides)
	Tuning     Tuning
}

// Tuning holds the numeric constants that may be overridden from a file.
type Tuning struct {
	Scoring     scoring.Params     `toml:"scoring"`
	Chain       ChainParams        `toml:"chain"`
	Batch       BatchParams        `toml:"batch"`
	TaskWeights map[string]float64 `toml:"task_weights"`
}

type ChainParams struct {
	// LowerBlock is the earliest block audits consider.
	LowerBlock int64 `toml:"lower_block"`
	// BlockLag keeps audits behind the head.
	BlockLag int64 `toml:"block_lag"`
	// IngestWindow is how many blocks of events are requested at once.
	IngestWindow int64 `toml:"ingest_window"`
}

type BatchParams struct {
	Concurrency       int `toml:"concurrency"`
	VerifyConcurrency int `toml:"verify_concurrency"`
}

// DefaultTuning returns the reference constants.
func DefaultTuning() Tuning {
	weights := make(map[string]float64)
	for task, w := range scoring.DefaultTaskWeights() {
		weights[string(task)] = w
	}
	return Tuning{
		Scoring:     scoring.DefaultParams(),
		Chain:       ChainParams{LowerBlock: 3014341, BlockLag: 10, IngestWindow: 100},
		Batch:       BatchParams{Concurrency: 8, VerifyConcurrency: 16},
		TaskWeights: weights,
	}
}

// Weights returns the task weights keyed by task type.
func (t Tuning) Weights() map[model.TaskType]float64 {
	out := make(map[model.TaskType]float64, len(t.TaskWeights))
	for k, v := range t.TaskWeights {
		out[model.TaskType(k)] = v
	}
	return out
}

// LoadTuning reads overrides from the TOML file at path on top of the
// defaults. Keys the file sets that nothing reads are an error.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	// Weights in the file replace the defaults rather than merge with them.
	t.TaskWeights = nil
	md, err := toml.DecodeFile(path, &t)
	if err != nil {
		return Tuning{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Tuning{}, fmt.Errorf("decode %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if t.TaskWeights == nil {
		t.TaskWeights = DefaultTuning().TaskWeights
	}
	for k := range t.TaskWeights {
		if !model.TaskType(k).IsValid() {
			return Tuning{}, fmt.Errorf("decode %s: unknown task type %q in task_weights", path, k)
		}
	}
	return t, nil
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("PATROL_DATABASE_URL"),
		GRPCAddr:         envOrDefault("PATROL_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("PATROL_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("PATROL_NATS_URL"),
		AuthToken:        os.Getenv("PATROL_AUTH_TOKEN"),
		LogFormat:        envOrDefault("PATROL_LOG_FORMAT", "text"),
		ChainURL:         os.Getenv("PATROL_CHAIN_URL"),
		ChainToken:       os.Getenv("PATROL_CHAIN_TOKEN"),
		DashboardURL:     os.Getenv("PATROL_DASHBOARD_URL"),
		DashboardToken:   os.Getenv("PATROL_DASHBOARD_TOKEN"),
		MinersJSON:       os.Getenv("PATROL_MINERS_JSON"),
		MinersFile:       os.Getenv("PATROL_MINERS_FILE"),
		ExportS3Bucket:   os.Getenv("PATROL_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("PATROL_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("PATROL_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Prefix:   envOrDefault("PATROL_EXPORT_S3_PREFIX", "patrol/scores/"),
		ParamsFile:       os.Getenv("PATROL_PARAMS_FILE"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("PATROL_DATABASE_URL is required")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return nil, fmt.Errorf("PATROL_LOG_FORMAT: want text or json, got %q", c.LogFormat)
	}

	var err error
	for _, d := range []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"PATROL_MINER_TIMEOUT", "60s", &c.MinerTimeout},
		{"PATROL_BATCH_INTERVAL", "500s", &c.BatchInterval},
		{"PATROL_INGEST_INTERVAL", "1m", &c.IngestInterval},
		{"PATROL_EXPORT_INTERVAL", "0", &c.ExportInterval},
	} {
		if *d.dst, err = time.ParseDuration(envOrDefault(d.key, d.fallback)); err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
	}

	if c.EnableHotkeyOwnership, err = envBool("PATROL_ENABLE_HOTKEY_OWNERSHIP", true); err != nil {
		return nil, err
	}
	if c.EnableColdkeySearch, err = envBool("PATROL_ENABLE_COLDKEY_SEARCH", false); err != nil {
		return nil, err
	}

	if c.Tuning, err = LoadTuning(c.ParamsFile); err != nil {
		return nil, fmt.Errorf("PATROL_PARAMS_FILE: %w", err)
	}
	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

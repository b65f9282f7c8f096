package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DataDir   string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	// HFWorkerBin is the tensor-runtime worker binary for the hf backend.
	HFWorkerBin string `json:"hf_worker_bin" yaml:"hf_worker_bin" toml:"hf_worker_bin"`
	// HFWorkerStartTimeoutSec bounds worker spawn plus model load.
	HFWorkerStartTimeoutSec int `json:"hf_worker_start_timeout_sec" yaml:"hf_worker_start_timeout_sec" toml:"hf_worker_start_timeout_sec"`
	// EXL2LibPath is where the quantized runtime's native libraries live.
	EXL2LibPath string `json:"exl2_lib_path" yaml:"exl2_lib_path" toml:"exl2_lib_path"`
	// ContextLength is the default context window applied when a load
	// request carries none.
	ContextLength int `json:"context_length" yaml:"context_length" toml:"context_length"`
	// Threads for the compiled runtime (0 = runtime default).
	Threads int `json:"threads" yaml:"threads" toml:"threads"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"promptrun/pkg/types"
)

// RunConfig holds global run parameters. Zero values mean "unspecified" and
// are replaced by defaults in ApplyDefaults.
type RunConfig struct {
	// ResultsDir is where run directories are created. Required.
	ResultsDir string `json:"results_dir" yaml:"results_dir" toml:"results_dir"`
	// Workers bounds parallel (prompt, model) evaluations. <=1 is sequential.
	Workers int `json:"workers" yaml:"workers" toml:"workers"`
	// OllamaURL is the base URL of the Ollama server used for text models.
	OllamaURL string `json:"ollama_url" yaml:"ollama_url" toml:"ollama_url"`
	// SDBin is the stable-diffusion.cpp binary used for image models.
	SDBin string `json:"sd_bin" yaml:"sd_bin" toml:"sd_bin"`
	// Declarative source files, relative to the working directory.
	LLMPrompts   string `json:"llm_prompts" yaml:"llm_prompts" toml:"llm_prompts"`
	LLMModels    string `json:"llm_models" yaml:"llm_models" toml:"llm_models"`
	ImagePrompts string `json:"image_prompts" yaml:"image_prompts" toml:"image_prompts"`
	ImageModels  string `json:"image_models" yaml:"image_models" toml:"image_models"`
	// Lowest-precedence generation options per backend family.
	LLMDefaults   types.Options `json:"llm_generation_defaults" yaml:"llm_generation_defaults" toml:"llm_generation_defaults"`
	ImageDefaults types.Options `json:"image_generation_defaults" yaml:"image_generation_defaults" toml:"image_generation_defaults"`
	// LogLevel: debug|info|warn|error.
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Defaults applied when corresponding RunConfig fields are unset.
const (
	defaultOllamaURL    = "http://127.0.0.1:11434"
	defaultSDBin        = "sd"
	defaultLLMPrompts   = "config/llm_prompts.yaml"
	defaultLLMModels    = "config/llm_models.yaml"
	defaultImagePrompts = "config/image_prompts.yaml"
	defaultImageModels  = "config/image_models.yaml"
)

// ApplyDefaults fills unset fields in place. ResultsDir has no default; its
// absence is a validation error, not a defaulting concern.
func (c *RunConfig) ApplyDefaults() {
	if c.OllamaURL == "" {
		c.OllamaURL = defaultOllamaURL
	}
	if c.SDBin == "" {
		c.SDBin = defaultSDBin
	}
	if c.LLMPrompts == "" {
		c.LLMPrompts = defaultLLMPrompts
	}
	if c.LLMModels == "" {
		c.LLMModels = defaultLLMModels
	}
	if c.ImagePrompts == "" {
		c.ImagePrompts = defaultImagePrompts
	}
	if c.ImageModels == "" {
		c.ImageModels = defaultImageModels
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads the run configuration based on its extension.
// Supports: .yaml/.yml, .json, .toml. ${VAR} references in string values are
// expanded from the environment before validation.
func Load(path string) (RunConfig, error) {
	var cfg RunConfig
	if path == "" {
		return cfg, Errorf("", "empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, wrapErr(path, "read", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, wrapErr(path, "parse yaml", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, wrapErr(path, "parse json", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, wrapErr(path, "parse toml", err)
		}
	default:
		return cfg, Errorf(path, "unsupported config extension: %s", ext)
	}
	cfg.expandEnv()
	if cfg.ResultsDir == "" {
		return cfg, Errorf(path, "missing required field: results_dir")
	}
	return cfg, nil
}

func (c *RunConfig) expandEnv() {
	c.ResultsDir = os.ExpandEnv(c.ResultsDir)
	c.OllamaURL = os.ExpandEnv(c.OllamaURL)
	c.SDBin = os.ExpandEnv(c.SDBin)
	c.LLMPrompts = os.ExpandEnv(c.LLMPrompts)
	c.LLMModels = os.ExpandEnv(c.LLMModels)
	c.ImagePrompts = os.ExpandEnv(c.ImagePrompts)
	c.ImageModels = os.ExpandEnv(c.ImageModels)
	c.LLMDefaults = ExpandOptions(c.LLMDefaults)
	c.ImageDefaults = ExpandOptions(c.ImageDefaults)
}

// ExpandOptions recursively expands ${VAR} in string values of an options
// mapping, descending into nested maps and lists. Model option maps carry
// filesystem paths (checkpoints, VAEs, CLIP weights) that are conventionally
// written against $HOME or model-dir variables.
func ExpandOptions(o types.Options) types.Options {
	if o == nil {
		return nil
	}
	out := make(types.Options, len(o))
	for k, v := range o {
		out[k] = expandValue(v)
	}
	return out
}

func expandValue(v any) any {
	switch t := v.(type) {
	case string:
		return os.ExpandEnv(t)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = expandValue(e)
		}
		return m
	case types.Options:
		return map[string]any(ExpandOptions(t))
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = expandValue(e)
		}
		return s
	default:
		return v
	}
}

package cli

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"promptrun/internal/backend"
	"promptrun/internal/config"
	"promptrun/internal/registry"
	"promptrun/internal/results"
	"promptrun/internal/runner"
	"promptrun/pkg/types"
)

var (
	runKind      string
	runMode      string
	runWorkers   int
	runMaxTokens int
	ollamaURL    string
	sdBin        string
	inProcess    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the prompt x model matrix and write result artifacts",
	Long: `Loads the run configuration, prompt sets, and model registries, then
evaluates every (prompt, model) pair against the matching backend. Each pair
yields exactly one result record; backend failures are recorded and never
abort the rest of the matrix. Results are written as JSON and markdown
artifacts under a timestamped run directory.`,
	Example: `  # Text evaluation with the defaults from config/config.yaml
  promptrun run

  # Image evaluation only, 2 parallel workers
  promptrun run --kind image --workers 2

  # Completion prompts only, capped generation budget
  promptrun run --mode completion --max-tokens 256`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg.ApplyDefaults()
		applyRunOverrides(&cfg)
		log := newLogger(pick(logLevel, cfg.LogLevel))

		if runKind != "text" && runKind != "image" && runKind != "all" {
			return fmt.Errorf("invalid --kind %q: must be text, image, or all", runKind)
		}
		if runMode != "completion" && runMode != "chat" && runMode != "all" {
			return fmt.Errorf("invalid --mode %q: must be completion, chat, or all", runMode)
		}

		// Load and validate every declared matrix before touching the
		// filesystem, so a configuration error cannot leave behind an
		// empty run directory.
		var matrices []evalMatrix
		if runKind == "text" || runKind == "all" {
			m, err := loadMatrix(cfg, types.KindText)
			if err != nil {
				return err
			}
			matrices = append(matrices, m)
		}
		if runKind == "image" || runKind == "all" {
			m, err := loadMatrix(cfg, types.KindImage)
			if err != nil {
				return err
			}
			matrices = append(matrices, m)
		}

		info := results.NewRunInfo()
		writer := results.NewWriter(cfg.ResultsDir)
		runPath, err := writer.Begin(info)
		if err != nil {
			return err
		}

		var (
			all     []types.EvalResult
			timings = map[string]float64{}
		)
		for _, m := range matrices {
			out, err := runMatrix(cmd, cfg, log, info, m, runPath)
			if err != nil {
				return err
			}
			all = append(all, out.Results...)
			for k, v := range out.ModelTimings {
				timings[k] = v
			}
		}

		if err := writer.Finish(info, all, timings); err != nil {
			return err
		}
		failed := 0
		for _, r := range all {
			if r.Failed() {
				failed++
			}
		}
		log.Info().
			Str("run_id", info.ID).
			Str("dir", runPath).
			Int("results", len(all)).
			Int("failed", failed).
			Msg("evaluation complete")
		return nil
	},
}

// evalMatrix is one backend family's loaded and validated inputs.
type evalMatrix struct {
	kind     types.Kind
	prompts  []types.Prompt
	models   []types.ModelSpec
	defaults types.Options
}

// loadMatrix loads the prompt set and model registry for one backend family.
func loadMatrix(cfg config.RunConfig, kind types.Kind) (evalMatrix, error) {
	promptsPath, modelsPath := cfg.LLMPrompts, cfg.LLMModels
	defaults := cfg.LLMDefaults
	if kind == types.KindImage {
		promptsPath, modelsPath = cfg.ImagePrompts, cfg.ImageModels
		defaults = cfg.ImageDefaults
	}

	prompts, err := config.LoadPrompts(promptsPath)
	if err != nil {
		return evalMatrix{}, err
	}
	if kind == types.KindText {
		prompts = filterMode(prompts, runMode)
	}
	models, err := config.LoadModels(modelsPath, kind)
	if err != nil {
		return evalMatrix{}, err
	}

	if runMaxTokens > 0 && kind == types.KindText {
		defaults = defaults.Merged(types.Options{"num_predict": runMaxTokens})
	}
	return evalMatrix{kind: kind, prompts: prompts, models: models, defaults: defaults}, nil
}

// runMatrix evaluates one loaded matrix.
func runMatrix(cmd *cobra.Command, cfg config.RunConfig, log zerolog.Logger, info results.RunInfo, m evalMatrix, runPath string) (runner.Outcome, error) {
	r := runner.New(runner.Config{
		Prompts:  m.prompts,
		Registry: registry.New(m.models),
		Backends: buildBackends(cfg),
		Defaults: m.defaults,
		Workers:  cfg.Workers,
		StageDir: filepath.Join(runPath, results.ImagesDirName),
		Log:      log,
	})
	return r.Run(cmd.Context(), info.ID, info.CreatedAt)
}

// buildBackends wires the configured inference bindings by kind.
func buildBackends(cfg config.RunConfig) map[types.Kind]backend.Generator {
	var text backend.Generator = backend.NewOllama(cfg.OllamaURL)
	if inProcess {
		// Requires a binary built with -tags=llama; the stub fails per pair
		// otherwise.
		text = backend.NewLlama(0, 0)
	}
	return map[types.Kind]backend.Generator{
		types.KindText:  text,
		types.KindImage: backend.NewSDCpp(cfg.SDBin),
	}
}

// filterMode keeps prompts matching the requested text mode.
func filterMode(prompts []types.Prompt, mode string) []types.Prompt {
	if mode == "all" {
		return prompts
	}
	var out []types.Prompt
	for _, p := range prompts {
		if string(p.Mode(types.KindText)) == mode {
			out = append(out, p)
		}
	}
	return out
}

func applyRunOverrides(cfg *config.RunConfig) {
	if runWorkers > 0 {
		cfg.Workers = runWorkers
	}
	if ollamaURL != "" {
		cfg.OllamaURL = ollamaURL
	}
	if sdBin != "" {
		cfg.SDBin = sdBin
	}
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runKind, "kind", "text", "which matrices to run: text|image|all")
	runCmd.Flags().StringVar(&runMode, "mode", "all", "text prompt filter: completion|chat|all")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "parallel evaluations (overrides config)")
	runCmd.Flags().IntVar(&runMaxTokens, "max-tokens", 0, "run-wide generation budget for text models")
	runCmd.Flags().StringVar(&ollamaURL, "ollama-url", "", "Ollama base URL (overrides config)")
	runCmd.Flags().StringVar(&sdBin, "sd-bin", "", "stable-diffusion.cpp binary (overrides config)")
	runCmd.Flags().BoolVar(&inProcess, "in-process", false, "use the in-process llama backend instead of Ollama (requires -tags=llama build)")
}

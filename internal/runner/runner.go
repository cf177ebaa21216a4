package runner

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"promptrun/internal/backend"
	"promptrun/internal/registry"
	"promptrun/pkg/types"
)

// Config encapsulates all tunables for Runner construction.
type Config struct {
	Prompts  []types.Prompt
	Registry *registry.Registry
	// Backends by model kind. A model whose kind has no backend fails per
	// pair rather than aborting the run.
	Backends map[types.Kind]backend.Generator
	// Defaults are the run-level generation options (lowest precedence).
	Defaults types.Options
	// Workers bounds concurrent evaluations; <=1 runs the matrix
	// sequentially, model-major like the declared order.
	Workers int
	// StageDir is handed to image backends for generated files.
	StageDir string
	Log      zerolog.Logger
}

// Runner evaluates the prompt x model matrix. It owns the lifecycle of the
// EvalResult collection for a single run; results are append-only and never
// mutated after creation.
type Runner struct {
	cfg Config
}

// New constructs a Runner, applying defaults for unset config fields.
func New(cfg Config) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Backends == nil {
		cfg.Backends = map[types.Kind]backend.Generator{}
	}
	return &Runner{cfg: cfg}
}

// Outcome is the accumulated product of one run.
type Outcome struct {
	Results []types.EvalResult
	// ModelTimings sums elapsed seconds per model across its prompts.
	ModelTimings map[string]float64
}

type pair struct {
	prompt types.Prompt
	model  types.ModelSpec
}

// Run evaluates every (prompt, model) pair. Backend failures are recorded in
// the corresponding result and never halt the matrix; the only error
// returned is context cancellation. The result count always equals
// len(prompts) * len(models).
func (r *Runner) Run(ctx context.Context, runID, createdAt string) (Outcome, error) {
	models := r.cfg.Registry.Models()
	jobs := make([]pair, 0, len(models)*len(r.cfg.Prompts))
	for _, m := range models {
		for _, p := range r.cfg.Prompts {
			jobs = append(jobs, pair{prompt: p, model: m})
		}
	}

	out := Outcome{
		Results:      make([]types.EvalResult, 0, len(jobs)),
		ModelTimings: make(map[string]float64, len(models)),
	}
	if len(jobs) == 0 {
		return out, nil
	}

	r.cfg.Log.Info().
		Int("prompts", len(r.cfg.Prompts)).
		Int("models", len(models)).
		Int("workers", r.cfg.Workers).
		Str("run_id", runID).
		Msg("starting evaluation matrix")

	if r.cfg.Workers <= 1 {
		for _, j := range jobs {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			res := r.evalPair(ctx, runID, createdAt, j)
			out.Results = append(out.Results, res)
			out.ModelTimings[j.model.ID] = round3(out.ModelTimings[j.model.ID] + res.ElapsedSeconds)
		}
		return out, ctx.Err()
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	jobCh := make(chan pair)
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				res := r.evalPair(ctx, runID, createdAt, j)
				mu.Lock()
				out.Results = append(out.Results, res)
				out.ModelTimings[j.model.ID] = round3(out.ModelTimings[j.model.ID] + res.ElapsedSeconds)
				mu.Unlock()
			}
		}()
	}
	for _, j := range jobs {
		select {
		case jobCh <- j:
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return out, ctx.Err()
		}
	}
	close(jobCh)
	wg.Wait()
	return out, ctx.Err()
}

// evalPair runs one (prompt, model) pair and always returns a result record:
// success with output and metrics, or failure with the captured error.
func (r *Runner) evalPair(ctx context.Context, runID, createdAt string, j pair) types.EvalResult {
	mode := j.prompt.Mode(j.model.Kind)
	res := types.EvalResult{
		RunID:     runID,
		CreatedAt: createdAt,
		PromptID:  j.prompt.ID,
		ModelID:   j.model.ID,
		Mode:      mode,
	}

	// Compatibility check happens here, before any backend call.
	spec, err := r.cfg.Registry.Bind(j.model.ID, mode)
	if err != nil {
		res.Error = err.Error()
		r.cfg.Log.Warn().Str("prompt", j.prompt.ID).Str("model", j.model.ID).Err(err).Msg("bind rejected")
		observeEval(j.model.ID, true, 0)
		return res
	}

	gen, ok := r.cfg.Backends[spec.Kind]
	if !ok {
		res.Error = "no backend configured for kind " + string(spec.Kind)
		observeEval(j.model.ID, true, 0)
		return res
	}

	opts := r.cfg.Defaults.Merged(spec.Options, j.prompt.Options)
	req := backend.Request{
		Model:     spec,
		Prompt:    j.prompt,
		Mode:      mode,
		Options:   opts,
		OutputDir: r.cfg.StageDir,
	}

	r.cfg.Log.Info().Str("prompt", j.prompt.ID).Str("model", j.model.ID).Str("mode", string(mode)).Msg("eval start")
	start := time.Now()
	resp, err := gen.Generate(ctx, req)
	res.ElapsedSeconds = round3(time.Since(start).Seconds())
	if err != nil {
		res.Error = err.Error()
		r.cfg.Log.Error().Str("prompt", j.prompt.ID).Str("model", j.model.ID).Err(err).Msg("eval failed")
	} else {
		res.Output = types.Output{Text: resp.Text, Images: resp.Images}
		res.Metrics = resp.Metrics
		r.cfg.Log.Info().
			Str("prompt", j.prompt.ID).
			Str("model", j.model.ID).
			Float64("seconds", res.ElapsedSeconds).
			Msg("eval done")
	}
	observeEval(j.model.ID, res.Failed(), res.ElapsedSeconds)
	return res
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

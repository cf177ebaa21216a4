package types

// Metrics carries backend-reported accounting for one evaluation. Durations
// are seconds rounded to three decimals; zero means the backend did not
// report the field.
type Metrics struct {
	DoneReason         string  `json:"done_reason,omitempty"`
	InputTokens        int     `json:"input_tokens,omitempty"`
	OutputTokens       int     `json:"output_tokens,omitempty"`
	TotalTokens        int     `json:"total_tokens,omitempty"`
	LoadSeconds        float64 `json:"load_seconds,omitempty"`
	InputSeconds       float64 `json:"input_seconds,omitempty"`
	OutputSeconds      float64 `json:"output_seconds,omitempty"`
	TotalSeconds       float64 `json:"total_seconds,omitempty"`
	OutputTokensPerSec float64 `json:"output_tokens_per_second,omitempty"`
}

// Output holds whatever the backend produced: generated text for text
// models, absolute paths of files staged inside the run's images directory
// for image models.
type Output struct {
	Text   string   `json:"text,omitempty"`
	Images []string `json:"images,omitempty"`
}

// EvalResult records the outcome of one (prompt, model) pair. Created once
// by the runner, appended to the run's collection, never mutated afterwards.
type EvalResult struct {
	RunID     string  `json:"run_id"`
	CreatedAt string  `json:"created_at"`
	PromptID  string  `json:"prompt_id"`
	ModelID   string  `json:"model"`
	Mode      Mode    `json:"mode"`
	Output    Output  `json:"output"`
	Metrics   Metrics `json:"metrics"`
	// Wall-clock seconds for the pair as observed by the runner.
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	// Error is set when the pair failed; Output and Metrics are then empty.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the pair produced an error instead of output.
func (r EvalResult) Failed() bool { return r.Error != "" }

// RunSummary is the run-level metadata artifact (summary.json).
type RunSummary struct {
	RunID       string             `json:"run_id"`
	CreatedAt   string             `json:"created_at"`
	PromptCount int                `json:"prompt_count"`
	ModelCount  int                `json:"model_count"`
	Prompts     []string           `json:"prompts"`
	Models      []string           `json:"models"`
	Succeeded   int                `json:"succeeded"`
	Failed      int                `json:"failed"`
	// Elapsed seconds per model across its prompts.
	ModelTimings map[string]float64 `json:"model_timings,omitempty"`
}

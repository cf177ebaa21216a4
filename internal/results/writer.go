package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"promptrun/pkg/types"
)

const (
	resultsFileName = "results.json"
	summaryFileName = "summary.json"
	reportFileName  = "summary.md"
	// ImagesDirName is where image backends stage generated files, inside
	// the run directory.
	ImagesDirName = "images"
)

// Writer serializes a run's result collection under a results directory.
// It only reads EvalResults; the runner owns them.
type Writer struct {
	resultsDir string
}

// NewWriter constructs a Writer rooted at resultsDir.
func NewWriter(resultsDir string) *Writer {
	return &Writer{resultsDir: resultsDir}
}

// RunDir returns the directory for a run.
func (w *Writer) RunDir(info RunInfo) string {
	return filepath.Join(w.resultsDir, info.DirName)
}

// Begin creates the run directory structure. It fails if the directory
// already exists (run ids are unique) or cannot be created; both are fatal
// I/O errors for the run.
func (w *Writer) Begin(info RunInfo) (string, error) {
	runPath := w.RunDir(info)
	if _, err := os.Stat(runPath); err == nil {
		return "", fmt.Errorf("run directory already exists: %s", runPath)
	}
	if err := os.MkdirAll(filepath.Join(runPath, ImagesDirName), 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	return runPath, nil
}

// Finish writes every artifact for the run: per-result JSON and markdown
// files, the aggregate results.json array, summary.json, and the markdown
// report. Writing is all-or-nothing per run: the first I/O failure aborts
// with an error and the run is considered failed.
func (w *Writer) Finish(info RunInfo, results []types.EvalResult, timings map[string]float64) error {
	runPath := w.RunDir(info)
	if _, err := os.Stat(runPath); err != nil {
		return fmt.Errorf("run directory does not exist: %s", runPath)
	}

	for _, res := range results {
		if err := w.writeResult(runPath, res); err != nil {
			return err
		}
	}
	if err := writeJSON(filepath.Join(runPath, resultsFileName), results); err != nil {
		return err
	}
	summary := Summarize(info, results, timings)
	if err := writeJSON(filepath.Join(runPath, summaryFileName), summary); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runPath, reportFileName), []byte(renderReport(summary, results)), 0o644)
}

// writeResult writes one result's JSON artifact and, for text results, the
// raw output as markdown, under <run>/<family>/<prompt_id>/.
func (w *Writer) writeResult(runPath string, res types.EvalResult) error {
	promptDir := filepath.Join(runPath, familyDir(res.Mode), res.PromptID)
	if err := os.MkdirAll(promptDir, 0o755); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	base := SanitizeFSName(res.ModelID) + "__" + string(res.Mode)
	if err := writeJSON(filepath.Join(promptDir, base+".json"), res); err != nil {
		return err
	}
	if res.Failed() || res.Output.Text == "" {
		return nil
	}
	mdDir := filepath.Join(promptDir, "markdown")
	if err := os.MkdirAll(mdDir, 0o755); err != nil {
		return fmt.Errorf("create markdown directory: %w", err)
	}
	return os.WriteFile(filepath.Join(mdDir, base+".md"), []byte(res.Output.Text), 0o644)
}

// familyDir maps a mode to its artifact subdirectory.
func familyDir(mode types.Mode) string {
	switch mode {
	case types.ModeTxt2Img, types.ModeImg2Img:
		return "image"
	default:
		return "llm"
	}
}

// Summarize builds the run-level summary from the result collection.
// Prompt and model lists keep first-appearance order.
func Summarize(info RunInfo, results []types.EvalResult, timings map[string]float64) types.RunSummary {
	s := types.RunSummary{
		RunID:        info.ID,
		CreatedAt:    info.CreatedAt,
		ModelTimings: timings,
	}
	seenPrompts := map[string]bool{}
	seenModels := map[string]bool{}
	for _, r := range results {
		if !seenPrompts[r.PromptID] {
			seenPrompts[r.PromptID] = true
			s.Prompts = append(s.Prompts, r.PromptID)
		}
		if !seenModels[r.ModelID] {
			seenModels[r.ModelID] = true
			s.Models = append(s.Models, r.ModelID)
		}
		if r.Failed() {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	s.PromptCount = len(s.Prompts)
	s.ModelCount = len(s.Models)
	return s
}

// renderReport produces the human-readable markdown table for the run.
func renderReport(summary types.RunSummary, results []types.EvalResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Evaluation run %s\n\n", summary.RunID)
	fmt.Fprintf(&b, "Created: %s  \n", summary.CreatedAt)
	fmt.Fprintf(&b, "Prompts: %d, Models: %d, Succeeded: %d, Failed: %d\n\n",
		summary.PromptCount, summary.ModelCount, summary.Succeeded, summary.Failed)
	b.WriteString("| Prompt | Model | Mode | Status | Seconds |\n")
	b.WriteString("|--------|-------|------|--------|---------|\n")
	for _, r := range results {
		status := "ok"
		if r.Failed() {
			status = "failed: " + strings.ReplaceAll(r.Error, "|", "\\|")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %.3f |\n",
			r.PromptID, r.ModelID, r.Mode, status, r.ElapsedSeconds)
	}
	if len(summary.ModelTimings) > 0 {
		b.WriteString("\n## Model timings\n\n")
		for _, m := range summary.Models {
			if secs, ok := summary.ModelTimings[m]; ok {
				fmt.Fprintf(&b, "- %s: %.3fs\n", m, secs)
			}
		}
	}
	return b.String()
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

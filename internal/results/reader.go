package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"promptrun/pkg/types"
)

// ReadRun loads the aggregate result collection back from a run directory.
func ReadRun(runPath string) ([]types.EvalResult, error) {
	b, err := os.ReadFile(filepath.Join(runPath, resultsFileName))
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var out []types.EvalResult
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return out, nil
}

// ReadSummary loads a run's summary.json.
func ReadSummary(runPath string) (types.RunSummary, error) {
	var s types.RunSummary
	b, err := os.ReadFile(filepath.Join(runPath, summaryFileName))
	if err != nil {
		return s, fmt.Errorf("read summary: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse summary: %w", err)
	}
	return s, nil
}

// ListRuns returns the run directory names under resultsDir, newest first.
// The timestamped naming makes lexical order chronological.
func ListRuns(resultsDir string) ([]string, error) {
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}
	var runs []string
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return runs, nil
}

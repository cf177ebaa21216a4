package backend

import (
	"context"
	"math"

	"promptrun/pkg/types"
)

// Request is one generation call against a backend. Options carry the merged
// generation parameters (run defaults < model options < prompt options).
type Request struct {
	Model   types.ModelSpec
	Prompt  types.Prompt
	Mode    types.Mode
	Options types.Options
	// OutputDir is a staging directory image backends may write files into.
	OutputDir string
}

// Response is whatever one generation produced. Image paths point at files
// under Request.OutputDir, which the runner places inside the run directory.
type Response struct {
	Text    string
	Images  []string
	Metrics types.Metrics
}

// Generator abstracts an inference binding. Implementations block until the
// backend finishes or ctx is done; they must not retry.
type Generator interface {
	// Kind reports which model family this backend serves.
	Kind() types.Kind
	// Generate runs one prompt against one model.
	Generate(ctx context.Context, req Request) (Response, error)
}

// round3 rounds seconds to millisecond precision for reported metrics.
func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

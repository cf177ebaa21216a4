package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"promptrun/pkg/types"
)

// Ollama talks to a running Ollama server over HTTP. Completion prompts use
// /api/generate, chat prompts use /api/chat; both non-streaming since the
// runner wants the full output and final metrics in one shot.
type Ollama struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllama constructs a text backend against baseURL.
func NewOllama(baseURL string) *Ollama {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	// Intentionally set Timeout=0: generation can take minutes on cold
	// models, and callers carry context deadlines when they want them.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &Ollama{baseURL: strings.TrimRight(baseURL, "/"), httpClient: cli}
}

func (o *Ollama) Kind() types.Kind { return types.KindText }

// generateRequest is the Ollama /api/generate payload.
type generateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt,omitempty"`
	Stream  bool          `json:"stream"`
	Options types.Options `json:"options,omitempty"`
}

// chatRequest is the Ollama /api/chat payload.
type chatRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  types.Options   `json:"options,omitempty"`
}

// ollamaResponse covers both endpoints; unset fields stay zero.
type ollamaResponse struct {
	Response string `json:"response"`
	Message  struct {
		Content string `json:"content"`
	} `json:"message"`
	DoneReason         string `json:"done_reason"`
	PromptEvalCount    int    `json:"prompt_eval_count"`
	EvalCount          int    `json:"eval_count"`
	LoadDuration       int64  `json:"load_duration"`        // ns
	PromptEvalDuration int64  `json:"prompt_eval_duration"` // ns
	EvalDuration       int64  `json:"eval_duration"`        // ns
	TotalDuration      int64  `json:"total_duration"`       // ns
	Error              string `json:"error"`
}

func (o *Ollama) Generate(ctx context.Context, req Request) (Response, error) {
	var (
		path    string
		payload any
	)
	switch req.Mode {
	case types.ModeChat:
		path = "/api/chat"
		payload = chatRequest{Model: req.Model.ID, Messages: req.Prompt.Messages, Options: req.Options}
	case types.ModeCompletion:
		path = "/api/generate"
		payload = generateRequest{Model: req.Model.ID, Prompt: req.Prompt.Text, Options: req.Options}
	default:
		return Response{}, errf("ollama", "unsupported mode "+string(req.Mode), nil)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, errf("ollama", "encode request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Response{}, errf("ollama", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, errf("ollama", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, errf("ollama", fmt.Sprintf("http %s: %s", resp.Status, strings.TrimSpace(string(b))), nil)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, errf("ollama", "decode response", err)
	}
	if out.Error != "" {
		return Response{}, errf("ollama", out.Error, nil)
	}

	text := out.Response
	if req.Mode == types.ModeChat {
		text = out.Message.Content
	}
	return Response{Text: text, Metrics: mapOllamaMetrics(out)}, nil
}

// mapOllamaMetrics converts Ollama's nanosecond counters into the reported
// seconds-based metrics, rounded to three decimals:
//
//	load_duration        -> load_seconds
//	prompt_eval_duration -> input_seconds
//	eval_duration        -> output_seconds
//	total_duration       -> total_seconds
func mapOllamaMetrics(out ollamaResponse) types.Metrics {
	m := types.Metrics{
		DoneReason:   out.DoneReason,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
	}
	if out.PromptEvalCount > 0 || out.EvalCount > 0 {
		m.TotalTokens = out.PromptEvalCount + out.EvalCount
	}
	m.LoadSeconds = round3(float64(out.LoadDuration) / 1e9)
	m.InputSeconds = round3(float64(out.PromptEvalDuration) / 1e9)
	m.OutputSeconds = round3(float64(out.EvalDuration) / 1e9)
	m.TotalSeconds = round3(float64(out.TotalDuration) / 1e9)
	if out.EvalCount > 0 && m.OutputSeconds > 0 {
		m.OutputTokensPerSec = round3(float64(out.EvalCount) / m.OutputSeconds)
	}
	return m
}

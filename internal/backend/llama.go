//go:build llama

package backend

import (
	"context"
	"strings"
	"sync"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"

	"promptrun/pkg/types"
)

// Llama is an in-process text backend over go-llama.cpp, for running
// evaluations straight against local .gguf files without an Ollama server.
// Loaded models are cached per path for the lifetime of the backend; Close
// frees them.
type Llama struct {
	ctxSize int
	threads int

	mu     sync.Mutex
	loaded map[string]*llama.LLama // key: model path
}

// NewLlama constructs the in-process backend.
func NewLlama(ctxSize, threads int) *Llama {
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	return &Llama{ctxSize: ctxSize, threads: threads, loaded: make(map[string]*llama.LLama)}
}

func (l *Llama) Kind() types.Kind { return types.KindText }

func (l *Llama) model(path string) (*llama.LLama, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.loaded[path]; ok {
		return m, nil
	}
	m, err := llama.New(path, llama.SetContext(l.ctxSize))
	if err != nil {
		return nil, errf("llama", "load "+path, err)
	}
	l.loaded[path] = m
	return m, nil
}

func (l *Llama) Generate(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Model.Path) == "" {
		return Response{}, errf("llama", "model "+req.Model.ID+" has no path", nil)
	}
	m, err := l.model(req.Model.Path)
	if err != nil {
		return Response{}, err
	}

	prompt := req.Prompt.Text
	if req.Mode == types.ModeChat {
		prompt = flattenChat(req.Prompt.Messages)
	}

	// Bridge the token callback to context cancellation.
	m.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})

	start := time.Now()
	text, err := m.Predict(prompt, predictOptions(req.Options, l.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		return Response{}, errf("llama", "predict", err)
	}
	return Response{
		Text: text,
		Metrics: types.Metrics{
			DoneReason:   "stop",
			TotalSeconds: round3(time.Since(start).Seconds()),
		},
	}, nil
}

// Close frees all loaded models.
func (l *Llama) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for path, m := range l.loaded {
		m.Free()
		delete(l.loaded, path)
	}
	return nil
}

// flattenChat renders a message list into a plain prompt. go-llama.cpp has
// no chat templating; a simple role-tagged transcript is what llama.cpp's
// own examples use for untemplated models.
func flattenChat(msgs []types.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("assistant: ")
	return b.String()
}

// predictOptions converts merged generation options into go-llama.cpp
// predict options, falling back to the library defaults for unset keys.
func predictOptions(opts types.Options, threads int) []llama.PredictOption {
	if threads < 1 {
		threads = 1
	}
	maxTokens := 128
	if n, ok := opts.Int("num_predict"); ok {
		maxTokens = n
	} else if n, ok := opts.Int("max_tokens"); ok {
		maxTokens = n
	}
	po := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(threads),
	}
	if f, ok := opts.Float("temperature"); ok {
		po = append(po, llama.SetTemperature(float32(f)))
	}
	if f, ok := opts.Float("top_p"); ok {
		po = append(po, llama.SetTopP(float32(f)))
	}
	if n, ok := opts.Int("top_k"); ok {
		po = append(po, llama.SetTopK(n))
	}
	if f, ok := opts.Float("repeat_penalty"); ok {
		po = append(po, llama.SetPenalty(float32(f)))
	}
	if n, ok := opts.Int("seed"); ok && n != 0 {
		po = append(po, llama.SetSeed(n))
	}
	return po
}

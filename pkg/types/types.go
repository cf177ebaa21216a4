package types

// Kind selects the backend family a model belongs to.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Mode is the concrete generation mode for a single evaluation.
type Mode string

const (
	ModeCompletion Mode = "completion"
	ModeChat       Mode = "chat"
	ModeTxt2Img    Mode = "txt2img"
	ModeImg2Img    Mode = "img2img"
)

// Options is a free-form parameter mapping passed through to the backend.
// Merging precedence is global defaults < model options < prompt options.
type Options map[string]any

// Merged returns a new Options with overlays applied left to right.
// Nil layers are skipped; the receiver is not modified.
func (o Options) Merged(overlays ...Options) Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	for _, layer := range overlays {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// String returns the string value for key, or "" when absent or not a string.
func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Int returns the integer value for key. YAML and JSON decoders disagree on
// numeric types, so int, int64, uint64 and float64 are all accepted.
func (o Options) Int(key string) (int, bool) {
	switch v := o[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Float returns the float value for key, accepting integer encodings too.
func (o Options) Float(key string) (float64, bool) {
	switch v := o[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Bool returns the boolean value for key, or false when absent.
func (o Options) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Message is one turn of a chat prompt.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Prompt is a single evaluation prompt. Exactly one of Text or Messages is
// set; Text drives completion mode, Messages drives chat mode. Prompts are
// immutable once loaded.
type Prompt struct {
	// Stable identifier, lowercase [a-z0-9_]+, unique within a prompt set.
	ID string `json:"id" yaml:"id"`
	// Completion-mode prompt body.
	Text string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	// Chat-mode message list.
	Messages []Message `json:"messages,omitempty" yaml:"messages,omitempty"`
	// Per-prompt generation options (highest merge precedence).
	Options Options `json:"options,omitempty" yaml:"options,omitempty"`
}

// Mode reports the generation mode this prompt requests. Image prompts that
// carry an init_image option request img2img.
func (p Prompt) Mode(kind Kind) Mode {
	if kind == KindImage {
		if p.Options.String("init_image") != "" {
			return ModeImg2Img
		}
		return ModeTxt2Img
	}
	if len(p.Messages) > 0 {
		return ModeChat
	}
	return ModeCompletion
}

// ModelSpec describes one model entry in the registry.
type ModelSpec struct {
	// Stable identifier for the model (Ollama tag, file name, ...).
	ID string `json:"id" yaml:"name"`
	// Backend family. Defaults to text when the registry file omits it.
	Kind Kind `json:"kind" yaml:"kind"`
	// Absolute path to the model file on disk, when known.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Init plus default generation parameters, passed through to the backend.
	Options Options `json:"options,omitempty" yaml:"options,omitempty"`
	// DecodeOnly marks an image model initialized for one generation
	// direction only (txt2img). Requesting img2img against such a model is a
	// usage error caught before any backend call.
	DecodeOnly bool `json:"decode_only,omitempty" yaml:"decode_only,omitempty"`
}

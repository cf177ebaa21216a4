package registry

import (
	"promptrun/pkg/types"
)

// Registry maps model identifiers to their specs and enforces the
// decode-only invariant when a model is bound to a generation request.
type Registry struct {
	models []types.ModelSpec
	byID   map[string]int
}

// New builds a registry from a loaded model list. Later duplicates are
// ignored; the config loader already rejects them in declared files.
func New(models []types.ModelSpec) *Registry {
	r := &Registry{models: models, byID: make(map[string]int, len(models))}
	for i, m := range models {
		if _, ok := r.byID[m.ID]; !ok {
			r.byID[m.ID] = i
		}
	}
	return r
}

// Models returns a copy of the registry contents.
func (r *Registry) Models() []types.ModelSpec {
	out := make([]types.ModelSpec, len(r.models))
	copy(out, r.models)
	return out
}

// Lookup returns the spec for id or a not-found error.
func (r *Registry) Lookup(id string) (types.ModelSpec, error) {
	i, ok := r.byID[id]
	if !ok {
		return types.ModelSpec{}, ErrModelNotFound(id)
	}
	return r.models[i], nil
}

// Bind resolves id and checks that the model can serve the requested mode.
// The compatibility check runs here, before any backend call is made.
func (r *Registry) Bind(id string, mode types.Mode) (types.ModelSpec, error) {
	spec, err := r.Lookup(id)
	if err != nil {
		return types.ModelSpec{}, err
	}
	if err := CheckMode(spec, mode); err != nil {
		return types.ModelSpec{}, err
	}
	return spec, nil
}

// CheckMode validates that spec can serve mode. Text models serve completion
// and chat; image models serve txt2img always and img2img only when not
// flagged decode-only.
func CheckMode(spec types.ModelSpec, mode types.Mode) error {
	switch mode {
	case types.ModeCompletion, types.ModeChat:
		if spec.Kind != types.KindText {
			return ErrIncompatible("model " + spec.ID + " is not a text model")
		}
	case types.ModeTxt2Img:
		if spec.Kind != types.KindImage {
			return ErrIncompatible("model " + spec.ID + " is not an image model")
		}
	case types.ModeImg2Img:
		if spec.Kind != types.KindImage {
			return ErrIncompatible("model " + spec.ID + " is not an image model")
		}
		if spec.DecodeOnly {
			return ErrIncompatible("model " + spec.ID + " is decode-only and cannot run img2img")
		}
	default:
		return ErrIncompatible("unknown mode " + string(mode))
	}
	return nil
}

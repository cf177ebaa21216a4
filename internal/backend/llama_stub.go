//go:build !llama

package backend

// This file provides a no-CGO stub for the in-process llama backend. It is
// compiled when the 'llama' build tag is NOT set, keeping default builds and
// CI CGO-free. The real backend lives in llama.go (tagged 'llama').

import (
	"context"

	"promptrun/pkg/types"
)

// Llama is a stub that satisfies Generator but refuses to run inference
// without the 'llama' build tag. No mocked behavior in production binaries.
type Llama struct{}

// NewLlama constructs the stub backend.
func NewLlama(ctxSize, threads int) *Llama { return &Llama{} }

func (l *Llama) Kind() types.Kind { return types.KindText }

func (l *Llama) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}
	return Response{}, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}

// Close is a no-op in the stub.
func (l *Llama) Close() error { return nil }

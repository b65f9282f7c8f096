//go:build !llama

package infer

// No-CGO stub for the compiled runtime, built when the 'llama' tag is not
// set. Default builds and CI stay CGO-free; the real adapter lives in
// adapter_gguf.go.

import "context"

var llamaBuilt = false

type ggufAdapter struct{}

func newGGUFAdapter(cfg Config) Adapter { return &ggufAdapter{} }

func (a *ggufAdapter) Name() string { return BackendGGUF }

func (a *ggufAdapter) Load(ctx context.Context, spec LoadSpec) (Handle, error) {
	return nil, ErrCapability("gguf runtime not built (missing 'llama' build tag)")
}

//go:build llama

package infer

import (
	"context"
	"os"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary carries the compiled runtime.
var llamaBuilt = true

// offloadAllLayers is passed to the runtime when GPU offload is requested.
// The runtime clamps it to the model's actual layer count; offload is all
// layers or none, never a partial split.
const offloadAllLayers = 1000000

const defaultGGUFContext = 2048

// ggufAdapter wraps the in-process compiled runtime. Models are single local
// files; GPU offload is binary.
type ggufAdapter struct {
	cfg Config
}

func newGGUFAdapter(cfg Config) Adapter {
	return &ggufAdapter{cfg: cfg}
}

func (a *ggufAdapter) Name() string { return BackendGGUF }

func (a *ggufAdapter) Load(ctx context.Context, spec LoadSpec) (Handle, error) {
	fi, err := os.Stat(spec.ModelRef)
	if err != nil || fi.IsDir() {
		return nil, ErrModelNotFound(spec.ModelRef)
	}
	ctxSize := spec.ContextLength
	if ctxSize <= 0 {
		ctxSize = a.cfg.DefaultContextLength
	}
	if ctxSize <= 0 {
		ctxSize = defaultGGUFContext
	}
	mo := []llama.ModelOption{llama.SetContext(ctxSize)}
	if spec.Device != DeviceCPU {
		mo = append(mo, llama.SetGPULayers(offloadAllLayers))
	}
	m, err := llama.New(spec.ModelRef, mo...)
	if err != nil {
		return nil, ErrRuntime(BackendGGUF, err)
	}
	return &ggufHandle{model: m, threads: a.cfg.Threads}, nil
}

// ggufHandle owns the loaded model. The runtime exposes no text tokenizer to
// the caller; token accounting stays inside the native library.
type ggufHandle struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (h *ggufHandle) Generate(ctx context.Context, prompt string, s Sampling) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model == nil {
		return "", ErrRuntime(BackendGGUF, errClosedHandle)
	}
	// Bridge cancellation through the token callback; the native call itself
	// is blocking.
	h.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	po := []llama.PredictOption{
		llama.SetTokens(maxInt(1, s.MaxNewTokens)),
		llama.SetTemperature(float32(s.Temperature)),
		llama.SetTopK(s.TopK),
		llama.SetTopP(float32(s.TopP)),
	}
	if h.threads > 0 {
		po = append(po, llama.SetThreads(h.threads))
	}
	if len(s.Stop) > 0 {
		po = append(po, llama.SetStopWords(s.Stop...))
	}
	text, err := h.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", ErrRuntime(BackendGGUF, err)
	}
	// The runtime may leave the stop word itself at the tail.
	for _, stop := range s.Stop {
		text = strings.TrimSuffix(text, stop)
	}
	return text, nil
}

func (h *ggufHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

//go:build yzma

package infer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	llama "github.com/hybridgroup/yzma/pkg/llama"
	"github.com/rs/zerolog/log"
)

// exl2Built indicates this binary carries the quantized runtime bindings.
var exl2Built = true

// exl2Adapter wraps the quantized runtime. Models are local directories
// holding a quant_config.json marker plus weight files, and the backend is
// GPU-only: a non-GPU device is a capability error, never a silent
// downgrade.
type exl2Adapter struct {
	cfg Config
}

func newEXL2Adapter(cfg Config) Adapter {
	return &exl2Adapter{cfg: cfg}
}

func (a *exl2Adapter) Name() string { return BackendEXL2 }

// quantConfig is the marker file at the root of a quantized model directory.
type quantConfig struct {
	// Weights names the primary weight file relative to the directory.
	Weights string `json:"weights"`
	Bits    int    `json:"bits,omitempty"`
}

var (
	exl2InitOnce sync.Once
	exl2InitErr  error
)

// initRuntime loads the native libraries and initializes the backend once
// per process.
func (a *exl2Adapter) initRuntime() error {
	exl2InitOnce.Do(func() {
		libPath := a.cfg.EXL2LibPath
		if libPath == "" {
			libPath = "./lib/llama"
		}
		if err := llama.Load(libPath); err != nil {
			exl2InitErr = fmt.Errorf("load native libraries from %s: %w", libPath, err)
			return
		}
		llama.Init()
		log.Debug().Str("backend", BackendEXL2).Str("lib", libPath).
			Bool("gpu_offload", llama.SupportsGpuOffload()).Msg("quantized runtime initialized")
	})
	return exl2InitErr
}

func (a *exl2Adapter) Load(ctx context.Context, spec LoadSpec) (Handle, error) {
	if spec.Device != DeviceCUDA && spec.Device != DeviceHIP {
		return nil, ErrCapability("exl2 backend requires a GPU device, got %q", spec.Device)
	}
	fi, err := os.Stat(spec.ModelRef)
	if err != nil || !fi.IsDir() {
		return nil, ErrModelNotFound(spec.ModelRef)
	}
	raw, err := os.ReadFile(filepath.Join(spec.ModelRef, "quant_config.json"))
	if err != nil {
		return nil, ErrModelNotFound(filepath.Join(spec.ModelRef, "quant_config.json"))
	}
	var qc quantConfig
	if err := json.Unmarshal(raw, &qc); err != nil {
		return nil, fmt.Errorf("malformed quant_config.json in %s: %w", spec.ModelRef, err)
	}
	if qc.Weights == "" {
		return nil, fmt.Errorf("quant_config.json in %s names no weights", spec.ModelRef)
	}
	if err := a.initRuntime(); err != nil {
		return nil, ErrCapability("exl2 runtime unavailable: %v", err)
	}
	if !llama.SupportsGpuOffload() {
		return nil, ErrCapability("exl2 backend requires GPU offload support, none detected")
	}

	mp := llama.ModelDefaultParams()
	mp.NGpuLayers = offloadAllQuantLayers
	model, err := llama.ModelLoadFromFile(filepath.Join(spec.ModelRef, qc.Weights), mp)
	if err != nil {
		return nil, ErrRuntime(BackendEXL2, err)
	}
	ctxSize := spec.ContextLength
	if ctxSize <= 0 {
		ctxSize = a.cfg.DefaultContextLength
	}
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	return &exl2Handle{model: model, ctxSize: int32(ctxSize)}, nil
}

// offloadAllQuantLayers requests full GPU residency; the runtime clamps it
// to the model's layer count.
const offloadAllQuantLayers = 1000000

// exl2Handle owns the loaded model. Generation contexts and samplers are
// built per call; the runtime's own vocab handles encode/decode.
type exl2Handle struct {
	mu      sync.Mutex
	model   llama.Model
	ctxSize int32
}

func (h *exl2Handle) Generate(ctx context.Context, prompt string, s Sampling) (out string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// Native panics must not cross the adapter boundary.
	defer func() {
		if r := recover(); r != nil {
			err = ErrRuntime(BackendEXL2, fmt.Errorf("native panic: %v", r))
		}
	}()

	cp := llama.ContextDefaultParams()
	cp.NCtx = uint32(h.ctxSize)
	lctx, err := llama.InitFromModel(h.model, cp)
	if err != nil {
		return "", ErrRuntime(BackendEXL2, err)
	}
	defer llama.Free(lctx)

	vocab := llama.ModelGetVocab(h.model)
	tokens := llama.Tokenize(vocab, prompt, true, false)

	// Sampler settings are rebuilt for every call.
	sp := llama.DefaultSamplerParams()
	sp.Temp = float32(s.Temperature)
	sp.TopK = int32(s.TopK)
	sp.TopP = float32(s.TopP)
	sampler := llama.NewSampler(h.model, llama.DefaultSamplers, sp)
	defer llama.SamplerFree(sampler)

	batch := llama.BatchGetOne(tokens)
	if _, err := llama.Decode(lctx, batch); err != nil {
		return "", ErrRuntime(BackendEXL2, fmt.Errorf("prompt decode: %w", err))
	}

	var text string
	for i := 0; i < s.MaxNewTokens; i++ {
		token := llama.SamplerSample(sampler, lctx, -1)
		if llama.VocabIsEOG(vocab, token) {
			break
		}
		buf := make([]byte, 64)
		n := llama.TokenToPiece(vocab, token, buf, 0, true)
		if n > 0 {
			text += string(buf[:n])
		}
		single := llama.BatchGetOne([]llama.Token{token})
		if _, err := llama.Decode(lctx, single); err != nil {
			return text, ErrRuntime(BackendEXL2, fmt.Errorf("decode at token %d: %w", i, err))
		}
		select {
		case <-ctx.Done():
			return text, ctx.Err()
		default:
		}
	}
	return text, nil
}

func (h *exl2Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	llama.ModelFree(h.model)
	return nil
}

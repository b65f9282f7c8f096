package infer

import "context"

// Backend names form a closed set. Selection is a pure function of the name;
// an unrecognized name is a configuration error, never a fallback.
const (
	BackendHF   = "hf"   // general tensor runtime (local path or remote id)
	BackendEXL2 = "exl2" // quantized runtime, GPU only
	BackendGGUF = "gguf" // compiled runtime, single local file
)

// Device names accepted by load requests.
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
	DeviceHIP  = "hip"
)

// Sampling captures generation parameters passed to an adapter. Values are
// assumed to be clamped by the caller before dispatch.
type Sampling struct {
	MaxNewTokens int
	Temperature  float64
	TopK         int
	TopP         float64
	// Stop sequences honored by backends that support them (gguf).
	Stop []string
}

// LoadSpec describes what to load and where.
type LoadSpec struct {
	// ModelRef is an absolute path under the models root, or a remote
	// identifier for the hf backend.
	ModelRef string
	// Device is one of the Device* constants, already resolved against
	// available hardware by the caller.
	Device string
	// ContextLength overrides the model's context window when > 0.
	// Best effort on the hf backend.
	ContextLength int
}

// Handle is a loaded model instance. A Handle is owned by exactly one slot
// and must not be shared; Close releases model and accelerator memory
// synchronously before returning.
type Handle interface {
	Generate(ctx context.Context, prompt string, s Sampling) (string, error)
	Close() error
}

// Adapter integrates one inference runtime behind the uniform
// load/generate/unload contract. Implementations must not panic across this
// boundary; native failures come back as errors.
type Adapter interface {
	Name() string
	Load(ctx context.Context, spec LoadSpec) (Handle, error)
}

// Config carries adapter tunables. Zero values select package defaults.
type Config struct {
	// HFWorkerBin is the tensor-runtime worker binary (name on PATH or an
	// absolute path).
	HFWorkerBin string
	// HFWorkerStartTimeout bounds worker spawn + health polling.
	HFWorkerStartTimeoutSec int
	// EXL2LibPath is where the quantized runtime's native libraries live.
	EXL2LibPath string
	// Threads for the compiled runtime (0 = runtime default).
	Threads int
	// DefaultContextLength applied when a load spec carries none.
	DefaultContextLength int
}

// Adapters is the closed set of configured backends.
type Adapters struct {
	hf   Adapter
	exl2 Adapter
	gguf Adapter
}

// NewAdapters builds the backend set from cfg.
func NewAdapters(cfg Config) *Adapters {
	return &Adapters{
		hf:   newHFAdapter(cfg),
		exl2: newEXL2Adapter(cfg),
		gguf: newGGUFAdapter(cfg),
	}
}

// ForBackend resolves a backend by name.
func (a *Adapters) ForBackend(name string) (Adapter, error) {
	switch name {
	case BackendHF:
		return a.hf, nil
	case BackendEXL2:
		return a.exl2, nil
	case BackendGGUF:
		return a.gguf, nil
	default:
		return nil, ErrUnknownBackend(name)
	}
}

// KnownDevice reports whether name is a recognized device.
func KnownDevice(name string) bool {
	switch name {
	case DeviceCPU, DeviceCUDA, DeviceHIP:
		return true
	}
	return false
}

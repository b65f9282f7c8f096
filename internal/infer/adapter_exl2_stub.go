//go:build !yzma

package infer

// Stub for the quantized runtime, built when the 'yzma' tag is not set.
// Load fails fast with a capability error; no mocked behavior.

import "context"

var exl2Built = false

type exl2Adapter struct{}

func newEXL2Adapter(cfg Config) Adapter { return &exl2Adapter{} }

func (a *exl2Adapter) Name() string { return BackendEXL2 }

func (a *exl2Adapter) Load(ctx context.Context, spec LoadSpec) (Handle, error) {
	// Device checks still apply so misconfiguration is reported consistently
	// with the real adapter.
	if spec.Device != DeviceCUDA && spec.Device != DeviceHIP {
		return nil, ErrCapability("exl2 backend requires a GPU device, got %q", spec.Device)
	}
	return nil, ErrCapability("exl2 runtime not built (missing 'yzma' build tag)")
}

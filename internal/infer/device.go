package infer

import (
	"os"
	"os/exec"
	"sync"
)

// Hardware reports accelerators detected on this host. Probed once per
// process; discovery and the engine both read the same snapshot.
type Hardware struct {
	CUDA bool
	HIP  bool
}

// HasDevice reports whether the requested device is backed by real hardware.
func (h Hardware) HasDevice(device string) bool {
	switch device {
	case DeviceCPU:
		return true
	case DeviceCUDA:
		return h.CUDA
	case DeviceHIP:
		return h.HIP
	}
	return false
}

var (
	hwOnce sync.Once
	hw     Hardware
)

// DetectHardware probes for accelerators. The probe is cheap and coarse:
// driver tooling on PATH or the kernel device node present. It runs once;
// later calls return the cached snapshot.
func DetectHardware() Hardware {
	hwOnce.Do(func() {
		hw = Hardware{
			CUDA: toolOrNode("nvidia-smi", "/dev/nvidia0"),
			HIP:  toolOrNode("rocm-smi", "/dev/kfd"),
		}
	})
	return hw
}

func toolOrNode(tool, node string) bool {
	if _, err := exec.LookPath(tool); err == nil {
		return true
	}
	_, err := os.Stat(node)
	return err == nil
}

// Availability is the per-backend capability snapshot, resolved once at
// process start and exposed read-only so callers can gray out unusable
// options.
type Availability struct {
	HF   bool
	EXL2 bool
	GGUF bool
}

// DetectAvailability resolves backend capability flags. hf requires the
// worker binary to be resolvable; exl2 and gguf require their native
// runtime to be compiled in.
func DetectAvailability(cfg Config) Availability {
	return Availability{
		HF:   hfWorkerResolvable(cfg.HFWorkerBin),
		EXL2: exl2Built,
		GGUF: llamaBuilt,
	}
}

func hfWorkerResolvable(bin string) bool {
	if bin == "" {
		return false
	}
	if _, err := exec.LookPath(bin); err == nil {
		return true
	}
	_, err := os.Stat(bin)
	return err == nil
}

// Package engine is the generation facade: it owns the two model slots,
// routes load/generate/unload to the backend adapters, merges assembled
// story context into prompts, and normalizes sampling parameters.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"storyd/internal/infer"
	"storyd/internal/prompt"
	"storyd/internal/registry"
)

// Slot names. There are exactly two slots; "all" is accepted by Unload only.
const (
	SlotPrimary   = "primary"
	SlotAuxiliary = "auxiliary"
	SlotAll       = "all"
)

// AdapterResolver selects a backend adapter by name. *infer.Adapters is the
// production implementation; tests substitute fakes.
type AdapterResolver interface {
	ForBackend(name string) (infer.Adapter, error)
}

// Config assembles an Engine's collaborators.
type Config struct {
	Adapters   AdapterResolver
	Scanner    *registry.Scanner
	Assembler  *prompt.Assembler
	Characters prompt.CharacterLookup
	Hardware   infer.Hardware
}

// slot holds at most one loaded model. The mutex serializes every
// load/unload/generate touching this slot; the two slots are independent and
// never share a lock.
type slot struct {
	name string

	mu      sync.Mutex
	backend string
	modelID string
	device  string
	handle  infer.Handle

	// metaMu guards meta, a copy of the fields above refreshed on every
	// load and unload. Status reads only metaMu, so it never waits behind
	// an in-flight generation holding mu.
	metaMu sync.Mutex
	meta   SlotStatus
}

// publishStatus refreshes the status copy. Callers hold mu.
func (s *slot) publishStatus() {
	s.metaMu.Lock()
	s.meta = SlotStatus{
		Slot:    s.name,
		Loaded:  s.handle != nil,
		Backend: s.backend,
		ModelID: s.modelID,
		Device:  s.device,
	}
	s.metaMu.Unlock()
}

// Engine is the process-wide generation facade. Slots live for the process
// lifetime; there is no eviction and no TTL.
type Engine struct {
	adapters   AdapterResolver
	scanner    *registry.Scanner
	assembler  *prompt.Assembler
	characters prompt.CharacterLookup
	hw         infer.Hardware

	primary   slot
	auxiliary slot
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	return &Engine{
		adapters:   cfg.Adapters,
		scanner:    cfg.Scanner,
		assembler:  cfg.Assembler,
		characters: cfg.Characters,
		hw:         cfg.Hardware,
		primary:    slot{name: SlotPrimary, meta: SlotStatus{Slot: SlotPrimary}},
		auxiliary:  slot{name: SlotAuxiliary, meta: SlotStatus{Slot: SlotAuxiliary}},
	}
}

// slotByName resolves a slot name; empty defaults to primary.
func (e *Engine) slotByName(name string) (*slot, error) {
	switch name {
	case "", SlotPrimary:
		return &e.primary, nil
	case SlotAuxiliary:
		return &e.auxiliary, nil
	default:
		return nil, infer.ErrConfig("unknown slot: %q", name)
	}
}

// SlotStatus is a read-only projection of one slot.
type SlotStatus struct {
	Slot    string `json:"slot"`
	Loaded  bool   `json:"loaded"`
	Backend string `json:"backend,omitempty"`
	ModelID string `json:"model_id,omitempty"`
	Device  string `json:"device,omitempty"`
}

// Status reports both slots. It reads the published status copies rather
// than the slot mutexes, so it stays responsive while a generation runs.
func (e *Engine) Status() []SlotStatus {
	out := make([]SlotStatus, 0, 2)
	for _, s := range []*slot{&e.primary, &e.auxiliary} {
		s.metaMu.Lock()
		out = append(out, s.meta)
		s.metaMu.Unlock()
	}
	return out
}

// resolveModelRef turns a request model id into an adapter ref: a path under
// the models root when the entry exists locally, otherwise a remote
// identifier for the hf backend. The id may not escape the models root.
func (e *Engine) resolveModelRef(backend, modelID string) (string, error) {
	if modelID == "" {
		return "", infer.ErrConfig("model_id is required")
	}
	root, err := e.scanner.Root()
	if err != nil {
		return "", err
	}
	clean := filepath.Clean(modelID)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", infer.ErrConfig("model_id must be relative to the models root: %q", modelID)
	}
	local := filepath.Join(root, clean)
	if pathExists(local) {
		return local, nil
	}
	if backend == infer.BackendHF && modelID != registry.RemoteModelID {
		// Not on disk: the tensor runtime resolves it remotely.
		return modelID, nil
	}
	return "", infer.ErrModelNotFound(modelID)
}

// resolveDevice checks the requested device against detected hardware.
// Unavailable accelerators downgrade to cpu with a warning, except for
// backends that categorically require a GPU, which fail fast instead.
func (e *Engine) resolveDevice(backend, device string) (resolved, warning string, err error) {
	if device == "" {
		device = infer.DeviceCPU
	}
	if !infer.KnownDevice(device) {
		return "", "", infer.ErrConfig("unknown device: %q", device)
	}
	if backend == infer.BackendEXL2 {
		if device == infer.DeviceCPU {
			return "", "", infer.ErrCapability("exl2 backend requires a GPU device, got %q", device)
		}
		if !e.hw.HasDevice(device) {
			return "", "", infer.ErrCapability("exl2 backend requires %s, which is not available", device)
		}
		return device, "", nil
	}
	if !e.hw.HasDevice(device) {
		return infer.DeviceCPU, fmt.Sprintf("device %q not available, using cpu", device), nil
	}
	return device, "", nil
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

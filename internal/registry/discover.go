package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"storyd/internal/common/fsutil"
	"storyd/internal/infer"
	"storyd/pkg/types"
)

// RemoteModelID is the path of the synthetic descriptor offered whenever the
// hf backend is available: it stands for "load by remote identifier" and has
// no local file behind it.
const RemoteModelID = "remote-identifier"

// Scanner discovers models under one root directory. Discovery has no side
// effects beyond filesystem reads and rebuilds descriptors on every call.
type Scanner struct {
	root  string
	avail infer.Availability
}

// New builds a Scanner over root with the process-wide availability flags.
func New(root string, avail infer.Availability) *Scanner {
	return &Scanner{root: root, avail: avail}
}

// Availability returns the backend capability flags the scanner reports.
func (s *Scanner) Availability() infer.Availability { return s.avail }

// Root returns the absolute models root.
func (s *Scanner) Root() (string, error) {
	base, err := fsutil.ExpandHome(s.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return abs, nil
}

// Discover scans the root one level deep and classifies each entry by
// backend compatibility. A malformed or unreadable entry is logged and
// omitted; it never aborts the scan.
func (s *Scanner) Discover() ([]types.ModelFile, error) {
	abs, err := s.Root()
	if err != nil {
		return nil, err
	}
	var models []types.ModelFile
	entries, err := os.ReadDir(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read models root: %w", err)
		}
		// Missing root: only the synthetic remote descriptor applies.
		entries = nil
	}
	for _, e := range entries {
		mf, ok := s.classify(abs, e)
		if !ok {
			continue
		}
		models = append(models, mf)
	}
	if s.avail.HF {
		models = append(models, types.ModelFile{
			Filename:           RemoteModelID,
			Path:               RemoteModelID,
			CompatibleBackends: []string{infer.BackendHF},
			SuggestedDevice:    infer.DeviceCPU,
			Description:        "Load a model by remote identifier (downloaded on demand).",
		})
	}
	return models, nil
}

func (s *Scanner) classify(root string, e os.DirEntry) (types.ModelFile, bool) {
	name := e.Name()
	full := filepath.Join(root, name)
	if e.IsDir() {
		return s.classifyDir(root, full, name)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".gguf" && ext != ".ggml" {
		return types.ModelFile{}, false
	}
	fi, err := e.Info()
	if err != nil {
		log.Warn().Err(err).Str("entry", name).Msg("discovery: skipping unreadable entry")
		return types.ModelFile{}, false
	}
	return types.ModelFile{
		Filename: name,
		Path:     name,
		SizeMB:   mb(fi.Size()),
		// The compiled runtime owns this format; the general runtime can
		// load it as a fallback.
		CompatibleBackends: []string{infer.BackendGGUF, infer.BackendHF},
		SuggestedDevice:    infer.DeviceCPU,
		Description:        "Single-file quantized model.",
	}, true
}

func (s *Scanner) classifyDir(root, full, name string) (types.ModelFile, bool) {
	if fsutil.PathExists(filepath.Join(full, "quant_config.json")) {
		raw, err := os.ReadFile(filepath.Join(full, "quant_config.json"))
		if err != nil {
			log.Warn().Err(err).Str("entry", name).Msg("discovery: skipping unreadable quant config")
			return types.ModelFile{}, false
		}
		var probe map[string]any
		if err := json.Unmarshal(raw, &probe); err != nil {
			log.Warn().Err(err).Str("entry", name).Msg("discovery: skipping malformed quant config")
			return types.ModelFile{}, false
		}
		return types.ModelFile{
			Filename:           name,
			Path:               name,
			SizeMB:             dirSizeMB(full),
			CompatibleBackends: []string{infer.BackendEXL2},
			SuggestedDevice:    infer.DeviceCUDA,
			Description:        "Quantized model directory (GPU).",
		}, true
	}
	if fsutil.PathExists(filepath.Join(full, "tokenizer_config.json")) ||
		fsutil.PathExists(filepath.Join(full, "tokenizer.json")) {
		return types.ModelFile{
			Filename:           name,
			Path:               name,
			SizeMB:             dirSizeMB(full),
			CompatibleBackends: []string{infer.BackendHF},
			SuggestedDevice:    infer.DeviceCPU,
			Description:        "Tensor model directory.",
		}, true
	}
	return types.ModelFile{}, false
}

// dirSizeMB sums the regular files directly inside dir. Unreadable entries
// count as zero; discovery stays best effort.
func dirSizeMB(dir string) float64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if fi, err := e.Info(); err == nil {
			total += fi.Size()
		}
	}
	return mb(total)
}

func mb(n int64) float64 {
	return float64(n) / (1024 * 1024)
}

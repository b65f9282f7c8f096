package infer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// hfAdapter drives the general tensor runtime as a managed worker process.
// The worker loads a model from a local path or downloads it by remote
// identifier, then serves an OpenAI-style completion endpoint on loopback.
// One worker per Handle; the worker dies when the Handle closes, which is
// what releases model and accelerator memory.
type hfAdapter struct {
	cfg        Config
	httpClient *http.Client
}

const (
	defaultHFStartTimeout = 120 * time.Second
	hfStopGrace           = 5 * time.Second
)

func newHFAdapter(cfg Config) Adapter {
	// Timeout=0: individual requests carry context deadlines.
	return &hfAdapter{cfg: cfg, httpClient: &http.Client{Timeout: 0}}
}

func (a *hfAdapter) Name() string { return BackendHF }

func (a *hfAdapter) Load(ctx context.Context, spec LoadSpec) (Handle, error) {
	if !hfWorkerResolvable(a.cfg.HFWorkerBin) {
		return nil, ErrCapability("hf worker binary %q not found", a.cfg.HFWorkerBin)
	}
	// A path-shaped ref must exist locally; anything else is treated as a
	// remote identifier and resolved by the worker.
	if looksLikePath(spec.ModelRef) {
		if _, err := os.Stat(spec.ModelRef); err != nil {
			return nil, ErrModelNotFound(spec.ModelRef)
		}
	}

	port, err := pickFreePort()
	if err != nil {
		return nil, fmt.Errorf("pick worker port: %w", err)
	}
	args := []string{
		"--model", spec.ModelRef,
		"--device", spec.Device,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
	}
	if spec.ContextLength > 0 {
		// Best effort: the worker applies this to the model's position
		// embedding limit where the runtime allows it.
		args = append(args, "--context-length", strconv.Itoa(spec.ContextLength))
	}
	cmd := exec.Command(a.cfg.HFWorkerBin, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start hf worker: %w", err)
	}
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	log.Debug().Str("backend", BackendHF).Str("model", spec.ModelRef).
		Int("pid", cmd.Process.Pid).Int("port", port).Msg("hf worker started")

	h := &hfHandle{adapter: a, cmd: cmd, baseURL: baseURL}
	if err := a.awaitReady(ctx, h); err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("hf worker for %q never became ready: %w", spec.ModelRef, err)
	}
	return h, nil
}

// awaitReady polls the worker health endpoint until it answers or the start
// timeout elapses. The worker exiting early surfaces as a poll failure.
func (a *hfAdapter) awaitReady(ctx context.Context, h *hfHandle) error {
	timeout := defaultHFStartTimeout
	if a.cfg.HFWorkerStartTimeoutSec > 0 {
		timeout = time.Duration(a.cfg.HFWorkerStartTimeoutSec) * time.Second
	}
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, h.baseURL+"/healthz", nil)
		if err != nil {
			cancel()
			return err
		}
		resp, err := a.httpClient.Do(req)
		cancel()
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("health: %s", resp.Status)
		} else {
			lastErr = err
		}
		select {
		case <-time.After(250 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timeout")
	}
	return lastErr
}

// hfHandle owns one worker process.
type hfHandle struct {
	adapter *hfAdapter
	cmd     *exec.Cmd
	baseURL string
}

type hfCompletionRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
	// Stochastic sampling is always on; the worker uses its end-of-sequence
	// token both as pad and stop.
	DoSample bool `json:"do_sample"`
}

type hfCompletionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Error string `json:"error,omitempty"`
}

func (h *hfHandle) Generate(ctx context.Context, prompt string, s Sampling) (string, error) {
	payload := hfCompletionRequest{
		Prompt:      prompt,
		MaxTokens:   s.MaxNewTokens,
		Temperature: s.Temperature,
		TopK:        s.TopK,
		TopP:        s.TopP,
		DoSample:    true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", ErrRuntime(BackendHF, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", ErrRuntime(BackendHF, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.adapter.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", ErrRuntime(BackendHF, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", ErrRuntime(BackendHF, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ErrRuntime(BackendHF, fmt.Errorf("worker http error: %s: %s", resp.Status, truncate(string(raw), 512)))
	}
	var out hfCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", ErrRuntime(BackendHF, fmt.Errorf("decode worker response: %w", err))
	}
	if out.Error != "" {
		return "", ErrRuntime(BackendHF, errors.New(out.Error))
	}
	if len(out.Choices) == 0 {
		return "", ErrRuntime(BackendHF, errors.New("worker returned no choices"))
	}
	return out.Choices[0].Text, nil
}

// Close stops the worker and waits for it to exit so accelerator memory is
// free by the time Close returns.
func (h *hfHandle) Close() error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}
	proc := h.cmd.Process
	_ = proc.Signal(syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(hfStopGrace):
		_ = proc.Kill()
		<-done
	}
	h.cmd = nil
	return nil
}

func pickFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func looksLikePath(ref string) bool {
	return filepath.IsAbs(ref) || strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"storyd/internal/config"
	"storyd/internal/engine"
	"storyd/internal/httpapi"
	"storyd/internal/infer"
	"storyd/internal/prompt"
	"storyd/internal/registry"
	"storyd/internal/store"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		cfgPath  string
		logLevel string
	)
	cfg := config.Config{
		Addr:                    envStr("STORYD_ADDR", ":8000"),
		ModelsDir:               envStr("STORYD_MODELS_DIR", "~/models"),
		DataDir:                 envStr("STORYD_DATA_DIR", "./data"),
		HFWorkerBin:             envStr("STORYD_HF_WORKER", "storyd-hf-worker"),
		HFWorkerStartTimeoutSec: envInt("STORYD_HF_WORKER_TIMEOUT_SEC", 120),
		EXL2LibPath:             envStr("STORYD_EXL2_LIB_PATH", ""),
		ContextLength:           envInt("STORYD_CONTEXT_LENGTH", 2048),
		Threads:                 envInt("STORYD_THREADS", 0),
	}

	root := &cobra.Command{
		Use:           "storyd",
		Short:         "Story-writing text generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("STORYD_CONFIG"), "Optional config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", envStr("STORYD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&cfg.ModelsDir, "models-dir", cfg.ModelsDir, "Directory scanned for local models")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		setupLogging(logLevel)
		if cfgPath == "" {
			return nil
		}
		fileCfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		mergeConfig(&cfg, fileCfg, cmd)
		return nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cfg)
		},
	}
	serve.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	serve.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for story, character and plot point data")
	serve.Flags().StringVar(&cfg.HFWorkerBin, "hf-worker", cfg.HFWorkerBin, "Tensor-runtime worker binary for the hf backend")
	serve.Flags().IntVar(&cfg.HFWorkerStartTimeoutSec, "hf-worker-timeout-sec", cfg.HFWorkerStartTimeoutSec, "Seconds to wait for the hf worker to become ready")
	serve.Flags().StringVar(&cfg.EXL2LibPath, "exl2-lib-path", cfg.EXL2LibPath, "Native library path for the exl2 backend")
	serve.Flags().IntVar(&cfg.ContextLength, "context-length", cfg.ContextLength, "Default context length when a load request carries none")
	serve.Flags().IntVar(&cfg.Threads, "threads", cfg.Threads, "Threads for the compiled runtime (0 = runtime default)")

	models := &cobra.Command{
		Use:   "models",
		Short: "List discovered models and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runModels(cfg)
		},
	}

	root.AddCommand(serve, models)
	return root
}

func runServe(cfg config.Config) error {
	inferCfg := infer.Config{
		HFWorkerBin:             cfg.HFWorkerBin,
		HFWorkerStartTimeoutSec: cfg.HFWorkerStartTimeoutSec,
		EXL2LibPath:             cfg.EXL2LibPath,
		Threads:                 cfg.Threads,
		DefaultContextLength:    cfg.ContextLength,
	}
	avail := infer.DetectAvailability(inferCfg)
	hw := infer.DetectHardware()
	log.Info().Bool("hf", avail.HF).Bool("exl2", avail.EXL2).Bool("gguf", avail.GGUF).
		Bool("cuda", hw.CUDA).Bool("hip", hw.HIP).Msg("backend availability")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	characters, err := store.OpenCharacters(filepath.Join(cfg.DataDir, "characters.json"))
	if err != nil {
		return fmt.Errorf("open character store: %w", err)
	}
	plotPoints, err := store.OpenPlotPoints(filepath.Join(cfg.DataDir, "plot_points.json"))
	if err != nil {
		return fmt.Errorf("open plot point store: %w", err)
	}
	story, err := store.OpenStory(filepath.Join(cfg.DataDir, "story.txt"))
	if err != nil {
		return fmt.Errorf("open story store: %w", err)
	}

	scanner := registry.New(cfg.ModelsDir, avail)
	eng := engine.New(engine.Config{
		Adapters:   infer.NewAdapters(inferCfg),
		Scanner:    scanner,
		Assembler:  prompt.NewAssembler(characters, plotPoints),
		Characters: characters,
		Hardware:   hw,
	})

	httpapi.SetCORSOptions(true,
		[]string{"*"},
		[]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		[]string{"Accept", "Content-Type"},
	)
	mux := httpapi.NewMux(httpapi.Deps{
		Engine:     eng,
		Catalog:    scanner,
		Characters: characters,
		PlotPoints: plotPoints,
		Story:      story,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("storyd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
	// Release any loaded models so accelerator memory is returned.
	if err := eng.Unload(engine.SlotAll); err != nil {
		log.Warn().Err(err).Msg("unloading slots")
	}
	return nil
}

func runModels(cfg config.Config) error {
	inferCfg := infer.Config{HFWorkerBin: cfg.HFWorkerBin, EXL2LibPath: cfg.EXL2LibPath}
	avail := infer.DetectAvailability(inferCfg)
	scanner := registry.New(cfg.ModelsDir, avail)
	models, err := scanner.Discover()
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Printf("%-40s %8.1f MB  backends=%v  device=%s\n",
			m.Filename, m.SizeMB, m.CompatibleBackends, m.SuggestedDevice)
	}
	fmt.Printf("hf=%v exl2=%v gguf=%v\n", avail.HF, avail.EXL2, avail.GGUF)
	return nil
}

// mergeConfig fills cfg from the file for every field whose flag was not set
// on the command line. Flags win over the file; the file wins over defaults.
func mergeConfig(cfg *config.Config, file config.Config, cmd *cobra.Command) {
	set := func(name string) bool {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			return true
		}
		if f := cmd.InheritedFlags().Lookup(name); f != nil && f.Changed {
			return true
		}
		return false
	}
	if file.Addr != "" && !set("addr") {
		cfg.Addr = file.Addr
	}
	if file.ModelsDir != "" && !set("models-dir") {
		cfg.ModelsDir = file.ModelsDir
	}
	if file.DataDir != "" && !set("data-dir") {
		cfg.DataDir = file.DataDir
	}
	if file.HFWorkerBin != "" && !set("hf-worker") {
		cfg.HFWorkerBin = file.HFWorkerBin
	}
	if file.HFWorkerStartTimeoutSec != 0 && !set("hf-worker-timeout-sec") {
		cfg.HFWorkerStartTimeoutSec = file.HFWorkerStartTimeoutSec
	}
	if file.EXL2LibPath != "" && !set("exl2-lib-path") {
		cfg.EXL2LibPath = file.EXL2LibPath
	}
	if file.ContextLength != 0 && !set("context-length") {
		cfg.ContextLength = file.ContextLength
	}
	if file.Threads != 0 && !set("threads") {
		cfg.Threads = file.Threads
	}
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/cache"
	"inferd/internal/config"
	"inferd/internal/httpapi"
	"inferd/internal/manager"
	"inferd/internal/metrics"
	"inferd/internal/registry"
	"inferd/internal/selection"
	"inferd/pkg/types"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (default \":8080\")")
	configPath := flag.String("config", "", "Path to config file (.yaml/.json/.toml)")
	modelDirs := flag.String("model-dirs", "", "Comma-separated directories to scan for model files")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// INFERD_ADDR and the other env overrides are applied inside Load.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	cfg.Addr = resolveAddr(*addr, cfg.Addr)
	if *modelDirs != "" {
		cfg.ModelDirs = strings.Split(*modelDirs, ",")
	}

	store, err := buildStore(cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("open cache store")
	}
	resultCache := cache.New(store, cfg.Cache.DefaultTTL, log.With().Str("component", "cache").Logger())
	defer resultCache.Close()

	monitor := metrics.NewMonitor(cfg.Metrics.WindowSize, log.With().Str("component", "metrics").Logger())

	// Real backends plug in here, one adapter per format tag. The echo
	// adapter serves every known file format until then.
	adapters := manager.NewAdapterTable()
	for _, format := range []string{"gguf", "onnx", "safetensors"} {
		adapters.Register(format, &manager.EchoAdapter{})
	}

	var sources []registry.Source
	for _, dir := range cfg.ModelDirs {
		sources = append(sources, registry.NewDirSource(dir))
	}
	for _, path := range cfg.Manifests {
		sources = append(sources, registry.NewManifestSource(path))
	}
	discovery := registry.NewDiscovery(log.With().Str("component", "discovery").Logger(), sources...)

	mgr := manager.New(manager.Config{
		Adapters:      adapters,
		Cache:         resultCache,
		Monitor:       monitor,
		Discovery:     discovery,
		DefaultDevice: cfg.DefaultDevice,
		Logger:        log.With().Str("component", "manager").Logger(),
	})

	// Discovery proposes; registration stays explicit.
	ctx := context.Background()
	for _, desc := range mgr.Discover(ctx) {
		if err := mgr.Register(desc); err != nil {
			log.Warn().Str("model", desc.ID).Err(err).Msg("skipping discovered model")
		}
	}

	selCfg := cfg.Selection
	if len(selCfg.RolePrefs) == 0 {
		selCfg = defaultSelection()
	}
	policy, err := selection.New(selCfg, mgr, log.With().Str("component", "selection").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("selection config")
	}

	srv := httpapi.NewServer(mgr, policy, log.With().Str("component", "http").Logger())
	srv.SetReady(true)
	httpSrv := &http.Server{Addr: cfg.Addr, Handler: srv.Mux(httpapi.CORSOptions{})}

	go func() {
		log.Info().Str("addr", cfg.Addr).Int("models", len(mgr.List())).Msg("inferd listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
}

// resolveAddr layers the listen address: an explicitly passed flag wins,
// then the config file or environment, then the built-in default.
func resolveAddr(flagAddr, cfgAddr string) string {
	if flagAddr != "" {
		return flagAddr
	}
	if cfgAddr != "" {
		return cfgAddr
	}
	return ":8080"
}

// buildStore picks the cache backend from config.
func buildStore(cfg config.CacheConfig) (cache.Store, error) {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 256 << 20
	}
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemoryStore(maxBytes), nil
	case "sqlite":
		dir := cfg.Dir
		if dir == "" {
			dir = "."
		}
		return cache.OpenSQLiteStore(filepath.Join(dir, "inferd-cache.db"), maxBytes)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// defaultSelection accepts every known format for a single default role
// and each task kind, so a bare config still selects deterministically.
func defaultSelection() config.SelectionConfig {
	formats := []string{"gguf", "onnx", "safetensors"}
	tasks := make(map[string][]string)
	for _, k := range types.KnownKinds() {
		tasks[string(k)] = formats
	}
	return config.SelectionConfig{
		RolePrefs: map[string][]string{"default": formats},
		TaskPrefs: tasks,
	}
}

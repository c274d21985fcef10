package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/plotplay/engine/internal/ai"
	"github.com/plotplay/engine/internal/api"
	"github.com/plotplay/engine/internal/config"
	"github.com/plotplay/engine/internal/game"
	"github.com/plotplay/engine/internal/persist"
)

// evictInterval is how often idle sessions are swept out of memory.
// Evicted sessions stay in the store and resume on the next request.
const evictInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             PlotPlay  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m    AI-native interactive fiction engine   \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := strconv.Itoa(count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/plotplay.toml"
	if p := os.Getenv("PLOTPLAY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	// 3. Open the session store and run migrations
	printSection("Store")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := persist.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer store.Close()
	printOK(fmt.Sprintf("session store ready (%s)", storeLabel(cfg.Store)))
	fmt.Println()

	// 4. Load the game library
	printSection("Content")

	lib, err := game.LoadLibrary(cfg.Content.Dir)
	if err != nil {
		return fmt.Errorf("load games from %s: %w", cfg.Content.Dir, err)
	}
	printStat("Games", lib.Count())
	for _, g := range lib.List() {
		printOK(fmt.Sprintf("%s (%s)", g.Meta.Title, g.Meta.ID))
	}
	fmt.Println()

	// 5. Build the AI client
	client, err := ai.New(cfg.AI.Provider, ai.Options{
		APIKey:       cfg.AI.APIKey,
		BaseURL:      cfg.AI.BaseURL,
		WriterModel:  cfg.AI.WriterModel,
		CheckerModel: cfg.AI.CheckerModel,
		MaxTokens:    cfg.AI.MaxTokens,
	}, log)
	if err != nil {
		return fmt.Errorf("ai client: %w", err)
	}

	// 6. Assemble the API server
	srv := api.NewServer(lib, store, client, log, cfg)
	httpSrv := &http.Server{
		Addr:         cfg.Server.BindAddress,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 7. Run until a shutdown signal; sweep idle sessions on a ticker
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("listening on %s", cfg.Server.BindAddress))
	printReady(fmt.Sprintf("ai provider: %s", cfg.AI.Provider))
	if cfg.Session.IdleTimeout > 0 {
		printReady(fmt.Sprintf("idle sessions evicted after %s", cfg.Session.IdleTimeout))
	}
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			if n := srv.Manager().EvictIdle(time.Now()); n > 0 {
				log.Info("evicted idle sessions", zap.Int("count", n))
			}
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				log.Warn("shutdown incomplete", zap.Error(err))
			}
			log.Info("server stopped")
			return nil
		}
	}
}

func storeLabel(cfg config.StoreConfig) string {
	switch cfg.Driver {
	case "sqlite":
		return "sqlite " + cfg.Path
	case "postgres":
		return "postgres"
	default:
		return "memory"
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

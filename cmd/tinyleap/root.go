package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/tinyleap/internal/agent"
	"github.com/hyperengineering/tinyleap/internal/api"
	"github.com/hyperengineering/tinyleap/internal/config"
	"github.com/hyperengineering/tinyleap/internal/credential"
	"github.com/hyperengineering/tinyleap/internal/evaluation"
	"github.com/hyperengineering/tinyleap/internal/llm"
	"github.com/hyperengineering/tinyleap/internal/metrics"
	"github.com/hyperengineering/tinyleap/internal/snapshot"
	"github.com/hyperengineering/tinyleap/internal/store"
	"github.com/hyperengineering/tinyleap/internal/worker"
	"github.com/hyperengineering/tinyleap/internal/workshop"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "tinyleap",
	Short:        "TinyLeap - behavior design workshop server",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.AddCommand(workshopCmd)
	rootCmd.AddCommand(passwordCmd)
}

// loadConfig reads .env when present, then the layered configuration.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}
	return config.Load()
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("configuration loaded",
		"level", cfg.Log.Level,
		"driver", cfg.Database.Driver,
		"model", cfg.LLM.Model,
	)
	if cfg.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY not set; agents will answer with fallbacks")
	}

	uploader, err := snapshot.NewUploader(cfg.SnapshotStorage)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "driver", cfg.Database.Driver)

	m := metrics.Default()
	gateway := llm.NewGateway(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.Timeout),
	})
	validator := agent.NewCachedValidator(agent.NewValidator(gateway, m), cfg.Cache.ValidateSize, time.Duration(cfg.Cache.ValidateTTL))
	designer := agent.NewDesigner(gateway, m)
	coach := agent.NewCoach(gateway, m)
	writer := agent.NewSOPWriter(gateway, m)
	slog.Info("agents initialized", "model", gateway.ModelName())

	saves := worker.NewSaveCoalescer(db, time.Duration(cfg.Worker.SaveDebounce))
	service := workshop.NewService(saves, designer, writer)

	handler := api.NewHandler(api.Deps{
		Workshops:    saves,
		Service:      service,
		Sessions:     evaluation.NewManager(service, validator, coach, m),
		Credentials:  credential.NewService(db, 0),
		Validator:    validator,
		Designer:     designer,
		Coach:        coach,
		Writer:       writer,
		Version:      Version,
		Model:        gateway.ModelName(),
		StoreName:    cfg.Database.Driver,
		PendingSaves: saves.Pending,
	})
	router := api.NewRouter(handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// The coalescer outlives the HTTP server so in-flight requests can
	// still queue saves; it gets its own context.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	var wg sync.WaitGroup
	startWorker(workerCtx, &wg, "save-coalescer", saves.Run)
	if interval := time.Duration(cfg.Worker.SnapshotInterval); interval > 0 {
		snapshots := worker.NewSnapshotWorker(saves, cfg.Worker.SnapshotDir, interval, uploader)
		startWorker(workerCtx, &wg, "snapshot", snapshots.Run)
	}

	go func() {
		slog.Info("server starting", "address", addr, "version", Version)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Stopping the coalescer writes every pending save.
	stopWorkers()
	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// openStore opens the configured backend. SQLite runs migrations on open.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.Driver == config.DriverMongo {
		db, err := store.NewMongoStore(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	db, err := store.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}

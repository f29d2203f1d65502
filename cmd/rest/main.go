package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"emotion-diary-be/internal/bootstrap"
	"emotion-diary-be/internal/config"
	"emotion-diary-be/internal/pkg/logger"
	"emotion-diary-be/internal/server"
	"emotion-diary-be/internal/tracer"
	"emotion-diary-be/pkg/index"

	"github.com/fatih/color"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Logging and tracing
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	if err := cfg.Validate(); err != nil {
		sysLogger.Error("BOOT", "Invalid configuration", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	shutdownTracer := tracer.InitTracer(cfg.App.OtelEnabled, sysLogger.Zap())
	defer shutdownTracer(context.Background())

	// 3. Embedding index, immutable for the life of the process
	idx, err := bootstrap.LoadIndex(context.Background(), cfg, sysLogger.Zap())
	if err != nil {
		if errors.Is(err, index.ErrDataIntegrity) {
			sysLogger.Error("BOOT", "Index artifacts are inconsistent", map[string]interface{}{"error": err})
		} else {
			sysLogger.Error("BOOT", "Unable to load index", map[string]interface{}{"error": err})
		}
		os.Exit(1)
	}
	stats := idx.Stats()
	sysLogger.Info("BOOT", "Index loaded", map[string]interface{}{
		"source":    cfg.Index.Source,
		"dimension": stats.Dimension,
		"leaves":    stats.Leaves,
		"fine":      stats.Fine,
	})

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg, idx, sysLogger)
	if err != nil {
		sysLogger.Error("BOOT", "Unable to build container", map[string]interface{}{"error": err})
		os.Exit(1)
	}
	defer container.Close()

	// 5. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := container.ConsumerService.Consume(ctx); err != nil {
		sysLogger.Error("BOOT", "Event consumer failed to start", map[string]interface{}{"error": err})
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		sysLogger.Info("SERVER", "Shutting down", nil)
		_ = srv.Shutdown()
	}()

	color.Cyan("Emotion diary backend on :%s (%d leaves, dim %d)", cfg.App.Port, stats.Leaves, stats.Dimension)

	// 7. Run Server
	if err := srv.Run(); err != nil {
		sysLogger.Error("SERVER", "Server stopped", map[string]interface{}{"error": err})
	}
}

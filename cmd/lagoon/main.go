package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Versifine/lagoon/internal/config"
	"github.com/Versifine/lagoon/internal/console"
	"github.com/Versifine/lagoon/internal/controls"
	"github.com/Versifine/lagoon/internal/game"
	"github.com/Versifine/lagoon/internal/logger"
	"github.com/Versifine/lagoon/internal/persistence"
	"github.com/Versifine/lagoon/internal/scene"
	"github.com/Versifine/lagoon/internal/window"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	logFile, err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Lagoon stopped", "mode", cfg.Host.Mode, "error", err)
		stop()
		_ = logFile.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	saves := openSaves(ctx, cfg.Storage)

	if cfg.Host.Mode == config.HostTerminal {
		host := console.New(cfg.Host.TickHz)
		g, err := newGame(ctx, cfg, host, saves)
		if err != nil {
			return err
		}
		defer g.Dispose()
		return host.Run(ctx, g)
	}

	host := window.New(cfg.Window, cfg.Host.TickHz)
	g, err := newGame(ctx, cfg, host, saves)
	if err != nil {
		return err
	}
	defer g.Dispose()
	return host.Run(ctx, g)
}

// openSaves returns nil when storage cannot be initialized; the game then runs
// without persistence.
func openSaves(ctx context.Context, cfg config.StorageConfig) game.SaveQueue {
	ns := persistence.Namespace{Name: cfg.Name, StoreName: cfg.Store}
	var opener persistence.Opener
	switch cfg.Driver {
	case config.DriverMemory:
		opener = persistence.MemoryOpener(persistence.NewMemoryStore())
	default:
		opener = persistence.SQLiteOpener(cfg.Dir, ns)
	}
	q := persistence.NewQueue(opener, cfg.Debounce())
	if err := q.Initialize(ctx); err != nil {
		slog.Warn("Persistence unavailable, progress will not be saved", "driver", cfg.Driver, "error", err)
		return nil
	}
	slog.Info("Persistence ready", "driver", cfg.Driver, "namespace", ns.Name, "store", ns.StoreName)
	return q
}

func newGame(ctx context.Context, cfg *config.Config, capture controls.PointerCapture, saves game.SaveQueue) (*game.Game, error) {
	g := game.New(cfg, capture, saves)
	if err := g.Start(ctx); err != nil {
		g.Dispose()
		return nil, err
	}
	g.OnInteract(func(hit scene.Intersection) {
		slog.Info("Interacted", "node", hit.Node.ID(), "distance", hit.Distance)
	})
	return g, nil
}

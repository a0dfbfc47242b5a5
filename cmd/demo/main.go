// Command demo wires the entity store, the generational session handle pool,
// and the persistence layer into a small runnable TCP server: not a game,
// but a concrete host for every piece of the library working together
// under real concurrent I/O.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/intrets/mem/internal/config"
	"github.com/intrets/mem/internal/core/component"
	"github.com/intrets/mem/internal/core/entitystore"
	"github.com/intrets/mem/internal/core/event"
	"github.com/intrets/mem/internal/core/refman"
	"github.com/intrets/mem/internal/core/scheduler"
	"github.com/intrets/mem/internal/gameplay"
	"github.com/intrets/mem/internal/persist"
	"github.com/intrets/mem/internal/scripting"
	"github.com/intrets/mem/internal/transport"
	"github.com/intrets/mem/internal/transport/packet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printBanner(name string, id int) {
	fmt.Println()
	fmt.Println("  ┌───────────────────────────────────────┐")
	fmt.Println("  │              mem demo server           │")
	fmt.Println("  └───────────────────────────────────────┘")
	fmt.Printf("  server: %s (id: %d)\n\n", name, id)
}

func printOK(msg string) { fmt.Printf("  [ok] %s\n", msg) }

func run() error {
	cfgPath := os.Getenv("MEM_CONFIG")
	var cfg *config.Config
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()

	db, err := persist.NewDB(setupCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("connected to postgres")

	if err := persist.RunMigrations(setupCtx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")

	// runCtx bounds the individual persistence calls made from the tick
	// loop and at shutdown — unlike setupCtx, it is not time-limited itself.
	runCtx := context.Background()

	registry := component.Default()
	persist.RegisterHooks(registry)
	store := entitystore.New(registry)
	sessions := refman.NewManager[transport.Session]()
	bus := event.NewBus()

	snapshots := persist.NewSnapshotRepo(db, registry)
	credentials := persist.NewCredentialRepo(db, registry)
	wal := persist.NewWALRepo(db)

	luaEngine, err := scripting.NewEngine(cfg.Scripting.HookDir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer luaEngine.Close()
	printOK("scripting hooks loaded")

	pktReg := packet.NewRegistry(log)
	gameplay.RegisterAll(pktReg, &gameplay.Deps{
		Store:       store,
		Sessions:    sessions,
		Credentials: credentials,
		Bus:         bus,
		Log:         log,
	})

	server, err := transport.NewServer(cfg.Transport.BindAddress, sessions, cfg.Transport.InQueueSize, cfg.Transport.OutQueueSize, 0, log)
	if err != nil {
		return fmt.Errorf("transport server: %w", err)
	}
	go server.AcceptLoop()

	runner := scheduler.NewRunner()
	runner.Register(&scheduler.EventDispatchSystem{Bus: bus})
	runner.Register(&persist.WALSystem{Store: store, WAL: wal, Log: log})
	runner.Register(&scheduler.CollectRemovedSystem{Store: store, Bus: bus})

	live := make(map[refman.Handle]*transport.Session)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Transport.TickRate)
	defer ticker.Stop()

	saveInterval := time.Minute
	lastSave := time.Now()

	fmt.Printf("  listening on %s (tick: %s)\n\n", server.Addr(), cfg.Transport.TickRate)

	for {
		select {
		case weak := <-server.NewSessions():
			sess := weak.Get()
			live[weak.Handle()] = sess

		case h := <-server.DeadSessions():
			delete(live, h)

		case <-ticker.C:
			for h, sess := range live {
				if sess.IsClosed() {
					server.NotifyDead(h)
					continue
				}
				drainInbound(sess, pktReg)
			}

			runner.Tick(cfg.Transport.TickRate)

			for _, sess := range live {
				sess.FlushOutput()
			}

			if time.Since(lastSave) >= saveInterval {
				lastSave = time.Now()
				savePositions(runCtx, log, store, snapshots, live)
			}

		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			savePositions(runCtx, log, store, snapshots, live)
			server.Shutdown()
			log.Info("stopped")
			return nil
		}
	}
}

// drainInbound processes every packet a session's readLoop has queued,
// bounded by the queue's own capacity — the scheduler goroutine never
// blocks waiting for more input than is already buffered.
func drainInbound(sess *transport.Session, reg *packet.Registry) {
	for {
		select {
		case data := <-sess.InQueue():
			if err := reg.Dispatch(sess, sess.State(), data); err != nil {
				sess.Close()
				return
			}
		default:
			return
		}
	}
}

func savePositions(ctx context.Context, log *zap.Logger, store *entitystore.Store, repo *persist.SnapshotRepo, live map[refman.Handle]*transport.Session) {
	entities := make([]entitystore.Entity, 0, len(live))
	for _, sess := range live {
		if !sess.Entity.IsZero() {
			entities = append(entities, sess.Entity)
		}
	}
	if len(entities) == 0 {
		return
	}
	if err := repo.SavePositions(ctx, store, entities); err != nil {
		log.Error("position snapshot failed", zap.Error(err))
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

package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/buddytalk/internal/api"
	"github.com/matheus3301/buddytalk/internal/bus"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/config"
	"github.com/matheus3301/buddytalk/internal/failcache"
	"github.com/matheus3301/buddytalk/internal/lock"
	"github.com/matheus3301/buddytalk/internal/logging"
	"github.com/matheus3301/buddytalk/internal/session"
	"github.com/matheus3301/buddytalk/internal/store"
	intsync "github.com/matheus3301/buddytalk/internal/sync"
	"github.com/matheus3301/buddytalk/internal/transport/graphql"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	ConfigPath  string // empty = ~/.buddytalk/config.toml
	Debug       bool
	Transport   chat.Transport // optional override for testing; nil = GraphQL backend
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideFailCache,
			provideTransport,
			provideReconciler,
			provideEngine,
			provideChatService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = session.ConfigPath()
	}
	return config.LoadOrDefault(path)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, p.Debug)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is only opened by its owner.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideFailCache(db *store.DB, cfg *config.Config, logger *zap.Logger) *failcache.Cache {
	return failcache.Init(db, cfg.StorageKey, logger.Named("failcache"))
}

func provideTransport(p Params, cfg *config.Config, logger *zap.Logger) chat.Transport {
	if p.Transport != nil {
		return p.Transport
	}
	logger.Info("using GraphQL backend", zap.String("endpoint", cfg.Backend.Endpoint))
	return graphql.NewClient(cfg.Backend.Endpoint, cfg.Timeout())
}

func provideReconciler(db *store.DB, logger *zap.Logger) *intsync.Reconciler {
	return intsync.NewReconciler(db, logger.Named("reconciler"))
}

func provideEngine(t chat.Transport, cache *failcache.Cache, r *intsync.Reconciler, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(t, cache, r, b, logger.Named("engine"))
}

func provideChatService(p Params, engine *intsync.Engine, cfg *config.Config, b *bus.Bus, logger *zap.Logger) *api.ChatService {
	return api.NewChatService(engine, cfg, b, p.SessionName, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, chatSvc *api.ChatService, lk *lock.Lock, db *store.DB, engine *intsync.Engine, cfg *config.Config, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			// Restore the last selection and run its initial load.
			go func() {
				loadCtx, done := context.WithTimeout(ctx, cfg.Timeout()+5*time.Second)
				defer done()
				err := engine.Restore(loadCtx, cfg.DefaultChannel, cfg.DefaultUser)
				if err != nil && !errors.Is(err, chat.ErrStale) {
					logger.Warn("initial load failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			chatSvc.Close()
			srv.Stop(stopCtx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

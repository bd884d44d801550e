// Package client composes the messaging core into a runnable unit with fx.
package client

import (
	"context"
	"time"

	"github.com/courierhq/courier/internal/blob"
	"github.com/courierhq/courier/internal/bus"
	"github.com/courierhq/courier/internal/chat"
	"github.com/courierhq/courier/internal/config"
	"github.com/courierhq/courier/internal/identity"
	"github.com/courierhq/courier/internal/lock"
	"github.com/courierhq/courier/internal/logging"
	"github.com/courierhq/courier/internal/paths"
	"github.com/courierhq/courier/internal/registry"
	"github.com/courierhq/courier/internal/store"
	intsync "github.com/courierhq/courier/internal/sync"
	"github.com/courierhq/courier/internal/upload"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved configuration passed to the fx module.
type Params struct {
	Config  *config.Config
	DataDir string
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("client",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideBlobStore,
			provideIdentity,
			provideRegistry,
			provideSyncEngine,
			provideUploader,
			provideChatService,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(paths.LogPath(p.DataDir), p.DataDir)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := paths.EnsureDirs(p.DataDir); err != nil {
		return nil, err
	}
	logger.Info("acquiring data dir lock", zap.String("data_dir", p.DataDir))
	l, err := lock.Acquire(p.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := paths.DBPath(p.DataDir)
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

// provideBlobStore picks GridFS when a Mongo URI is configured, the local
// filesystem store otherwise.
func provideBlobStore(p Params, lc fx.Lifecycle, logger *zap.Logger) (blob.Store, error) {
	if p.Config.MongoURI == "" {
		logger.Info("using filesystem content store",
			zap.String("dir", paths.MediaDir(p.DataDir)))
		return blob.NewFS(paths.MediaDir(p.DataDir))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(p.Config.MongoURI))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mc.Disconnect(ctx)
		},
	})
	logger.Info("using gridfs content store",
		zap.String("base_url", p.Config.MediaBaseURL))
	return blob.NewGridFS(mc.Database("courier"), p.Config.MediaBaseURL)
}

func provideIdentity(p Params) identity.Provider {
	return identity.Static{Email: p.Config.Email}
}

func provideRegistry(db *store.DB) *registry.Registry {
	return registry.New(db)
}

func provideSyncEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, logger)
}

func provideUploader(blobs blob.Store, b *bus.Bus, logger *zap.Logger) *upload.Uploader {
	return upload.NewUploader(blobs, b, logger)
}

func provideChatService(ids identity.Provider, db *store.DB, reg *registry.Registry, engine *intsync.Engine, uploader *upload.Uploader, blobs blob.Store, b *bus.Bus, logger *zap.Logger) *chat.Service {
	return chat.NewService(ids, db, reg, engine, uploader, blobs, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, svc *chat.Service, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("client started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}

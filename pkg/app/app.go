// Package app wires the ordering core to the infrastructure enabled in
// configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/pizzaplanet/pkg/chat"
	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/eta"
	"github.com/example/pizzaplanet/pkg/intent"
	"github.com/example/pizzaplanet/pkg/llm"
	"github.com/example/pizzaplanet/pkg/menu"
	"github.com/example/pizzaplanet/pkg/repository"
	"github.com/example/pizzaplanet/pkg/service"
	"github.com/example/pizzaplanet/pkg/session"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/example/pizzaplanet/pkg/users"
	"go.uber.org/zap"
)

type App struct {
	Service  *service.Service
	Catalog  *menu.Catalog
	Orders   *store.OrderStore
	Users    *users.Directory
	Sessions *session.Manager

	redis   *repository.RedisRepository
	mongo   *repository.MongoRepository
	archive *repository.Archive
	logger  *zap.Logger
}

// Build assembles the service. Infrastructure that is enabled but
// unreachable is logged and skipped; the in-memory store stays
// authoritative either way.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	items := menu.Default()
	if cfg.Ordering.MenuFile != "" {
		loaded, err := menu.LoadFile(cfg.Ordering.MenuFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load menu: %w", err)
		}
		items = loaded
	}
	catalog, err := menu.NewCatalog(items, logger.Named("menu"))
	if err != nil {
		return nil, err
	}

	engine := eta.NewEngine()
	orders := store.NewOrderStore(catalog, engine, logger.Named("store"))
	dir := users.NewDirectory(orders, logger.Named("users"))
	orders.AddObserver(dir)

	a := &App{Catalog: catalog, Orders: orders, Users: dir, logger: logger}
	var lookups []service.OrderLookup

	if cfg.Redis.Enabled {
		r := repository.NewRedisRepository(&cfg.Redis, logger.Named("redis"))
		if err := r.Ping(ctx); err != nil {
			logger.Warn("Redis connection failed, cache disabled", zap.Error(err))
			_ = r.Close()
		} else {
			logger.Info("Redis connected successfully")
			a.redis = r
			orders.AddObserver(r)
			lookups = append(lookups, r)
		}
	}

	if cfg.MongoDB.Enabled {
		m, err := repository.NewMongoRepository(&cfg.MongoDB, logger.Named("mongo"))
		if err == nil {
			err = m.Ping(ctx)
			if err != nil {
				_ = m.Close(ctx)
			}
		}
		if err != nil {
			logger.Warn("MongoDB connection failed, audit log disabled", zap.Error(err))
		} else {
			logger.Info("MongoDB connected successfully")
			a.mongo = m
			orders.AddObserver(m)
		}
	}

	if cfg.MySQL.Enabled {
		ar, err := repository.NewArchive(&cfg.MySQL, logger.Named("archive"))
		if err != nil {
			logger.Warn("MySQL connection failed, archive disabled", zap.Error(err))
		} else {
			logger.Info("MySQL connected successfully")
			a.archive = ar
			orders.AddObserver(ar)
			lookups = append(lookups, ar)
		}
	}

	client, err := llm.New(llmConfig(cfg.LLM), logger.Named("llm"))
	if err != nil {
		return nil, err
	}

	router := chat.NewRouter(
		intent.NewClassifier(client, catalog, cfg.LLM.Timeout, logger.Named("intent")),
		catalog, orders, dir, engine,
		chat.NewResponder(client, cfg.LLM.Timeout, logger.Named("responder")),
		chat.Defaults{Address: cfg.Ordering.DefaultAddress, Phone: cfg.Ordering.DefaultPhone},
		logger.Named("chat"))

	var handler service.ChatHandler = router
	if cfg.Session.Enabled {
		a.Sessions = session.NewManager(router, cfg.Session.RequestTimeout, cfg.Session.IdleTimeout, logger.Named("session"))
		handler = a.Sessions
	}

	a.Service = service.New(catalog, orders, dir, handler, engine, logger.Named("service"), lookups...)
	var history []service.OrderHistory
	if a.redis != nil {
		history = append(history, a.redis)
	}
	if a.archive != nil {
		history = append(history, a.archive)
	}
	a.Service.SetHistory(history...)
	if a.mongo != nil {
		a.Service.SetEventSource(a.mongo)
	}
	return a, nil
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider:    c.Provider,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		Timeout:     c.Timeout,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}

func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			a.logger.Warn("Failed to close mongodb", zap.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("Failed to close mysql", zap.Error(err))
		}
	}
}

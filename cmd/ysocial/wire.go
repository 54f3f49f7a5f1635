package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alphabot-ai/ysocial/internal/auth"
	"github.com/alphabot-ai/ysocial/internal/config"
	"github.com/alphabot-ai/ysocial/internal/events"
	"github.com/alphabot-ai/ysocial/internal/metrics"
	"github.com/alphabot-ai/ysocial/internal/posts"
	"github.com/alphabot-ai/ysocial/internal/store"
	"github.com/alphabot-ai/ysocial/internal/store/docfile"
	"github.com/alphabot-ai/ysocial/internal/store/docmongo"
	"github.com/alphabot-ai/ysocial/internal/store/postgres"
	"github.com/alphabot-ai/ysocial/internal/store/rediscache"
	"github.com/alphabot-ai/ysocial/internal/store/sqlite"
)

// application holds the long-lived collaborators built from a Config.
type application struct {
	accounts  store.AccountStore
	documents store.DocumentStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	posts     *posts.Service
	auth      *auth.Service
}

func wire(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *application, err error) {
	app := &application{metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if app.accounts, err = openAccounts(ctx, cfg); err != nil {
		return nil, fmt.Errorf("open identity store: %w", err)
	}
	if app.documents, err = openDocuments(ctx, cfg, logger); err != nil {
		return nil, fmt.Errorf("open social document: %w", err)
	}

	app.publisher = events.Nop{}
	if cfg.NATSURL != "" {
		pub, err := events.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		app.publisher = pub
	}

	strategy, err := posts.StrategyByName(cfg.Feed.Strategy, cfg.Feed.RecencyLimit, cfg.Feed.SampleLimit)
	if err != nil {
		return nil, err
	}
	app.posts = posts.NewService(app.documents, posts.Options{
		Strategy:      strategy,
		Events:        app.publisher,
		Metrics:       app.metrics,
		Logger:        logger,
		PruneOnCreate: cfg.Feed.PruneOnCreate,
	})
	app.auth = auth.NewService(app.accounts, app.posts, auth.Config{
		Secret:       []byte(cfg.JWTSecret),
		TokenTTL:     cfg.TokenTTL,
		ChallengeTTL: cfg.ChallengeTTL,
		Logger:       logger,
	})
	return app, nil
}

func openAccounts(ctx context.Context, cfg config.Config) (store.AccountStore, error) {
	if cfg.IsPostgres() {
		st, err := postgres.Open(ctx, cfg.IdentityDSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	st, err := sqlite.Open(cfg.IdentityDSN)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func openDocuments(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.DocumentStore, error) {
	var docs store.DocumentStore
	switch cfg.Document.Backend {
	case "mongo":
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		st, err := docmongo.Open(dialCtx, cfg.Document.MongoURI, cfg.Document.MongoDB)
		if err != nil {
			return nil, err
		}
		docs = st
	default:
		st, err := docfile.Open(cfg.Document.Path)
		if err != nil {
			return nil, err
		}
		docs = st
	}

	if cfg.Redis.Addr == "" {
		return docs, nil
	}
	cached, err := rediscache.Dial(ctx, cfg.Redis.Addr, docs, cfg.Redis.TTL, logger)
	if err != nil {
		logger.Warn("document cache unavailable, continuing without it",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()),
		)
		return docs, nil
	}
	return cached, nil
}

func (a *application) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.documents != nil {
		errs = append(errs, a.documents.Close())
	}
	if a.accounts != nil {
		errs = append(errs, a.accounts.Close())
	}
	return errors.Join(errs...)
}

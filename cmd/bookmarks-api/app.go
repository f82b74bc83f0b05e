package main

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/config"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/database"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/enrichment"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/users"
	"go.uber.org/zap"
)

const (
	mongoCollection   = "bookmarks"
	mongoIndexTimeout = 30 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// application holds the services shared by the serve and import commands.
type application struct {
	bookmarks *bookmarks.Service
	users     *users.Service
	closers   []func(context.Context) error
}

func (a *application) Close(ctx context.Context) error {
	var errs []error
	for index := len(a.closers) - 1; index >= 0; index-- {
		if err := a.closers[index](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildApplication(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (*application, error) {
	app := &application{}
	failed := true
	defer func() {
		if failed {
			_ = app.Close(context.Background())
		}
	}()

	sqlDriver := appConfig.DatabaseDriver
	if sqlDriver == config.DriverMongo {
		sqlDriver = database.DriverSQLite
	}
	db, err := database.OpenSQL(database.SQLConfig{
		Driver:        sqlDriver,
		Path:          appConfig.DatabasePath,
		DSN:           appConfig.DatabaseDSN,
		SkipBookmarks: appConfig.DatabaseDriver == config.DriverMongo,
	}, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func(context.Context) error { return database.Close(db) })

	var repository bookmarks.Repository
	if appConfig.DatabaseDriver == config.DriverMongo {
		store, err := database.NewMongoStore(database.MongoConfig{
			URI:        appConfig.MongoURI,
			Database:   appConfig.MongoDatabase,
			Collection: mongoCollection,
		}, logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, store.Close)

		mongoRepository := bookmarks.NewMongoRepository(store.Collection)
		indexCtx, cancel := context.WithTimeout(ctx, mongoIndexTimeout)
		err = mongoRepository.EnsureIndexes(indexCtx)
		cancel()
		if err != nil {
			return nil, err
		}
		repository = mongoRepository
	} else {
		repository = bookmarks.NewGormRepository(db)
	}

	enricher, err := buildEnricher(ctx, appConfig, logger)
	if err != nil {
		return nil, err
	}
	if appConfig.RedisAddr != "" {
		rdb, err := database.ConnectRedis(ctx, database.RedisOptions{
			Addr:           appConfig.RedisAddr,
			Password:       appConfig.RedisPassword,
			DB:             appConfig.RedisDB,
			ConnectTimeout: appConfig.RedisConnectTimeout,
		}, logger)
		if err != nil {
			logger.Warn("enrichment cache disabled", zap.String("addr", appConfig.RedisAddr), zap.Error(err))
		} else {
			app.closers = append(app.closers, func(context.Context) error { return rdb.Close() })
			enricher = enrichment.NewCachingEnricher(rdb, appConfig.CacheTTL, enricher, logger)
		}
	}

	app.bookmarks, err = bookmarks.NewService(bookmarks.ServiceConfig{
		Repository: repository,
		Enricher:   enricher,
		Clock:      time.Now,
		IDProvider: bookmarks.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	app.users, err = users.NewService(users.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	failed = false
	return app, nil
}

func buildEnricher(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (enrichment.Source, error) {
	fetcher := enrichment.NewHTTPFetcher(enrichment.FetcherConfig{
		Client:       enrichment.NewHTTPClient(appConfig.FetchTimeout),
		Timeout:      appConfig.FetchTimeout,
		MaxBodyBytes: appConfig.MaxBodyBytes,
		UserAgent:    appConfig.UserAgent,
	})

	var summarizer enrichment.Summarizer = enrichment.NewHeuristicSummarizer()
	if appConfig.SummaryProvider == config.SummaryProviderGemini {
		generator, err := enrichment.NewGeminiGenerator(ctx, appConfig.GeminiModel)
		if err != nil {
			return nil, err
		}
		summarizer = enrichment.NewGeminiSummarizer(generator, summarizer, logger)
	}

	enricher, err := enrichment.NewEnricher(enrichment.EnricherConfig{
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return enricher, nil
}

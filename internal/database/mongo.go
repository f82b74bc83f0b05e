package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultMongoConnectTimeout = 10 * time.Second
	defaultBookmarksCollection = "bookmarks"
)

var errMissingMongoURI = errors.New("mongo uri is required")

// MongoConfig describes the MongoDB deployment holding bookmarks.
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// MongoStore owns the process-wide MongoDB client. The client is created on
// first use and reused by every request.
type MongoStore struct {
	client     *Lazy[*mongo.Client]
	database   string
	collection string
}

// NewMongoStore prepares a lazily connected store. No network traffic happens
// until the first Collection call.
func NewMongoStore(cfg MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errMissingMongoURI
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultMongoConnectTimeout
	}
	databaseName := cfg.Database
	if databaseName == "" {
		databaseName = "bookmarks"
	}
	collectionName := cfg.Collection
	if collectionName == "" {
		collectionName = defaultBookmarksCollection
	}

	connect := func(ctx context.Context) (*mongo.Client, error) {
		clientOptions := options.Client().
			ApplyURI(cfg.URI).
			SetConnectTimeout(timeout).
			SetServerSelectionTimeout(timeout)
		client, err := mongo.Connect(clientOptions)
		if err != nil {
			logger.Error("mongo connect failed", zap.Error(err))
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			logger.Error("mongo ping failed", zap.Error(err))
			return nil, err
		}
		logger.Info("connected to mongo", zap.String("database", databaseName))
		return client, nil
	}

	return &MongoStore{
		client:     NewLazy(connect),
		database:   databaseName,
		collection: collectionName,
	}, nil
}

// Collection resolves the bookmarks collection, connecting if needed.
func (s *MongoStore) Collection(ctx context.Context) (*mongo.Collection, error) {
	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(s.database).Collection(s.collection), nil
}

// Close disconnects the client if it was ever connected.
func (s *MongoStore) Close(ctx context.Context) error {
	client, ok := s.client.Peek()
	if !ok {
		return nil
	}
	return client.Disconnect(ctx)
}

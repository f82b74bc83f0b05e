package database

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	errMissingPath   = errors.New("database path is required")
	errMissingDSN    = errors.New("database dsn is required")
	errUnknownDriver = errors.New("unknown database driver")
)

// SQLConfig selects the SQL backend.
type SQLConfig struct {
	Driver string
	Path   string
	DSN    string
	// SkipBookmarks leaves the bookmarks table out of the schema, for
	// deployments that keep bookmarks in MongoDB.
	SkipBookmarks bool
}

// OpenSQL establishes a SQLite or Postgres connection and performs schema migrations.
func OpenSQL(cfg SQLConfig, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialector, target, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	models := []any{&users.User{}, &migrationRecord{}}
	if !cfg.SkipBookmarks {
		models = append(models, &bookmarks.Bookmark{})
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	logger.Info("database initialized", zap.String("driver", cfg.Driver), zap.String("target", target))
	return db, nil
}

// Close releases the pooled connections behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg SQLConfig) (gorm.Dialector, string, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		if cfg.Path == "" {
			return nil, "", errMissingPath
		}
		return sqlite.Open(cfg.Path), cfg.Path, nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, "", errMissingDSN
		}
		return postgres.Open(cfg.DSN), "postgres", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", errUnknownDriver, cfg.Driver)
	}
}

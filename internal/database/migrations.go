package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeUserEmails = "2026-09-14_normalize_user_emails"
	migrationBackfillEmptyTags   = "2026-09-21_backfill_empty_bookmark_tags"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeUserEmails, apply: normalizeUserEmails},
		{name: migrationBackfillEmptyTags, apply: backfillEmptyTags},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

func normalizeUserEmails(db *gorm.DB) error {
	return db.Model(&users.User{}).
		Where("email <> LOWER(TRIM(email))").
		Update("email", gorm.Expr("LOWER(TRIM(email))")).Error
}

func backfillEmptyTags(db *gorm.DB) error {
	if !db.Migrator().HasTable(&bookmarks.Bookmark{}) {
		return nil
	}
	return db.Model(&bookmarks.Bookmark{}).
		Where("tags IS NULL OR tags = ''").
		Update("tags", "[]").Error
}

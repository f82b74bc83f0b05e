package bookmarks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

const postgresDialect = "postgres"

// GormRepository persists bookmarks through GORM (SQLite or Postgres).
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps a migrated database handle.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) FindByID(ctx context.Context, bookmarkID BookmarkID) (Bookmark, error) {
	var bookmark Bookmark
	err := r.db.WithContext(ctx).
		Where("bookmark_id = ?", bookmarkID.String()).
		Take(&bookmark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Bookmark{}, ErrNotFound
	}
	if err != nil {
		return Bookmark{}, err
	}
	return bookmark, nil
}

func (r *GormRepository) ExistsForURL(ctx context.Context, userID UserID, url string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Bookmark{}).
		Where("user_id = ? AND url = ?", userID.String(), url).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepository) ListByUser(ctx context.Context, userID UserID) ([]Bookmark, error) {
	var stored []Bookmark
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("order_key ASC").
		Order("created_at ASC").
		Find(&stored).Error
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Append assigns the next order key for the owner and inserts the bookmark.
// On Postgres the transaction holds a per-user advisory lock so concurrent
// appends for one user cannot read the same MAX(order_key). SQLite runs with a
// single connection and serializes writers already.
func (r *GormRepository) Append(ctx context.Context, bookmark *Bookmark) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUserOrder(tx, bookmark.UserID); err != nil {
			return err
		}
		var maxOrder sql.NullInt64
		row := tx.Model(&Bookmark{}).
			Where("user_id = ?", bookmark.UserID).
			Select("MAX(order_key)").
			Row()
		if err := row.Scan(&maxOrder); err != nil {
			return err
		}
		bookmark.Order = 0
		if maxOrder.Valid {
			bookmark.Order = maxOrder.Int64 + 1
		}
		if err := tx.Create(bookmark).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

func lockUserOrder(tx *gorm.DB, userID string) error {
	if tx.Dialector.Name() != postgresDialect {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID).Error
}

func (r *GormRepository) UpdateFields(ctx context.Context, bookmarkID BookmarkID, update FieldUpdate) (Bookmark, error) {
	var updated Bookmark
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		columns := map[string]any{"updated_at": update.UpdatedAt}
		if update.Title != nil {
			columns["title"] = *update.Title
		}
		if update.Summary != nil {
			columns["summary"] = *update.Summary
		}
		if update.Tags != nil {
			columns["tags"] = *update.Tags
		}
		result := tx.Model(&Bookmark{}).
			Where("bookmark_id = ?", bookmarkID.String()).
			Updates(columns)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("bookmark_id = ?", bookmarkID.String()).Take(&updated).Error
	})
	if err != nil {
		return Bookmark{}, err
	}
	return updated, nil
}

func (r *GormRepository) Delete(ctx context.Context, bookmarkID BookmarkID) error {
	result := r.db.WithContext(ctx).
		Where("bookmark_id = ?", bookmarkID.String()).
		Delete(&Bookmark{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) ApplyOrder(ctx context.Context, userID UserID, assignments []OrderAssignment, updatedAt time.Time) (int, error) {
	applied := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, assignment := range assignments {
			result := tx.Model(&Bookmark{}).
				Where("bookmark_id = ? AND user_id = ?", assignment.BookmarkID.String(), userID.String()).
				Updates(map[string]any{
					"order_key":  assignment.Order,
					"updated_at": updatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			applied += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key")
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/persistence/gormstore/model"
	"rncflow/internal/ports"
)

// GormCache keeps entries in the application database. Writes made with a
// transaction in ctx commit or roll back with it.
type GormCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.Cache = (*GormCache)(nil)

func NewGormCache(db *gorm.DB) *GormCache {
	return &GormCache{db: db, now: time.Now}
}

func (c *GormCache) Get(ctx context.Context, key string) (string, bool, error) {
	db, trimmedKey, err := c.prepare(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.CacheEntry
	if err := db.Where("key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query cache by key")
	}
	if row.ExpiresAt != nil && !c.now().UTC().Before(*row.ExpiresAt) {
		return "", false, nil
	}

	return row.Value, true, nil
}

// Set upserts key. A non-positive ttl never expires.
func (c *GormCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	db, trimmedKey, err := c.prepare(ctx, key)
	if err != nil {
		return err
	}

	now := c.now().UTC()
	row := model.CacheEntry{
		Key:       trimmedKey,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		row.ExpiresAt = &expires
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

func (c *GormCache) prepare(ctx context.Context, key string) (*gorm.DB, string, error) {
	if ctx == nil {
		return nil, "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return nil, "", errors.New("key is required")
	}

	if tx := ports.TxFromContext(ctx); tx != nil {
		gormTx, ok := tx.(*gorm.DB)
		if !ok || gormTx == nil {
			return nil, "", fmt.Errorf("invalid tx in context: %T", tx)
		}
		return gormTx.WithContext(ctx), trimmedKey, nil
	}
	return c.db.WithContext(ctx), trimmedKey, nil
}

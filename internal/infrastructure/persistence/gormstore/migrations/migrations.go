package migrations

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/persistence/gormstore/model"
)

// openPartIndex allows at most one ABERTO report per part_code.
// Both sqlite and postgres accept partial indexes with this syntax.
const openPartIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_rncs_open_part_code ON rncs (part_code) WHERE status = 'ABERTO'`

func All() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202601150001_create_parts_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Part{}, &model.User{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&model.User{}, &model.Part{})
			},
		},
		{
			ID: "202601150002_create_rncs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.RNC{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&model.RNC{})
			},
		},
		{
			ID: "202601150003_unique_open_rnc_per_part",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(openPartIndex).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS ux_rncs_open_part_code`).Error
			},
		},
		{
			ID: "202602020001_create_cache_entries",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.CacheEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&model.CacheEntry{})
			},
		},
	}
}

// Run applies every pending migration in order.
func Run(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if db == nil {
		return errors.New("db is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "gormstore.migrations"))
	migrations := All()
	logging.Info(logCtx, "applying migrations", slog.Int("known", len(migrations)))

	m := gormigrate.New(db.WithContext(ctx), gormigrate.DefaultOptions, migrations)
	if err := m.Migrate(); err != nil {
		return errs.Wrap(err, "apply migrations")
	}

	logging.Info(logCtx, "migrations applied")
	return nil
}

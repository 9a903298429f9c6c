package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/persistence/gormstore/model"
	"rncflow/internal/ports"
)

// allocationLockKey identifies the postgres advisory lock guarding num_rnc allocation.
const allocationLockKey int64 = 0x524e43

// Sequence derives num_rnc as max+1 inside the caller's transaction.
// Postgres holds a transaction-scoped advisory lock until commit or rollback, so the
// duplicate check and insert that follow in the same transaction are serialized too.
// Sqlite runs on a single connection, which serializes transactions already.
type Sequence struct {
	db *gorm.DB
}

var _ ports.Sequence = (*Sequence)(nil)

func NewSequence(db *gorm.DB) *Sequence {
	return &Sequence{db: db}
}

func (s *Sequence) Next(ctx context.Context) (uint64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if ports.TxFromContext(ctx) == nil {
		return 0, errors.New("sequence allocation requires a transaction")
	}

	db, err := dbFromContext(ctx, s.db)
	if err != nil {
		return 0, err
	}

	if isPostgres(db) {
		if err := db.Exec("SELECT pg_advisory_xact_lock(?)", allocationLockKey).Error; err != nil {
			return 0, translateError(err, "acquire allocation lock")
		}
	}

	var current uint64
	if err := db.Model(&model.RNC{}).Select("COALESCE(MAX(num_rnc), 0)").Scan(&current).Error; err != nil {
		return 0, errs.Wrap(err, "query max num_rnc")
	}
	return rnc.NextNumber(current)
}

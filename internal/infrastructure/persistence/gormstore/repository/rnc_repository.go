package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/persistence/gormstore/model"
	"rncflow/internal/ports"
)

const defaultScanBatch = 500

type RNCRepository struct {
	db *gorm.DB
}

var _ ports.RNCRepository = (*RNCRepository)(nil)

func NewRNCRepository(db *gorm.DB) *RNCRepository {
	return &RNCRepository{db: db}
}

// FindByNumber loads a report. With forUpdate the row stays locked until the
// surrounding transaction ends; sqlite gets the same effect from its single writer.
func (r *RNCRepository) FindByNumber(ctx context.Context, number uint64, forUpdate bool) (rnc.RNC, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return rnc.RNC{}, err
	}

	query := db.Where("num_rnc = ?", number)
	if forUpdate && isPostgres(db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row model.RNC
	if err := query.Take(&row).Error; err != nil {
		return rnc.RNC{}, translateError(err, "query rnc by number")
	}
	return fromRNCRow(row), nil
}

func (r *RNCRepository) FindOpenByPartCode(ctx context.Context, partCode string) (rnc.RNC, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return rnc.RNC{}, false, err
	}

	var rows []model.RNC
	if err := db.
		Where("part_code = ? AND status = ?", strings.TrimSpace(partCode), string(rnc.StatusOpen)).
		Order("num_rnc desc").
		Limit(1).
		Find(&rows).Error; err != nil {
		return rnc.RNC{}, false, translateError(err, "query open rnc by part")
	}
	if len(rows) == 0 {
		return rnc.RNC{}, false, nil
	}
	return fromRNCRow(rows[0]), true, nil
}

func (r *RNCRepository) Insert(ctx context.Context, item rnc.RNC) (rnc.RNC, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return rnc.RNC{}, err
	}

	row := toRNCRow(item)
	row.ID = 0
	if err := db.Create(&row).Error; err != nil {
		return rnc.RNC{}, translateError(err, "insert rnc")
	}
	return fromRNCRow(row), nil
}

// Update overwrites every mutable column of an existing report.
func (r *RNCRepository) Update(ctx context.Context, item rnc.RNC) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := toRNCRow(item)
	result := db.Model(&model.RNC{}).
		Where("id = ?", item.ID).
		Select("*").
		Omit("id", "num_rnc").
		Updates(&row)
	if result.Error != nil {
		return translateError(result.Error, "update rnc")
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *RNCRepository) List(ctx context.Context, filter ports.RNCFilter) ([]rnc.RNC, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.RNC{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Condition != nil {
		query = query.Where("condition = ?", string(*filter.Condition))
	}
	if filter.OpenByID != nil {
		query = query.Where("open_by_id = ?", *filter.OpenByID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []model.RNC
	if err := query.Order("date_of_occurrence desc").Order("num_rnc desc").Find(&rows).Error; err != nil {
		return nil, translateError(err, "query rncs")
	}

	items := make([]rnc.RNC, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromRNCRow(row))
	}
	return items, nil
}

func (r *RNCRepository) Scan(ctx context.Context, batchSize int, fn func(batch []rnc.RNC) error) error {
	if fn == nil {
		return nil
	}
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if batchSize <= 0 {
		batchSize = defaultScanBatch
	}

	var rows []model.RNC
	result := db.Model(&model.RNC{}).Order("id asc").FindInBatches(&rows, batchSize, func(_ *gorm.DB, _ int) error {
		batch := make([]rnc.RNC, 0, len(rows))
		for _, row := range rows {
			batch = append(batch, fromRNCRow(row))
		}
		return fn(batch)
	})
	if result.Error != nil {
		return errs.Wrap(result.Error, "scan rncs")
	}
	return nil
}

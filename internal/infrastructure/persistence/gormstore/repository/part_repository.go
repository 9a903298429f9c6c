package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/infrastructure/persistence/gormstore/model"
	"rncflow/internal/ports"
)

type PartRepository struct {
	db *gorm.DB
}

var _ ports.PartRepository = (*PartRepository)(nil)

func NewPartRepository(db *gorm.DB) *PartRepository {
	return &PartRepository{db: db}
}

func (r *PartRepository) FindByCode(ctx context.Context, code string) (rnc.Part, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return rnc.Part{}, err
	}

	var row model.Part
	if err := db.Where("code = ?", strings.TrimSpace(code)).Take(&row).Error; err != nil {
		return rnc.Part{}, translateError(err, "query part by code")
	}
	return fromPartRow(row), nil
}

func (r *PartRepository) Create(ctx context.Context, part rnc.Part) (rnc.Part, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return rnc.Part{}, err
	}

	row := model.Part{
		Code:        strings.TrimSpace(part.Code),
		Description: strings.TrimSpace(part.Description),
		Client:      strings.TrimSpace(part.Client),
		Active:      part.Active,
	}
	if err := db.Create(&row).Error; err != nil {
		return rnc.Part{}, translateError(err, "insert part")
	}
	return fromPartRow(row), nil
}

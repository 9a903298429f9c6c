package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/infrastructure/persistence/gormstore/model"
	"rncflow/internal/ports"
)

type UserRepository struct {
	db *gorm.DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (rnc.User, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return rnc.User{}, err
	}

	var row model.User
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		return rnc.User{}, translateError(err, "query user by id")
	}
	return fromUserRow(row), nil
}

// FindByEmail matches case-insensitively; emails are stored lowercased.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (rnc.User, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return rnc.User{}, err
	}

	var row model.User
	if err := db.Where("email = ?", normalizeEmail(email)).Take(&row).Error; err != nil {
		return rnc.User{}, translateError(err, "query user by email")
	}
	return fromUserRow(row), nil
}

func (r *UserRepository) Create(ctx context.Context, user rnc.User) (rnc.User, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return rnc.User{}, err
	}

	row := model.User{
		Name:         strings.TrimSpace(user.Name),
		Email:        normalizeEmail(user.Email),
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		Active:       user.Active,
	}
	if err := db.Create(&row).Error; err != nil {
		return rnc.User{}, translateError(err, "insert user")
	}
	return fromUserRow(row), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

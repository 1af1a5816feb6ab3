package repository

import (
	"context"

	"taller/internal/model"

	"gorm.io/gorm"
)

// StockMovementRepository is append-only: there is no Update or Delete.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	// ListByMaterial returns the newest movement first.
	ListByMaterial(ctx context.Context, materialID uint) ([]model.StockMovement, error)
}

type stockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *stockMovementRepository) ListByMaterial(ctx context.Context, materialID uint) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := GetDB(ctx, r.db).
		Where("material_id = ?", materialID).
		Order("date desc, created_at desc, id desc").
		Find(&movements).Error
	return movements, err
}

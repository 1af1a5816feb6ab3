package repository

import (
	"context"

	"taller/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MaterialUsageRepository interface {
	Create(ctx context.Context, usage *model.MaterialUsage) error
	FindByID(ctx context.Context, id uint) (*model.MaterialUsage, error)
	ListByDocument(ctx context.Context, kind string, documentID uint) ([]model.MaterialUsage, error)
	CostForDocument(ctx context.Context, kind string, documentID uint) (decimal.Decimal, error)
	Delete(ctx context.Context, id uint) error
}

type materialUsageRepository struct {
	db *gorm.DB
}

func NewMaterialUsageRepository(db *gorm.DB) MaterialUsageRepository {
	return &materialUsageRepository{db: db}
}

func (r *materialUsageRepository) Create(ctx context.Context, usage *model.MaterialUsage) error {
	return GetDB(ctx, r.db).Create(usage).Error
}

func (r *materialUsageRepository) FindByID(ctx context.Context, id uint) (*model.MaterialUsage, error) {
	var usage model.MaterialUsage
	if err := GetDB(ctx, r.db).First(&usage, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

func (r *materialUsageRepository) ListByDocument(ctx context.Context, kind string, documentID uint) ([]model.MaterialUsage, error) {
	var usages []model.MaterialUsage
	err := GetDB(ctx, r.db).
		Where("document_kind = ? AND document_id = ?", kind, documentID).
		Order("created_at desc, id desc").
		Find(&usages).Error
	return usages, err
}

func (r *materialUsageRepository) CostForDocument(ctx context.Context, kind string, documentID uint) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.MaterialUsage{}).
		Select("COALESCE(SUM(quantity * unit_cost), 0) AS total").
		Where("document_kind = ? AND document_id = ?", kind, documentID).
		Scan(&result).Error
	return result.Total, err
}

func (r *materialUsageRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.MaterialUsage{}).Error
}

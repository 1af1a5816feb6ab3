package repository

import (
	"context"

	"taller/internal/model"
	"taller/pkg/pagination"

	"gorm.io/gorm"
)

type ToolFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// ToolRepository lookups only see active tools.
type ToolRepository interface {
	Create(ctx context.Context, tool *model.Tool) error
	Update(ctx context.Context, tool *model.Tool) error
	FindByID(ctx context.Context, id uint) (*model.Tool, error)
	FindByName(ctx context.Context, name string) (*model.Tool, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Tool, error)
	FindByNameForUpdate(ctx context.Context, name string) (*model.Tool, error)
	List(ctx context.Context, filter ToolFilter) ([]model.Tool, int64, error)
}

type toolRepository struct {
	db *gorm.DB
}

func NewToolRepository(db *gorm.DB) ToolRepository {
	return &toolRepository{db: db}
}

func (r *toolRepository) Create(ctx context.Context, tool *model.Tool) error {
	return GetDB(ctx, r.db).Create(tool).Error
}

// Update saves every column, so cleared holder fields are written as NULL.
func (r *toolRepository) Update(ctx context.Context, tool *model.Tool) error {
	return GetDB(ctx, r.db).Save(tool).Error
}

func (r *toolRepository) FindByID(ctx context.Context, id uint) (*model.Tool, error) {
	return r.first(GetDB(ctx, r.db).Where("id = ? AND active = ?", id, true))
}

func (r *toolRepository) FindByName(ctx context.Context, name string) (*model.Tool, error) {
	return r.first(GetDB(ctx, r.db).Where("name = ? AND active = ?", name, true).Order("id asc"))
}

func (r *toolRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Tool, error) {
	return r.first(lockForUpdate(ctx, r.db).Where("id = ? AND active = ?", id, true))
}

func (r *toolRepository) FindByNameForUpdate(ctx context.Context, name string) (*model.Tool, error) {
	return r.first(lockForUpdate(ctx, r.db).Where("name = ? AND active = ?", name, true).Order("id asc"))
}

func (r *toolRepository) first(db *gorm.DB) (*model.Tool, error) {
	var tool model.Tool
	if err := db.First(&tool).Error; err != nil {
		return nil, err
	}
	return &tool, nil
}

func (r *toolRepository) List(ctx context.Context, filter ToolFilter) ([]model.Tool, int64, error) {
	var tools []model.Tool
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Tool{}).Where("active = ?", true)
	if filter.Search != "" {
		db = db.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("name asc, id asc").
		Offset(pagination.Params{Page: filter.Page, Limit: filter.Limit}.Offset()).Limit(filter.Limit).
		Find(&tools).Error; err != nil {
		return nil, 0, err
	}
	return tools, total, nil
}

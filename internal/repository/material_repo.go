package repository

import (
	"context"

	"taller/internal/model"
	"taller/pkg/pagination"

	"gorm.io/gorm"
)

// MaterialFilter narrows List. Zero values mean "no filter".
type MaterialFilter struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

type MaterialRepository interface {
	Create(ctx context.Context, material *model.Material) error
	Update(ctx context.Context, material *model.Material) error
	UpdateQuantity(ctx context.Context, id uint, quantity int) error
	Deactivate(ctx context.Context, id uint) error
	// FindByID returns active materials only.
	FindByID(ctx context.Context, id uint) (*model.Material, error)
	// FindAnyByID also returns logically deleted materials.
	FindAnyByID(ctx context.Context, id uint) (*model.Material, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Material, error)
	List(ctx context.Context, filter MaterialFilter) ([]model.Material, int64, error)
	LowStock(ctx context.Context) ([]model.Material, error)
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, material *model.Material) error {
	return GetDB(ctx, r.db).Create(material).Error
}

// Update writes the descriptive columns only. Quantity is owned by UpdateQuantity.
func (r *materialRepository) Update(ctx context.Context, material *model.Material) error {
	return GetDB(ctx, r.db).Model(material).
		Select("name", "description", "unit", "stock_minimum", "cost", "category").
		Updates(material).Error
}

func (r *materialRepository) UpdateQuantity(ctx context.Context, id uint, quantity int) error {
	return GetDB(ctx, r.db).Model(&model.Material{}).Where("id = ?", id).Update("quantity", quantity).Error
}

func (r *materialRepository) Deactivate(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Model(&model.Material{}).Where("id = ?", id).Update("active", false).Error
}

func (r *materialRepository) FindByID(ctx context.Context, id uint) (*model.Material, error) {
	var material model.Material
	if err := GetDB(ctx, r.db).Where("id = ? AND active = ?", id, true).First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) FindAnyByID(ctx context.Context, id uint) (*model.Material, error) {
	var material model.Material
	if err := GetDB(ctx, r.db).First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Material, error) {
	var material model.Material
	if err := lockForUpdate(ctx, r.db).Where("id = ? AND active = ?", id, true).First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) List(ctx context.Context, filter MaterialFilter) ([]model.Material, int64, error) {
	var materials []model.Material
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Material{}).Where("active = ?", true)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where("name ILIKE ? OR description ILIKE ?", like, like)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("created_at desc, id desc").
		Offset(pagination.Params{Page: filter.Page, Limit: filter.Limit}.Offset()).Limit(filter.Limit).
		Find(&materials).Error; err != nil {
		return nil, 0, err
	}
	return materials, total, nil
}

func (r *materialRepository) LowStock(ctx context.Context) ([]model.Material, error) {
	var materials []model.Material
	err := GetDB(ctx, r.db).
		Where("active = ? AND quantity <= stock_minimum", true).
		Order("quantity asc, name asc").
		Find(&materials).Error
	return materials, err
}

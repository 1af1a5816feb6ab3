package repository

import (
	"context"

	"taller/internal/model"
	"taller/pkg/pagination"

	"gorm.io/gorm"
)

type RepairFilter struct {
	State    string
	Customer string
	Model    string
	Page     int
	Limit    int
}

type RepairRepository interface {
	Create(ctx context.Context, repair *model.Repair) error
	Update(ctx context.Context, repair *model.Repair) error
	UpdateState(ctx context.Context, id uint, state string) error
	Deactivate(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Repair, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Repair, error)
	List(ctx context.Context, filter RepairFilter) ([]model.Repair, int64, error)
}

type repairRepository struct {
	db *gorm.DB
}

func NewRepairRepository(db *gorm.DB) RepairRepository {
	return &repairRepository{db: db}
}

func (r *repairRepository) Create(ctx context.Context, repair *model.Repair) error {
	return GetDB(ctx, r.db).Create(repair).Error
}

func (r *repairRepository) Update(ctx context.Context, repair *model.Repair) error {
	return GetDB(ctx, r.db).Save(repair).Error
}

func (r *repairRepository) UpdateState(ctx context.Context, id uint, state string) error {
	return GetDB(ctx, r.db).Model(&model.Repair{}).Where("id = ?", id).Update("state", state).Error
}

func (r *repairRepository) Deactivate(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Model(&model.Repair{}).Where("id = ?", id).Update("active", false).Error
}

func (r *repairRepository) FindByID(ctx context.Context, id uint) (*model.Repair, error) {
	var repair model.Repair
	if err := GetDB(ctx, r.db).Where("id = ? AND active = ?", id, true).First(&repair).Error; err != nil {
		return nil, err
	}
	return &repair, nil
}

func (r *repairRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Repair, error) {
	var repair model.Repair
	if err := lockForUpdate(ctx, r.db).Where("id = ? AND active = ?", id, true).First(&repair).Error; err != nil {
		return nil, err
	}
	return &repair, nil
}

func (r *repairRepository) List(ctx context.Context, filter RepairFilter) ([]model.Repair, int64, error) {
	var repairs []model.Repair
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Repair{}).Where("active = ?", true)
	if filter.State != "" {
		db = db.Where("state = ?", filter.State)
	}
	if filter.Customer != "" {
		db = db.Where("customer_name ILIKE ?", "%"+filter.Customer+"%")
	}
	if filter.Model != "" {
		db = db.Where("model ILIKE ?", "%"+filter.Model+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("created_at desc, id desc").
		Offset(pagination.Params{Page: filter.Page, Limit: filter.Limit}.Offset()).Limit(filter.Limit).
		Find(&repairs).Error; err != nil {
		return nil, 0, err
	}
	return repairs, total, nil
}

type RepairHistoryRepository interface {
	Create(ctx context.Context, entry *model.RepairHistory) error
	ListByRepair(ctx context.Context, repairID uint) ([]model.RepairHistory, error)
}

type repairHistoryRepository struct {
	db *gorm.DB
}

func NewRepairHistoryRepository(db *gorm.DB) RepairHistoryRepository {
	return &repairHistoryRepository{db: db}
}

func (r *repairHistoryRepository) Create(ctx context.Context, entry *model.RepairHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *repairHistoryRepository) ListByRepair(ctx context.Context, repairID uint) ([]model.RepairHistory, error) {
	var entries []model.RepairHistory
	err := GetDB(ctx, r.db).
		Where("repair_id = ?", repairID).
		Order("date desc, created_at desc, id desc").
		Find(&entries).Error
	return entries, err
}

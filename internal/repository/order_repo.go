package repository

import (
	"context"
	"time"

	"taller/internal/model"
	"taller/pkg/pagination"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	CreateItem(ctx context.Context, item *model.OrderItem) error
	CreateStageHistory(ctx context.Context, entry *model.OrderStageHistory) error
	FindByIDWithItems(ctx context.Context, id uint) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error)
	// ListCreatedOn returns orders created within [day, day+24h).
	ListCreatedOn(ctx context.Context, day time.Time) ([]model.Order, error)
	List(ctx context.Context, page, limit int) ([]model.Order, int64, error)
	ListStageHistory(ctx context.Context, orderID uint) ([]model.OrderStageHistory, error)
	UpdateStage(ctx context.Context, id uint, stage string) error
	// Delete removes stage history, line items and the header, in that order.
	Delete(ctx context.Context, id uint) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	// items are inserted one by one through CreateItem
	return GetDB(ctx, r.db).Omit("Items").Create(order).Error
}

func (r *orderRepository) CreateItem(ctx context.Context, item *model.OrderItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *orderRepository) CreateStageHistory(ctx context.Context, entry *model.OrderStageHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *orderRepository) FindByIDWithItems(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := lockForUpdate(ctx, r.db).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListCreatedOn(ctx context.Context, day time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1)).
		Order("created_at desc, id desc").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) List(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Order("created_at DESC, id DESC").
		Offset(pagination.Params{Page: page, Limit: limit}.Offset()).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListStageHistory(ctx context.Context, orderID uint) ([]model.OrderStageHistory, error) {
	var entries []model.OrderStageHistory
	err := GetDB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at desc, id desc").
		Find(&entries).Error
	return entries, err
}

func (r *orderRepository) UpdateStage(ctx context.Context, id uint, stage string) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("stage", stage).Error
}

func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", id).Delete(&model.OrderStageHistory{}).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", id).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Order{}).Error
}

package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"taller/internal/apperror"
	"taller/internal/model"
	"taller/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const summaryPrefixRunes = 30

var dateLiteral = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])$`)

type OrderItemRequest struct {
	ProductID   uint            `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

type CreateOrderRequest struct {
	CustomerName    string             `json:"customer_name" binding:"required"`
	CustomerContact string             `json:"customer_contact"`
	DeliveryDate    string             `json:"delivery_date"`
	Notes           string             `json:"notes"`
	Stage           string             `json:"stage"`
	Total           decimal.Decimal    `json:"total" validate:"gt=0"`
	Deposit         decimal.Decimal    `json:"deposit" validate:"gte=0"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive" validate:"dive"`
}

type AdvanceStageRequest struct {
	Stage string `json:"stage" binding:"required"`
	Notes string `json:"notes"`
}

type OrderService interface {
	Create(ctx context.Context, userID string, req CreateOrderRequest) (*model.Order, error)
	Get(ctx context.Context, id uint) (*model.Order, error)
	List(ctx context.Context, page, limit int) ([]model.Order, int64, error)
	ListByDate(ctx context.Context, date string) ([]model.Order, error)
	AdvanceStage(ctx context.Context, id uint, stage, notes string) (*model.Order, error)
	StageHistory(ctx context.Context, id uint) ([]model.OrderStageHistory, error)
	Delete(ctx context.Context, userID string, id uint) error
}

type orderService struct {
	orderRepo repository.OrderRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewOrderService(orderRepo repository.OrderRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) OrderService {
	return &orderService{orderRepo: orderRepo, auditRepo: auditRepo, txManager: txManager}
}

// Summarize describes the line items in one short label: the product name for
// a single item, otherwise the first name cut to 30 characters plus a count.
func Summarize(items []OrderItemRequest) string {
	if len(items) == 0 {
		return ""
	}
	first := strings.TrimSpace(items[0].ProductName)
	if len(items) == 1 {
		return first
	}
	if runes := []rune(first); len(runes) > summaryPrefixRunes {
		first = string(runes[:summaryPrefixRunes])
	}
	return fmt.Sprintf("%s... (+%d items)", first, len(items)-1)
}

func validateOrder(req CreateOrderRequest) error {
	switch {
	case strings.TrimSpace(req.CustomerName) == "":
		return apperror.Validation("customer name is required")
	case len(req.Items) == 0:
		return apperror.Validation("an order needs at least one line item")
	case !req.Total.IsPositive():
		return apperror.Validation("order total must be greater than zero")
	case req.Deposit.IsNegative():
		return apperror.Validation("deposit cannot be negative")
	}
	for i, item := range req.Items {
		switch {
		case strings.TrimSpace(item.ProductName) == "":
			return apperror.Validation("item %d: product name is required", i+1)
		case item.Quantity <= 0:
			return apperror.Validation("item %d: quantity must be greater than zero", i+1)
		case item.UnitPrice.IsNegative():
			return apperror.Validation("item %d: unit price cannot be negative", i+1)
		}
	}
	return nil
}

func (s *orderService) Create(ctx context.Context, userID string, req CreateOrderRequest) (*model.Order, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}
	delivery, err := parseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerContact: req.CustomerContact,
		DeliveryDate:    delivery,
		Notes:           req.Notes,
		Stage:           strings.TrimSpace(req.Stage),
		Total:           req.Total,
		Deposit:         req.Deposit,
		ProductSummary:  Summarize(req.Items),
		CreatedBy:       actorOr(userID, model.DefaultOrderCreator),
	}
	if order.Stage == "" {
		order.Stage = model.DefaultOrderStage
	}
	for _, item := range req.Items {
		order.TotalQuantity += item.Quantity
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return err
		}
		order.Items = make([]model.OrderItem, 0, len(req.Items))
		for _, in := range req.Items {
			item := model.OrderItem{
				OrderID:     order.ID,
				ProductID:   in.ProductID,
				ProductName: strings.TrimSpace(in.ProductName),
				Quantity:    in.Quantity,
				UnitPrice:   in.UnitPrice,
				Subtotal:    in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
			}
			if err := s.orderRepo.CreateItem(txCtx, &item); err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}
		return s.orderRepo.CreateStageHistory(txCtx, &model.OrderStageHistory{
			OrderID: order.ID,
			Stage:   order.Stage,
			Notes:   "Pedido creado",
			Actor:   order.CreatedBy,
		})
	})
	if err != nil {
		return nil, storageFailure("order.create", err, map[string]any{"customer": order.CustomerName})
	}

	log.Info().Uint("order_id", order.ID).Int("items", len(order.Items)).Int("total_quantity", order.TotalQuantity).Msg("order created")
	return order, nil
}

func (s *orderService) Get(ctx context.Context, id uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, lookupFailure("order.get", err, fmt.Sprintf("order %d not found", id), map[string]any{"order_id": id})
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.orderRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, storageFailure("order.list", err, nil)
	}
	return orders, total, nil
}

// ListByDate accepts YYYY-MM-DD with month 01-12 and day 01-31. A literal that
// is well formed but not on the calendar (2025-02-30) matches no orders.
func (s *orderService) ListByDate(ctx context.Context, date string) ([]model.Order, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, apperror.Validation("date is required")
	}
	if !dateLiteral.MatchString(date) {
		return nil, apperror.Validation("invalid date format, use YYYY-MM-DD")
	}
	day, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return []model.Order{}, nil
	}

	orders, err := s.orderRepo.ListCreatedOn(ctx, day)
	if err != nil {
		return nil, storageFailure("order.list_by_date", err, map[string]any{"date": date})
	}
	return orders, nil
}

func (s *orderService) AdvanceStage(ctx context.Context, id uint, stage, notes string) (*model.Order, error) {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return nil, apperror.Validation("stage is required")
	}

	var previous string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("order.advance_stage", err, fmt.Sprintf("order %d not found", id), map[string]any{"order_id": id})
		}
		previous = order.Stage
		if err := s.orderRepo.UpdateStage(txCtx, id, stage); err != nil {
			return err
		}
		return s.orderRepo.CreateStageHistory(txCtx, &model.OrderStageHistory{
			OrderID: id,
			Stage:   stage,
			Notes:   notes,
			Actor:   model.SystemActor,
		})
	})
	if err != nil {
		return nil, storageFailure("order.advance_stage", err, map[string]any{"order_id": id, "stage": stage})
	}

	log.Info().Uint("order_id", id).Str("from", previous).Str("to", stage).Msg("order stage advanced")
	return s.Get(ctx, id)
}

func (s *orderService) StageHistory(ctx context.Context, id uint) ([]model.OrderStageHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.orderRepo.ListStageHistory(ctx, id)
	if err != nil {
		return nil, storageFailure("order.stage_history", err, map[string]any{"order_id": id})
	}
	return entries, nil
}

// Delete removes the order with its line items and stage history in one transaction.
func (s *orderService) Delete(ctx context.Context, userID string, id uint) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("order.delete", err, fmt.Sprintf("order %d not found", id), map[string]any{"order_id": id})
		}
		if err := s.orderRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actorOr(userID, model.DefaultOrderCreator), model.ActionDeleteOrder,
			model.EntityOrder, order.ID, order.CustomerName, map[string]any{"stage": order.Stage, "total": order.Total})
	})
	if err != nil {
		return storageFailure("order.delete", err, map[string]any{"order_id": id})
	}
	return nil
}

package service

import (
	"context"
	"strings"

	"taller/internal/apperror"
	"taller/internal/model"
	"taller/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateMaterialRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Quantity     int             `json:"quantity" binding:"gte=0"`
	Unit         string          `json:"unit" binding:"required"`
	StockMinimum int             `json:"stock_minimum" binding:"gte=0"`
	Cost         decimal.Decimal `json:"cost" validate:"gte=0"`
	Category     string          `json:"category" binding:"required"`
}

// EditMaterialRequest carries the descriptive fields only; quantity is not editable here.
type EditMaterialRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit" binding:"required"`
	StockMinimum int             `json:"stock_minimum" binding:"gte=0"`
	Cost         decimal.Decimal `json:"cost" validate:"gte=0"`
	Category     string          `json:"category" binding:"required"`
}

type UpdateStockRequest struct {
	Quantity *int   `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

type ConsumeMaterialRequest struct {
	DocumentKind string `json:"document_kind" binding:"required,oneof=reparacion pedido"`
	DocumentID   uint   `json:"document_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,gt=0"`
}

type MaterialService interface {
	CreateMaterial(ctx context.Context, userID string, req CreateMaterialRequest) (*model.Material, error)
	GetMaterial(ctx context.Context, id uint) (*model.Material, error)
	ListMaterials(ctx context.Context, filter repository.MaterialFilter) ([]model.Material, int64, error)
	EditMaterial(ctx context.Context, userID string, id uint, req EditMaterialRequest) (*model.Material, error)
	UpdateStock(ctx context.Context, userID string, id uint, newQuantity int, note string) (*model.Material, error)
	ConsumeMaterial(ctx context.Context, userID string, id uint, req ConsumeMaterialRequest) (*model.MaterialUsage, error)
	DeleteMaterial(ctx context.Context, userID string, id uint) error
	ListHistory(ctx context.Context, id uint) ([]model.StockMovement, error)
	LedgerReport(ctx context.Context, id uint) (*model.LedgerBalance, error)
	LowStock(ctx context.Context) ([]model.Material, error)
}

type materialService struct {
	materialRepo repository.MaterialRepository
	movementRepo repository.StockMovementRepository
	usageRepo    repository.MaterialUsageRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewMaterialService(
	materialRepo repository.MaterialRepository,
	movementRepo repository.StockMovementRepository,
	usageRepo repository.MaterialUsageRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) MaterialService {
	return &materialService{
		materialRepo: materialRepo,
		movementRepo: movementRepo,
		usageRepo:    usageRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func validateMaterialFields(name, unit, category string, stockMinimum int, cost decimal.Decimal) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apperror.Validation("material name is required")
	case strings.TrimSpace(unit) == "":
		return apperror.Validation("unit of measure is required")
	case strings.TrimSpace(category) == "":
		return apperror.Validation("category is required")
	case stockMinimum < 0:
		return apperror.Validation("stock minimum cannot be negative")
	case cost.IsNegative():
		return apperror.Validation("cost cannot be negative")
	}
	return nil
}

func (s *materialService) CreateMaterial(ctx context.Context, userID string, req CreateMaterialRequest) (*model.Material, error) {
	if err := validateMaterialFields(req.Name, req.Unit, req.Category, req.StockMinimum, req.Cost); err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, apperror.Validation("quantity cannot be negative")
	}

	material := &model.Material{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Quantity:     req.Quantity,
		Unit:         strings.TrimSpace(req.Unit),
		StockMinimum: req.StockMinimum,
		Cost:         req.Cost,
		Category:     strings.TrimSpace(req.Category),
		Active:       true,
		CreatedBy:    actorOr(userID, model.SystemActor),
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.materialRepo.Create(txCtx, material); err != nil {
			return err
		}
		if material.Quantity == 0 {
			return nil
		}
		return s.movementRepo.Create(txCtx, &model.StockMovement{
			MaterialID: material.ID,
			Date:       today(),
			Kind:       model.MovementEntrada,
			Quantity:   material.Quantity,
			StockAfter: material.Quantity,
			UserID:     material.CreatedBy,
			Note:       "stock inicial",
		})
	})
	if err != nil {
		return nil, storageFailure("material.create", err, map[string]any{"name": material.Name})
	}

	log.Info().Uint("material_id", material.ID).Str("name", material.Name).Int("quantity", material.Quantity).Msg("material created")
	return material, nil
}

func (s *materialService) GetMaterial(ctx context.Context, id uint) (*model.Material, error) {
	material, err := s.materialRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure("material.get", err, "material not found", map[string]any{"material_id": id})
	}
	return material, nil
}

func (s *materialService) ListMaterials(ctx context.Context, filter repository.MaterialFilter) ([]model.Material, int64, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	materials, total, err := s.materialRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, storageFailure("material.list", err, nil)
	}
	return materials, total, nil
}

func (s *materialService) EditMaterial(ctx context.Context, userID string, id uint, req EditMaterialRequest) (*model.Material, error) {
	if err := validateMaterialFields(req.Name, req.Unit, req.Category, req.StockMinimum, req.Cost); err != nil {
		return nil, err
	}

	var material *model.Material
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		material, err = s.materialRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("material.edit", err, "material not found", map[string]any{"material_id": id})
		}

		material.Name = strings.TrimSpace(req.Name)
		material.Description = req.Description
		material.Unit = strings.TrimSpace(req.Unit)
		material.StockMinimum = req.StockMinimum
		material.Cost = req.Cost
		material.Category = strings.TrimSpace(req.Category)
		if err := s.materialRepo.Update(txCtx, material); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actorOr(userID, model.SystemActor), model.ActionUpdateMaterial,
			model.EntityMaterial, material.ID, material.Name, req)
	})
	if err != nil {
		return nil, storageFailure("material.edit", err, map[string]any{"material_id": id})
	}
	return material, nil
}

// UpdateStock sets the on-hand quantity and records the difference as one
// entrada or salida movement. Setting the current value records nothing.
func (s *materialService) UpdateStock(ctx context.Context, userID string, id uint, newQuantity int, note string) (*model.Material, error) {
	if newQuantity < 0 {
		return nil, apperror.Validation("quantity cannot be negative")
	}

	var (
		material *model.Material
		delta    int
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		material, err = s.materialRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("material.update_stock", err, "material not found", map[string]any{"material_id": id})
		}

		delta = newQuantity - material.Quantity
		if delta == 0 {
			return nil
		}

		kind := model.MovementEntrada
		quantity := delta
		if delta < 0 {
			kind = model.MovementSalida
			quantity = -delta
		}
		if err := s.materialRepo.UpdateQuantity(txCtx, material.ID, newQuantity); err != nil {
			return err
		}
		material.Quantity = newQuantity
		return s.movementRepo.Create(txCtx, &model.StockMovement{
			MaterialID: material.ID,
			Date:       today(),
			Kind:       kind,
			Quantity:   quantity,
			StockAfter: newQuantity,
			UserID:     actorOr(userID, model.SystemActor),
			Note:       note,
		})
	})
	if err != nil {
		return nil, storageFailure("material.update_stock", err, map[string]any{"material_id": id, "quantity": newQuantity})
	}

	if delta != 0 {
		log.Info().Uint("material_id", id).Int("delta", delta).Int("quantity", newQuantity).Msg("material stock changed")
	}
	return material, nil
}

// ConsumeMaterial decrements stock on behalf of a repair or order. The usage
// row, the consumo movement and the new quantity are written together.
func (s *materialService) ConsumeMaterial(ctx context.Context, userID string, id uint, req ConsumeMaterialRequest) (*model.MaterialUsage, error) {
	if err := validateDocumentKind(req.DocumentKind); err != nil {
		return nil, err
	}
	if req.DocumentID == 0 {
		return nil, apperror.Validation("document id is required")
	}
	if req.Quantity <= 0 {
		return nil, apperror.Validation("quantity must be greater than zero")
	}

	actor := actorOr(userID, model.SystemActor)
	var usage *model.MaterialUsage
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		material, err := s.materialRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("material.consume", err, "material not found", map[string]any{"material_id": id})
		}
		if req.Quantity > material.Quantity {
			return apperror.Conflict("insufficient stock for %s: requested %d, available %d", material.Name, req.Quantity, material.Quantity)
		}

		remaining := material.Quantity - req.Quantity
		usage = &model.MaterialUsage{
			DocumentKind: req.DocumentKind,
			DocumentID:   req.DocumentID,
			MaterialID:   material.ID,
			Quantity:     req.Quantity,
			UnitCost:     material.Cost,
			Date:         today(),
			UserID:       actor,
		}
		if err := s.usageRepo.Create(txCtx, usage); err != nil {
			return err
		}
		if err := s.movementRepo.Create(txCtx, &model.StockMovement{
			MaterialID: material.ID,
			Date:       usage.Date,
			Kind:       model.MovementConsumo,
			Quantity:   req.Quantity,
			StockAfter: remaining,
			UserID:     actor,
			Note:       req.DocumentKind + " #" + uintString(req.DocumentID),
		}); err != nil {
			return err
		}
		if err := s.materialRepo.UpdateQuantity(txCtx, material.ID, remaining); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionConsumeMaterial, model.EntityMaterial, material.ID, material.Name, req)
	})
	if err != nil {
		return nil, storageFailure("material.consume", err, map[string]any{"material_id": id, "document_id": req.DocumentID})
	}

	log.Info().Uint("material_id", id).Str("document_kind", req.DocumentKind).Uint("document_id", req.DocumentID).Int("quantity", req.Quantity).Msg("material consumed")
	return usage, nil
}

func (s *materialService) DeleteMaterial(ctx context.Context, userID string, id uint) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		material, err := s.materialRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("material.delete", err, "material not found", map[string]any{"material_id": id})
		}
		if err := s.materialRepo.Deactivate(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actorOr(userID, model.SystemActor), model.ActionDeleteMaterial,
			model.EntityMaterial, material.ID, material.Name, map[string]any{"quantity": material.Quantity})
	})
	if err != nil {
		return storageFailure("material.delete", err, map[string]any{"material_id": id})
	}
	return nil
}

// ListHistory also works for logically deleted materials.
func (s *materialService) ListHistory(ctx context.Context, id uint) ([]model.StockMovement, error) {
	if _, err := s.materialRepo.FindAnyByID(ctx, id); err != nil {
		return nil, lookupFailure("material.history", err, "material not found", map[string]any{"material_id": id})
	}
	movements, err := s.movementRepo.ListByMaterial(ctx, id)
	if err != nil {
		return nil, storageFailure("material.history", err, map[string]any{"material_id": id})
	}
	return movements, nil
}

// LedgerReport replays the movement log and compares it with the on-hand quantity.
func (s *materialService) LedgerReport(ctx context.Context, id uint) (*model.LedgerBalance, error) {
	material, err := s.materialRepo.FindAnyByID(ctx, id)
	if err != nil {
		return nil, lookupFailure("material.ledger", err, "material not found", map[string]any{"material_id": id})
	}
	movements, err := s.movementRepo.ListByMaterial(ctx, id)
	if err != nil {
		return nil, storageFailure("material.ledger", err, map[string]any{"material_id": id})
	}

	balance := model.LedgerBalance{
		MaterialID:   material.ID,
		MaterialName: material.Name,
		OnHand:       material.Quantity,
	}
	for _, m := range movements {
		switch m.Kind {
		case model.MovementEntrada:
			balance.Entradas += m.Quantity
		case model.MovementSalida:
			balance.Salidas += m.Quantity
		case model.MovementConsumo:
			balance.Consumos += m.Quantity
		}
	}
	reconcile(&balance)
	if !balance.Consistent {
		log.Warn().Uint("material_id", id).Int("on_hand", balance.OnHand).Int("ledger_net", balance.LedgerNet).Msg("ledger mismatch")
	}
	return &balance, nil
}

func (s *materialService) LowStock(ctx context.Context) ([]model.Material, error) {
	materials, err := s.materialRepo.LowStock(ctx)
	if err != nil {
		return nil, storageFailure("material.low_stock", err, nil)
	}
	return materials, nil
}

func reconcile(b *model.LedgerBalance) {
	b.LedgerNet = b.Entradas - b.Salidas - b.Consumos
	b.Consistent = b.LedgerNet == b.OnHand
}

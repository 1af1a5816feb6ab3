package service

import (
	"context"

	"taller/internal/apperror"
	"taller/internal/model"
	"taller/internal/repository"

	"github.com/shopspring/decimal"
)

type RecordUsageRequest struct {
	DocumentKind string          `json:"document_kind" binding:"required,oneof=reparacion pedido"`
	DocumentID   uint            `json:"document_id" binding:"required"`
	MaterialID   uint            `json:"material_id" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required,gt=0"`
	UnitCost     decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

// UsageService keeps the consumption ledger. Recording usage never changes
// stock; MaterialService.ConsumeMaterial is the path that does both.
type UsageService interface {
	RecordUsage(ctx context.Context, userID string, req RecordUsageRequest) (*model.MaterialUsage, error)
	UsageForDocument(ctx context.Context, kind string, documentID uint) ([]model.MaterialUsage, error)
	CostForDocument(ctx context.Context, kind string, documentID uint) (decimal.Decimal, error)
	DeleteUsage(ctx context.Context, userID string, id uint) error
}

type usageService struct {
	usageRepo    repository.MaterialUsageRepository
	materialRepo repository.MaterialRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewUsageService(
	usageRepo repository.MaterialUsageRepository,
	materialRepo repository.MaterialRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) UsageService {
	return &usageService{usageRepo: usageRepo, materialRepo: materialRepo, auditRepo: auditRepo, txManager: txManager}
}

func validateDocumentKind(kind string) error {
	if kind != model.DocumentRepair && kind != model.DocumentOrder {
		return apperror.Validation("document kind must be %q or %q", model.DocumentRepair, model.DocumentOrder)
	}
	return nil
}

func (s *usageService) RecordUsage(ctx context.Context, userID string, req RecordUsageRequest) (*model.MaterialUsage, error) {
	if err := validateDocumentKind(req.DocumentKind); err != nil {
		return nil, err
	}
	switch {
	case req.DocumentID == 0:
		return nil, apperror.Validation("document id is required")
	case req.Quantity <= 0:
		return nil, apperror.Validation("quantity must be greater than zero")
	case req.UnitCost.IsNegative():
		return nil, apperror.Validation("unit cost cannot be negative")
	}

	if _, err := s.materialRepo.FindByID(ctx, req.MaterialID); err != nil {
		return nil, lookupFailure("usage.record", err, "material not found", map[string]any{"material_id": req.MaterialID})
	}

	usage := &model.MaterialUsage{
		DocumentKind: req.DocumentKind,
		DocumentID:   req.DocumentID,
		MaterialID:   req.MaterialID,
		Quantity:     req.Quantity,
		UnitCost:     req.UnitCost,
		Date:         today(),
		UserID:       actorOr(userID, model.SystemActor),
	}
	if err := s.usageRepo.Create(ctx, usage); err != nil {
		return nil, storageFailure("usage.record", err, map[string]any{"material_id": req.MaterialID, "document_id": req.DocumentID})
	}
	return usage, nil
}

func (s *usageService) UsageForDocument(ctx context.Context, kind string, documentID uint) ([]model.MaterialUsage, error) {
	if err := validateDocumentKind(kind); err != nil {
		return nil, err
	}
	usages, err := s.usageRepo.ListByDocument(ctx, kind, documentID)
	if err != nil {
		return nil, storageFailure("usage.list", err, map[string]any{"document_kind": kind, "document_id": documentID})
	}
	return usages, nil
}

func (s *usageService) CostForDocument(ctx context.Context, kind string, documentID uint) (decimal.Decimal, error) {
	if err := validateDocumentKind(kind); err != nil {
		return decimal.Zero, err
	}
	cost, err := s.usageRepo.CostForDocument(ctx, kind, documentID)
	if err != nil {
		return decimal.Zero, storageFailure("usage.cost", err, map[string]any{"document_kind": kind, "document_id": documentID})
	}
	return cost, nil
}

// DeleteUsage removes a consumption row. The audit entry is written in the
// same transaction and keeps the deleted values.
func (s *usageService) DeleteUsage(ctx context.Context, userID string, id uint) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		usage, err := s.usageRepo.FindByID(txCtx, id)
		if err != nil {
			return lookupFailure("usage.delete", err, "usage record not found", map[string]any{"usage_id": id})
		}
		if err := s.usageRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actorOr(userID, model.SystemActor), model.ActionDeleteUsage,
			model.EntityMaterial, usage.MaterialID, "", map[string]any{
				"usage_id":      usage.ID,
				"document_kind": usage.DocumentKind,
				"document_id":   usage.DocumentID,
				"quantity":      usage.Quantity,
				"unit_cost":     usage.UnitCost,
			})
	})
	if err != nil {
		return storageFailure("usage.delete", err, map[string]any{"usage_id": id})
	}
	return nil
}

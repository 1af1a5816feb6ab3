package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"taller/internal/apperror"
	"taller/internal/model"
	"taller/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CreateToolRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	TotalQuantity int    `json:"total_quantity" binding:"required,gt=0"`
}

type UpdateToolStockRequest struct {
	TotalQuantity int `json:"total_quantity" binding:"required,gt=0"`
}

type AssignToolRequest struct {
	Holder string `json:"holder" binding:"required"`
}

// ToolService tracks tool units. Every tool operation accepts either a numeric
// id or an exact name: the id is tried first, then the name.
type ToolService interface {
	CreateTool(ctx context.Context, userID string, req CreateToolRequest) (*model.Tool, error)
	GetTool(ctx context.Context, ref string) (*model.Tool, error)
	ListTools(ctx context.Context, filter repository.ToolFilter) ([]model.Tool, int64, error)
	UpdateStock(ctx context.Context, userID, ref string, newTotal int) (*model.Tool, error)
	Assign(ctx context.Context, userID, ref, holder string) (*model.Tool, error)
	Return(ctx context.Context, userID, ref string) (*model.Tool, error)
	DeleteTool(ctx context.Context, userID, ref string) error
}

type toolService struct {
	toolRepo  repository.ToolRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewToolService(toolRepo repository.ToolRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) ToolService {
	return &toolService{toolRepo: toolRepo, auditRepo: auditRepo, txManager: txManager}
}

// resolve looks a tool up by id, falling back to name. forUpdate locks the row.
func (s *toolService) resolve(ctx context.Context, ref string, forUpdate bool) (*model.Tool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperror.Validation("tool id or name is required")
	}

	if id, err := strconv.ParseUint(ref, 10, 0); err == nil {
		var tool *model.Tool
		if forUpdate {
			tool, err = s.toolRepo.FindByIDForUpdate(ctx, uint(id))
		} else {
			tool, err = s.toolRepo.FindByID(ctx, uint(id))
		}
		if err == nil {
			return tool, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if forUpdate {
		return s.toolRepo.FindByNameForUpdate(ctx, ref)
	}
	return s.toolRepo.FindByName(ctx, ref)
}

func (s *toolService) CreateTool(ctx context.Context, userID string, req CreateToolRequest) (*model.Tool, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("tool name is required")
	}
	if req.TotalQuantity <= 0 {
		return nil, apperror.Validation("total quantity must be greater than zero")
	}

	actor := actorOr(userID, model.SystemActor)
	tool := &model.Tool{
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.TotalQuantity,
		Status:            model.ToolAvailable,
		Active:            true,
		CreatedBy:         actor,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.toolRepo.Create(txCtx, tool); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateTool, model.EntityTool, tool.ID, tool.Name, req)
	})
	if err != nil {
		return nil, storageFailure("tool.create", err, map[string]any{"name": tool.Name})
	}
	return tool, nil
}

func (s *toolService) GetTool(ctx context.Context, ref string) (*model.Tool, error) {
	tool, err := s.resolve(ctx, ref, false)
	if err != nil {
		return nil, lookupFailure("tool.get", err, "tool not found", map[string]any{"ref": ref})
	}
	return tool, nil
}

func (s *toolService) ListTools(ctx context.Context, filter repository.ToolFilter) ([]model.Tool, int64, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	tools, total, err := s.toolRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, storageFailure("tool.list", err, nil)
	}
	return tools, total, nil
}

// mutate runs fn against the locked tool, saves it and writes one audit row,
// all in the same transaction.
func (s *toolService) mutate(ctx context.Context, op, userID, ref, action string, fn func(tool *model.Tool) (any, error)) (*model.Tool, error) {
	var tool *model.Tool
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		tool, err = s.resolve(txCtx, ref, true)
		if err != nil {
			return lookupFailure(op, err, "tool not found", map[string]any{"ref": ref})
		}
		details, err := fn(tool)
		if err != nil {
			return err
		}
		if err := s.toolRepo.Update(txCtx, tool); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actorOr(userID, model.SystemActor), action, model.EntityTool, tool.ID, tool.Name, details)
	})
	if err != nil {
		return nil, storageFailure(op, err, map[string]any{"ref": ref})
	}
	return tool, nil
}

// UpdateStock replaces the stock outright: total and available both become
// newTotal and any tracked assignment is cleared.
func (s *toolService) UpdateStock(ctx context.Context, userID, ref string, newTotal int) (*model.Tool, error) {
	if newTotal <= 0 {
		return nil, apperror.Validation("total quantity must be greater than zero")
	}
	return s.mutate(ctx, "tool.update_stock", userID, ref, model.ActionReplaceToolStock, func(tool *model.Tool) (any, error) {
		previous := tool.TotalQuantity
		tool.TotalQuantity = newTotal
		tool.AvailableQuantity = newTotal
		clearAssignment(tool)
		return map[string]int{"previous_total": previous, "total_quantity": newTotal}, nil
	})
}

func (s *toolService) Assign(ctx context.Context, userID, ref, holder string) (*model.Tool, error) {
	holder = strings.TrimSpace(holder)
	if holder == "" {
		return nil, apperror.Validation("holder is required")
	}
	assigner := actorOr(userID, model.SystemActor)

	tool, err := s.mutate(ctx, "tool.assign", userID, ref, model.ActionAssignTool, func(tool *model.Tool) (any, error) {
		if tool.AvailableQuantity <= 0 {
			return nil, apperror.Conflict("no stock available to assign")
		}
		at := now()
		tool.AvailableQuantity--
		tool.Status = model.ToolInUse
		tool.Holder = &holder
		tool.AssignedBy = &assigner
		tool.AssignedAt = &at
		return map[string]any{"holder": holder, "available_quantity": tool.AvailableQuantity}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("tool_id", tool.ID).Str("holder", holder).Int("available", tool.AvailableQuantity).Msg("tool assigned")
	return tool, nil
}

// Return puts one unit back. With several units out, the tool still reports
// Disponible afterwards because only one assignment slot is tracked.
func (s *toolService) Return(ctx context.Context, userID, ref string) (*model.Tool, error) {
	tool, err := s.mutate(ctx, "tool.return", userID, ref, model.ActionReturnTool, func(tool *model.Tool) (any, error) {
		if tool.AvailableQuantity >= tool.TotalQuantity {
			return nil, apperror.Conflict("no units checked out")
		}
		var holder string
		if tool.Holder != nil {
			holder = *tool.Holder
		}
		tool.AvailableQuantity++
		clearAssignment(tool)
		return map[string]any{"holder": holder, "available_quantity": tool.AvailableQuantity}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("tool_id", tool.ID).Int("available", tool.AvailableQuantity).Msg("tool returned")
	return tool, nil
}

func (s *toolService) DeleteTool(ctx context.Context, userID, ref string) error {
	_, err := s.mutate(ctx, "tool.delete", userID, ref, model.ActionDeleteTool, func(tool *model.Tool) (any, error) {
		tool.Active = false
		return map[string]int{"total_quantity": tool.TotalQuantity, "available_quantity": tool.AvailableQuantity}, nil
	})
	return err
}

func clearAssignment(tool *model.Tool) {
	tool.Status = model.ToolAvailable
	tool.Holder = nil
	tool.AssignedBy = nil
	tool.AssignedAt = nil
}

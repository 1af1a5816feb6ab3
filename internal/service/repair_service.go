package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"taller/internal/apperror"
	"taller/internal/materialtext"
	"taller/internal/model"
	"taller/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// RepairRequest is used for both create and full update. Dates are YYYY-MM-DD.
type RepairRequest struct {
	CustomerID       *uint           `json:"customer_id"`
	CustomerName     string          `json:"customer_name" binding:"required"`
	Contact          string          `json:"contact"`
	Model            string          `json:"model" binding:"required"`
	OriginalMaterial string          `json:"original_material"`
	Condition        string          `json:"condition"`
	MaterialsUsed    string          `json:"materials_used"`
	TotalCost        decimal.Decimal `json:"total_cost" validate:"gte=0"`
	Deposit          decimal.Decimal `json:"deposit" validate:"gte=0"`
	PieceCount       int             `json:"piece_count" binding:"gte=0"`
	IntakeDate       string          `json:"intake_date"`
	DeliveryDate     string          `json:"delivery_date"`
	State            string          `json:"state"`
	Priority         string          `json:"priority"`
	Notes            string          `json:"notes"`
	AssignedTo       string          `json:"assigned_to"`
	ImageURL         string          `json:"image_url"`
	ReceiptURL       string          `json:"receipt_url"`
}

type ChangeRepairStateRequest struct {
	State string `json:"state" binding:"required"`
	Notes string `json:"notes"`
}

// RecordRepairMaterialRequest attaches material usage to a repair. With
// Consume set, stock is decremented as well; UnitCost is then ignored in
// favour of the material's current cost.
type RecordRepairMaterialRequest struct {
	MaterialID uint            `json:"material_id" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
	UnitCost   decimal.Decimal `json:"unit_cost" validate:"gte=0"`
	Consume    bool            `json:"consume"`
}

// RepairResponse adds the derived pending balance to a repair.
type RepairResponse struct {
	model.Repair
	PendingBalance decimal.Decimal `json:"pending_balance"`
}

func NewRepairResponse(r *model.Repair) RepairResponse {
	return RepairResponse{Repair: *r, PendingBalance: r.PendingBalance()}
}

// ReceiptRenderer turns a receipt into a printable document.
type ReceiptRenderer interface {
	Render(receipt model.Receipt) ([]byte, error)
}

type RepairService interface {
	Create(ctx context.Context, userID string, req RepairRequest) (*model.Repair, error)
	Get(ctx context.Context, id uint) (*model.Repair, error)
	List(ctx context.Context, filter repository.RepairFilter) ([]model.Repair, int64, error)
	Update(ctx context.Context, userID string, id uint, req RepairRequest) (*model.Repair, error)
	ChangeState(ctx context.Context, userID string, id uint, state, notes string) (*model.Repair, error)
	Delete(ctx context.Context, userID string, id uint) error
	History(ctx context.Context, id uint) ([]model.RepairHistory, error)
	GenerateReceipt(ctx context.Context, id uint) (*model.Receipt, error)
	ReceiptPDF(ctx context.Context, id uint) ([]byte, *model.Receipt, error)
	RecordMaterial(ctx context.Context, userID string, id uint, req RecordRepairMaterialRequest) (*model.MaterialUsage, error)
	Materials(ctx context.Context, id uint) ([]model.MaterialUsage, error)
}

type repairService struct {
	repairRepo      repository.RepairRepository
	historyRepo     repository.RepairHistoryRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	materialService MaterialService
	usageService    UsageService
	renderer        ReceiptRenderer
}

func NewRepairService(
	repairRepo repository.RepairRepository,
	historyRepo repository.RepairHistoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	materialService MaterialService,
	usageService UsageService,
	renderer ReceiptRenderer,
) RepairService {
	return &repairService{
		repairRepo:      repairRepo,
		historyRepo:     historyRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		materialService: materialService,
		usageService:    usageService,
		renderer:        renderer,
	}
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return nil, apperror.Validation("%s must be a date in YYYY-MM-DD format", field)
	}
	return &t, nil
}

// validateRepair checks req and returns the parsed intake and delivery dates.
func validateRepair(req RepairRequest) (intake, delivery *time.Time, err error) {
	switch {
	case strings.TrimSpace(req.CustomerName) == "":
		return nil, nil, apperror.Validation("customer name is required")
	case strings.TrimSpace(req.Model) == "":
		return nil, nil, apperror.Validation("model is required")
	case req.TotalCost.IsNegative():
		return nil, nil, apperror.Validation("total cost cannot be negative")
	case req.Deposit.IsNegative():
		return nil, nil, apperror.Validation("deposit cannot be negative")
	case req.PieceCount < 0:
		return nil, nil, apperror.Validation("piece count cannot be negative")
	case req.State != "" && !model.IsRepairState(req.State):
		return nil, nil, invalidStateError()
	}
	if intake, err = parseDate("intake_date", req.IntakeDate); err != nil {
		return nil, nil, err
	}
	if delivery, err = parseDate("delivery_date", req.DeliveryDate); err != nil {
		return nil, nil, err
	}
	return intake, delivery, nil
}

func invalidStateError() error {
	return apperror.Validation("invalid state, use one of: %s", strings.Join(model.RepairStates, ", "))
}

// checkMaterialsText runs the free-text parser. Only a fractional quantity on
// a whole-unit material is fatal; anything else is logged and ignored.
func checkMaterialsText(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	items, err := materialtext.Parse(text)
	var wholeErr *materialtext.WholeUnitError
	if errors.As(err, &wholeErr) {
		return apperror.Validation("invalid materials used: %s", wholeErr.Error())
	}
	if err != nil {
		log.Warn().Err(err).Str("materials_used", text).Msg("could not parse materials used")
		return nil
	}
	for _, item := range items {
		if !item.HasQuantity() {
			log.Warn().Str("segment", item.Segment).Msg("material without quantity")
		}
	}
	log.Debug().Int("items", len(items)).Msg("materials used parsed")
	return nil
}

func (s *repairService) Create(ctx context.Context, userID string, req RepairRequest) (*model.Repair, error) {
	intake, delivery, err := validateRepair(req)
	if err != nil {
		return nil, err
	}
	if err := checkMaterialsText(req.MaterialsUsed); err != nil {
		return nil, err
	}

	repair := &model.Repair{
		CustomerID:       req.CustomerID,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		Contact:          req.Contact,
		Model:            strings.TrimSpace(req.Model),
		OriginalMaterial: req.OriginalMaterial,
		Condition:        req.Condition,
		MaterialsUsed:    req.MaterialsUsed,
		TotalCost:        req.TotalCost,
		Deposit:          req.Deposit,
		PieceCount:       req.PieceCount,
		DeliveryDate:     delivery,
		State:            req.State,
		Priority:         req.Priority,
		Notes:            req.Notes,
		AssignedTo:       req.AssignedTo,
		ImageURL:         req.ImageURL,
		ReceiptURL:       req.ReceiptURL,
		CreatedBy:        actorOr(userID, model.SystemActor),
		Active:           true,
	}
	if repair.State == "" {
		repair.State = model.RepairPending
	}
	if repair.Priority == "" {
		repair.Priority = model.DefaultRepairPriority
	}
	if repair.OriginalMaterial == "" {
		repair.OriginalMaterial = model.DefaultOriginalMaterial
	}
	if repair.PieceCount == 0 {
		repair.PieceCount = 1
	}
	if intake != nil {
		repair.IntakeDate = *intake
	} else {
		repair.IntakeDate = today()
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repairRepo.Create(txCtx, repair); err != nil {
			return err
		}
		return s.historyRepo.Create(txCtx, &model.RepairHistory{
			RepairID: repair.ID,
			Date:     now(),
			State:    repair.State,
			Notes:    "Reparación registrada",
			UserID:   repair.CreatedBy,
		})
	})
	if err != nil {
		return nil, storageFailure("repair.create", err, map[string]any{"customer": repair.CustomerName})
	}

	log.Info().Uint("repair_id", repair.ID).Str("customer", repair.CustomerName).Msg("repair created")
	return repair, nil
}

func (s *repairService) Get(ctx context.Context, id uint) (*model.Repair, error) {
	repair, err := s.repairRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailure("repair.get", err, "repair not found", map[string]any{"repair_id": id})
	}
	return repair, nil
}

func (s *repairService) List(ctx context.Context, filter repository.RepairFilter) ([]model.Repair, int64, error) {
	if filter.State != "" && !model.IsRepairState(filter.State) {
		return nil, 0, invalidStateError()
	}
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	repairs, total, err := s.repairRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, storageFailure("repair.list", err, nil)
	}
	return repairs, total, nil
}

// Update replaces every mutable field. A state change is recorded in the history.
func (s *repairService) Update(ctx context.Context, userID string, id uint, req RepairRequest) (*model.Repair, error) {
	intake, delivery, err := validateRepair(req)
	if err != nil {
		return nil, err
	}
	if err := checkMaterialsText(req.MaterialsUsed); err != nil {
		return nil, err
	}

	actor := actorOr(userID, model.SystemActor)
	var repair *model.Repair
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		repair, err = s.repairRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("repair.update", err, "repair not found", map[string]any{"repair_id": id})
		}

		previousState := repair.State
		repair.CustomerID = req.CustomerID
		repair.CustomerName = strings.TrimSpace(req.CustomerName)
		repair.Contact = req.Contact
		repair.Model = strings.TrimSpace(req.Model)
		if req.OriginalMaterial != "" {
			repair.OriginalMaterial = req.OriginalMaterial
		}
		repair.Condition = req.Condition
		repair.MaterialsUsed = req.MaterialsUsed
		repair.TotalCost = req.TotalCost
		repair.Deposit = req.Deposit
		if req.PieceCount > 0 {
			repair.PieceCount = req.PieceCount
		}
		if intake != nil {
			repair.IntakeDate = *intake
		}
		repair.DeliveryDate = delivery
		if req.State != "" {
			repair.State = req.State
		}
		if req.Priority != "" {
			repair.Priority = req.Priority
		}
		repair.Notes = req.Notes
		repair.AssignedTo = req.AssignedTo
		repair.ImageURL = req.ImageURL
		repair.ReceiptURL = req.ReceiptURL

		if err := s.repairRepo.Update(txCtx, repair); err != nil {
			return err
		}
		if repair.State != previousState {
			if err := s.historyRepo.Create(txCtx, &model.RepairHistory{
				RepairID: repair.ID,
				Date:     now(),
				State:    repair.State,
				Notes:    "Estado actualizado desde " + previousState,
				UserID:   actor,
			}); err != nil {
				return err
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateRepair, model.EntityRepair, repair.ID, repair.CustomerName, req)
	})
	if err != nil {
		return nil, storageFailure("repair.update", err, map[string]any{"repair_id": id})
	}
	return repair, nil
}

// ChangeState accepts any state of the fixed set from any other, backwards included.
func (s *repairService) ChangeState(ctx context.Context, userID string, id uint, state, notes string) (*model.Repair, error) {
	if !model.IsRepairState(state) {
		return nil, invalidStateError()
	}

	var (
		repair   *model.Repair
		previous string
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		repair, err = s.repairRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("repair.change_state", err, "repair not found", map[string]any{"repair_id": id})
		}
		previous = repair.State
		if err := s.repairRepo.UpdateState(txCtx, id, state); err != nil {
			return err
		}
		repair.State = state
		return s.historyRepo.Create(txCtx, &model.RepairHistory{
			RepairID: id,
			Date:     now(),
			State:    state,
			Notes:    notes,
			UserID:   actorOr(userID, model.SystemActor),
		})
	})
	if err != nil {
		return nil, storageFailure("repair.change_state", err, map[string]any{"repair_id": id, "state": state})
	}

	log.Info().Uint("repair_id", id).Str("from", previous).Str("to", state).Msg("repair state changed")
	return repair, nil
}

func (s *repairService) Delete(ctx context.Context, userID string, id uint) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		repair, err := s.repairRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupFailure("repair.delete", err, "repair not found", map[string]any{"repair_id": id})
		}
		if err := s.repairRepo.Deactivate(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actorOr(userID, model.SystemActor), model.ActionDeleteRepair,
			model.EntityRepair, repair.ID, repair.CustomerName, map[string]string{"state": repair.State})
	})
	if err != nil {
		return storageFailure("repair.delete", err, map[string]any{"repair_id": id})
	}
	return nil
}

func (s *repairService) History(ctx context.Context, id uint) ([]model.RepairHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.historyRepo.ListByRepair(ctx, id)
	if err != nil {
		return nil, storageFailure("repair.history", err, map[string]any{"repair_id": id})
	}
	return entries, nil
}

func (s *repairService) GenerateReceipt(ctx context.Context, id uint) (*model.Receipt, error) {
	repair, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	materialCost, err := s.usageService.CostForDocument(ctx, model.DocumentRepair, id)
	if err != nil {
		return nil, err
	}
	number, err := uuid.NewV7()
	if err != nil {
		return nil, storageFailure("repair.receipt", err, map[string]any{"repair_id": id})
	}

	return &model.Receipt{
		Number:         "REC-" + number.String(),
		IssuedAt:       now(),
		RepairID:       repair.ID,
		CustomerName:   repair.CustomerName,
		Contact:        repair.Contact,
		Model:          repair.Model,
		Description:    "Reparación de " + repair.Model,
		PieceCount:     repair.PieceCount,
		TotalCost:      repair.TotalCost,
		Deposit:        repair.Deposit,
		PendingBalance: repair.PendingBalance(),
		MaterialCost:   materialCost,
		MaterialsUsed:  repair.MaterialsUsed,
		State:          repair.State,
		AssignedTo:     repair.AssignedTo,
		IntakeDate:     repair.IntakeDate,
		DeliveryDate:   repair.DeliveryDate,
		ReceiptURL:     repair.ReceiptURL,
	}, nil
}

func (s *repairService) ReceiptPDF(ctx context.Context, id uint) ([]byte, *model.Receipt, error) {
	receipt, err := s.GenerateReceipt(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.renderer.Render(*receipt)
	if err != nil {
		return nil, nil, storageFailure("repair.receipt_pdf", err, map[string]any{"repair_id": id})
	}
	return doc, receipt, nil
}

func (s *repairService) RecordMaterial(ctx context.Context, userID string, id uint, req RecordRepairMaterialRequest) (*model.MaterialUsage, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if req.Consume {
		return s.materialService.ConsumeMaterial(ctx, userID, req.MaterialID, ConsumeMaterialRequest{
			DocumentKind: model.DocumentRepair,
			DocumentID:   id,
			Quantity:     req.Quantity,
		})
	}

	unitCost := req.UnitCost
	if unitCost.IsZero() {
		material, err := s.materialService.GetMaterial(ctx, req.MaterialID)
		if err != nil {
			return nil, err
		}
		unitCost = material.Cost
	}
	return s.usageService.RecordUsage(ctx, userID, RecordUsageRequest{
		DocumentKind: model.DocumentRepair,
		DocumentID:   id,
		MaterialID:   req.MaterialID,
		Quantity:     req.Quantity,
		UnitCost:     unitCost,
	})
}

func (s *repairService) Materials(ctx context.Context, id uint) ([]model.MaterialUsage, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.usageService.UsageForDocument(ctx, model.DocumentRepair, id)
}

package service

import (
	"context"
	"testing"

	"taller/internal/apperror"
	"taller/internal/model"
	"taller/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resinaRequest() CreateMaterialRequest {
	return CreateMaterialRequest{
		Name:         "Resina",
		Quantity:     10,
		Unit:         "litro",
		StockMinimum: 2,
		Cost:         decimal.NewFromInt(50),
		Category:     "Resinas",
	}
}

func signedSum(movements []model.StockMovement) int {
	total := 0
	for _, m := range movements {
		total += m.Signed()
	}
	return total
}

func TestCreateMaterialThenCorrectStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)
	assert.Equal(t, 10, material.Quantity)
	assert.True(t, material.Active)

	history, err := f.materials.ListHistory(ctx, material.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.MovementEntrada, history[0].Kind)
	assert.Equal(t, 10, history[0].Quantity)

	updated, err := f.materials.UpdateStock(ctx, "ana", material.ID, 7, "conteo")
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	history, err = f.materials.ListHistory(ctx, material.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.MovementSalida, history[0].Kind, "newest movement first")
	assert.Equal(t, 3, history[0].Quantity)
	assert.Equal(t, 7, history[0].StockAfter)
	assert.Equal(t, "ana", history[0].UserID)
}

func TestCreateMaterialWithoutStockRecordsNoMovement(t *testing.T) {
	f := newFixture()
	req := resinaRequest()
	req.Quantity = 0

	material, err := f.materials.CreateMaterial(context.Background(), "", req)
	require.NoError(t, err)
	assert.Equal(t, model.SystemActor, material.CreatedBy)
	assert.Empty(t, f.store.movements)
}

func TestCreateMaterialValidation(t *testing.T) {
	cases := map[string]func(r *CreateMaterialRequest){
		"empty name":        func(r *CreateMaterialRequest) { r.Name = "  " },
		"negative quantity": func(r *CreateMaterialRequest) { r.Quantity = -1 },
		"negative minimum":  func(r *CreateMaterialRequest) { r.StockMinimum = -1 },
		"negative cost":     func(r *CreateMaterialRequest) { r.Cost = decimal.NewFromInt(-5) },
		"empty unit":        func(r *CreateMaterialRequest) { r.Unit = "" },
		"empty category":    func(r *CreateMaterialRequest) { r.Category = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			req := resinaRequest()
			mutate(&req)
			_, err := f.materials.CreateMaterial(context.Background(), "ana", req)
			assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
			assert.Empty(t, f.store.materials)
			assert.Empty(t, f.store.movements)
		})
	}
}

func TestLedgerMatchesAggregateAcrossUpdates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	for _, target := range []int{4, 4, 12, 0, 9, 1} {
		_, err := f.materials.UpdateStock(ctx, "ana", material.ID, target, "")
		require.NoError(t, err)

		current, err := f.materials.GetMaterial(ctx, material.ID)
		require.NoError(t, err)
		assert.Equal(t, target, current.Quantity)

		history, err := f.materials.ListHistory(ctx, material.ID)
		require.NoError(t, err)
		assert.Equal(t, current.Quantity, signedSum(history))
	}

	report, err := f.materials.LedgerReport(ctx, material.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.OnHand)
	assert.Equal(t, report.OnHand, report.LedgerNet)
}

func TestUpdateStockToCurrentValueIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)
	before := len(f.store.movements)

	updated, err := f.materials.UpdateStock(ctx, "ana", material.ID, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Quantity)
	assert.Len(t, f.store.movements, before)
}

func TestUpdateStockRejectsNegativeTarget(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	_, err = f.materials.UpdateStock(ctx, "ana", material.ID, -1, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	current, err := f.materials.GetMaterial(ctx, material.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, current.Quantity)
}

func TestUpdateStockUnknownMaterial(t *testing.T) {
	f := newFixture()
	_, err := f.materials.UpdateStock(context.Background(), "ana", 999, 3, "")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUpdateStockRollsBackWhenLedgerWriteFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	f.store.failOn = "movement.Create"
	_, err = f.materials.UpdateStock(ctx, "ana", material.ID, 3, "")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindStorage))
	assert.Equal(t, 1, f.store.txRollback)

	f.store.failOn = ""
	current, err := f.materials.GetMaterial(ctx, material.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, current.Quantity, "aggregate must not change without its ledger row")
	assert.Len(t, f.store.movements, 1)
}

func TestCreateMaterialRollsBackWhenInitialMovementFails(t *testing.T) {
	f := newFixture()
	f.store.failOn = "movement.Create"

	_, err := f.materials.CreateMaterial(context.Background(), "ana", resinaRequest())
	assert.True(t, apperror.Is(err, apperror.KindStorage))
	assert.Empty(t, f.store.materials)
}

func TestEditMaterialNeverTouchesQuantity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	edited, err := f.materials.EditMaterial(ctx, "ana", material.ID, EditMaterialRequest{
		Name:         "Resina epóxica",
		Unit:         "litro",
		StockMinimum: 3,
		Cost:         decimal.NewFromInt(65),
		Category:     "Resinas",
	})
	require.NoError(t, err)
	assert.Equal(t, "Resina epóxica", edited.Name)

	current, err := f.materials.GetMaterial(ctx, material.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, current.Quantity)
	assert.True(t, decimal.NewFromInt(65).Equal(current.Cost))
	assert.Len(t, f.store.movements, 1)
	assert.Equal(t, []string{model.ActionUpdateMaterial}, f.store.auditActions())
}

func TestDeleteMaterialKeepsHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	require.NoError(t, f.materials.DeleteMaterial(ctx, "ana", material.ID))

	_, err = f.materials.GetMaterial(ctx, material.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	history, err := f.materials.ListHistory(ctx, material.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	err = f.materials.DeleteMaterial(ctx, "ana", material.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestConsumeMaterial(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	usage, err := f.materials.ConsumeMaterial(ctx, "jesus", material.ID, ConsumeMaterialRequest{
		DocumentKind: model.DocumentRepair,
		DocumentID:   42,
		Quantity:     4,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(usage.UnitCost))

	current, err := f.materials.GetMaterial(ctx, material.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, current.Quantity)

	history, err := f.materials.ListHistory(ctx, material.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MovementConsumo, history[0].Kind)
	assert.Equal(t, current.Quantity, signedSum(history))

	cost, err := f.usage.CostForDocument(ctx, model.DocumentRepair, 42)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(cost))
}

func TestConsumeMaterialInsufficientStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	_, err = f.materials.ConsumeMaterial(ctx, "jesus", material.ID, ConsumeMaterialRequest{
		DocumentKind: model.DocumentOrder,
		DocumentID:   1,
		Quantity:     11,
	})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Empty(t, f.store.usages)
	assert.Len(t, f.store.movements, 1)
}

func TestConsumeMaterialRollsBackWhenQuantityWriteFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	f.store.failOn = "material.UpdateQuantity"
	_, err = f.materials.ConsumeMaterial(ctx, "jesus", material.ID, ConsumeMaterialRequest{
		DocumentKind: model.DocumentRepair,
		DocumentID:   3,
		Quantity:     2,
	})
	assert.True(t, apperror.Is(err, apperror.KindStorage))
	assert.Empty(t, f.store.usages)
	assert.Len(t, f.store.movements, 1)
}

func TestLedgerReportDetectsDrift(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	// simulate a write that bypassed the service
	m := f.store.materials[material.ID]
	m.Quantity = 15
	f.store.materials[material.ID] = m

	report, err := f.materials.LedgerReport(ctx, material.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, 10, report.LedgerNet)
	assert.Equal(t, 15, report.OnHand)
}

func TestListMaterialsAndLowStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)
	low := resinaRequest()
	low.Name, low.Quantity, low.Category = "Yeso", 1, "Yesos"
	_, err = f.materials.CreateMaterial(ctx, "ana", low)
	require.NoError(t, err)

	all, total, err := f.materials.ListMaterials(ctx, repository.MaterialFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	filtered, total, err := f.materials.ListMaterials(ctx, repository.MaterialFilter{Category: "Yesos"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Yeso", filtered[0].Name)

	lows, err := f.materials.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, "Yeso", lows[0].Name)
}

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

func TestRecordUsageLeavesStockAlone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	usage, err := f.usage.RecordUsage(ctx, "ana", RecordUsageRequest{
		DocumentKind: model.DocumentOrder,
		DocumentID:   5,
		MaterialID:   material.ID,
		Quantity:     3,
		UnitCost:     decimal.RequireFromString("4.25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-11-23", usage.Date.Format(dateLayout))

	stored, err := f.materials.GetMaterial(ctx, material.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Quantity)
	assert.Len(t, f.store.movements, 1)

	cost, err := f.usage.CostForDocument(ctx, model.DocumentOrder, 5)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.75").Equal(cost))

	cost, err = f.usage.CostForDocument(ctx, model.DocumentRepair, 5)
	require.NoError(t, err)
	assert.True(t, cost.IsZero(), "usage is scoped by document kind")
}

func TestRecordUsageValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)

	valid := RecordUsageRequest{DocumentKind: model.DocumentRepair, DocumentID: 1, MaterialID: material.ID, Quantity: 1}
	cases := map[string]func(r *RecordUsageRequest){
		"unknown kind":  func(r *RecordUsageRequest) { r.DocumentKind = "factura" },
		"no document":   func(r *RecordUsageRequest) { r.DocumentID = 0 },
		"zero quantity": func(r *RecordUsageRequest) { r.Quantity = 0 },
		"negative cost": func(r *RecordUsageRequest) { r.UnitCost = decimal.NewFromInt(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, err := f.usage.RecordUsage(ctx, "ana", req)
			assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
		})
	}

	valid.MaterialID = 999
	_, err = f.usage.RecordUsage(ctx, "ana", valid)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.Empty(t, f.store.usages)
}

func TestDeleteUsage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)
	usage, err := f.usage.RecordUsage(ctx, "ana", RecordUsageRequest{
		DocumentKind: model.DocumentRepair, DocumentID: 2, MaterialID: material.ID, Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, f.usage.DeleteUsage(ctx, "admin", usage.ID))
	usages, err := f.usage.UsageForDocument(ctx, model.DocumentRepair, 2)
	require.NoError(t, err)
	assert.Empty(t, usages)

	last := f.store.audits[len(f.store.audits)-1]
	assert.Equal(t, model.ActionDeleteUsage, last.Action)
	assert.Equal(t, "admin", last.Actor)
	assert.Equal(t, model.EntityMaterial, last.EntityType)
	assert.Equal(t, uintString(material.ID), last.EntityID)
	assert.Contains(t, string(last.Details), `"document_kind":"reparacion"`)

	err = f.usage.DeleteUsage(ctx, "admin", usage.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.usage.UsageForDocument(ctx, "factura", 2)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestDeleteUsageRollsBackWhenAuditFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)
	usage, err := f.usage.RecordUsage(ctx, "ana", RecordUsageRequest{
		DocumentKind: model.DocumentOrder, DocumentID: 7, MaterialID: material.ID, Quantity: 2,
	})
	require.NoError(t, err)

	f.store.failOn = "audit.Log"
	err = f.usage.DeleteUsage(ctx, "admin", usage.ID)
	assert.True(t, apperror.Is(err, apperror.KindStorage))

	f.store.failOn = ""
	usages, err := f.usage.UsageForDocument(ctx, model.DocumentOrder, 7)
	require.NoError(t, err)
	assert.Len(t, usages, 1)
}

func TestAuditLogsNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tool := newTool(t, f, "Compresor", 1)
	_, err := f.tools.Assign(ctx, "ana", "Compresor", "Luis")
	require.NoError(t, err)
	material, err := f.materials.CreateMaterial(ctx, "ana", resinaRequest())
	require.NoError(t, err)
	require.NoError(t, f.materials.DeleteMaterial(ctx, "ana", material.ID))

	logs, total, err := f.audit.GetAuditLogs(ctx, repository.AuditFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, model.ActionDeleteMaterial, logs[0].Action)
	assert.Equal(t, "ana", logs[0].Actor)

	toolLogs, total, err := f.audit.GetAuditLogs(ctx, repository.AuditFilter{EntityType: model.EntityTool, EntityID: uintString(tool.ID)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, model.ActionAssignTool, toolLogs[0].Action)
	assert.Contains(t, string(toolLogs[0].Details), `"holder":"Luis"`)

	f.store.failOn = "audit.List"
	_, _, err = f.audit.GetAuditLogs(ctx, repository.AuditFilter{})
	assert.True(t, apperror.Is(err, apperror.KindStorage))
}

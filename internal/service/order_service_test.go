package service

import (
	"context"
	"testing"

	"taller/internal/apperror"
	"taller/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoItemOrder() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerName: "Luis",
		Total:        decimal.NewFromInt(350),
		Items: []OrderItemRequest{
			{ProductID: 1, ProductName: "Virgen 30cm", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{ProductID: 2, ProductName: "Ángel", Quantity: 1, UnitPrice: decimal.NewFromInt(150)},
		},
	}
}

func TestSummarize(t *testing.T) {
	long := "Nacimiento completo de tres reyes magos"
	tests := []struct {
		name  string
		items []OrderItemRequest
		want  string
	}{
		{"empty", nil, ""},
		{"single item keeps full name", []OrderItemRequest{{ProductName: long}}, long},
		{"two items", []OrderItemRequest{{ProductName: "Virgen 30cm"}, {ProductName: "Ángel"}}, "Virgen 30cm... (+1 items)"},
		{"surrounding spaces are trimmed", []OrderItemRequest{{ProductName: " Virgen "}}, "Virgen"},
		{
			"long first name is cut to 30 characters",
			[]OrderItemRequest{{ProductName: long}, {ProductName: "a"}, {ProductName: "b"}},
			"Nacimiento completo de tres re... (+2 items)",
		},
		{
			"cut counts characters not bytes",
			[]OrderItemRequest{{ProductName: "ÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁ"}, {ProductName: "x"}},
			"ÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁÁ... (+1 items)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.items))
		})
	}
}

func TestOrderSummaryMatchesStoredItemName(t *testing.T) {
	f := newFixture()
	order, err := f.orders.Create(context.Background(), "", CreateOrderRequest{
		CustomerName: "Ana",
		Total:        decimal.NewFromInt(100),
		Items: []OrderItemRequest{
			{ProductID: 1, ProductName: "  Virgen  ", Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Virgen", order.Items[0].ProductName)
	assert.Equal(t, order.Items[0].ProductName, order.ProductSummary)
}

func TestOrderCreateThenListByDate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	order, err := f.orders.Create(ctx, "", twoItemOrder())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultOrderStage, order.Stage)
	assert.Equal(t, model.DefaultOrderCreator, order.CreatedBy)
	assert.Equal(t, 3, order.TotalQuantity)
	assert.Equal(t, "Virgen 30cm... (+1 items)", order.ProductSummary)
	require.Len(t, order.Items, 2)
	assert.True(t, decimal.NewFromInt(200).Equal(order.Items[0].Subtotal))
	assert.True(t, decimal.NewFromInt(150).Equal(order.Items[1].Subtotal))

	orders, err := f.orders.ListByDate(ctx, "2025-11-23")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
	assert.Len(t, orders[0].Items, 2)

	orders, err = f.orders.ListByDate(ctx, "2025-11-24")
	require.NoError(t, err)
	assert.Empty(t, orders)

	history, err := f.orders.StageHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.DefaultOrderStage, history[0].Stage)
	assert.Equal(t, model.DefaultOrderCreator, history[0].Actor)
}

func TestOrderListByDateRejectsMalformedDates(t *testing.T) {
	f := newFixture()
	for _, date := range []string{"", "2025-13-99", "2025-11-32", "2025-00-10", "23-11-2025", "2025/11/23"} {
		t.Run(date, func(t *testing.T) {
			_, err := f.orders.ListByDate(context.Background(), date)
			assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
		})
	}
}

func TestOrderListByDateOffCalendarDayIsEmpty(t *testing.T) {
	f := newFixture()
	_, err := f.orders.Create(context.Background(), "", twoItemOrder())
	require.NoError(t, err)

	orders, err := f.orders.ListByDate(context.Background(), "2025-02-30")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderCreateValidation(t *testing.T) {
	cases := map[string]func(r *CreateOrderRequest){
		"missing customer": func(r *CreateOrderRequest) { r.CustomerName = "" },
		"no items":         func(r *CreateOrderRequest) { r.Items = nil },
		"zero total":       func(r *CreateOrderRequest) { r.Total = decimal.Zero },
		"negative deposit": func(r *CreateOrderRequest) { r.Deposit = decimal.NewFromInt(-1) },
		"zero quantity":    func(r *CreateOrderRequest) { r.Items[1].Quantity = 0 },
		"negative price":   func(r *CreateOrderRequest) { r.Items[0].UnitPrice = decimal.NewFromInt(-3) },
		"unnamed product":  func(r *CreateOrderRequest) { r.Items[0].ProductName = " " },
		"bad delivery":     func(r *CreateOrderRequest) { r.DeliveryDate = "mañana" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			req := twoItemOrder()
			mutate(&req)
			_, err := f.orders.Create(context.Background(), "ana", req)
			assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
			assert.Empty(t, f.store.orders)
		})
	}
}

func TestOrderCreateRollsBackOnItemFailure(t *testing.T) {
	f := newFixture()
	f.store.failOn = "order.CreateItem"

	_, err := f.orders.Create(context.Background(), "ana", twoItemOrder())
	assert.True(t, apperror.Is(err, apperror.KindStorage))
	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.store.items)
	assert.Empty(t, f.store.stages)
}

func TestOrderAdvanceStage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order, err := f.orders.Create(ctx, "ana", twoItemOrder())
	require.NoError(t, err)

	advanced, err := f.orders.AdvanceStage(ctx, order.ID, "En horno", "primera quema")
	require.NoError(t, err)
	assert.Equal(t, "En horno", advanced.Stage)
	assert.Len(t, advanced.Items, 2)

	history, err := f.orders.StageHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "En horno", history[0].Stage)
	assert.Equal(t, "primera quema", history[0].Notes)
	assert.Equal(t, model.SystemActor, history[0].Actor)

	_, err = f.orders.AdvanceStage(ctx, order.ID, "  ", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.orders.AdvanceStage(ctx, 999, "Listo", "")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.Contains(t, err.Error(), "999")
}

func TestOrderDeleteRemovesEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order, err := f.orders.Create(ctx, "ana", twoItemOrder())
	require.NoError(t, err)
	_, err = f.orders.AdvanceStage(ctx, order.ID, "Listo", "")
	require.NoError(t, err)

	require.NoError(t, f.orders.Delete(ctx, "ana", order.ID))

	_, err = f.orders.Get(ctx, order.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.Empty(t, f.store.items)
	assert.Empty(t, f.store.stages)
	assert.Equal(t, []string{model.ActionDeleteOrder}, f.store.auditActions())

	err = f.orders.Delete(ctx, "ana", order.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestOrderDeleteIsAllOrNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order, err := f.orders.Create(ctx, "ana", twoItemOrder())
	require.NoError(t, err)

	f.store.failOn = "order.Delete"
	err = f.orders.Delete(ctx, "ana", order.ID)
	assert.True(t, apperror.Is(err, apperror.KindStorage))

	f.store.failOn = ""
	stored, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	history, err := f.orders.StageHistory(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOrderListPaginates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.orders.Create(ctx, "ana", twoItemOrder())
		require.NoError(t, err)
	}

	page, total, err := f.orders.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)
}

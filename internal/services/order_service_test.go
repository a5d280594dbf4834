package services

import (
	"context"
	"testing"

	"dinetrack/internal/apperrors"
	"dinetrack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrderService(orderRepo *fakeOrderRepo) OrderService {
	tableRepo := newFakeTableRepo(&models.Table{TableID: "table1", TableNumber: 1, Status: models.TableAvailable})
	return NewOrderService(orderRepo, tableRepo, nil)
}

func seedOrder(t *testing.T, svc OrderService, items ...CreateOrderItem) *models.Order {
	t.Helper()
	if len(items) == 0 {
		items = []CreateOrderItem{{ItemID: "item1", Name: "Pho Bo", Price: 60000, Quantity: 2}}
	}
	order, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: "table1",
		Items:   items,
	})
	require.NoError(t, err)
	return order
}

func advanceOrder(t *testing.T, svc OrderService, orderID string, statuses ...string) *models.Order {
	t.Helper()
	var order *models.Order
	var err error
	for _, status := range statuses {
		order, err = svc.SetOrderStatus(context.Background(), orderID, status)
		require.NoError(t, err, "transition to %s", status)
	}
	return order
}

func TestCreateOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestOrderService(repo)

	order := seedOrder(t, svc,
		CreateOrderItem{ItemID: "item1", Name: "Pho Bo", Price: 60000, Quantity: 2},
		CreateOrderItem{ItemID: "item2", Name: "Tra Da", Price: 15000, Quantity: 1},
	)

	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, string(models.OrderReceived), order.Status)
	assert.Equal(t, int64(1), order.Version)
	require.Len(t, order.Items, 2)
	assert.Equal(t, models.ItemReceived, order.Items[0].Status)
	assert.Equal(t, int64(60000), order.Items[0].Price)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{TableID: "table1"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindClientError))

	_, err = svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: "table1",
		Items:   []CreateOrderItem{{ItemID: "item1", Name: "Pho Bo", Price: 60000, Quantity: 0}},
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindClientError))
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{"received", "in-progress", true},
		{"received", "paused", true},
		{"received", "cancelled", true},
		{"received", "ready", false},
		{"received", "delivered", false},
		{"received", "completed", false},
		{"in-progress", "ready", true},
		{"in-progress", "paused", true},
		{"in-progress", "delivered", false},
		{"paused", "in-progress", true},
		{"paused", "cancelled", true},
		{"paused", "ready", false},
		{"ready", "delivered", true},
		{"ready", "in-progress", false},
		{"delivered", "completed", true},
		{"delivered", "ready", false},
		{"completed", "cancelled", false},
		{"completed", "received", false},
		{"cancelled", "received", false},
		{"cancelled", "in-progress", false},
	}

	pathTo := map[string][]string{
		"received":    {},
		"in-progress": {"in-progress"},
		"paused":      {"paused"},
		"ready":       {"in-progress", "ready"},
		"delivered":   {"in-progress", "ready", "delivered"},
		"completed":   {"in-progress", "ready", "delivered", "completed"},
		"cancelled":   {"cancelled"},
	}

	for _, tc := range cases {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			svc := newTestOrderService(newFakeOrderRepo())
			order := seedOrder(t, svc)
			advanceOrder(t, svc, order.OrderID, pathTo[tc.from]...)

			updated, err := svc.SetOrderStatus(context.Background(), order.OrderID, tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, updated.Status)
			} else {
				assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition), "got %v", err)
				current, getErr := svc.GetOrder(order.OrderID)
				require.NoError(t, getErr)
				assert.Equal(t, tc.from, current.Status, "a rejected transition must leave the order unchanged")
			}
		})
	}
}

func TestSetOrderStatusSameStatusIsNoOp(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc)

	updated, err := svc.SetOrderStatus(context.Background(), order.OrderID, string(models.OrderReceived))
	require.NoError(t, err)
	assert.Equal(t, order.Version, updated.Version, "a no-op must not bump the version")
}

func TestSetOrderStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc)

	_, err := svc.SetOrderStatus(context.Background(), order.OrderID, "fried")
	assert.True(t, apperrors.IsKind(err, apperrors.KindClientError))
}

func TestSetOrderStatusConflictOnConcurrentUpdate(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestOrderService(repo)
	order := seedOrder(t, svc)

	repo.forceCASMiss = true
	_, err := svc.SetOrderStatus(context.Background(), order.OrderID, string(models.OrderInProgress))
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict), "got %v", err)
}

func TestSetOrderStatusUnknownOrder(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())

	_, err := svc.SetOrderStatus(context.Background(), "nope", string(models.OrderInProgress))
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCancelIsIdempotent(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc)

	first, err := svc.Cancel(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderCancelled), first.Status)

	second, err := svc.Cancel(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderCancelled), second.Status)
	assert.Equal(t, first.Version, second.Version)
}

func TestCancelCompletedOrderFails(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc)
	advanceOrder(t, svc, order.OrderID, "in-progress", "ready", "delivered", "completed")

	_, err := svc.Cancel(context.Background(), order.OrderID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestPauseAndResume(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc)
	advanceOrder(t, svc, order.OrderID, "in-progress")

	paused, err := svc.Pause(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderPaused), paused.Status)

	resumed, err := svc.Resume(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderInProgress), resumed.Status)
}

func TestResumeRequiresPaused(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc)

	_, err := svc.Resume(context.Background(), order.OrderID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestSetItemStatusCascadesWhenAllItemsAgree(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc,
		CreateOrderItem{ItemID: "item1", Name: "Pho Bo", Price: 60000, Quantity: 1},
		CreateOrderItem{ItemID: "item2", Name: "Bun Cha", Price: 55000, Quantity: 1},
		CreateOrderItem{ItemID: "item3", Name: "Tra Da", Price: 15000, Quantity: 1},
	)

	ctx := context.Background()

	updated, err := svc.SetItemStatus(ctx, order.OrderID, "item1", models.ItemInProgress)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderReceived), updated.Status, "one item must not move the order")

	updated, err = svc.SetItemStatus(ctx, order.OrderID, "item2", models.ItemInProgress)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderReceived), updated.Status, "two of three items must not move the order")

	updated, err = svc.SetItemStatus(ctx, order.OrderID, "item3", models.ItemInProgress)
	require.NoError(t, err)
	assert.Equal(t, string(models.OrderInProgress), updated.Status, "the last item must cascade")

	for _, station := range []string{"item1", "item2", "item3"} {
		updated, err = svc.SetItemStatus(ctx, order.OrderID, station, models.ItemReady)
		require.NoError(t, err)
	}
	assert.Equal(t, string(models.OrderReady), updated.Status)
}

func TestSetItemStatusSkipsInvalidCascade(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc,
		CreateOrderItem{ItemID: "item1", Name: "Pho Bo", Price: 60000, Quantity: 1},
	)

	// received -> ready is not a valid order-level move, so the item
	// update lands but the cascade is skipped.
	updated, err := svc.SetItemStatus(context.Background(), order.OrderID, "item1", models.ItemReady)
	require.NoError(t, err)
	assert.Equal(t, models.ItemReady, updated.Items[0].Status)
	assert.Equal(t, string(models.OrderReceived), updated.Status)
}

func TestSetItemStatusUnknownItem(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())
	order := seedOrder(t, svc)

	_, err := svc.SetItemStatus(context.Background(), order.OrderID, "ghost", models.ItemReady)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListOrdersRejectsUnknownStatusFilter(t *testing.T) {
	svc := newTestOrderService(newFakeOrderRepo())

	_, err := svc.ListOrders("burnt", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindClientError))
}

package services

import (
	"context"
	"log"

	"dinetrack/internal/apperrors"
	"dinetrack/internal/models"
	"dinetrack/internal/repository"

	"github.com/google/uuid"
)

// validTransitions is the order status state machine. A status maps to
// the set of statuses reachable from it; completed and cancelled map
// to nothing.
var validTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderReceived:   {models.OrderInProgress, models.OrderPaused, models.OrderCancelled},
	models.OrderInProgress: {models.OrderReady, models.OrderPaused, models.OrderCancelled},
	models.OrderPaused:     {models.OrderInProgress, models.OrderCancelled},
	models.OrderReady:      {models.OrderDelivered, models.OrderCancelled},
	models.OrderDelivered:  {models.OrderCompleted, models.OrderCancelled},
	models.OrderCompleted:  {},
	models.OrderCancelled:  {},
}

type CreateOrderItem struct {
	ItemID   string `json:"item_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity" binding:"required"`
	Notes    string `json:"notes"`
}

type CreateOrderRequest struct {
	TableID             string            `json:"table_id" binding:"required"`
	Items               []CreateOrderItem `json:"items" binding:"required"`
	SpecialInstructions string            `json:"special_instructions"`
	KitchenNotes        string            `json:"kitchen_notes"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error)
	GetOrder(orderID string) (*models.Order, error)
	ListOrders(status, tableID string) ([]models.Order, error)
	SetOrderStatus(ctx context.Context, orderID, newStatus string) (*models.Order, error)
	SetItemStatus(ctx context.Context, orderID, itemID, newStatus string) (*models.Order, error)
	Cancel(ctx context.Context, orderID string) (*models.Order, error)
	Pause(ctx context.Context, orderID string) (*models.Order, error)
	Resume(ctx context.Context, orderID string) (*models.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	tableRepo repository.TableRepository
	cache     Cache
}

func NewOrderService(orderRepo repository.OrderRepository, tableRepo repository.TableRepository, cache Cache) OrderService {
	return &orderService{orderRepo: orderRepo, tableRepo: tableRepo, cache: cache}
}

func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.ClientError("", "an order must contain at least one item")
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, apperrors.ClientError("", "item %s has invalid quantity %d", it.ItemID, it.Quantity)
		}
		items = append(items, models.OrderItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Notes:    it.Notes,
			Status:   models.ItemReceived,
		})
	}

	order := &models.Order{
		OrderID:             uuid.NewString(),
		TableID:             req.TableID,
		Status:              string(models.OrderReceived),
		SpecialInstructions: req.SpecialInstructions,
		KitchenNotes:        req.KitchenNotes,
		Version:             1,
		Items:               items,
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	// Mark the table occupied. Best effort: a missing table must not
	// fail order creation.
	if err := s.tableRepo.UpdateStatus(req.TableID, models.TableOccupied); err != nil {
		log.Printf("Warning: could not mark table %s occupied: %v", req.TableID, err)
	}
	s.invalidateProjection(ctx, req.TableID)

	return order, nil
}

func (s *orderService) GetOrder(orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperrors.NotFound("", "order %s not found", orderID)
	}
	return order, nil
}

func (s *orderService) ListOrders(status, tableID string) ([]models.Order, error) {
	if status != "" && !models.ValidOrderStatus(status) {
		return nil, apperrors.ClientError("", "invalid status value: %s", status)
	}
	return s.orderRepo.List(status, tableID)
}

func (s *orderService) SetOrderStatus(ctx context.Context, orderID, newStatus string) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, apperrors.ClientError("", "invalid status value: %s", newStatus)
	}

	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	// Setting the status an order already has is a no-op, so retrying
	// a network-failed call cannot double-apply.
	if order.Status == newStatus {
		return order, nil
	}

	if !transitionAllowed(models.OrderStatus(order.Status), models.OrderStatus(newStatus)) {
		return nil, apperrors.InvalidTransition(order.Status, newStatus)
	}

	applied, err := s.orderRepo.UpdateStatusCAS(orderID, order.Version, newStatus)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperrors.Conflict("order %s was modified concurrently, re-fetch and retry", orderID)
	}

	if models.OrderStatus(newStatus).IsTerminal() {
		s.invalidateProjection(ctx, order.TableID)
	}

	return s.GetOrder(orderID)
}

func (s *orderService) SetItemStatus(ctx context.Context, orderID, itemID, newStatus string) (*models.Order, error) {
	if !models.ValidItemStatus(newStatus) {
		return nil, apperrors.ClientError("", "invalid item status value: %s", newStatus)
	}

	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	var target *models.OrderItem
	for i := range order.Items {
		if order.Items[i].ItemID == itemID {
			target = &order.Items[i]
			break
		}
	}
	if target == nil {
		return nil, apperrors.NotFound("", "item %s not found in order %s", itemID, orderID)
	}

	if target.Status != newStatus {
		applied, err := s.orderRepo.UpdateItemStatusCAS(orderID, order.Version, itemID, newStatus)
		if err != nil {
			if err == repository.ErrItemNotFound {
				return nil, apperrors.NotFound("", "item %s not found in order %s", itemID, orderID)
			}
			return nil, err
		}
		if !applied {
			return nil, apperrors.Conflict("order %s was modified concurrently, re-fetch and retry", orderID)
		}
	}

	updated, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	s.cascadeOrderStatus(ctx, updated, newStatus)

	return s.GetOrder(orderID)
}

// cascadeOrderStatus promotes the order status when every item shares
// newStatus. A cascade into an invalid order-level transition, or one
// that loses a concurrent update race, is skipped rather than
// surfaced: the item update itself already succeeded.
func (s *orderService) cascadeOrderStatus(ctx context.Context, order *models.Order, newStatus string) {
	if order.Status == newStatus {
		return
	}
	for _, it := range order.Items {
		if it.Status != newStatus {
			return
		}
	}

	if !transitionAllowed(models.OrderStatus(order.Status), models.OrderStatus(newStatus)) {
		log.Printf("Skipping cascade for order %s: %s -> %s is not a valid order transition", order.OrderID, order.Status, newStatus)
		return
	}

	applied, err := s.orderRepo.UpdateStatusCAS(order.OrderID, order.Version, newStatus)
	if err != nil || !applied {
		log.Printf("Skipping cascade for order %s: %v (applied=%v)", order.OrderID, err, applied)
		return
	}

	if models.OrderStatus(newStatus).IsTerminal() {
		s.invalidateProjection(ctx, order.TableID)
	}
}

func (s *orderService) Cancel(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	// Cancelling an already-cancelled order returns it unchanged.
	if order.Status == string(models.OrderCancelled) {
		return order, nil
	}
	if order.Status == string(models.OrderCompleted) {
		return nil, apperrors.InvalidTransition(order.Status, string(models.OrderCancelled))
	}

	return s.SetOrderStatus(ctx, orderID, string(models.OrderCancelled))
}

func (s *orderService) Pause(ctx context.Context, orderID string) (*models.Order, error) {
	return s.SetOrderStatus(ctx, orderID, string(models.OrderPaused))
}

func (s *orderService) Resume(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != string(models.OrderPaused) {
		return nil, apperrors.InvalidTransition(order.Status, string(models.OrderInProgress))
	}
	return s.SetOrderStatus(ctx, orderID, string(models.OrderInProgress))
}

func (s *orderService) invalidateProjection(ctx context.Context, tableID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTableProjection(ctx, tableID); err != nil {
		log.Printf("Warning: could not invalidate table projection for %s: %v", tableID, err)
	}
}

func transitionAllowed(from, to models.OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"dinetrack/internal/apperrors"
	"dinetrack/internal/models"
	"dinetrack/internal/repository"

	"golang.org/x/sync/errgroup"
)

// menuLookupConcurrency caps parallel Menu service calls during a
// refresh pass.
const menuLookupConcurrency = 4

// RefreshResult reports the outcome of a reconciliation pass.
type RefreshResult struct {
	UpdatesApplied bool         `json:"updates_applied"`
	Bill           *models.Bill `json:"bill"`
}

// VerifyResult is a non-mutating consistency report for a bill.
type VerifyResult struct {
	BillID   string   `json:"bill_id"`
	Verified bool     `json:"verified"`
	Issues   []string `json:"issues"`
}

type BillService interface {
	Generate(ctx context.Context, orderID string) (*models.Bill, error)
	GetBill(ctx context.Context, billID string, autoRefresh bool) (*models.Bill, error)
	ListBills(tableID, status, paymentStatus string) ([]models.Bill, error)
	Refresh(ctx context.Context, billID string) (*RefreshResult, error)
	Verify(ctx context.Context, billID string) (*VerifyResult, error)
	UpdateBillStatus(ctx context.Context, billID, status string) (*models.Bill, error)
	UpdatePaymentStatus(ctx context.Context, billID, paymentStatus string) (*models.Bill, error)
}

type billService struct {
	billRepo      repository.BillRepository
	tableRepo     repository.TableRepository
	orderFetcher  OrderFetcher
	menuFetcher   MenuFetcher
	cache         Cache
	priceCacheTTL time.Duration
}

func NewBillService(
	billRepo repository.BillRepository,
	tableRepo repository.TableRepository,
	orderFetcher OrderFetcher,
	menuFetcher MenuFetcher,
	cache Cache,
	priceCacheTTL time.Duration,
) BillService {
	return &billService{
		billRepo:      billRepo,
		tableRepo:     tableRepo,
		orderFetcher:  orderFetcher,
		menuFetcher:   menuFetcher,
		cache:         cache,
		priceCacheTTL: priceCacheTTL,
	}
}

func (s *billService) Generate(ctx context.Context, orderID string) (*models.Bill, error) {
	// Fast path; the partial unique index still guards the race where
	// two generate calls pass this check together.
	existing, err := s.billRepo.GetActiveByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("a bill already exists for order %s", orderID)
	}

	order, err := s.orderFetcher.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != string(models.OrderCompleted) {
		return nil, apperrors.PreconditionFailed(
			"cannot create bill for order %s because its status is %s, not completed", orderID, order.Status)
	}
	if len(order.Items) == 0 {
		return nil, apperrors.PreconditionFailed("order %s has no items", orderID)
	}

	// The order's own recorded prices are authoritative at generation
	// time; no live menu lookup happens here.
	items := make([]models.BillLineItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, models.BillLineItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}

	bill := &models.Bill{
		BillID:        "bill-" + orderID,
		OrderID:       orderID,
		TableID:       order.TableID,
		Status:        string(models.BillOpen),
		PaymentStatus: models.PaymentPending,
		TotalAmount:   models.ComputeTotal(items),
		Items:         items,
	}

	if err := s.billRepo.Create(bill); err != nil {
		if err == repository.ErrDuplicateBill {
			return nil, apperrors.Conflict("a bill already exists for order %s", orderID)
		}
		return nil, err
	}

	// Bill creation keeps the table occupied until payment clears.
	if err := s.tableRepo.UpdateStatus(order.TableID, models.TableOccupied); err != nil {
		log.Printf("Warning: could not mark table %s occupied: %v", order.TableID, err)
	}
	s.invalidateProjection(ctx, order.TableID)

	return bill, nil
}

func (s *billService) GetBill(ctx context.Context, billID string, autoRefresh bool) (*models.Bill, error) {
	bill, err := s.getBill(billID)
	if err != nil {
		return nil, err
	}

	if autoRefresh && !bill.Immutable() {
		result, err := s.Refresh(ctx, billID)
		if err != nil {
			// Serve the stored bill when reconciliation cannot reach
			// the upstream services.
			log.Printf("Warning: auto-refresh of bill %s failed: %v", billID, err)
			return bill, nil
		}
		return result.Bill, nil
	}
	return bill, nil
}

func (s *billService) ListBills(tableID, status, paymentStatus string) ([]models.Bill, error) {
	return s.billRepo.List(tableID, status, paymentStatus)
}

func (s *billService) Refresh(ctx context.Context, billID string) (*RefreshResult, error) {
	bill, err := s.getBill(billID)
	if err != nil {
		return nil, err
	}

	// Paid or closed bills only accept read-refresh metadata.
	if bill.Immutable() {
		if err := s.billRepo.TouchRefreshed(billID); err != nil {
			return nil, err
		}
		return &RefreshResult{UpdatesApplied: false, Bill: bill}, nil
	}

	order, err := s.orderFetcher.GetOrder(ctx, bill.OrderID)
	if err != nil {
		return nil, err
	}

	refreshed, err := s.rebuildLineItems(ctx, order, bill)
	if err != nil {
		return nil, err
	}

	newStatus := bill.Status
	if bill.Status == string(models.BillOpen) &&
		(order.Status == string(models.OrderCompleted) || order.Status == string(models.OrderDelivered)) {
		newStatus = string(models.BillFinal)
	}

	newTotal := models.ComputeTotal(refreshed)
	changed := newStatus != bill.Status ||
		newTotal != bill.TotalAmount ||
		order.TableID != bill.TableID ||
		!sameLineItems(bill.Items, refreshed)

	if !changed {
		if err := s.billRepo.TouchRefreshed(billID); err != nil {
			return nil, err
		}
		return &RefreshResult{UpdatesApplied: false, Bill: bill}, nil
	}

	now := time.Now()
	bill.Items = refreshed
	bill.TotalAmount = newTotal
	bill.TableID = order.TableID
	bill.Status = newStatus
	bill.LastRefreshed = &now

	if err := s.billRepo.Update(bill); err != nil {
		return nil, err
	}

	updated, err := s.getBill(billID)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{UpdatesApplied: true, Bill: updated}, nil
}

// rebuildLineItems derives fresh line items from the order snapshot.
// Quantities, item membership and names follow the order; the price
// policy is: the live menu price wins when the Menu service answers,
// otherwise the bill's snapshot price is kept, falling back to the
// order's recorded price for items new to the bill.
func (s *billService) rebuildLineItems(ctx context.Context, order *models.Order, bill *models.Bill) ([]models.BillLineItem, error) {
	snapshot := make(map[string]models.BillLineItem, len(bill.Items))
	for _, it := range bill.Items {
		snapshot[it.ItemID] = it
	}

	// Each goroutine writes its own slot, so no locking is needed.
	items := make([]models.BillLineItem, len(order.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(menuLookupConcurrency)

	for i, orderItem := range order.Items {
		i, orderItem := i, orderItem
		g.Go(func() error {
			line := models.BillLineItem{
				ItemID:   orderItem.ItemID,
				Name:     orderItem.Name,
				Quantity: orderItem.Quantity,
				Price:    orderItem.Price,
			}
			if prev, ok := snapshot[orderItem.ItemID]; ok {
				line.Price = prev.Price
			}

			if menuItem := s.lookupMenuItem(gctx, orderItem.ItemID); menuItem != nil {
				line.Price = menuItem.Price
				if menuItem.Name != "" {
					line.Name = menuItem.Name
				}
			}

			items[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// lookupMenuItem consults the price cache before the Menu service and
// treats any failure as a miss.
func (s *billService) lookupMenuItem(ctx context.Context, itemID string) *models.MenuItem {
	if s.cache != nil {
		if item, err := s.cache.GetMenuItem(ctx, itemID); err == nil && item != nil {
			return item
		}
	}

	item, err := s.menuFetcher.GetItem(ctx, itemID)
	if err != nil {
		log.Printf("Menu lookup for item %s failed, keeping snapshot price: %v", itemID, err)
		return nil
	}

	if s.cache != nil {
		if err := s.cache.SetMenuItem(ctx, item, s.priceCacheTTL); err != nil {
			log.Printf("Warning: could not cache menu item %s: %v", itemID, err)
		}
	}
	return item
}

func (s *billService) Verify(ctx context.Context, billID string) (*VerifyResult, error) {
	bill, err := s.getBill(billID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{BillID: billID, Issues: []string{}}

	order, err := s.orderFetcher.GetOrder(ctx, bill.OrderID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			result.Issues = append(result.Issues, fmt.Sprintf("order %s not found in Order service", bill.OrderID))
			return result, nil
		}
		return nil, err
	}

	if order.TableID != bill.TableID {
		result.Issues = append(result.Issues,
			fmt.Sprintf("table mismatch: bill has %s, order has %s", bill.TableID, order.TableID))
	}

	billItems := make(map[string]models.BillLineItem, len(bill.Items))
	for _, it := range bill.Items {
		billItems[it.ItemID] = it
	}
	orderItems := make(map[string]models.OrderItem, len(order.Items))
	for _, it := range order.Items {
		orderItems[it.ItemID] = it
	}

	for id, orderItem := range orderItems {
		billItem, ok := billItems[id]
		if !ok {
			result.Issues = append(result.Issues,
				fmt.Sprintf("item %s (%s) in order but missing from bill", id, orderItem.Name))
			continue
		}
		if billItem.Quantity != orderItem.Quantity {
			result.Issues = append(result.Issues,
				fmt.Sprintf("quantity mismatch for item %s: bill has %d, order has %d", id, billItem.Quantity, orderItem.Quantity))
		}
	}
	for id, billItem := range billItems {
		if _, ok := orderItems[id]; !ok {
			result.Issues = append(result.Issues,
				fmt.Sprintf("item %s (%s) in bill but missing from order", id, billItem.Name))
		}
	}

	// Price drift against the current menu is reported, never fixed
	// here; Refresh owns reconciliation.
	ids := make([]string, 0, len(billItems))
	for id := range billItems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		billItem := billItems[id]
		if menuItem := s.lookupMenuItem(ctx, id); menuItem != nil && menuItem.Price != billItem.Price {
			result.Issues = append(result.Issues,
				fmt.Sprintf("price mismatch for item %s: bill has %d, menu has %d", id, billItem.Price, menuItem.Price))
		}
	}

	if got := models.ComputeTotal(bill.Items); got != bill.TotalAmount {
		result.Issues = append(result.Issues,
			fmt.Sprintf("total mismatch: bill has %d, line items sum to %d", bill.TotalAmount, got))
	}

	result.Verified = len(result.Issues) == 0
	return result, nil
}

// billTransitions is the bill status state machine. closed and
// cancelled are terminal.
var billTransitions = map[models.BillStatus][]models.BillStatus{
	models.BillOpen:      {models.BillFinal, models.BillClosed, models.BillCancelled},
	models.BillFinal:     {models.BillClosed, models.BillCancelled},
	models.BillClosed:    {},
	models.BillCancelled: {},
}

func (s *billService) UpdateBillStatus(ctx context.Context, billID, status string) (*models.Bill, error) {
	switch models.BillStatus(status) {
	case models.BillOpen, models.BillFinal, models.BillClosed, models.BillCancelled:
	default:
		return nil, apperrors.ClientError("", "invalid bill status value: %s", status)
	}

	bill, err := s.getBill(billID)
	if err != nil {
		return nil, err
	}

	if bill.Status == status {
		return bill, nil
	}
	if bill.Immutable() {
		return nil, apperrors.Conflict("bill %s is %s and can no longer be modified", billID, bill.Status)
	}
	if !billTransitionAllowed(models.BillStatus(bill.Status), models.BillStatus(status)) {
		return nil, apperrors.InvalidTransition(bill.Status, status)
	}

	if err := s.billRepo.UpdateStatus(billID, status, ""); err != nil {
		return nil, err
	}

	if status == string(models.BillClosed) || status == string(models.BillCancelled) {
		s.maybeReleaseTable(ctx, bill)
	}

	return s.getBill(billID)
}

func (s *billService) UpdatePaymentStatus(ctx context.Context, billID, paymentStatus string) (*models.Bill, error) {
	if paymentStatus != models.PaymentPending && paymentStatus != models.PaymentPaid {
		return nil, apperrors.ClientError("", "invalid payment status value: %s", paymentStatus)
	}

	bill, err := s.getBill(billID)
	if err != nil {
		return nil, err
	}

	if bill.PaymentStatus == paymentStatus {
		return bill, nil
	}
	if bill.Immutable() {
		return nil, apperrors.Conflict("bill %s is %s and can no longer be modified", billID, bill.Status)
	}

	// A paid bill that is still open is promoted to final.
	newStatus := ""
	if paymentStatus == models.PaymentPaid && bill.Status == string(models.BillOpen) {
		newStatus = string(models.BillFinal)
	}

	if err := s.billRepo.UpdateStatus(billID, newStatus, paymentStatus); err != nil {
		return nil, err
	}

	if paymentStatus == models.PaymentPaid {
		s.maybeReleaseTable(ctx, bill)
	}

	return s.getBill(billID)
}

// maybeReleaseTable frees the table once no other active bill holds
// it. Failures are logged, not surfaced: the bill mutation already
// committed.
func (s *billService) maybeReleaseTable(ctx context.Context, bill *models.Bill) {
	others, err := s.billRepo.ListActiveByTable(bill.TableID)
	if err != nil {
		log.Printf("Warning: could not check active bills for table %s: %v", bill.TableID, err)
		return
	}
	for _, other := range others {
		if other.BillID != bill.BillID {
			return
		}
	}

	if err := s.tableRepo.UpdateStatus(bill.TableID, models.TableAvailable); err != nil {
		log.Printf("Warning: could not release table %s: %v", bill.TableID, err)
	}
	s.invalidateProjection(ctx, bill.TableID)
}

func (s *billService) invalidateProjection(ctx context.Context, tableID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTableProjection(ctx, tableID); err != nil {
		log.Printf("Warning: could not invalidate table projection for %s: %v", tableID, err)
	}
}

func (s *billService) getBill(billID string) (*models.Bill, error) {
	bill, err := s.billRepo.GetByBillID(billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, apperrors.NotFound("", "bill %s not found", billID)
	}
	return bill, nil
}

func sameLineItems(a, b []models.BillLineItem) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[string]models.BillLineItem, len(a))
	for _, it := range a {
		index[it.ItemID] = it
	}
	for _, it := range b {
		prev, ok := index[it.ItemID]
		if !ok || prev.Name != it.Name || prev.Price != it.Price || prev.Quantity != it.Quantity {
			return false
		}
	}
	return true
}

func billTransitionAllowed(from, to models.BillStatus) bool {
	for _, next := range billTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

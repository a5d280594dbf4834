package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"dinetrack/internal/apperrors"
	"dinetrack/internal/models"
	"dinetrack/internal/repository"
)

// In-memory repository doubles. They copy on read and write the way the
// database-backed implementations do, so tests catch accidental
// aliasing of returned models.

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order

	// forceCASMiss makes every CAS update report a lost race.
	forceCASMiss bool
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order)}
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	return &c
}

func (r *fakeOrderRepo) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.OrderID] = copyOrder(order)
	return nil
}

func (r *fakeOrderRepo) GetByOrderID(orderID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	return copyOrder(order), nil
}

func (r *fakeOrderRepo) List(status, tableID string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if status != "" && o.Status != status {
			continue
		}
		if tableID != "" && o.TableID != tableID {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	return out, nil
}

func (r *fakeOrderRepo) ListActiveByTable(tableID string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.TableID != tableID {
			continue
		}
		for _, active := range models.ActiveOrderStatuses() {
			if o.Status == active {
				out = append(out, *copyOrder(o))
				break
			}
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatusCAS(orderID string, fromVersion int64, newStatus string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return false, nil
	}
	if r.forceCASMiss || order.Version != fromVersion {
		return false, nil
	}
	order.Status = newStatus
	order.Version++
	return true, nil
}

func (r *fakeOrderRepo) UpdateItemStatusCAS(orderID string, fromVersion int64, itemID, newStatus string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return false, nil
	}
	if r.forceCASMiss || order.Version != fromVersion {
		return false, nil
	}
	for i := range order.Items {
		if order.Items[i].ItemID == itemID {
			order.Items[i].Status = newStatus
			order.Version++
			return true, nil
		}
	}
	return false, repository.ErrItemNotFound
}

type fakeTableRepo struct {
	mu     sync.Mutex
	tables map[string]*models.Table
}

func newFakeTableRepo(tables ...*models.Table) *fakeTableRepo {
	r := &fakeTableRepo{tables: make(map[string]*models.Table)}
	for _, t := range tables {
		c := *t
		r.tables[t.TableID] = &c
	}
	return r
}

func (r *fakeTableRepo) Create(table *models.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *table
	r.tables[table.TableID] = &c
	return nil
}

func (r *fakeTableRepo) GetByTableID(tableID string) (*models.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[tableID]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r *fakeTableRepo) GetByNumber(number int) (*models.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tables {
		if t.TableNumber == number {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeTableRepo) GetAll() ([]models.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Table
	for _, t := range r.tables {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTableRepo) UpdateStatus(tableID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[tableID]
	if !ok {
		return repository.ErrTableNotFound
	}
	t.Status = status
	return nil
}

type fakeBillRepo struct {
	mu    sync.Mutex
	bills map[string]*models.Bill

	touched int
}

func newFakeBillRepo() *fakeBillRepo {
	return &fakeBillRepo{bills: make(map[string]*models.Bill)}
}

func copyBill(b *models.Bill) *models.Bill {
	c := *b
	c.Items = append([]models.BillLineItem(nil), b.Items...)
	return &c
}

func billActive(b *models.Bill) bool {
	for _, s := range models.ActiveBillStatuses() {
		if b.Status == s {
			return true
		}
	}
	return false
}

func (r *fakeBillRepo) Create(bill *models.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bills {
		if b.OrderID == bill.OrderID && b.Status != string(models.BillCancelled) {
			return repository.ErrDuplicateBill
		}
	}
	r.bills[bill.BillID] = copyBill(bill)
	return nil
}

func (r *fakeBillRepo) GetByBillID(billID string) (*models.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bills[billID]
	if !ok {
		return nil, nil
	}
	return copyBill(b), nil
}

func (r *fakeBillRepo) GetActiveByOrderID(orderID string) (*models.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bills {
		if b.OrderID == orderID && b.Status != string(models.BillCancelled) {
			return copyBill(b), nil
		}
	}
	return nil, nil
}

func (r *fakeBillRepo) List(tableID, status, paymentStatus string) ([]models.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Bill
	for _, b := range r.bills {
		if tableID != "" && b.TableID != tableID {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		if paymentStatus != "" && b.PaymentStatus != paymentStatus {
			continue
		}
		out = append(out, *copyBill(b))
	}
	return out, nil
}

func (r *fakeBillRepo) ListActive() ([]models.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Bill
	for _, b := range r.bills {
		if billActive(b) {
			out = append(out, *copyBill(b))
		}
	}
	return out, nil
}

func (r *fakeBillRepo) ListActiveByTable(tableID string) ([]models.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Bill
	for _, b := range r.bills {
		if b.TableID == tableID && billActive(b) {
			out = append(out, *copyBill(b))
		}
	}
	return out, nil
}

func (r *fakeBillRepo) Update(bill *models.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bills[bill.BillID]; !ok {
		return errors.New("bill not found")
	}
	r.bills[bill.BillID] = copyBill(bill)
	return nil
}

func (r *fakeBillRepo) UpdateStatus(billID, status, paymentStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bills[billID]
	if !ok {
		return errors.New("bill not found")
	}
	if status != "" {
		b.Status = status
	}
	if paymentStatus != "" {
		b.PaymentStatus = paymentStatus
	}
	return nil
}

func (r *fakeBillRepo) TouchRefreshed(billID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bills[billID]
	if !ok {
		return errors.New("bill not found")
	}
	now := time.Now()
	b.LastRefreshed = &now
	r.touched++
	return nil
}

// Upstream service doubles.

type fakeOrderFetcher struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	err    error
}

func newFakeOrderFetcher(orders ...*models.Order) *fakeOrderFetcher {
	f := &fakeOrderFetcher{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		f.orders[o.OrderID] = copyOrder(o)
	}
	return f
}

func (f *fakeOrderFetcher) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, apperrors.NotFound("orders", "order %s not found", orderID)
	}
	return copyOrder(o), nil
}

type fakeMenuFetcher struct {
	mu    sync.Mutex
	items map[string]*models.MenuItem
	err   error
	calls int
}

func newFakeMenuFetcher(items ...*models.MenuItem) *fakeMenuFetcher {
	f := &fakeMenuFetcher{items: make(map[string]*models.MenuItem)}
	for _, it := range items {
		c := *it
		f.items[it.ItemID] = &c
	}
	return f
}

func (f *fakeMenuFetcher) GetItem(ctx context.Context, itemID string) (*models.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	it, ok := f.items[itemID]
	if !ok {
		return nil, apperrors.NotFound("menu", "menu item %s not found", itemID)
	}
	c := *it
	return &c, nil
}

func (f *fakeMenuFetcher) setPrice(itemID string, price int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[itemID]; ok {
		it.Price = price
	}
}

type fakeCache struct {
	mu          sync.Mutex
	menuItems   map[string]*models.MenuItem
	projections map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		menuItems:   make(map[string]*models.MenuItem),
		projections: make(map[string]string),
	}
}

func (c *fakeCache) GetMenuItem(ctx context.Context, itemID string) (*models.MenuItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.menuItems[itemID], nil
}

func (c *fakeCache) SetMenuItem(ctx context.Context, item *models.MenuItem, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menuItems[item.ItemID] = item
	return nil
}

func (c *fakeCache) GetTableProjection(ctx context.Context, tableID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projections[tableID], nil
}

func (c *fakeCache) SetTableProjection(ctx context.Context, tableID, status string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projections[tableID] = status
	return nil
}

func (c *fakeCache) InvalidateTableProjection(ctx context.Context, tableID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.projections, tableID)
	return nil
}

package repository

import (
	"errors"
	"time"

	"dinetrack/internal/models"

	"gorm.io/gorm"
)

type BillRepository interface {
	// Create inserts a new bill. The partial unique index on
	// bills(order_id) rejects a second non-cancelled bill for the same
	// order; that violation surfaces as ErrDuplicateBill.
	Create(bill *models.Bill) error
	GetByBillID(billID string) (*models.Bill, error)
	GetActiveByOrderID(orderID string) (*models.Bill, error)
	List(tableID, status, paymentStatus string) ([]models.Bill, error)
	ListActive() ([]models.Bill, error)
	ListActiveByTable(tableID string) ([]models.Bill, error)
	// Update persists bill fields and replaces the line items.
	Update(bill *models.Bill) error
	UpdateStatus(billID, status, paymentStatus string) error
	// TouchRefreshed records that a reconciliation pass ran without
	// changing bill content.
	TouchRefreshed(billID string) error
}

// ErrDuplicateBill is returned when an active bill already exists for
// the order.
var ErrDuplicateBill = errors.New("active bill already exists for order")

type billRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) BillRepository {
	return &billRepository{db: db}
}

func (r *billRepository) Create(bill *models.Bill) error {
	err := r.db.Create(bill).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateBill
	}
	return err
}

func (r *billRepository) GetByBillID(billID string) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.Preload("Items").Where("bill_id = ?", billID).First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) GetActiveByOrderID(orderID string) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.Preload("Items").
		Where("order_id = ? AND status <> ?", orderID, string(models.BillCancelled)).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) List(tableID, status, paymentStatus string) ([]models.Bill, error) {
	query := r.db.Preload("Items").Order("created_at DESC")
	if tableID != "" {
		query = query.Where("table_id = ?", tableID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}

	var bills []models.Bill
	err := query.Find(&bills).Error
	return bills, err
}

func (r *billRepository) ListActive() ([]models.Bill, error) {
	var bills []models.Bill
	err := r.db.Preload("Items").
		Where("status IN ?", models.ActiveBillStatuses()).
		Find(&bills).Error
	return bills, err
}

func (r *billRepository) ListActiveByTable(tableID string) ([]models.Bill, error) {
	var bills []models.Bill
	err := r.db.Preload("Items").
		Where("table_id = ? AND status IN ?", tableID, models.ActiveBillStatuses()).
		Find(&bills).Error
	return bills, err
}

func (r *billRepository) Update(bill *models.Bill) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bill_ref = ?", bill.ID).Delete(&models.BillLineItem{}).Error; err != nil {
			return err
		}
		for i := range bill.Items {
			bill.Items[i].ID = 0
			bill.Items[i].BillRef = bill.ID
		}
		return tx.Save(bill).Error
	})
}

func (r *billRepository) UpdateStatus(billID, status, paymentStatus string) error {
	updates := map[string]interface{}{}
	if status != "" {
		updates["status"] = status
	}
	if paymentStatus != "" {
		updates["payment_status"] = paymentStatus
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Bill{}).Where("bill_id = ?", billID).Updates(updates).Error
}

func (r *billRepository) TouchRefreshed(billID string) error {
	return r.db.Model(&models.Bill{}).Where("bill_id = ?", billID).
		Update("last_refreshed", time.Now()).Error
}

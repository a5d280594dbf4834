package repository

import (
	"errors"

	"dinetrack/internal/models"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(order *models.Order) error
	GetByOrderID(orderID string) (*models.Order, error)
	List(status, tableID string) ([]models.Order, error)
	ListActiveByTable(tableID string) ([]models.Order, error)
	// UpdateStatusCAS applies a status change only if the order is
	// still at fromVersion; it reports false when a concurrent writer
	// got there first.
	UpdateStatusCAS(orderID string, fromVersion int64, newStatus string) (bool, error)
	// UpdateItemStatusCAS changes one item's status under the same
	// version guard, bumping the order version.
	UpdateItemStatusCAS(orderID string, fromVersion int64, itemID, newStatus string) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByOrderID(orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(status, tableID string) ([]models.Order, error) {
	query := r.db.Preload("Items").Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if tableID != "" {
		query = query.Where("table_id = ?", tableID)
	}

	var orders []models.Order
	err := query.Find(&orders).Error
	return orders, err
}

func (r *orderRepository) ListActiveByTable(tableID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").
		Where("table_id = ? AND status IN ?", tableID, models.ActiveOrderStatuses()).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) UpdateStatusCAS(orderID string, fromVersion int64, newStatus string) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("order_id = ? AND version = ?", orderID, fromVersion).
		Updates(map[string]interface{}{
			"status":  newStatus,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) UpdateItemStatusCAS(orderID string, fromVersion int64, itemID, newStatus string) (bool, error) {
	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// The version bump on the parent row serializes concurrent
		// writers touching the same order aggregate.
		result := tx.Model(&models.Order{}).
			Where("order_id = ? AND version = ?", orderID, fromVersion).
			Update("version", gorm.Expr("version + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var order models.Order
		if err := tx.Where("order_id = ?", orderID).First(&order).Error; err != nil {
			return err
		}

		result = tx.Model(&models.OrderItem{}).
			Where("order_ref = ? AND item_id = ?", order.ID, itemID).
			Update("status", newStatus)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Roll back the version bump; the aggregate is unchanged.
			return ErrItemNotFound
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// ErrItemNotFound is returned when the targeted item does not belong
// to the order.
var ErrItemNotFound = errors.New("order item not found")

package models

import (
	"time"
)

type Order struct {
	ID                  uint        `json:"-" gorm:"primaryKey"`
	OrderID             string      `json:"order_id" gorm:"uniqueIndex;not null"`
	TableID             string      `json:"table_id" gorm:"index;not null"`
	Status              string      `json:"status" gorm:"default:'received'"`
	SpecialInstructions string      `json:"special_instructions" gorm:"type:text"`
	KitchenNotes        string      `json:"kitchen_notes" gorm:"type:text"`
	Version             int64       `json:"version" gorm:"not null;default:1"`
	Items               []OrderItem `json:"items" gorm:"foreignKey:OrderRef;references:ID"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID       uint   `json:"-" gorm:"primaryKey"`
	OrderRef uint   `json:"-" gorm:"index;not null"`
	ItemID   string `json:"item_id" gorm:"not null"`
	// Name and Price are snapshots taken at order-creation time, not
	// live references to the menu catalog.
	Name      string    `json:"name" gorm:"not null"`
	Price     int64     `json:"price" gorm:"not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Notes     string    `json:"notes" gorm:"type:text"`
	Status    string    `json:"status" gorm:"default:'received'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderStatus values an order moves through. completed and cancelled
// are terminal.
type OrderStatus string

const (
	OrderReceived   OrderStatus = "received"
	OrderInProgress OrderStatus = "in-progress"
	OrderPaused     OrderStatus = "paused"
	OrderReady      OrderStatus = "ready"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// Item statuses are the kitchen-facing subset of the order statuses.
const (
	ItemReceived   = "received"
	ItemInProgress = "in-progress"
	ItemReady      = "ready"
)

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// ValidOrderStatus reports whether s names a known order status.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderReceived, OrderInProgress, OrderPaused, OrderReady, OrderDelivered, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// ValidItemStatus reports whether s is allowed for an order item.
func ValidItemStatus(s string) bool {
	return s == ItemReceived || s == ItemInProgress || s == ItemReady
}

// ActiveOrderStatuses are the statuses that keep a table occupied.
func ActiveOrderStatuses() []string {
	return []string{
		string(OrderReceived),
		string(OrderInProgress),
		string(OrderPaused),
		string(OrderReady),
		string(OrderDelivered),
	}
}

package models

import (
	"time"
)

type Bill struct {
	ID            uint           `json:"-" gorm:"primaryKey"`
	BillID        string         `json:"bill_id" gorm:"uniqueIndex;not null"`
	OrderID       string         `json:"order_id" gorm:"index;not null"`
	TableID       string         `json:"table_id" gorm:"index;not null"`
	Status        string         `json:"status" gorm:"default:'open'"`
	PaymentStatus string         `json:"payment_status" gorm:"default:'pending'"`
	TotalAmount   int64          `json:"total_amount" gorm:"not null"`
	Items         []BillLineItem `json:"items" gorm:"foreignKey:BillRef;references:ID"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	LastRefreshed *time.Time     `json:"last_refreshed,omitempty"`
}

type BillLineItem struct {
	ID       uint   `json:"-" gorm:"primaryKey"`
	BillRef  uint   `json:"-" gorm:"index;not null"`
	ItemID   string `json:"item_id" gorm:"not null"`
	Name     string `json:"name" gorm:"not null"`
	Price    int64  `json:"price" gorm:"not null"`
	Quantity int    `json:"quantity" gorm:"not null"`
}

type BillStatus string

const (
	BillOpen      BillStatus = "open"
	BillFinal     BillStatus = "final"
	BillClosed    BillStatus = "closed"
	BillCancelled BillStatus = "cancelled"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// ActiveBillStatuses are the bill statuses that keep a table occupied
// and block a second bill for the same order.
func ActiveBillStatuses() []string {
	return []string{string(BillOpen), string(BillFinal)}
}

// Immutable reports whether the bill may no longer be mutated. Closed
// and cancelled bills, and paid bills, only accept read-refresh
// metadata updates.
func (b *Bill) Immutable() bool {
	return b.Status == string(BillClosed) || b.Status == string(BillCancelled) || b.PaymentStatus == PaymentPaid
}

// ComputeTotal sums price*quantity over the line items.
func ComputeTotal(items []BillLineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

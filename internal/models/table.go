package models

import (
	"time"
)

type Table struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	TableID     string    `json:"table_id" gorm:"uniqueIndex;not null"`
	TableNumber int       `json:"table_number" gorm:"uniqueIndex;not null"`
	Capacity    int       `json:"capacity" gorm:"default:4"`
	Status      string    `json:"status" gorm:"default:'available'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableReserved  = "reserved"
)

// ValidTableStatus reports whether s names a known table status.
func ValidTableStatus(s string) bool {
	return s == TableAvailable || s == TableOccupied || s == TableReserved
}

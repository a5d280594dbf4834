package repository

import (
	"errors"

	"dinetrack/internal/models"

	"gorm.io/gorm"
)

// ErrTableNotFound is returned when a status update targets a table
// that does not exist.
var ErrTableNotFound = errors.New("table not found")

type TableRepository interface {
	Create(table *models.Table) error
	GetByTableID(tableID string) (*models.Table, error)
	GetByNumber(number int) (*models.Table, error)
	GetAll() ([]models.Table, error)
	UpdateStatus(tableID, status string) error
}

type tableRepository struct {
	db *gorm.DB
}

func NewTableRepository(db *gorm.DB) TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) Create(table *models.Table) error {
	return r.db.Create(table).Error
}

func (r *tableRepository) GetByTableID(tableID string) (*models.Table, error) {
	var table models.Table
	err := r.db.Where("table_id = ?", tableID).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

func (r *tableRepository) GetByNumber(number int) (*models.Table, error) {
	var table models.Table
	err := r.db.Where("table_number = ?", number).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

func (r *tableRepository) GetAll() ([]models.Table, error) {
	var tables []models.Table
	err := r.db.Order("table_number ASC").Find(&tables).Error
	return tables, err
}

func (r *tableRepository) UpdateStatus(tableID, status string) error {
	result := r.db.Model(&models.Table{}).Where("table_id = ?", tableID).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTableNotFound
	}
	return nil
}

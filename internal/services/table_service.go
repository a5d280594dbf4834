package services

import (
	"context"
	"log"
	"time"

	"dinetrack/internal/apperrors"
	"dinetrack/internal/models"
	"dinetrack/internal/repository"

	"github.com/google/uuid"
)

type CreateTableRequest struct {
	TableNumber int `json:"table_number" binding:"required"`
	Capacity    int `json:"capacity"`
}

type TableService interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	GetTable(ctx context.Context, tableID string) (*models.Table, error)
	CreateTable(req *CreateTableRequest) (*models.Table, error)
	SetStatus(ctx context.Context, tableID, status string) (*models.Table, error)
	// Project derives the table's effective occupancy from the
	// existence of active bills and orders.
	Project(ctx context.Context, tableID string) (string, error)
}

type tableService struct {
	tableRepo     repository.TableRepository
	orderRepo     repository.OrderRepository
	billRepo      repository.BillRepository
	cache         Cache
	projectionTTL time.Duration
}

func NewTableService(
	tableRepo repository.TableRepository,
	orderRepo repository.OrderRepository,
	billRepo repository.BillRepository,
	cache Cache,
	projectionTTL time.Duration,
) TableService {
	return &tableService{
		tableRepo:     tableRepo,
		orderRepo:     orderRepo,
		billRepo:      billRepo,
		cache:         cache,
		projectionTTL: projectionTTL,
	}
}

func (s *tableService) ListTables(ctx context.Context) ([]models.Table, error) {
	tables, err := s.tableRepo.GetAll()
	if err != nil {
		return nil, err
	}
	for i := range tables {
		status, err := s.Project(ctx, tables[i].TableID)
		if err != nil {
			log.Printf("Warning: could not project status for table %s: %v", tables[i].TableID, err)
			continue
		}
		tables[i].Status = status
	}
	return tables, nil
}

func (s *tableService) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	table, err := s.tableRepo.GetByTableID(tableID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, apperrors.NotFound("", "table %s not found", tableID)
	}

	status, err := s.Project(ctx, tableID)
	if err != nil {
		return nil, err
	}
	table.Status = status
	return table, nil
}

func (s *tableService) CreateTable(req *CreateTableRequest) (*models.Table, error) {
	existing, err := s.tableRepo.GetByNumber(req.TableNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("table number %d already exists", req.TableNumber)
	}

	capacity := req.Capacity
	if capacity <= 0 {
		capacity = 4
	}

	table := &models.Table{
		TableID:     uuid.NewString(),
		TableNumber: req.TableNumber,
		Capacity:    capacity,
		Status:      models.TableAvailable,
	}
	if err := s.tableRepo.Create(table); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *tableService) SetStatus(ctx context.Context, tableID, status string) (*models.Table, error) {
	if !models.ValidTableStatus(status) {
		return nil, apperrors.ClientError("", "status must be available, occupied or reserved")
	}

	if err := s.tableRepo.UpdateStatus(tableID, status); err != nil {
		if err == repository.ErrTableNotFound {
			return nil, apperrors.NotFound("", "table %s not found", tableID)
		}
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateTableProjection(ctx, tableID); err != nil {
			log.Printf("Warning: could not invalidate table projection for %s: %v", tableID, err)
		}
	}
	return s.tableRepo.GetByTableID(tableID)
}

// Project returns occupied while any non-closed, non-cancelled bill or
// any non-terminal order exists for the table; otherwise the manually
// set status is authoritative. The result is a read-time projection,
// cached briefly, and can lag the underlying state between polls.
func (s *tableService) Project(ctx context.Context, tableID string) (string, error) {
	if s.cache != nil {
		if status, err := s.cache.GetTableProjection(ctx, tableID); err == nil && status != "" {
			return status, nil
		}
	}

	status, err := s.derive(tableID)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.SetTableProjection(ctx, tableID, status, s.projectionTTL); err != nil {
			log.Printf("Warning: could not cache table projection for %s: %v", tableID, err)
		}
	}
	return status, nil
}

func (s *tableService) derive(tableID string) (string, error) {
	bills, err := s.billRepo.ListActiveByTable(tableID)
	if err != nil {
		return "", err
	}
	if len(bills) > 0 {
		return models.TableOccupied, nil
	}

	orders, err := s.orderRepo.ListActiveByTable(tableID)
	if err != nil {
		return "", err
	}
	if len(orders) > 0 {
		return models.TableOccupied, nil
	}

	table, err := s.tableRepo.GetByTableID(tableID)
	if err != nil {
		return "", err
	}
	if table == nil {
		return "", apperrors.NotFound("", "table %s not found", tableID)
	}
	if table.Status == models.TableReserved {
		return models.TableReserved, nil
	}
	return models.TableAvailable, nil
}

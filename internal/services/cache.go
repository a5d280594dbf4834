package services

import (
	"context"
	"time"

	"dinetrack/internal/models"
)

// Cache is the subset of the redis client the services rely on. A nil
// Cache disables caching.
type Cache interface {
	GetMenuItem(ctx context.Context, itemID string) (*models.MenuItem, error)
	SetMenuItem(ctx context.Context, item *models.MenuItem, ttl time.Duration) error
	GetTableProjection(ctx context.Context, tableID string) (string, error)
	SetTableProjection(ctx context.Context, tableID, status string, ttl time.Duration) error
	InvalidateTableProjection(ctx context.Context, tableID string) error
}

// OrderFetcher pulls authoritative order snapshots from the Order
// service.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// MenuFetcher pulls current catalog entries from the Menu service.
type MenuFetcher interface {
	GetItem(ctx context.Context, itemID string) (*models.MenuItem, error)
}

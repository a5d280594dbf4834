package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dinetrack/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Menu price cache. Bill refresh hits the Menu service per line item,
// so recent lookups are kept for a short TTL.

func (c *Client) SetMenuItem(ctx context.Context, item *models.MenuItem, ttl time.Duration) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal menu item: %w", err)
	}
	return c.rdb.Set(ctx, "menu_item:"+item.ItemID, data, ttl).Err()
}

func (c *Client) GetMenuItem(ctx context.Context, itemID string) (*models.MenuItem, error) {
	val, err := c.rdb.Get(ctx, "menu_item:"+itemID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}

	var item models.MenuItem
	if err := json.Unmarshal([]byte(val), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal menu item: %w", err)
	}
	return &item, nil
}

// Table projection cache. Projections are re-derived on read, so a
// short TTL keeps repeated polls from hammering the database.

func (c *Client) SetTableProjection(ctx context.Context, tableID, status string, ttl time.Duration) error {
	return c.rdb.Set(ctx, "table_projection:"+tableID, status, ttl).Err()
}

func (c *Client) GetTableProjection(ctx context.Context, tableID string) (string, error) {
	val, err := c.rdb.Get(ctx, "table_projection:"+tableID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to get table projection: %w", err)
	}
	return val, nil
}

func (c *Client) InvalidateTableProjection(ctx context.Context, tableID string) error {
	return c.rdb.Del(ctx, "table_projection:"+tableID).Err()
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

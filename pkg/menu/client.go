package menu

import (
	"context"
	"net/url"

	"dinetrack/internal/models"
	"dinetrack/pkg/resilient"
)

// Client is a typed client for the Menu service.
type Client struct {
	rc *resilient.Client
}

func NewClient(rc *resilient.Client) *Client {
	return &Client{rc: rc}
}

// GetItem fetches the current catalog entry for a menu item.
func (c *Client) GetItem(ctx context.Context, itemID string) (*models.MenuItem, error) {
	resp, err := c.rc.Do(ctx, resilient.Request{
		Method: "GET",
		Path:   "/api/menu-items/" + url.PathEscape(itemID),
	})
	if err != nil {
		return nil, err
	}

	var item models.MenuItem
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}
	if item.ItemID == "" {
		item.ItemID = itemID
	}
	return &item, nil
}

// ListItems fetches the full catalog.
func (c *Client) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	resp, err := c.rc.Do(ctx, resilient.Request{
		Method: "GET",
		Path:   "/api/menu-items",
	})
	if err != nil {
		return nil, err
	}

	var items []models.MenuItem
	if err := resp.Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

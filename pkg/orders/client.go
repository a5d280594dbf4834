package orders

import (
	"context"
	"net/url"

	"dinetrack/internal/apperrors"
	"dinetrack/internal/models"
	"dinetrack/pkg/resilient"
)

// Client is a typed client for the Order service API.
type Client struct {
	rc *resilient.Client

	// cancelStrategies is the ordered list of attempts used by Cancel.
	// The dedicated cancel endpoint goes first so the backend can run
	// cancellation side effects; the generic status update is the
	// fallback when that route is unavailable.
	cancelStrategies []cancelStrategy
}

type cancelStrategy func(ctx context.Context, orderID string) (*models.Order, error)

func NewClient(rc *resilient.Client) *Client {
	c := &Client{rc: rc}
	c.cancelStrategies = []cancelStrategy{c.cancelViaEndpoint, c.cancelViaStatusUpdate}
	return c
}

// GetOrder fetches a single order snapshot.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	resp, err := c.rc.Do(ctx, resilient.Request{
		Method: "GET",
		Path:   "/orders/" + url.PathEscape(orderID),
	})
	if err != nil {
		return nil, err
	}
	return decodeOrder(resp)
}

// ListOrders fetches orders filtered by status and/or table.
func (c *Client) ListOrders(ctx context.Context, status, tableID string) ([]models.Order, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if tableID != "" {
		q.Set("table_id", tableID)
	}

	resp, err := c.rc.Do(ctx, resilient.Request{
		Method: "GET",
		Path:   "/orders",
		Query:  q.Encode(),
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Orders []models.Order `json:"orders"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

// SetStatus requests an order-level status transition.
func (c *Client) SetStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	resp, err := c.rc.Do(ctx, resilient.Request{
		Method: "PUT",
		Path:   "/orders/" + url.PathEscape(orderID) + "/status",
		Body:   map[string]string{"status": status},
	})
	if err != nil {
		return nil, err
	}
	return decodeOrder(resp)
}

// SetItemStatus requests an item-level status change.
func (c *Client) SetItemStatus(ctx context.Context, orderID, itemID, status string) (*models.Order, error) {
	resp, err := c.rc.Do(ctx, resilient.Request{
		Method: "PUT",
		Path:   "/orders/" + url.PathEscape(orderID) + "/items/" + url.PathEscape(itemID),
		Body:   map[string]string{"status": status},
	})
	if err != nil {
		return nil, err
	}
	return decodeOrder(resp)
}

// Cancel cancels an order, walking the strategy list in order. A
// NotFound from the dedicated endpoint means the route is absent on
// this backend, so the generic status update is tried next; any other
// failure from a strategy is final.
func (c *Client) Cancel(ctx context.Context, orderID string) (*models.Order, error) {
	var lastErr error
	for _, strategy := range c.cancelStrategies {
		order, err := strategy(ctx, orderID)
		if err == nil {
			return order, nil
		}
		lastErr = err
		if !routeUnavailable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) cancelViaEndpoint(ctx context.Context, orderID string) (*models.Order, error) {
	resp, err := c.rc.Do(ctx, resilient.Request{
		Method: "POST",
		Path:   "/orders/" + url.PathEscape(orderID) + "/cancel",
	})
	if err != nil {
		return nil, err
	}
	return decodeOrder(resp)
}

func (c *Client) cancelViaStatusUpdate(ctx context.Context, orderID string) (*models.Order, error) {
	return c.SetStatus(ctx, orderID, string(models.OrderCancelled))
}

// routeUnavailable reports whether the failure indicates the attempted
// route cannot serve the request at all, as opposed to a definitive
// answer about the order.
func routeUnavailable(err error) bool {
	return apperrors.IsKind(err, apperrors.KindNotFound) ||
		apperrors.IsKind(err, apperrors.KindServiceUnavailable) ||
		apperrors.IsKind(err, apperrors.KindTimeout)
}

func decodeOrder(resp *resilient.Response) (*models.Order, error) {
	var order models.Order
	if err := resp.Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

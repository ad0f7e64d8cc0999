package gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/coachpo/traderdesk/internal/domain/schema"
)

func itemPath(resource string, id int) string {
	return "/" + resource + "/" + strconv.Itoa(id)
}

func list[T any](ctx context.Context, c *Client, resource string) ([]T, error) {
	raw, err := c.do(ctx, http.MethodGet, resource, "/"+resource, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](resource, raw)
}

// ListOrders fetches GET /orders.
func (c *Client) ListOrders(ctx context.Context) ([]schema.Order, error) {
	return list[schema.Order](ctx, c, ResourceOrders)
}

// ListExecutions fetches GET /executions.
func (c *Client) ListExecutions(ctx context.Context) ([]schema.Execution, error) {
	return list[schema.Execution](ctx, c, ResourceExecutions)
}

// ListInstruments fetches GET /instruments.
func (c *Client) ListInstruments(ctx context.Context) ([]schema.Instrument, error) {
	return list[schema.Instrument](ctx, c, ResourceInstruments)
}

// ListMarketData fetches GET /marketdata.
func (c *Client) ListMarketData(ctx context.Context) ([]schema.MarketData, error) {
	return list[schema.MarketData](ctx, c, ResourceMarketData)
}

// GetOrder fetches GET /orders/:id.
func (c *Client) GetOrder(ctx context.Context, id int) (schema.Order, error) {
	var order schema.Order
	raw, err := c.do(ctx, http.MethodGet, ResourceOrders, itemPath(ResourceOrders, id), nil)
	if err != nil {
		return order, err
	}
	err = decodeOne(ResourceOrders, raw, &order)
	return order, err
}

// GetExecution fetches GET /executions/:id.
func (c *Client) GetExecution(ctx context.Context, id int) (schema.Execution, error) {
	var exec schema.Execution
	raw, err := c.do(ctx, http.MethodGet, ResourceExecutions, itemPath(ResourceExecutions, id), nil)
	if err != nil {
		return exec, err
	}
	err = decodeOne(ResourceExecutions, raw, &exec)
	return exec, err
}

// CreateOrder submits POST /orders. Gateways that answer with an empty body
// yield a zero Order.
func (c *Client) CreateOrder(ctx context.Context, req schema.NewOrderRequest) (schema.Order, error) {
	var order schema.Order
	raw, err := c.do(ctx, http.MethodPost, ResourceOrders, "/"+ResourceOrders, req)
	if err != nil {
		return order, err
	}
	err = decodeOne(ResourceOrders, raw, &order)
	return order, err
}

// AmendOrder submits PATCH /orders/:id with the quantity-only payload.
func (c *Client) AmendOrder(ctx context.Context, id int, req schema.AmendRequest) (schema.Order, error) {
	var order schema.Order
	raw, err := c.do(ctx, http.MethodPatch, ResourceOrders, itemPath(ResourceOrders, id), req)
	if err != nil {
		return order, err
	}
	err = decodeOne(ResourceOrders, raw, &order)
	return order, err
}

// CancelOrder submits DELETE /orders/:id.
func (c *Client) CancelOrder(ctx context.Context, id int) error {
	_, err := c.do(ctx, http.MethodDelete, ResourceOrders, itemPath(ResourceOrders, id), nil)
	return err
}

// RequestSecurityDefinition submits POST /securitydefinitionrequest.
func (c *Client) RequestSecurityDefinition(ctx context.Context, req schema.SecurityDefinitionRequest) error {
	_, err := c.do(ctx, http.MethodPost, ResourceSecDefRequest, "/"+ResourceSecDefRequest, req)
	return err
}

// RequestMarketData submits POST /marketdatarequest.
func (c *Client) RequestMarketData(ctx context.Context, req schema.MarketDataRequest) error {
	_, err := c.do(ctx, http.MethodPost, ResourceMarketDataReq, "/"+ResourceMarketDataReq, req)
	return err
}

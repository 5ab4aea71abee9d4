package venue

import (
	"context"
	"fmt"

	"predictarb/internal/executor"
	"predictarb/internal/money"
)

// Router dispatches executor.VenueClient calls to the RESTClient registered
// for the venue named in each call, so a single Executor can trade across
// every configured venue without knowing about transport.
type Router struct {
	clients map[string]*RESTClient
}

// NewRouter builds a Router with no registered venues.
func NewRouter() *Router {
	return &Router{clients: make(map[string]*RESTClient)}
}

// Register adds or replaces the client used for venueName.
func (r *Router) Register(venueName string, client *RESTClient) {
	r.clients[venueName] = client
}

func (r *Router) clientFor(venueName string) (*RESTClient, error) {
	c, ok := r.clients[venueName]
	if !ok {
		return nil, fmt.Errorf("no client registered for venue %q", venueName)
	}
	return c, nil
}

func (r *Router) PlaceLimit(ctx context.Context, venueName, token string, qty money.Size, price money.Price, side executor.Side) (string, error) {
	c, err := r.clientFor(venueName)
	if err != nil {
		return "", err
	}
	return c.PlaceLimit(ctx, venueName, token, qty, price, side)
}

func (r *Router) Cancel(ctx context.Context, venueName, orderID string) error {
	c, err := r.clientFor(venueName)
	if err != nil {
		return err
	}
	return c.Cancel(ctx, venueName, orderID)
}

func (r *Router) GetOrder(ctx context.Context, venueName, orderID string) (money.Size, executor.OrderStatus, error) {
	c, err := r.clientFor(venueName)
	if err != nil {
		return money.Size{}, executor.StatusFailed, err
	}
	return c.GetOrder(ctx, venueName, orderID)
}

func (r *Router) PlaceMarket(ctx context.Context, venueName, token string, qty money.Size, side executor.Side) (executor.OrderResult, error) {
	c, err := r.clientFor(venueName)
	if err != nil {
		return executor.OrderResult{}, err
	}
	return c.PlaceMarket(ctx, venueName, token, qty, side)
}

func (r *Router) Balance(ctx context.Context, venueName, token string) (money.Size, error) {
	c, err := r.clientFor(venueName)
	if err != nil {
		return money.Size{}, err
	}
	return c.Balance(ctx, venueName, token)
}

func (r *Router) BestAsk(ctx context.Context, venueName, token string) (money.Price, error) {
	c, err := r.clientFor(venueName)
	if err != nil {
		return money.Price{}, err
	}
	return c.BestAsk(ctx, venueName, token)
}

package venue

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"predictarb/internal/executor"
	"predictarb/internal/money"
)

// orderRequest - тело запроса на размещение лимитного ордера, в форме,
// общей для CLOB-style REST API (Polymarket/Kalshi).
type orderRequest struct {
	TokenID string `json:"token_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
}

type orderResponse struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	MatchedSize string `json:"matched_size"`
}

type bookLevelDTO struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookResponse struct {
	Asks []bookLevelDTO `json:"asks"`
	Bids []bookLevelDTO `json:"bids"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

// RESTClient - тонкий клиент исполнения заказов для одного venue, реализующий
// executor.VenueClient поверх resty с ретраями на 5xx, по образцу клиента
// биржи CLOB API.
type RESTClient struct {
	venue string
	http  *resty.Client
	log   *zap.Logger
}

// NewRESTClient создает клиент исполнения для venue с заданным базовым URL.
// apiKey, если не пуст, добавляется как Bearer-токен ко всем запросам; вызывающая
// сторона (cmd/server) расшифровывает его из VenueConfig.APIKeyEncrypted перед
// вызовом — RESTClient работы с ключом в зашифрованном виде не знает.
func NewRESTClient(venueName, baseURL, apiKey string, log *zap.Logger) *RESTClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json")

	if apiKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &RESTClient{venue: venueName, http: httpClient, log: log}
}

func sideString(side executor.Side) string {
	if side == executor.Yes {
		return "buy"
	}
	return "sell"
}

func parseOrderStatus(status string) executor.OrderStatus {
	switch status {
	case "filled":
		return executor.StatusFilled
	case "partially_filled", "partial":
		return executor.StatusPartiallyFilled
	case "cancelled", "canceled":
		return executor.StatusCancelled
	case "failed", "rejected":
		return executor.StatusFailed
	default:
		return executor.StatusPlaced
	}
}

// PlaceLimit размещает лимитный ордер по токену на стороне venue.
func (c *RESTClient) PlaceLimit(ctx context.Context, venueName, token string, qty money.Size, price money.Price, side executor.Side) (string, error) {
	var result orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orderRequest{TokenID: token, Price: price.String(), Size: qty.String(), Side: sideString(side)}).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return "", fmt.Errorf("%s: place limit: %w", c.venue, err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("%s: place limit: status %d: %s", c.venue, resp.StatusCode(), resp.String())
	}
	return result.OrderID, nil
}

// Cancel отменяет ранее размещенный ордер.
func (c *RESTClient) Cancel(ctx context.Context, venueName, orderID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/orders/" + orderID)
	if err != nil {
		return fmt.Errorf("%s: cancel: %w", c.venue, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("%s: cancel: status %d: %s", c.venue, resp.StatusCode(), resp.String())
	}
	return nil
}

// GetOrder опрашивает статус и заполненный объем ордера.
func (c *RESTClient) GetOrder(ctx context.Context, venueName, orderID string) (money.Size, executor.OrderStatus, error) {
	var result orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/orders/" + orderID)
	if err != nil {
		return money.Size{}, executor.StatusFailed, fmt.Errorf("%s: get order: %w", c.venue, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return money.Size{}, executor.StatusFailed, fmt.Errorf("%s: get order: status %d: %s", c.venue, resp.StatusCode(), resp.String())
	}
	return money.NewSize(result.MatchedSize), parseOrderStatus(result.Status), nil
}

// PlaceMarket размещает рыночный ордер и возвращает его немедленный результат.
func (c *RESTClient) PlaceMarket(ctx context.Context, venueName, token string, qty money.Size, side executor.Side) (executor.OrderResult, error) {
	var result orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orderRequest{TokenID: token, Size: qty.String(), Side: sideString(side)}).
		SetResult(&result).
		Post("/orders/market")
	if err != nil {
		return executor.OrderResult{}, fmt.Errorf("%s: place market: %w", c.venue, err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return executor.OrderResult{}, fmt.Errorf("%s: place market: status %d: %s", c.venue, resp.StatusCode(), resp.String())
	}
	return executor.OrderResult{
		OrderID:     result.OrderID,
		MatchedSize: money.NewSize(result.MatchedSize),
		Status:      parseOrderStatus(result.Status),
	}, nil
}

// Balance возвращает доступный баланс по токену.
func (c *RESTClient) Balance(ctx context.Context, venueName, token string) (money.Size, error) {
	var result balanceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token_id", token).
		SetResult(&result).
		Get("/balance")
	if err != nil {
		return money.Size{}, fmt.Errorf("%s: balance: %w", c.venue, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return money.Size{}, fmt.Errorf("%s: balance: status %d: %s", c.venue, resp.StatusCode(), resp.String())
	}
	return money.NewSize(result.Balance), nil
}

// BestAsk возвращает текущую лучшую цену продажи по токену (используется
// пред-проверкой исполнителя для обнаружения устаревшей котировки).
func (c *RESTClient) BestAsk(ctx context.Context, venueName, token string) (money.Price, error) {
	var result bookResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token_id", token).
		SetResult(&result).
		Get("/book")
	if err != nil {
		return money.Price{}, fmt.Errorf("%s: best ask: %w", c.venue, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return money.Price{}, fmt.Errorf("%s: best ask: status %d: %s", c.venue, resp.StatusCode(), resp.String())
	}
	if len(result.Asks) == 0 {
		return money.Price{}, fmt.Errorf("%s: best ask: empty book for %s", c.venue, token)
	}
	return money.NewPrice(result.Asks[0].Price), nil
}

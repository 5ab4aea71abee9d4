package models

import "time"

// Статусы ордера на исполнение одной ноги сделки
const (
	OrderStatusPlaced         = "placed"
	OrderStatusFilled         = "filled"
	OrderStatusPartiallyFilled = "partially_filled"
	OrderStatusCancelled      = "cancelled"
	OrderStatusRejected       = "rejected"
)

// OrderRecord представляет запись об исполнении одной ноги арбитражной
// сделки (покупка YES или NO токена на конкретном venue)
type OrderRecord struct {
	ID           int        `json:"id" db:"id"`
	MarketID     string     `json:"market_id" db:"market_id"`
	Venue        string     `json:"venue" db:"venue"`
	Token        string     `json:"token" db:"token"` // условный ID YES/NO токена на venue
	Side         string     `json:"side" db:"side"`   // yes, no
	OrderType    string     `json:"order_type" db:"order_type"` // limit, market
	Quantity     float64    `json:"quantity" db:"quantity"`
	PriceAvg     float64    `json:"price_avg" db:"price_avg"`
	Fee          float64    `json:"fee" db:"fee"`
	Status       string     `json:"status" db:"status"`
	ErrorMessage string     `json:"error_message" db:"error_message"`
	VenueOrderID string     `json:"venue_order_id" db:"venue_order_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	FilledAt     *time.Time `json:"filled_at,omitempty" db:"filled_at"`
}

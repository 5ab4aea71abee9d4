package websocket

import (
	"time"

	"predictarb/internal/detector"
	"predictarb/internal/models"
	"predictarb/internal/orderbook"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeBookTop - обновление лучших цен/объемов по рынку
	// Отправляется конвейером на каждом проходе для каждого рынка со стаканом
	MessageTypeBookTop MessageType = "bookTop"

	// MessageTypeOpportunityFound - обнаружена арбитражная возможность
	// Отправляется конвейером сразу после того, как детектор вернул сигнал
	MessageTypeOpportunityFound MessageType = "opportunityFound"

	// MessageTypeOrderFill - нога арбитражной сделки исполнена
	// Отправляется конвейером один раз на исполненный план, после записи ордера YES-ноги
	MessageTypeOrderFill MessageType = "orderFill"

	// MessageTypeStatsUpdate - обновление статистики
	// Отправляется при изменении агрегированной статистики
	MessageTypeStatsUpdate MessageType = "statsUpdate"

	// MessageTypeNotification - операторское уведомление
	// Отправляется при создании записи в журнале уведомлений
	MessageTypeNotification MessageType = "notification"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// BookTopMessage - сообщение о лучших ценах стакана рынка
//
// Содержит верхний уровень обеих сторон (YES/NO) для одного рынка на одном
// venue, как видит его Store.
type BookTopMessage struct {
	BaseMessage
	Data *BookTopData `json:"data"`
}

// BookTopData - верхние уровни стакана рынка
type BookTopData struct {
	MarketID  string     `json:"market_id"`
	Venue     string     `json:"venue"`
	YesBestAsk *PriceLevelData `json:"yes_best_ask,omitempty"`
	YesBestBid *PriceLevelData `json:"yes_best_bid,omitempty"`
	NoBestAsk  *PriceLevelData `json:"no_best_ask,omitempty"`
	NoBestBid  *PriceLevelData `json:"no_best_bid,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// PriceLevelData - одна ценовая точка стакана
type PriceLevelData struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OpportunityFoundMessage - сообщение об обнаружении арбитражной возможности
type OpportunityFoundMessage struct {
	BaseMessage
	Data *OpportunityData `json:"data"`
}

// OpportunityData - данные об обнаруженной возможности
type OpportunityData struct {
	Kind           string    `json:"kind"` // spread_arb, cross_venue_arb
	MarketID       string    `json:"market_id,omitempty"`
	Venue          string    `json:"venue,omitempty"`
	YesMarketID    string    `json:"yes_market_id,omitempty"`
	YesVenue       string    `json:"yes_venue,omitempty"`
	NoMarketID     string    `json:"no_market_id,omitempty"`
	NoVenue        string    `json:"no_venue,omitempty"`
	YesPrice       string    `json:"yes_price"`
	NoPrice        string    `json:"no_price"`
	Spread         string    `json:"spread"`
	ProfitAbsolute string    `json:"profit_absolute"`
	ProfitPct      float64   `json:"profit_pct"`
	EndTime        time.Time `json:"end_time"`
	DetectedAt     time.Time `json:"detected_at"`
}

// OrderFillMessage - сообщение об исполнении ноги арбитражной сделки
type OrderFillMessage struct {
	BaseMessage
	Data *OrderFillData `json:"data"`
}

// OrderFillData - данные об исполненной ноге (зеркалит OrderRecord)
type OrderFillData struct {
	ID           int        `json:"id"`
	MarketID     string     `json:"market_id"`
	Venue        string     `json:"venue"`
	Side         string     `json:"side"`
	Quantity     float64    `json:"quantity"`
	PriceAvg     float64    `json:"price_avg"`
	Fee          float64    `json:"fee"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	FilledAt     *time.Time `json:"filled_at,omitempty"`
}

// StatsUpdateMessage - сообщение об обновлении статистики
type StatsUpdateMessage struct {
	BaseMessage
	Data *models.Stats `json:"data"`
}

// ============ Фабричные функции для создания сообщений ============

// NewBookTopMessage создает сообщение об обновлении верхних уровней стакана.
func NewBookTopMessage(book orderbook.MarketBook) *BookTopMessage {
	data := &BookTopData{
		MarketID:  book.MarketID,
		Venue:     book.Venue,
		UpdatedAt: latestUpdate(book.Yes.UpdatedAt, book.No.UpdatedAt),
	}

	if ask, ok := book.Yes.BestAsk(); ok {
		data.YesBestAsk = &PriceLevelData{Price: ask.Price.String(), Size: ask.Size.String()}
	}
	if bid, ok := book.Yes.BestBid(); ok {
		data.YesBestBid = &PriceLevelData{Price: bid.Price.String(), Size: bid.Size.String()}
	}
	if ask, ok := book.No.BestAsk(); ok {
		data.NoBestAsk = &PriceLevelData{Price: ask.Price.String(), Size: ask.Size.String()}
	}
	if bid, ok := book.No.BestBid(); ok {
		data.NoBestBid = &PriceLevelData{Price: bid.Price.String(), Size: bid.Size.String()}
	}

	return &BookTopMessage{
		BaseMessage: BaseMessage{Type: MessageTypeBookTop, Timestamp: time.Now()},
		Data:        data,
	}
}

func latestUpdate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// NewOpportunityFoundMessage создает сообщение об обнаруженной возможности.
func NewOpportunityFoundMessage(opp detector.Opportunity) *OpportunityFoundMessage {
	return &OpportunityFoundMessage{
		BaseMessage: BaseMessage{Type: MessageTypeOpportunityFound, Timestamp: time.Now()},
		Data: &OpportunityData{
			Kind:           opp.Kind.String(),
			MarketID:       opp.MarketID,
			Venue:          opp.Venue,
			YesMarketID:    opp.YesMarketID,
			YesVenue:       opp.YesVenue,
			NoMarketID:     opp.NoMarketID,
			NoVenue:        opp.NoVenue,
			YesPrice:       opp.YesPrice.String(),
			NoPrice:        opp.NoPrice.String(),
			Spread:         opp.Spread.String(),
			ProfitAbsolute: opp.ProfitAbsolute.String(),
			ProfitPct:      opp.ProfitPct,
			EndTime:        opp.EndTime,
			DetectedAt:     opp.DetectedAt,
		},
	}
}

// NewOrderFillMessage создает сообщение об исполнении ноги сделки.
func NewOrderFillMessage(order *models.OrderRecord) *OrderFillMessage {
	return &OrderFillMessage{
		BaseMessage: BaseMessage{Type: MessageTypeOrderFill, Timestamp: time.Now()},
		Data: &OrderFillData{
			ID:           order.ID,
			MarketID:     order.MarketID,
			Venue:        order.Venue,
			Side:         order.Side,
			Quantity:     order.Quantity,
			PriceAvg:     order.PriceAvg,
			Fee:          order.Fee,
			Status:       order.Status,
			ErrorMessage: order.ErrorMessage,
			FilledAt:     order.FilledAt,
		},
	}
}

// NewStatsUpdateMessage создает сообщение обновления статистики.
func NewStatsUpdateMessage(stats *models.Stats) *StatsUpdateMessage {
	return &StatsUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeStatsUpdate, Timestamp: time.Now()},
		Data:        stats,
	}
}

// NotificationMessage - сообщение об операторском уведомлении.
type NotificationMessage struct {
	BaseMessage
	Data *models.Notification `json:"data"`
}

// NewNotificationMessage создает сообщение об уведомлении.
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{Type: MessageTypeNotification, Timestamp: time.Now()},
		Data:        notif,
	}
}

package websocket

import (
	"bytes"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"predictarb/internal/detector"
	"predictarb/internal/models"
	"predictarb/internal/orderbook"
)

// jsonBufferPool убирает аллокации при каждом Broadcast.
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// byteSlicePool переиспользует буферы под готовые (уже сериализованные)
// сообщения, передаваемые в BroadcastRaw.
var byteSlicePool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 512)
		return &b
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер для broadcast сообщений всем подключенным клиентам.
// Обеспечивает real-time обновления данных на frontend без необходимости polling.
//
// Типы сообщений:
//   - bookTop: верхние уровни стакана рынка
//   - opportunityFound: обнаруженная арбитражная возможность
//   - orderFill: исполнение ноги сделки
//   - statsUpdate: обновление агрегированной статистики
//   - notification: операторское уведомление
//
// Использование:
// 1. Создать hub: hub := NewHub()
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.BroadcastBookTop(...)
// 4. Остановить: hub.Stop()
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}

	mu sync.RWMutex

	dropped int64
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Возвращается после вызова Stop().
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Client connected. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Client disconnected. Total clients: %d", len(h.clients))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
				log.Printf("Removed %d slow clients. Total clients: %d", len(toRemove), len(h.clients))
			}
		}
	}
}

// Stop останавливает Run() и закрывает все клиентские соединения.
func (h *Hub) Stop() {
	close(h.stop)
}

// Broadcast сериализует message и рассылает его всем подключенным клиентам.
// Не блокирует: если внутренний канал переполнен, сообщение отбрасывается
// и учитывается в DroppedMessages.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		log.Printf("Error marshaling broadcast message: %v", err)
		jsonBufferPool.Put(buf)
		return
	}

	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.BroadcastRaw(msgCopy)
}

// BroadcastRaw рассылает уже сериализованные байты без блокировки.
func (h *Hub) BroadcastRaw(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		atomic.AddInt64(&h.dropped, 1)
	}
}

// BroadcastBookTop рассылает обновление верхних уровней стакана рынка.
func (h *Hub) BroadcastBookTop(book orderbook.MarketBook) {
	h.Broadcast(NewBookTopMessage(book))
}

// BroadcastOpportunityFound рассылает обнаруженную арбитражную возможность.
func (h *Hub) BroadcastOpportunityFound(opp detector.Opportunity) {
	h.Broadcast(NewOpportunityFoundMessage(opp))
}

// BroadcastOrderFill рассылает событие исполнения ноги сделки.
func (h *Hub) BroadcastOrderFill(order *models.OrderRecord) {
	h.Broadcast(NewOrderFillMessage(order))
}

// BroadcastStatsUpdate рассылает обновление статистики.
func (h *Hub) BroadcastStatsUpdate(stats *models.Stats) {
	h.Broadcast(NewStatsUpdateMessage(stats))
}

// BroadcastNotification рассылает операторское уведомление. Реализует
// service.NotificationBroadcaster.
func (h *Hub) BroadcastNotification(notif *models.Notification) {
	h.Broadcast(NewNotificationMessage(notif))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages возвращает количество сообщений, отброшенных из-за
// переполнения broadcast-канала.
func (h *Hub) DroppedMessages() int64 {
	return atomic.LoadInt64(&h.dropped)
}

package venue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReconnectConfig controls the backoff schedule and keepalive cadence of a
// ConnManager.
type ReconnectConfig struct {
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	MaxRetries     int // 0 = unlimited
	ConnectTimeout time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
}

// DefaultReconnectConfig matches the 2s/4s/8s/16s backoff ladder and the
// ten-second keepalive cadence required of every venue transport.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialDelay:   2 * time.Second,
		MaxDelay:       16 * time.Second,
		MaxRetries:     0,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   10 * time.Second,
		PongTimeout:    10 * time.Second,
	}
}

// ConnState is the lifecycle of a venue WebSocket connection.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnManager owns one venue WebSocket connection, reconnecting it with
// bounded exponential backoff and re-establishing every known subscription
// before the connection is reported usable again. This is the transport
// collaborator a FullDepthReducer or TopOfBookReducer is wired to; it carries
// no reducer logic of its own.
type ConnManager struct {
	venueName string
	wsURL     string
	config    ReconnectConfig
	log       *zap.Logger

	conn   *websocket.Conn
	connMu sync.RWMutex

	state      int32
	retryCount int32

	closeChan chan struct{}
	closeOnce sync.Once

	onMessage    func([]byte)
	onConnect    func()
	onDisconnect func(error)
	callbackMu   sync.RWMutex

	subscriptions   []interface{}
	subscriptionsMu sync.RWMutex
}

// NewConnManager creates a manager for a single venue connection.
func NewConnManager(venueName, wsURL string, config ReconnectConfig, log *zap.Logger) *ConnManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConnManager{
		venueName:     venueName,
		wsURL:         wsURL,
		config:        config,
		log:           log.With(zap.String("venue", venueName)),
		closeChan:     make(chan struct{}),
		subscriptions: make([]interface{}, 0),
	}
}

func (m *ConnManager) SetOnMessage(handler func([]byte)) {
	m.callbackMu.Lock()
	m.onMessage = handler
	m.callbackMu.Unlock()
}

func (m *ConnManager) SetOnConnect(handler func()) {
	m.callbackMu.Lock()
	m.onConnect = handler
	m.callbackMu.Unlock()
}

func (m *ConnManager) SetOnDisconnect(handler func(error)) {
	m.callbackMu.Lock()
	m.onDisconnect = handler
	m.callbackMu.Unlock()
}

// AddSubscription registers a subscription message to be replayed on every
// (re)connect, in order, before the connection is considered usable.
func (m *ConnManager) AddSubscription(sub interface{}) {
	m.subscriptionsMu.Lock()
	m.subscriptions = append(m.subscriptions, sub)
	m.subscriptionsMu.Unlock()
}

func (m *ConnManager) ClearSubscriptions() {
	m.subscriptionsMu.Lock()
	m.subscriptions = m.subscriptions[:0]
	m.subscriptionsMu.Unlock()
}

func (m *ConnManager) State() ConnState {
	return ConnState(atomic.LoadInt32(&m.state))
}

func (m *ConnManager) IsUsable() bool {
	return m.State() == StateConnected
}

// Connect dials, resubscribes, and starts the read/ping pumps. The manager
// only reports StateConnected — and therefore only calls onConnect — after
// resubscribe has completed.
func (m *ConnManager) Connect() error {
	select {
	case <-m.closeChan:
		return fmt.Errorf("venue %s: connection manager closed", m.venueName)
	default:
	}

	atomic.StoreInt32(&m.state, int32(StateConnecting))

	if err := m.dial(); err != nil {
		atomic.StoreInt32(&m.state, int32(StateDisconnected))
		return err
	}

	atomic.StoreInt32(&m.state, int32(StateConnected))
	atomic.StoreInt32(&m.retryCount, 0)

	m.fireOnConnect()
	go m.readPump()
	go m.pingPump()

	m.log.Info("websocket connected", zap.String("url", m.wsURL))
	return nil
}

func (m *ConnManager) dial() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: m.config.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, m.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	m.connMu.Lock()
	m.conn = conn
	m.connMu.Unlock()

	if err := m.resubscribe(); err != nil {
		m.log.Warn("resubscribe failed after dial", zap.Error(err))
		return err
	}
	return nil
}

// resubscribe replays every registered subscription on the freshly dialed
// connection. Its caller treats a failure here as a dial failure: a
// connection that cannot resubscribe is not usable, matching the
// reconnect-then-resubscribe-before-usable rule.
func (m *ConnManager) resubscribe() error {
	m.subscriptionsMu.RLock()
	subs := make([]interface{}, len(m.subscriptions))
	copy(subs, m.subscriptions)
	m.subscriptionsMu.RUnlock()

	m.connMu.RLock()
	conn := m.conn
	m.connMu.RUnlock()

	if conn == nil {
		return fmt.Errorf("no connection")
	}

	for _, sub := range subs {
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("resubscribe: %w", err)
		}
	}
	if len(subs) > 0 {
		m.log.Info("resubscribed", zap.Int("count", len(subs)))
	}
	return nil
}

func (m *ConnManager) readPump() {
	defer m.handleDisconnect(nil)

	for {
		select {
		case <-m.closeChan:
			return
		default:
		}

		m.connMu.RLock()
		conn := m.conn
		m.connMu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			m.handleDisconnect(err)
			return
		}

		m.callbackMu.RLock()
		onMessage := m.onMessage
		m.callbackMu.RUnlock()
		if onMessage != nil {
			onMessage(message)
		}
	}
}

func (m *ConnManager) pingPump() {
	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.closeChan:
			return
		case <-ticker.C:
			m.connMu.RLock()
			conn := m.conn
			m.connMu.RUnlock()
			if conn == nil || m.State() != StateConnected {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(m.config.PongTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				m.log.Warn("ping failed", zap.Error(err))
				m.handleDisconnect(err)
				return
			}
		}
	}
}

func (m *ConnManager) handleDisconnect(err error) {
	select {
	case <-m.closeChan:
		return
	default:
	}

	state := m.State()
	if state == StateReconnecting || state == StateClosed {
		return
	}
	atomic.StoreInt32(&m.state, int32(StateReconnecting))

	m.connMu.Lock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connMu.Unlock()

	m.callbackMu.RLock()
	onDisconnect := m.onDisconnect
	m.callbackMu.RUnlock()
	if onDisconnect != nil {
		onDisconnect(err)
	}
	if err != nil {
		m.log.Warn("websocket disconnected", zap.Error(err))
	}

	go m.reconnectLoop()
}

func (m *ConnManager) reconnectLoop() {
	delay := m.config.InitialDelay

	for {
		select {
		case <-m.closeChan:
			return
		default:
		}

		retryCount := atomic.AddInt32(&m.retryCount, 1)
		if m.config.MaxRetries > 0 && int(retryCount) > m.config.MaxRetries {
			m.log.Error("max reconnect attempts reached", zap.Int("max", m.config.MaxRetries))
			atomic.StoreInt32(&m.state, int32(StateDisconnected))
			return
		}

		m.log.Info("reconnecting", zap.Duration("delay", delay), zap.Int32("attempt", retryCount))

		select {
		case <-m.closeChan:
			return
		case <-time.After(delay):
		}

		if err := m.dial(); err != nil {
			m.log.Warn("reconnect attempt failed", zap.Error(err))
			delay *= 2
			if delay > m.config.MaxDelay {
				delay = m.config.MaxDelay
			}
			continue
		}

		atomic.StoreInt32(&m.state, int32(StateConnected))
		atomic.StoreInt32(&m.retryCount, 0)
		m.fireOnConnect()
		m.log.Info("websocket reconnected")

		go m.readPump()
		go m.pingPump()
		return
	}
}

func (m *ConnManager) fireOnConnect() {
	m.callbackMu.RLock()
	onConnect := m.onConnect
	m.callbackMu.RUnlock()
	if onConnect != nil {
		onConnect()
	}
}

func (m *ConnManager) Send(msg interface{}) error {
	if m.State() != StateConnected {
		return fmt.Errorf("venue %s: not connected (state: %s)", m.venueName, m.State())
	}
	m.connMu.RLock()
	conn := m.conn
	m.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("venue %s: no connection", m.venueName)
	}
	return conn.WriteJSON(msg)
}

func (m *ConnManager) Close() error {
	m.closeOnce.Do(func() { close(m.closeChan) })
	atomic.StoreInt32(&m.state, int32(StateClosed))

	m.connMu.Lock()
	defer m.connMu.Unlock()
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	return nil
}

func (m *ConnManager) RetryCount() int {
	return int(atomic.LoadInt32(&m.retryCount))
}

package api

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"predictarb/internal/api/handlers"
	"predictarb/internal/api/middleware"
	"predictarb/internal/registry"
	"predictarb/internal/service"
	"predictarb/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	MarketRegistry      *registry.Registry
	OrderService        *service.OrderService
	StatsService        *service.StatsService
	SettingsService     *service.SettingsService
	NotificationService *service.NotificationService
	BlacklistService    *service.BlacklistService
	Hub                 *websocket.Hub
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Назначение:
// Центральное место для определения всех API endpoints.
// Регистрирует handlers для каждого маршрута.
// Применяет middleware к группам маршрутов.
// Организует версионирование API (v1).
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /markets/
//	│   ├── GET / - активные рынки (venue, horizon_hours, limit)
//	│   └── GET /{venue}/{condition_id} - рынок по venue + condition_id
//	├── /orders/
//	│   ├── GET / - последние ордера
//	│   ├── GET /markets/{market_id} - ордера по рынку
//	│   ├── GET /status/{status} - ордера по статусу
//	│   ├── GET /venues/{venue} - ордера по venue
//	│   └── GET /{id} - ордер по ID
//	├── /notifications/
//	│   ├── GET / - получить уведомления
//	│   ├── GET /markets/{market_id} - уведомления по рынку
//	│   ├── GET /severity/{severity} - уведомления по severity
//	│   └── DELETE / - очистить журнал
//	├── /stats/
//	│   ├── GET / - получить статистику
//	│   ├── GET /top-markets - топ рынков по метрике
//	│   ├── GET /markets/{market_id}/trades - сделки по рынку
//	│   └── POST /reset - сбросить счетчики
//	├── /blacklist/
//	│   ├── GET / - получить черный список
//	│   ├── GET /search - поиск по asset
//	│   ├── POST / - добавить в черный список
//	│   ├── PATCH /{venue}/{condition_id} - обновить причину
//	│   └── DELETE /{venue}/{condition_id} - удалить из черного списка
//	└── /settings/
//	    ├── GET / - получить настройки
//	    ├── PATCH / - обновить настройки
//	    ├── PATCH /notifications - обновить настройки уведомлений
//	    ├── PATCH /dry-run - переключить dry-run режим
//	    └── POST /reset - сбросить настройки к значениям по умолчанию
//
// /ws/
//
//	└── /stream - WebSocket для real-time обновлений (bookTop, opportunityFound,
//	    orderFill, statsUpdate)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. DebugAuth (только для /debug/*)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	var marketsHandler *handlers.MarketsHandler
	if deps != nil && deps.MarketRegistry != nil {
		marketsHandler = handlers.NewMarketsHandler(deps.MarketRegistry)
	}

	var orderHandler *handlers.OrderHandler
	if deps != nil && deps.OrderService != nil {
		orderHandler = handlers.NewOrderHandler(deps.OrderService)
	}

	var statsHandler *handlers.StatsHandler
	if deps != nil && deps.StatsService != nil {
		statsHandler = handlers.NewStatsHandler(deps.StatsService)
	}

	var settingsHandler *handlers.SettingsHandler
	if deps != nil && deps.SettingsService != nil {
		settingsHandler = handlers.NewSettingsHandler(deps.SettingsService)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps != nil && deps.NotificationService != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.NotificationService)
	}

	var blacklistHandler *handlers.BlacklistHandler
	if deps != nil && deps.BlacklistService != nil {
		blacklistHandler = handlers.NewBlacklistHandler(deps.BlacklistService)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	// Market routes
	if marketsHandler != nil {
		api.HandleFunc("/markets", marketsHandler.GetActiveMarkets).Methods("GET")
		api.HandleFunc("/markets/{venue}/{condition_id}", marketsHandler.GetMarket).Methods("GET")
	}

	// Order routes
	if orderHandler != nil {
		api.HandleFunc("/orders", orderHandler.GetRecent).Methods("GET")
		api.HandleFunc("/orders/markets/{market_id}", orderHandler.GetByMarket).Methods("GET")
		api.HandleFunc("/orders/status/{status}", orderHandler.GetByStatus).Methods("GET")
		api.HandleFunc("/orders/venues/{venue}", orderHandler.GetByVenue).Methods("GET")
		api.HandleFunc("/orders/{id}", orderHandler.GetByID).Methods("GET")
	}

	// Notification routes
	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications/markets/{market_id}", notificationHandler.GetNotificationsByMarket).Methods("GET")
		api.HandleFunc("/notifications/severity/{severity}", notificationHandler.GetNotificationsBySeverity).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	// Stats routes
	if statsHandler != nil {
		api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
		api.HandleFunc("/stats/top-markets", statsHandler.GetTopMarkets).Methods("GET")
		api.HandleFunc("/stats/markets/{market_id}/trades", statsHandler.GetTradesByMarket).Methods("GET")
		api.HandleFunc("/stats/reset", statsHandler.ResetStats).Methods("POST")
	}

	// Blacklist routes
	if blacklistHandler != nil {
		api.HandleFunc("/blacklist", blacklistHandler.GetBlacklist).Methods("GET")
		api.HandleFunc("/blacklist/search", blacklistHandler.SearchBlacklist).Methods("GET")
		api.HandleFunc("/blacklist", blacklistHandler.AddToBlacklist).Methods("POST")
		api.HandleFunc("/blacklist/{venue}/{condition_id}", blacklistHandler.UpdateReason).Methods("PATCH")
		api.HandleFunc("/blacklist/{venue}/{condition_id}", blacklistHandler.RemoveFromBlacklist).Methods("DELETE")
	}

	// Settings routes
	if settingsHandler != nil {
		api.HandleFunc("/settings", settingsHandler.GetSettings).Methods("GET")
		api.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods("PATCH")
		api.HandleFunc("/settings/notifications", settingsHandler.UpdateNotificationPrefs).Methods("PATCH")
		api.HandleFunc("/settings/dry-run", settingsHandler.UpdateDryRun).Methods("PATCH")
		api.HandleFunc("/settings/reset", settingsHandler.ResetToDefaults).Methods("POST")
	}

	// WebSocket route для real-time обновлений
	if deps != nil && deps.Hub != nil {
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(deps.Hub, w, r)
		}).Methods("GET")
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// ============================================================
	// Prometheus metrics endpoint
	// ============================================================
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// ============================================================
	// pprof endpoints для профилирования, защищены Basic Auth
	// ============================================================
	// Пример использования:
	// go tool pprof http://localhost:8080/debug/pprof/profile
	// go tool pprof http://localhost:8080/debug/pprof/heap

	debug := router.PathPrefix("/debug").Subrouter()
	debug.Use(middleware.DebugAuth)

	debug.HandleFunc("/pprof/", pprof.Index)
	debug.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	debug.HandleFunc("/pprof/profile", pprof.Profile)
	debug.HandleFunc("/pprof/symbol", pprof.Symbol)
	debug.HandleFunc("/pprof/trace", pprof.Trace)

	debug.HandleFunc("/pprof/heap", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("heap").ServeHTTP(w, r)
	})
	debug.HandleFunc("/pprof/goroutine", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("goroutine").ServeHTTP(w, r)
	})
	debug.HandleFunc("/pprof/block", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("block").ServeHTTP(w, r)
	})
	debug.HandleFunc("/pprof/threadcreate", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("threadcreate").ServeHTTP(w, r)
	})
	debug.HandleFunc("/pprof/mutex", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("mutex").ServeHTTP(w, r)
	})
	debug.HandleFunc("/pprof/allocs", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("allocs").ServeHTTP(w, r)
	})

	// Runtime stats endpoint (дополнительно)
	debug.HandleFunc("/runtime", func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{`))
		w.Write([]byte(`"goroutines":` + itoa(runtime.NumGoroutine()) + `,`))
		w.Write([]byte(`"heap_alloc_mb":` + ftoa(float64(m.HeapAlloc)/1024/1024) + `,`))
		w.Write([]byte(`"heap_sys_mb":` + ftoa(float64(m.HeapSys)/1024/1024) + `,`))
		w.Write([]byte(`"num_gc":` + itoa(int(m.NumGC)) + `,`))
		w.Write([]byte(`"gc_pause_total_ms":` + ftoa(float64(m.PauseTotalNs)/1e6)))
		w.Write([]byte(`}`))
	}).Methods("GET")

	return router
}

// Вспомогательные функции для JSON без fmt
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	pos := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		pos--
		b[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		b[pos] = '-'
	}
	return string(b[pos:])
}

func ftoa(f float64) string {
	i := int(f * 100)
	whole := i / 100
	frac := i % 100
	if frac < 0 {
		frac = -frac
	}
	fracStr := itoa(frac)
	if len(fracStr) == 1 {
		fracStr = "0" + fracStr
	}
	return itoa(whole) + "." + fracStr
}

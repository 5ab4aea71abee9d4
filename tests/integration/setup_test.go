// Package integration contains integration tests for the prediction-market
// arbitrage pipeline's operator API.
//
// These tests verify the correct interaction between components:
// - API integration tests: full HTTP request cycle
// - WebSocket tests: connection, broadcast messaging
// - Database tests: migrations, transactions
//
// The files carry no build constraint; tests that need a database skip
// themselves when none answers.
// Run with: go test -tags=integration ./tests/integration/...
package integration

import (
	"database/sql"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"predictarb/internal/api"
	"predictarb/internal/api/handlers"
	"predictarb/internal/repository"
	"predictarb/internal/service"
	"predictarb/internal/websocket"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// TestConfig contains configuration for integration tests
type TestConfig struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer encapsulates all components needed for integration testing
type TestServer struct {
	DB       *sql.DB
	Router   *mux.Router
	Server   *httptest.Server
	Hub      *websocket.Hub
	Repos    *TestRepositories
	Services *TestServices
	Handlers *TestHandlers
	Cleanup  func()
}

// TestRepositories contains all repository instances for testing
type TestRepositories struct {
	Order        *repository.OrderRepository
	Notification *repository.NotificationRepository
	Settings     *repository.SettingsRepository
	Blacklist    *repository.BlacklistRepository
	Stats        *repository.StatsRepository
}

// TestServices contains all service instances for testing
type TestServices struct {
	Order        *service.OrderService
	Stats        *service.StatsService
	Settings     *service.SettingsService
	Notification *service.NotificationService
	Blacklist    *service.BlacklistService
}

// TestHandlers contains all handler instances for testing
type TestHandlers struct {
	Order        *handlers.OrderHandler
	Stats        *handlers.StatsHandler
	Settings     *handlers.SettingsHandler
	Notification *handlers.NotificationHandler
	Blacklist    *handlers.BlacklistHandler
}

// getTestConfig returns configuration from environment variables or defaults
func getTestConfig() TestConfig {
	return TestConfig{
		DBDriver:   getEnv("TEST_DB_DRIVER", "postgres"),
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "predictarb_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open(config.DBDriver, connStr)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil, func() {}
	}

	// Test connection
	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil, func() {}
	}

	// Set connection pool settings
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	return db, cleanup
}

// SetupTestServer creates a complete test server with all components
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	// Initialize tables
	if err := initTestTables(db); err != nil {
		t.Skipf("Skipping integration test: cannot initialize tables: %v", err)
		return nil
	}

	// Create WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Create repositories
	repos := &TestRepositories{
		Order:        repository.NewOrderRepository(db),
		Notification: repository.NewNotificationRepository(db),
		Settings:     repository.NewSettingsRepository(db),
		Blacklist:    repository.NewBlacklistRepository(db),
		Stats:        repository.NewStatsRepository(db),
	}

	// Create services
	services := &TestServices{
		Order:        service.NewOrderService(repos.Order),
		Stats:        service.NewStatsService(repos.Stats),
		Settings:     service.NewSettingsService(repos.Settings),
		Notification: service.NewNotificationService(repos.Notification, repos.Settings),
		Blacklist:    service.NewBlacklistService(repos.Blacklist),
	}
	// Set WebSocket hub for notification and stats services
	services.Notification.SetWebSocketHub(hub)
	services.Stats.SetWebSocketHub(hub)

	// Create handlers
	testHandlers := &TestHandlers{
		Order:        handlers.NewOrderHandler(services.Order),
		Stats:        handlers.NewStatsHandler(services.Stats),
		Settings:     handlers.NewSettingsHandler(services.Settings),
		Notification: handlers.NewNotificationHandler(services.Notification),
		Blacklist:    handlers.NewBlacklistHandler(services.Blacklist),
	}

	// Setup router
	deps := &api.Dependencies{
		OrderService:        services.Order,
		StatsService:        services.Stats,
		SettingsService:     services.Settings,
		NotificationService: services.Notification,
		BlacklistService:    services.Blacklist,
		Hub:                 hub,
	}
	router := api.SetupRoutes(deps)

	// Create test server
	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:       db,
		Router:   router,
		Server:   server,
		Hub:      hub,
		Repos:    repos,
		Services: services,
		Handlers: testHandlers,
		Cleanup:  cleanup,
	}
}

// initTestTables creates or truncates tables for testing
func initTestTables(db *sql.DB) error {
	// Create tables if not exist
	tables := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			market_id VARCHAR(100) NOT NULL,
			venue VARCHAR(50) NOT NULL,
			token VARCHAR(100) NOT NULL DEFAULT '',
			side VARCHAR(10) NOT NULL,
			order_type VARCHAR(20) DEFAULT 'limit',
			quantity DECIMAL(20, 8) NOT NULL,
			price_avg DECIMAL(20, 8),
			fee DECIMAL(20, 8) DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			error_message TEXT DEFAULT '',
			venue_order_id VARCHAR(100) DEFAULT '',
			created_at TIMESTAMP DEFAULT NOW(),
			filled_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP DEFAULT NOW(),
			type VARCHAR(50) NOT NULL,
			severity VARCHAR(10) DEFAULT 'info',
			market_id VARCHAR(100),
			message TEXT NOT NULL,
			meta JSONB DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INT PRIMARY KEY DEFAULT 1,
			min_profit_absolute VARCHAR(40) DEFAULT '0.01',
			liquidity_threshold VARCHAR(40) DEFAULT '0',
			max_total_exposure VARCHAR(40) DEFAULT '0',
			enable_sequential_placement BOOLEAN DEFAULT true,
			dry_run BOOLEAN DEFAULT true,
			notification_prefs JSONB DEFAULT '{"opportunity_found":true,"trade_filled":true,"trade_failed":true,"rebalance_executed":true,"venue_disconnected":true,"api_error":true,"pause":true}',
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS blacklist (
			id SERIAL PRIMARY KEY,
			venue VARCHAR(50) NOT NULL,
			condition_id VARCHAR(100) NOT NULL,
			asset VARCHAR(20) DEFAULT '',
			reason TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT NOW(),
			UNIQUE (venue, condition_id)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id SERIAL PRIMARY KEY,
			market_id VARCHAR(100) NOT NULL,
			venue VARCHAR(50) NOT NULL,
			token VARCHAR(100) DEFAULT '',
			entry_time TIMESTAMP NOT NULL DEFAULT NOW(),
			exit_time TIMESTAMP NOT NULL DEFAULT NOW(),
			pnl DECIMAL(20, 2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS stats_counters (
			id INT PRIMARY KEY DEFAULT 1,
			opportunities_detected INT NOT NULL DEFAULT 0,
			opportunities_executed INT NOT NULL DEFAULT 0,
			rebalances_triggered INT NOT NULL DEFAULT 0
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Insert default settings if not exists
	_, err := db.Exec(`INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to insert default settings: %w", err)
	}
	_, err = db.Exec(`INSERT INTO stats_counters (id) VALUES (1) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to insert default stats counters: %w", err)
	}

	return nil
}

// cleanupTestTables truncates all test tables
func cleanupTestTables(db *sql.DB) {
	tables := []string{
		"trades",
		"orders",
		"notifications",
		"blacklist",
	}

	for _, table := range tables {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
	db.Exec(`UPDATE stats_counters SET opportunities_detected = 0, opportunities_executed = 0, rebalances_triggered = 0 WHERE id = 1`)
}

// TruncateTable truncates a specific table for testing
func TruncateTable(db *sql.DB, tableName string) error {
	_, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", tableName))
	return err
}

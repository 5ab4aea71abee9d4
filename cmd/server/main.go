package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"predictarb/internal/api"
	"predictarb/internal/config"
	"predictarb/internal/detector"
	"predictarb/internal/executor"
	"predictarb/internal/metrics"
	"predictarb/internal/money"
	"predictarb/internal/orderbook"
	"predictarb/internal/pipeline"
	"predictarb/internal/registry"
	"predictarb/internal/repository"
	"predictarb/internal/service"
	"predictarb/internal/venue"
	"predictarb/internal/websocket"
	"predictarb/pkg/crypto"
	"predictarb/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}).Logger

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to database")

	blacklistRepo := repository.NewBlacklistRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	blacklistService := service.NewBlacklistService(blacklistRepo)
	orderService := service.NewOrderService(orderRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	statsService := service.NewStatsService(statsRepo)
	notificationService := service.NewNotificationService(notificationRepo, settingsRepo)

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	notificationService.SetWebSocketHub(hub)
	statsService.SetWebSocketHub(hub)

	reg := registry.New()
	discovery := registry.NewDiscoveryClient(cfg.Discovery.BaseURL, cfg.Discovery.Timeout, log)

	books := orderbook.NewStore()

	router := venue.NewRouter()
	connManagers := make([]*venue.ConnManager, 0, len(cfg.Venues.Venues))
	for _, v := range cfg.Venues.Venues {
		reducer := venue.NewTopOfBookReducer(v.Name, books, reg, log)

		reconnectCfg := venue.DefaultReconnectConfig()
		if cfg.Venues.ReconnectInterval > 0 {
			reconnectCfg.InitialDelay = cfg.Venues.ReconnectInterval
		}

		cm := venue.NewConnManager(v.Name, v.WSURL, reconnectCfg, log)
		cm.SetOnMessage(func(raw []byte) {
			if err := reducer.HandleMessage(raw, time.Now()); err != nil {
				log.Debug("reducer rejected message", zap.String("venue", v.Name), zap.Error(err))
			}
		})
		venueName := v.Name
		cm.SetOnConnect(func() {
			metrics.SetVenueConnected(venueName, true)
		})
		cm.SetOnDisconnect(func(err error) {
			metrics.SetVenueConnected(venueName, false)
		})
		connManagers = append(connManagers, cm)

		restURL := v.RESTURL
		if restURL == "" {
			restURL = v.WSURL
		}
		apiKey := ""
		if v.APIKeyEncrypted != "" {
			decrypted, err := crypto.DecryptWithKeyString(v.APIKeyEncrypted, cfg.Security.EncryptionKey)
			if err != nil {
				log.Fatal("failed to decrypt venue API key", zap.String("venue", v.Name), zap.Error(err))
			}
			apiKey = decrypted
		}
		router.Register(v.Name, venue.NewRESTClient(v.Name, restURL, apiKey, log))

		if err := cm.Connect(); err != nil {
			log.Warn("initial venue connection failed, will retry in background", zap.String("venue", v.Name), zap.Error(err))
		}
	}
	defer func() {
		for _, cm := range connManagers {
			cm.Close()
		}
	}()

	execCfg := executor.Config{
		MinProfitAbsolute:      money.NewPrice(cfg.Detector.MinProfitAbsolute),
		PriceMismatchThreshold: money.NewPrice(cfg.Detector.PriceMismatchThreshold),
		SpreadTolerance:        money.NewPrice(cfg.Detector.SpreadTolerance),
		SequentialPollInterval: time.Duration(cfg.Executor.SequentialPollIntervalMs) * time.Millisecond,
		SequentialPollTimeout:  time.Duration(cfg.Executor.SequentialPollTimeoutSecs) * time.Second,
		CancelTimeout:          time.Duration(cfg.Executor.SequentialPollTimeoutSecs) * time.Second,
		MaxTotalExposure:       money.NewPrice(cfg.Sizer.MaxTotalExposure),
		CooldownSecs:           30 * time.Second,
	}
	execCfg.DryRun = cfg.Executor.DryRun
	exec := executor.New(router, execCfg, log)

	detectorCfg := detector.Config{
		MaxPriceAge:       time.Duration(cfg.Detector.MaxPriceAgeSecs) * time.Second,
		MinTimeToExpiry:   time.Duration(cfg.Detector.MaxTimeToExpirySecs) * time.Second,
		MinProfitAbsolute: money.NewPrice(cfg.Detector.MinProfitAbsolute),
		NearMissThreshold: money.NewPrice("1.05"),
	}
	if detectorCfg.MaxPriceAge == 0 {
		detectorCfg.MaxPriceAge = detector.DefaultConfig().MaxPriceAge
	}
	if detectorCfg.MinTimeToExpiry == 0 {
		detectorCfg.MinTimeToExpiry = detector.DefaultConfig().MinTimeToExpiry
	}

	minProfitPct, _ := decimal.NewFromString("1.0")

	pipelineCfg := pipeline.Config{
		PollInterval:     cfg.Detector.PollInterval,
		RefreshInterval:  cfg.Discovery.RefreshInterval,
		Assets:           cfg.Discovery.Assets,
		MaxExpiryHorizon: time.Duration(cfg.Discovery.MaxExpiryHours) * time.Hour,
		DetectorConfig:   detectorCfg,
		FeeRate:          money.NewPrice(cfg.Detector.FeeRate),
		MinProfitPct:     minProfitPct,
		Once:             cfg.Once,
	}

	pl := pipeline.New(pipelineCfg, reg, discovery, books, exec, orderRepo, statsService, notificationService, blacklistService, hub, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipelineDone := make(chan error, 1)
	go func() {
		pipelineDone <- pl.Run(ctx)
	}()

	deps := &api.Dependencies{
		MarketRegistry:      reg,
		OrderService:        orderService,
		StatsService:        statsService,
		SettingsService:     settingsService,
		NotificationService: notificationService,
		BlacklistService:    blacklistService,
		Hub:                 hub,
	}
	router2 := api.SetupRoutes(deps)

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router2,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting operator API", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	if cfg.Once {
		<-pipelineDone
	} else {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

// initDatabase создает подключение к базе данных.
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

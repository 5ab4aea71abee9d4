// Package pipeline wires discovery refresh, opportunity detection, sizing,
// and execution into the single coordinating loop the teacher's bot engine
// used to run for exchange arbitrage, generalized to cross-venue prediction
// markets.
package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"predictarb/internal/detector"
	"predictarb/internal/executor"
	"predictarb/internal/metrics"
	"predictarb/internal/models"
	"predictarb/internal/money"
	"predictarb/internal/orderbook"
	"predictarb/internal/registry"
	"predictarb/internal/repository"
	"predictarb/internal/service"
	"predictarb/internal/sizer"
	"predictarb/internal/websocket"
)

// Config carries the thresholds that gate one pipeline pass.
type Config struct {
	PollInterval      time.Duration
	RefreshInterval   time.Duration
	Assets            []string
	MaxExpiryHorizon  time.Duration
	DetectorConfig    detector.Config
	FeeRate           money.Price
	MinProfitPct      decimal.Decimal
	Once              bool
}

// Pipeline is the single coordinating loop: refresh the market registry on
// a slow cadence, and on every poll tick walk active markets looking for
// spread and cross-venue opportunities, sizing and executing the ones that
// pass every gate.
type Pipeline struct {
	cfg Config

	registry  *registry.Registry
	discovery *registry.DiscoveryClient
	books     *orderbook.Store
	exec      *executor.Executor

	orderRepo    *repository.OrderRepository
	statsService *service.StatsService
	notifService *service.NotificationService
	blacklist    *service.BlacklistService
	hub          *websocket.Hub

	log *zap.Logger
}

// New builds a Pipeline from its fully-wired collaborators.
func New(
	cfg Config,
	reg *registry.Registry,
	discovery *registry.DiscoveryClient,
	books *orderbook.Store,
	exec *executor.Executor,
	orderRepo *repository.OrderRepository,
	statsService *service.StatsService,
	notifService *service.NotificationService,
	blacklist *service.BlacklistService,
	hub *websocket.Hub,
	log *zap.Logger,
) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		cfg:          cfg,
		registry:     reg,
		discovery:    discovery,
		books:        books,
		exec:         exec,
		orderRepo:    orderRepo,
		statsService: statsService,
		notifService: notifService,
		blacklist:    blacklist,
		hub:          hub,
		log:          log,
	}
}

// Run drives discovery refresh and detection/execution until ctx is
// cancelled, or for a single pass when cfg.Once is set.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.refresh(ctx); err != nil {
		p.log.Warn("initial discovery refresh failed", zap.Error(err))
	}

	if p.cfg.Once {
		p.tick(ctx)
		return nil
	}

	refreshTicker := time.NewTicker(p.cfg.RefreshInterval)
	defer refreshTicker.Stop()
	pollTicker := time.NewTicker(p.cfg.PollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refreshTicker.C:
			if err := p.refresh(ctx); err != nil {
				p.log.Warn("discovery refresh failed", zap.Error(err))
			}
		case <-pollTicker.C:
			p.tick(ctx)
		}
	}
}

func (p *Pipeline) refresh(ctx context.Context) error {
	markets, matches, err := p.discovery.FetchActiveMarkets(ctx, p.cfg.Assets)
	if err != nil {
		return err
	}
	p.registry.Refresh(markets, matches, time.Now())

	byVenue := make(map[string]int)
	for _, m := range markets {
		byVenue[m.Venue]++
	}
	for venue, count := range byVenue {
		metrics.SetActiveMarkets(venue, count)
	}
	return nil
}

// tick evaluates every matched pair and single-venue market once.
func (p *Pipeline) tick(ctx context.Context) {
	now := time.Now()
	horizon := p.cfg.MaxExpiryHorizon

	markets := p.registry.ActiveMarkets("", now, horizon, 0)
	for _, m := range markets {
		if blacklisted, err := p.blacklist.IsBlacklisted(m.Venue, m.ConditionID); err == nil && blacklisted {
			continue
		}

		book, ok := p.books.Get(m.ID)
		if !ok {
			continue
		}
		p.hub.BroadcastBookTop(book)

		p.tryMatchedOpportunity(ctx, m, book, now)
		p.trySpreadOpportunity(ctx, m, book, now)
	}
}

func (p *Pipeline) tryMatchedOpportunity(ctx context.Context, m registry.Market, book orderbook.MarketBook, now time.Time) {
	matchedCondID, ok := p.registry.Match(m.ConditionID)
	if !ok {
		return
	}
	other, ok := p.registry.MatchedMarket(otherVenue(m.Venue), matchedCondID)
	if !ok {
		return
	}
	otherBook, ok := p.books.Get(other.ID)
	if !ok {
		return
	}

	x := detector.CrossVenueLeg{Book: book, EndTime: m.EndTime, FeeRate: m.FeeRate}
	y := detector.CrossVenueLeg{Book: otherBook, EndTime: other.EndTime, FeeRate: other.FeeRate}

	opp, found := detector.DetectCrossVenueArb(x, y, now, p.cfg.DetectorConfig, p.log)
	if !found {
		return
	}
	p.onOpportunity(ctx, *opp)
}

func (p *Pipeline) trySpreadOpportunity(ctx context.Context, m registry.Market, book orderbook.MarketBook, now time.Time) {
	opp, found := detector.DetectSpreadArb(book, m.EndTime, now, m.FeeRate, p.cfg.DetectorConfig, p.log)
	if !found {
		return
	}
	p.onOpportunity(ctx, *opp)
}

// otherVenue is a placeholder for a two-venue deployment; with more venues
// this would fan out across every other configured venue instead.
func otherVenue(venue string) string {
	if venue == "polymarket" {
		return "kalshi"
	}
	return "polymarket"
}

func (p *Pipeline) onOpportunity(ctx context.Context, opp detector.Opportunity) {
	metrics.RecordFlipDetected(opp.Kind.String())
	p.hub.BroadcastOpportunityFound(opp)
	p.statsService.RecordOpportunityDetected()

	plan, ok := p.buildPlan(opp)
	if !ok {
		return
	}

	outcome, err := p.exec.Execute(ctx, plan, time.Now())
	metrics.RecordExit(outcome.String())
	if err != nil {
		p.log.Error("execution failed", zap.String("market_id", plan.MarketID), zap.Error(err))
		metrics.RecordDBError("execute")
		return
	}

	order := &models.OrderRecord{
		MarketID:  plan.MarketID,
		Venue:     plan.YesVenue,
		Side:      "yes",
		OrderType: "limit",
		Quantity:  plan.YesQty.Float64(),
		PriceAvg:  plan.YesFillPrice.Float64(),
		Fee:       plan.YesFee.Float64(),
		Status:    outcome.String(),
		CreatedAt: time.Now(),
	}
	if err := p.orderRepo.Create(order); err != nil {
		metrics.RecordDBError("create_order")
	} else {
		p.hub.BroadcastOrderFill(order)
	}

	switch outcome {
	case executor.OutcomeFilled:
		metrics.RecordOrderPlaced(plan.YesVenue, "yes")
		metrics.RecordOrderPlaced(plan.NoVenue, "no")
		metrics.RecordVerifiedFill(plan.YesVenue, false)
	case executor.OutcomeRebalanceNeeded:
		metrics.RecordRebalance()
		p.statsService.RecordRebalanceTriggered()
		p.log.Warn("one-sided fill needs rebalance", zap.String("market_id", plan.MarketID))
	}
}

// buildPlan sizes the opportunity against both legs' ask depth and
// translates the result into a TradePlan. With only top-of-book data
// available, depth is modeled as a single level at the opportunity's
// quoted price.
func (p *Pipeline) buildPlan(opp detector.Opportunity) (executor.TradePlan, bool) {
	yesAsks := []sizer.Level{{Price: opp.YesPrice, Size: money.NewSize("1000")}}
	noAsks := []sizer.Level{{Price: opp.NoPrice, Size: money.NewSize("1000")}}

	result, ok := sizer.CalculateMaxProfitableSize(yesAsks, noAsks, p.cfg.FeeRate, p.cfg.FeeRate, p.cfg.MinProfitPct)
	if !ok {
		return executor.TradePlan{}, false
	}

	qty := money.SizeFromInt(result.MaxContracts)
	marketID := opp.YesMarketID
	if marketID == "" {
		marketID = opp.MarketID
	}

	return executor.TradePlan{
		MarketID:          marketID,
		YesVenue:          opp.YesVenue,
		NoVenue:           opp.NoVenue,
		YesQty:            qty,
		NoQty:             qty,
		YesFillPrice:      opp.YesPrice,
		NoFillPrice:       opp.NoPrice,
		YesFee:            result.TotalFees,
		NoFee:             result.TotalFees,
		TotalCost:         result.TotalCostYes.Add(result.TotalCostNo),
		ExpectedNetProfit: result.NetProfit,
	}, true
}

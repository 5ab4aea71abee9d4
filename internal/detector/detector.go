// Package detector implements the opportunity detector: single-venue
// spread arbitrage and cross-venue YES/NO arbitrage, gated by book
// usability, freshness, and time-to-expiry.
package detector

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"predictarb/internal/money"
	"predictarb/internal/orderbook"
)

// Kind distinguishes the two opportunity classes this package detects.
type Kind int

const (
	SpreadArb Kind = iota
	CrossVenueArb
)

func (k Kind) String() string {
	if k == SpreadArb {
		return "spread_arb"
	}
	return "cross_venue_arb"
}

// Config carries the thresholds that gate detection, threaded explicitly
// through every call rather than held as package state.
type Config struct {
	MaxPriceAge       time.Duration
	MinTimeToExpiry   time.Duration
	MinProfitAbsolute money.Price
	NearMissThreshold money.Price // spread below this (default 1.05) is logged
}

// DefaultConfig matches the representative threshold values used in
// production, including the original source's near-miss threshold.
func DefaultConfig() Config {
	return Config{
		MaxPriceAge:       60 * time.Second,
		MinTimeToExpiry:   5 * time.Minute,
		MinProfitAbsolute: money.NewPrice("0.01"),
		NearMissThreshold: money.NewPrice("1.05"),
	}
}

// Opportunity is a detected arbitrage.
type Opportunity struct {
	Kind           Kind
	MarketID       string // for SpreadArb
	Venue          string // for SpreadArb

	YesMarketID string // for CrossVenueArb
	YesVenue    string
	NoMarketID  string
	NoVenue     string

	YesPrice       money.Price
	NoPrice        money.Price
	Spread         money.Price
	ProfitAbsolute money.Price
	ProfitPct      float64
	EndTime        time.Time
	DetectedAt     time.Time
}

// gateResult names why a candidate was rejected, for logging/metrics; it is
// never returned to a caller that only wants a yes/no answer.
type gateResult int

const (
	gateOK gateResult = iota
	gateNotUsable
	gateStale
	gateNearExpiry
	gateZeroAsk
)

func gateSingle(mb orderbook.MarketBook, endTime, now time.Time, cfg Config) gateResult {
	if !mb.Usable(now, cfg.MaxPriceAge) {
		return gateNotUsable
	}
	age := now.Sub(mb.Yes.UpdatedAt)
	if noAge := now.Sub(mb.No.UpdatedAt); noAge > age {
		age = noAge
	}
	if age > cfg.MaxPriceAge {
		return gateStale
	}
	if endTime.Sub(now) < cfg.MinTimeToExpiry {
		return gateNearExpiry
	}
	yesAsk, _ := mb.Yes.BestAsk()
	noAsk, _ := mb.No.BestAsk()
	if yesAsk.Price.IsZero() || noAsk.Price.IsZero() {
		return gateZeroAsk
	}
	return gateOK
}

// DetectSpreadArb evaluates one market for single-venue spread arbitrage,
// applying the usability, freshness, and expiry gates in order before the
// profit formula. Returns (nil, false) if any gate fails or profit is below
// threshold.
func DetectSpreadArb(mb orderbook.MarketBook, endTime, now time.Time, feeRate money.Price, cfg Config, log *zap.Logger) (*Opportunity, bool) {
	if log == nil {
		log = zap.NewNop()
	}
	if g := gateSingle(mb, endTime, now, cfg); g != gateOK {
		return nil, false
	}

	yesAsk, _ := mb.Yes.BestAsk()
	noAsk, _ := mb.No.BestAsk()

	spread := yesAsk.Price.Add(noAsk.Price)
	fees := money.PriceFromDecimal(spread.Mul(feeRate))
	one := money.NewPrice("1")
	profitAbsolute := one.Sub(spread).Sub(fees)

	if spread.LessThan(cfg.NearMissThreshold) {
		log.Debug("near-miss spread",
			zap.String("market_id", mb.MarketID),
			zap.String("spread", spread.String()),
			zap.String("threshold", cfg.NearMissThreshold.String()),
		)
	}

	if profitAbsolute.LessThan(cfg.MinProfitAbsolute) {
		return nil, false
	}

	profitPct := 0.0
	if !spread.IsZero() {
		profitPct = profitAbsolute.Float64() / spread.Float64() * 100
	}

	return &Opportunity{
		Kind:           SpreadArb,
		MarketID:       mb.MarketID,
		Venue:          mb.Venue,
		YesPrice:       yesAsk.Price,
		NoPrice:        noAsk.Price,
		Spread:         spread,
		ProfitAbsolute: profitAbsolute,
		ProfitPct:      profitPct,
		EndTime:        endTime,
		DetectedAt:     now,
	}, true
}

// CrossVenueLeg bundles the per-venue inputs DetectCrossVenueArb needs for
// one matched market.
type CrossVenueLeg struct {
	Book    orderbook.MarketBook
	EndTime time.Time
	FeeRate money.Price
}

// DetectCrossVenueArb evaluates a matched pair (x, y) for buying YES on one
// venue and NO on the other, in both directions, emitting at most the more
// profitable one.
func DetectCrossVenueArb(x, y CrossVenueLeg, now time.Time, cfg Config, log *zap.Logger) (*Opportunity, bool) {
	if log == nil {
		log = zap.NewNop()
	}
	endTime := x.EndTime
	if y.EndTime.Before(endTime) {
		endTime = y.EndTime
	}

	if g := gateSingle(x.Book, endTime, now, cfg); g != gateOK {
		return nil, false
	}
	if g := gateSingle(y.Book, endTime, now, cfg); g != gateOK {
		return nil, false
	}

	xYesAsk, _ := x.Book.Yes.BestAsk()
	xNoAsk, _ := x.Book.No.BestAsk()
	yYesAsk, _ := y.Book.Yes.BestAsk()
	yNoAsk, _ := y.Book.No.BestAsk()

	one := money.NewPrice("1")

	// Direction 1: buy YES on x, NO on y.
	costA := xYesAsk.Price.Add(yNoAsk.Price).
		Add(money.PriceFromDecimal(xYesAsk.Price.Mul(x.FeeRate))).
		Add(money.PriceFromDecimal(yNoAsk.Price.Mul(y.FeeRate)))
	profitA := one.Sub(costA)

	// Direction 2: buy YES on y, NO on x.
	costB := yYesAsk.Price.Add(xNoAsk.Price).
		Add(money.PriceFromDecimal(yYesAsk.Price.Mul(y.FeeRate))).
		Add(money.PriceFromDecimal(xNoAsk.Price.Mul(x.FeeRate)))
	profitB := one.Sub(costB)

	logNearMiss := func(cost money.Price, marketA, marketB string) {
		if cost.LessThan(cfg.NearMissThreshold) {
			log.Debug("near-miss cross-venue spread",
				zap.String("yes_market", marketA), zap.String("no_market", marketB),
				zap.String("cost", cost.String()), zap.String("threshold", cfg.NearMissThreshold.String()))
		}
	}
	logNearMiss(costA, x.Book.MarketID, y.Book.MarketID)
	logNearMiss(costB, y.Book.MarketID, x.Book.MarketID)

	aOK := profitA.GreaterThan(cfg.MinProfitAbsolute) || profitA.Equal(cfg.MinProfitAbsolute)
	bOK := profitB.GreaterThan(cfg.MinProfitAbsolute) || profitB.Equal(cfg.MinProfitAbsolute)

	if !aOK && !bOK {
		return nil, false
	}

	buildOpp := func(yesVenue, yesMarket string, yesPrice money.Price, noVenue, noMarket string, noPrice, cost, profit money.Price) *Opportunity {
		profitPct := 0.0
		if !cost.IsZero() {
			profitPct = profit.Float64() / cost.Float64() * 100
		}
		return &Opportunity{
			Kind:           CrossVenueArb,
			YesMarketID:    yesMarket,
			YesVenue:       yesVenue,
			NoMarketID:     noMarket,
			NoVenue:        noVenue,
			YesPrice:       yesPrice,
			NoPrice:        noPrice,
			Spread:         cost,
			ProfitAbsolute: profit,
			ProfitPct:      profitPct,
			EndTime:        endTime,
			DetectedAt:     now,
		}
	}

	switch {
	case aOK && (!bOK || profitA.GreaterThan(profitB)):
		return buildOpp(x.Book.Venue, x.Book.MarketID, xYesAsk.Price, y.Book.Venue, y.Book.MarketID, yNoAsk.Price, costA, profitA), true
	default:
		return buildOpp(y.Book.Venue, y.Book.MarketID, yYesAsk.Price, x.Book.Venue, x.Book.MarketID, xNoAsk.Price, costB, profitB), true
	}
}

// SortByProfitDescending sorts opportunities by profit_absolute descending,
// ties broken by earlier end_time.
func SortByProfitDescending(opps []Opportunity) {
	sort.Slice(opps, func(i, j int) bool {
		if !opps[i].ProfitAbsolute.Equal(opps[j].ProfitAbsolute) {
			return opps[i].ProfitAbsolute.GreaterThan(opps[j].ProfitAbsolute)
		}
		return opps[i].EndTime.Before(opps[j].EndTime)
	})
}

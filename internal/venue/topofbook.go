package venue

import (
	"time"

	"go.uber.org/zap"

	"predictarb/internal/money"
	"predictarb/internal/orderbook"
)

// topOfBookWireMsg is the normalized top-of-book-only update: a venue that
// never streams depth, only best bid/ask in integer cents.
type topOfBookWireMsg struct {
	TokenID     string `json:"token_id"`
	BestAskCents *int64 `json:"best_ask_cents"`
	BestAskSize  float64 `json:"best_ask_size"`
	BestBidCents *int64 `json:"best_bid_cents"`
	BestBidSize  float64 `json:"best_bid_size"`
}

// TopOfBookReducer implements the top-of-book contract: scale
// venue-native cent prices by 1/100 and write a TopOfBookOnly op.
type TopOfBookReducer struct {
	venue    string
	store    *orderbook.Store
	resolver TokenResolver
	log      *zap.Logger
}

func NewTopOfBookReducer(venueName string, store *orderbook.Store, resolver TokenResolver, log *zap.Logger) *TopOfBookReducer {
	if log == nil {
		log = zap.NewNop()
	}
	return &TopOfBookReducer{venue: venueName, store: store, resolver: resolver, log: log.With(zap.String("venue", venueName))}
}

func (r *TopOfBookReducer) HandleMessage(raw []byte, receivedAt time.Time) error {
	var msg topOfBookWireMsg
	if err := fastJSON.Unmarshal(raw, &msg); err != nil {
		return err
	}
	return r.HandleUpdate(msg.TokenID, msg.BestAskCents, msg.BestAskSize, msg.BestBidCents, msg.BestBidSize, receivedAt)
}

// HandleUpdate converts cent prices to unit Price and applies a
// TopOfBookOnly op. A nil cents pointer means the venue did not include that
// side in this update (leave it untouched would require read-modify-write;
// instead we write an empty level to match the store's "left empty" rule).
func (r *TopOfBookReducer) HandleUpdate(tokenID string, bestAskCents *int64, askSize float64, bestBidCents *int64, bidSize float64, venueTS time.Time) error {
	marketID, outcome, ok := r.resolver.TokenToMarket(r.venue, tokenID)
	if !ok {
		return &ErrUnknownToken{Venue: r.venue, TokenID: tokenID}
	}

	var ask, bid *orderbook.PriceLevel
	if bestAskCents != nil {
		size, convOK := money.SizeFromFloat(askSize)
		if !convOK {
			size = money.Size{}
		}
		ask = &orderbook.PriceLevel{Price: money.PriceFromCents(*bestAskCents), Size: size}
	}
	if bestBidCents != nil {
		size, convOK := money.SizeFromFloat(bidSize)
		if !convOK {
			size = money.Size{}
		}
		bid = &orderbook.PriceLevel{Price: money.PriceFromCents(*bestBidCents), Size: size}
	}

	r.store.TopOfBookOnly(marketID, r.venue, outcome, ask, bid, venueTS)
	return nil
}

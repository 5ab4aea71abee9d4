package venue

import (
	"fmt"

	"predictarb/internal/money"
	"predictarb/internal/orderbook"
)

// TokenResolver maps a venue-native token identifier to the internal
// (market_id, outcome) pair a reducer writes into the order-book store. The
// market registry implements this.
type TokenResolver interface {
	TokenToMarket(venue, tokenID string) (marketID string, outcome orderbook.Outcome, ok bool)
}

// RawLevel is one price/size pair as it arrives off the wire, before
// conversion to fixed-point money types.
type RawLevel struct {
	Price string  // decimal string, e.g. "0.45"
	Size  float64 // venue-native float size
}

// RawChange is one delta-message line.
type RawChange struct {
	Side     orderbook.Side
	Price    string
	NewSize  float64
}

// ErrSequenceGap is returned when a delta's sequence number does not
// immediately follow the last one seen for that token: the reducer
// discards the delta and waits for (or requests) a fresh snapshot rather
// than applying an out-of-order update.
type ErrSequenceGap struct {
	Venue, TokenID  string
	Expected, Got   uint64
}

func (e *ErrSequenceGap) Error() string {
	return fmt.Sprintf("venue %s token %s: sequence gap, expected %d got %d", e.Venue, e.TokenID, e.Expected, e.Got)
}

// ErrUnknownToken is returned when the registry has no mapping for a token
// the venue just published an update for (the market may not be active, or
// the registry hasn't refreshed yet).
type ErrUnknownToken struct {
	Venue, TokenID string
}

func (e *ErrUnknownToken) Error() string {
	return fmt.Sprintf("venue %s: unknown token %s", e.Venue, e.TokenID)
}

func convertLevels(raw []RawLevel) ([]orderbook.PriceLevel, error) {
	out := make([]orderbook.PriceLevel, 0, len(raw))
	for _, r := range raw {
		size, ok := money.SizeFromFloat(r.Size)
		if !ok {
			// A conversion failure yields zero, not a silent NaN; a
			// zero-size level is filtered out by the store on apply.
			size = money.Size{}
		}
		out = append(out, orderbook.PriceLevel{Price: money.NewPrice(r.Price), Size: size})
	}
	return out, nil
}

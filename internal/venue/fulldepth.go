package venue

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"predictarb/internal/money"
	"predictarb/internal/orderbook"
)

var fastJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// snapshotWireMsg and deltaWireMsg are the normalized shapes a venue-specific
// transport adapter decodes its own wire format into before handing the
// message to FullDepthReducer. Keeping the venue's actual JSON dialect out of
// the reducer is what makes the reducer itself transport-free and testable.
type snapshotWireMsg struct {
	TokenID string     `json:"token_id"`
	Seq     uint64     `json:"seq"`
	Asks    []RawLevel `json:"asks"`
	Bids    []RawLevel `json:"bids"`
}

type deltaWireMsg struct {
	TokenID string      `json:"token_id"`
	Seq     uint64      `json:"seq"`
	Changes []RawChange `json:"changes"`
}

// FullDepthReducer implements the full-depth contract: venue snapshots
// plus per-token deltas, ordered by a monotonic per-venue sequence number.
// It is pure decision logic over a TokenResolver and an orderbook.Store; it
// has no socket of its own (see ConnManager for that).
type FullDepthReducer struct {
	venue    string
	store    *orderbook.Store
	resolver TokenResolver
	log      *zap.Logger

	mu       sync.Mutex
	lastSeq  map[string]uint64
	// onGap is invoked when a sequence gap is detected, so the transport
	// layer can request a fresh snapshot from the venue.
	onGap func(tokenID string)
}

func NewFullDepthReducer(venueName string, store *orderbook.Store, resolver TokenResolver, log *zap.Logger) *FullDepthReducer {
	if log == nil {
		log = zap.NewNop()
	}
	return &FullDepthReducer{
		venue:    venueName,
		store:    store,
		resolver: resolver,
		log:      log.With(zap.String("venue", venueName)),
		lastSeq:  make(map[string]uint64),
	}
}

func (r *FullDepthReducer) SetOnSequenceGap(f func(tokenID string)) {
	r.onGap = f
}

// HandleMessage decodes one raw frame and dispatches it to the snapshot or
// delta handler according to kind: "snapshot" decodes Asks/Bids, "delta"
// decodes Changes. Any other kind returns an ErrUnknownToken carrying kind.
func (r *FullDepthReducer) HandleMessage(kind string, raw []byte, receivedAt time.Time) error {
	switch kind {
	case "snapshot":
		var msg snapshotWireMsg
		if err := fastJSON.Unmarshal(raw, &msg); err != nil {
			return err
		}
		return r.HandleSnapshot(msg.TokenID, msg.Seq, msg.Asks, msg.Bids, receivedAt)
	case "delta":
		var msg deltaWireMsg
		if err := fastJSON.Unmarshal(raw, &msg); err != nil {
			return err
		}
		return r.HandleDelta(msg.TokenID, msg.Seq, msg.Changes, receivedAt)
	default:
		return &ErrUnknownToken{Venue: r.venue, TokenID: kind}
	}
}

// HandleSnapshot applies an initial (or gap-recovery) book snapshot for one
// token and resets that token's sequence tracking.
func (r *FullDepthReducer) HandleSnapshot(tokenID string, seq uint64, rawAsks, rawBids []RawLevel, venueTS time.Time) error {
	marketID, outcome, ok := r.resolver.TokenToMarket(r.venue, tokenID)
	if !ok {
		return &ErrUnknownToken{Venue: r.venue, TokenID: tokenID}
	}

	asks, _ := convertLevels(rawAsks)
	bids, _ := convertLevels(rawBids)

	r.store.Snapshot(marketID, r.venue, outcome, asks, bids, venueTS)

	r.mu.Lock()
	r.lastSeq[tokenID] = seq
	r.mu.Unlock()
	return nil
}

// HandleDelta applies a price-level delta, enforcing the monotonic
// per-venue sequence number. A gap discards the delta and signals onGap
// rather than applying a partial/incorrect state.
func (r *FullDepthReducer) HandleDelta(tokenID string, seq uint64, rawChanges []RawChange, venueTS time.Time) error {
	r.mu.Lock()
	last, known := r.lastSeq[tokenID]
	r.mu.Unlock()

	if known && seq != last+1 {
		r.log.Warn("sequence gap detected", zap.String("token_id", tokenID), zap.Uint64("expected", last+1), zap.Uint64("got", seq))
		if r.onGap != nil {
			r.onGap(tokenID)
		}
		return &ErrSequenceGap{Venue: r.venue, TokenID: tokenID, Expected: last + 1, Got: seq}
	}

	marketID, outcome, ok := r.resolver.TokenToMarket(r.venue, tokenID)
	if !ok {
		return &ErrUnknownToken{Venue: r.venue, TokenID: tokenID}
	}

	changes := make([]orderbook.DeltaChange, 0, len(rawChanges))
	for _, c := range rawChanges {
		size, convOK := money.SizeFromFloat(c.NewSize)
		if !convOK {
			size = money.Size{}
		}
		changes = append(changes, orderbook.DeltaChange{
			Side:    c.Side,
			Price:   money.NewPrice(c.Price),
			NewSize: size,
		})
	}

	r.store.Delta(marketID, r.venue, outcome, changes, venueTS)

	r.mu.Lock()
	r.lastSeq[tokenID] = seq
	r.mu.Unlock()
	return nil
}

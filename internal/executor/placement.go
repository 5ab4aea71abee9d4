package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"predictarb/internal/money"
)

var oneShare = money.NewSize("1")

// isFilled is the fill-verification rule: a placed order is filled when
// matched size equals requested size, or is within a single share of it.
func isFilled(requested, matched money.Size) bool {
	var diff money.Size
	if matched.Cmp(requested) >= 0 {
		diff = matched.Sub(requested)
	} else {
		diff = requested.Sub(matched)
	}
	return diff.Cmp(oneShare) <= 0
}

type legResult struct {
	orderID string
	err     error
}

// placeAtomic places both legs concurrently at their planned limit prices,
// waits a settling window, then polls fills up to cancel_timeout.
func (e *Executor) placeAtomic(ctx context.Context, plan TradePlan) (Outcome, error) {
	yesCh := make(chan legResult, 1)
	noCh := make(chan legResult, 1)

	go func() {
		id, err := e.client.PlaceLimit(ctx, plan.YesVenue, plan.YesToken, plan.YesQty, plan.YesFillPrice, Yes)
		yesCh <- legResult{orderID: id, err: err}
	}()
	go func() {
		id, err := e.client.PlaceLimit(ctx, plan.NoVenue, plan.NoToken, plan.NoQty, plan.NoFillPrice, No)
		noCh <- legResult{orderID: id, err: err}
	}()

	yesRes := <-yesCh
	noRes := <-noCh

	if yesRes.err != nil && noRes.err != nil {
		return OutcomeFailed, yesRes.err
	}
	if yesRes.err != nil {
		e.cancelLeg(ctx, plan.NoVenue, noRes.orderID)
		return OutcomeNoFill, yesRes.err
	}
	if noRes.err != nil {
		e.cancelLeg(ctx, plan.YesVenue, yesRes.orderID)
		return OutcomeNoFill, noRes.err
	}

	if e.cfg.SettlingWindow > 0 {
		select {
		case <-time.After(e.cfg.SettlingWindow):
		case <-ctx.Done():
			return OutcomeFailed, ctx.Err()
		}
	}

	yesMatched, yesFilled := e.pollUntilFilledOrTimeout(ctx, plan.YesVenue, yesRes.orderID, plan.YesQty)
	noMatched, noFilled := e.pollUntilFilledOrTimeout(ctx, plan.NoVenue, noRes.orderID, plan.NoQty)

	switch {
	case yesFilled && noFilled:
		if e.cfg.DryRun && e.ledger != nil {
			e.ledger.ApplyFill(plan.MarketID, Yes, plan.YesQty, plan.YesFillPrice)
			e.ledger.ApplyFill(plan.MarketID, No, plan.NoQty, plan.NoFillPrice)
		}
		return OutcomeFilled, nil

	case yesFilled && !noFilled:
		e.cancelLeg(ctx, plan.NoVenue, noRes.orderID)
		if !yesMatched.IsZero() {
			if e.cfg.DryRun && e.ledger != nil {
				e.ledger.ApplyFill(plan.MarketID, Yes, yesMatched, plan.YesFillPrice)
			}
			return OutcomeRebalanceNeeded, nil
		}
		return OutcomeNoFill, nil

	case noFilled && !yesFilled:
		e.cancelLeg(ctx, plan.YesVenue, yesRes.orderID)
		if !noMatched.IsZero() {
			if e.cfg.DryRun && e.ledger != nil {
				e.ledger.ApplyFill(plan.MarketID, No, noMatched, plan.NoFillPrice)
			}
			return OutcomeRebalanceNeeded, nil
		}
		return OutcomeNoFill, nil

	default:
		e.cancelLeg(ctx, plan.YesVenue, yesRes.orderID)
		e.cancelLeg(ctx, plan.NoVenue, noRes.orderID)
		return OutcomeNoFill, nil
	}
}

func (e *Executor) cancelLeg(ctx context.Context, venue, orderID string) {
	if orderID == "" {
		return
	}
	if err := e.client.Cancel(ctx, venue, orderID); err != nil {
		e.log.Warn("cancel failed", zap.String("venue", venue), zap.String("order_id", orderID), zap.Error(err))
	}
}

// pollUntilFilledOrTimeout polls GetOrder at a fixed cadence until the leg is
// filled (within fill-verification tolerance) or cancel_timeout elapses.
func (e *Executor) pollUntilFilledOrTimeout(ctx context.Context, venue, orderID string, requested money.Size) (money.Size, bool) {
	interval := e.cfg.SequentialPollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(e.cfg.CancelTimeout)

	for {
		matched, status, err := e.client.GetOrder(ctx, venue, orderID)
		if err == nil && (status == StatusFilled || isFilled(requested, matched)) {
			return matched, true
		}
		if !time.Now().Before(deadline) {
			return matched, false
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return matched, false
		}
	}
}

// placeSequential places firstSide first, polls for its fill, then either
// places the second leg (if it still clears the profit gate) or schedules a
// rebalance.
func (e *Executor) placeSequential(ctx context.Context, plan TradePlan, firstSide Side) (Outcome, error) {
	firstVenue, firstToken, firstQty, firstPrice := plan.YesVenue, plan.YesToken, plan.YesQty, plan.YesFillPrice
	secondVenue, secondToken, secondQty := plan.NoVenue, plan.NoToken, plan.NoQty
	secondSide := No
	if firstSide == No {
		firstVenue, firstToken, firstQty, firstPrice = plan.NoVenue, plan.NoToken, plan.NoQty, plan.NoFillPrice
		secondVenue, secondToken, secondQty = plan.YesVenue, plan.YesToken, plan.YesQty
		secondSide = Yes
	}

	orderID, err := e.client.PlaceLimit(ctx, firstVenue, firstToken, firstQty, firstPrice, firstSide)
	if err != nil {
		return OutcomeNoFill, err
	}

	interval := e.cfg.SequentialPollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(e.cfg.SequentialPollTimeout)

	var matched money.Size
	filled := false
	for {
		var status OrderStatus
		matched, status, err = e.client.GetOrder(ctx, firstVenue, orderID)
		if err == nil && (status == StatusFilled || isFilled(firstQty, matched)) {
			filled = true
			break
		}
		if !time.Now().Before(deadline) {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			e.cancelLeg(ctx, firstVenue, orderID)
			return OutcomeNoFill, ctx.Err()
		}
	}

	if !filled {
		e.cancelLeg(ctx, firstVenue, orderID)
		return OutcomeNoFill, nil
	}

	if e.cfg.DryRun && e.ledger != nil {
		e.ledger.ApplyFill(plan.MarketID, firstSide, matched, firstPrice)
	}

	secondAsk, err := e.client.BestAsk(ctx, secondVenue, secondToken)
	if err != nil {
		return OutcomeRebalanceNeeded, err
	}

	firstFee := plan.YesFee
	secondFee := plan.NoFee
	if firstSide == No {
		firstFee = plan.NoFee
		secondFee = plan.YesFee
	}

	costPerContract := firstPrice.Add(secondAsk)
	costPerContract = costPerContract.Add(money.PriceFromDecimal(firstPrice.Mul(firstFee)))
	costPerContract = costPerContract.Add(money.PriceFromDecimal(secondAsk.Mul(secondFee)))
	profit := money.NewPrice("1").Sub(costPerContract)

	if profit.LessThan(e.cfg.MinProfitAbsolute) {
		e.log.Info("second leg skipped: profit gate failed after drift",
			zap.String("market_id", plan.MarketID), zap.String("cost", costPerContract.String()))
		return OutcomeRebalanceNeeded, nil
	}

	result, err := e.client.PlaceMarket(ctx, secondVenue, secondToken, secondQty, secondSide)
	if err != nil {
		return OutcomeRebalanceNeeded, err
	}
	if !isFilled(secondQty, result.MatchedSize) {
		return OutcomeRebalanceNeeded, nil
	}

	if e.cfg.DryRun && e.ledger != nil {
		e.ledger.ApplyFill(plan.MarketID, secondSide, result.MatchedSize, secondAsk)
	}

	return OutcomeFilled, nil
}

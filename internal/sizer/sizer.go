// Package sizer implements the lockstep ladder walk: given both legs'
// ask depth, find the largest position fillable at or above a minimum
// profit percentage, walking level by level on each side in step.
package sizer

import (
	"github.com/shopspring/decimal"

	"predictarb/internal/money"
)

// Level is one ask-side price/size pair from an order book.
type Level struct {
	Price money.Price
	Size  money.Size
}

// LevelFill records how much of one ladder step was used.
type LevelFill struct {
	Contracts int64
	YesPrice  money.Price
	NoPrice   money.Price
	ProfitPct decimal.Decimal
}

// Result is the outcome of walking both ladders to their profitable limit.
type Result struct {
	MaxContracts int64
	TotalCostYes money.Price
	TotalCostNo  money.Price
	TotalFees    money.Price
	AvgYesPrice  money.Price
	AvgNoPrice   money.Price
	NetProfit    money.Price
	NetProfitPct decimal.Decimal
	Levels       []LevelFill
}

// CalculateMaxProfitableSize walks yesAsks and noAsks in lockstep, filling
// contracts at each pair of levels while per-contract profit percentage
// stays at or above minProfitPct. Returns (nil, false) if no profitable
// size exists. A larger minProfitPct never yields a larger result, and the
// payout identity always holds on the result it does return.
func CalculateMaxProfitableSize(yesAsks, noAsks []Level, yesFeeRate, noFeeRate money.Price, minProfitPct decimal.Decimal) (*Result, bool) {
	if len(yesAsks) == 0 || len(noAsks) == 0 {
		return nil, false
	}

	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)

	var totalContracts int64
	totalYesCost := decimal.Zero
	totalNoCost := decimal.Zero
	var levels []LevelFill

	yIdx, nIdx := 0, 0
	yFilled, nFilled := decimal.Zero, decimal.Zero

	for yIdx < len(yesAsks) && nIdx < len(noAsks) {
		yLevel := yesAsks[yIdx]
		nLevel := noAsks[nIdx]

		yAvail := yLevel.Size.Decimal().Sub(yFilled)
		nAvail := nLevel.Size.Decimal().Sub(nFilled)

		canFill := yAvail
		if nAvail.LessThan(canFill) {
			canFill = nAvail
		}
		if !canFill.IsPositive() {
			break
		}

		yesPrice := yLevel.Price.Decimal()
		noPrice := nLevel.Price.Decimal()
		yesFee := yesPrice.Mul(yesFeeRate.Decimal())
		noFee := noPrice.Mul(noFeeRate.Decimal())
		totalCostPerContract := yesPrice.Add(noPrice).Add(yesFee).Add(noFee)
		profitPerContract := one.Sub(totalCostPerContract)

		var profitPct decimal.Decimal
		if totalCostPerContract.IsPositive() {
			profitPct = profitPerContract.Div(totalCostPerContract).Mul(hundred)
		} else {
			profitPct = decimal.Zero
		}

		if profitPct.LessThan(minProfitPct) {
			break
		}

		contracts := canFill.Floor().IntPart()
		if contracts <= 0 {
			break
		}
		contractsDec := decimal.NewFromInt(contracts)

		totalContracts += contracts
		totalYesCost = totalYesCost.Add(contractsDec.Mul(yesPrice))
		totalNoCost = totalNoCost.Add(contractsDec.Mul(noPrice))

		levels = append(levels, LevelFill{
			Contracts: contracts,
			YesPrice:  yLevel.Price,
			NoPrice:   nLevel.Price,
			ProfitPct: profitPct,
		})

		yFilled = yFilled.Add(contractsDec)
		nFilled = nFilled.Add(contractsDec)

		if yFilled.GreaterThanOrEqual(yLevel.Size.Decimal()) {
			yIdx++
			yFilled = decimal.Zero
		}
		if nFilled.GreaterThanOrEqual(nLevel.Size.Decimal()) {
			nIdx++
			nFilled = decimal.Zero
		}
	}

	if totalContracts == 0 {
		return nil, false
	}

	totalContractsDec := decimal.NewFromInt(totalContracts)
	totalFees := totalYesCost.Mul(yesFeeRate.Decimal()).Add(totalNoCost.Mul(noFeeRate.Decimal()))
	totalInvestment := totalYesCost.Add(totalNoCost).Add(totalFees)
	netProfit := totalContractsDec.Sub(totalInvestment)

	var netProfitPct decimal.Decimal
	if totalInvestment.IsPositive() {
		netProfitPct = netProfit.Div(totalInvestment).Mul(hundred)
	} else {
		netProfitPct = decimal.Zero
	}

	return &Result{
		MaxContracts: totalContracts,
		TotalCostYes: money.PriceFromDecimal(totalYesCost),
		TotalCostNo:  money.PriceFromDecimal(totalNoCost),
		TotalFees:    money.PriceFromDecimal(totalFees),
		AvgYesPrice:  money.PriceFromDecimal(totalYesCost.Div(totalContractsDec)),
		AvgNoPrice:   money.PriceFromDecimal(totalNoCost.Div(totalContractsDec)),
		NetProfit:    money.PriceFromDecimal(netProfit),
		NetProfitPct: netProfitPct,
		Levels:       levels,
	}, true
}

// EstimateAvgPrice estimates the average fill price for an order of
// orderSizeDollars notional walked against depth.
func EstimateAvgPrice(depth []Level, orderSizeDollars decimal.Decimal) (decimal.Decimal, bool) {
	if len(depth) == 0 {
		return decimal.Zero, false
	}

	remaining := orderSizeDollars
	totalCost := decimal.Zero
	totalContracts := decimal.Zero

	for _, level := range depth {
		if !remaining.IsPositive() {
			break
		}
		levelValue := level.Size.Decimal().Mul(level.Price.Decimal())
		takeValue := remaining
		if levelValue.LessThan(takeValue) {
			takeValue = levelValue
		}
		if level.Price.IsZero() {
			continue
		}
		takeContracts := takeValue.Div(level.Price.Decimal())

		totalCost = totalCost.Add(takeValue)
		totalContracts = totalContracts.Add(takeContracts)
		remaining = remaining.Sub(takeValue)
	}

	if !totalContracts.IsPositive() {
		return decimal.Zero, false
	}
	return totalCost.Div(totalContracts), true
}

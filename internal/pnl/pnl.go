// Package pnl derives financial metrics for a single trade. Every function
// is pure: missing inputs propagate to nil outputs, never to a panic or a
// default of zero.
package pnl

import (
	"github.com/shopspring/decimal"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

// Gross returns the gross P&L for a closed position:
// long (exit-entry)×qty×multiplier, short (entry-exit)×qty×multiplier.
func Gross(direction models.Direction, entryPrice, exitPrice, quantity, multiplier decimal.Decimal) decimal.Decimal {
	if direction == models.DirectionShort {
		return entryPrice.Sub(exitPrice).Mul(quantity).Mul(multiplier)
	}
	return exitPrice.Sub(entryPrice).Mul(quantity).Mul(multiplier)
}

// Net returns gross P&L minus fees.
func Net(grossPnl, fees decimal.Decimal) decimal.Decimal {
	return grossPnl.Sub(fees)
}

// PerShare returns the per-share P&L, independent of quantity and
// multiplier.
func PerShare(direction models.Direction, entryPrice, exitPrice decimal.Decimal) decimal.Decimal {
	if direction == models.DirectionShort {
		return entryPrice.Sub(exitPrice)
	}
	return exitPrice.Sub(entryPrice)
}

// RiskPerShare returns |entry - stop|, or nil when the stop sits exactly on
// the entry: such a stop carries no defined risk.
func RiskPerShare(entryPrice, stopLossPrice decimal.Decimal) *decimal.Decimal {
	risk := entryPrice.Sub(stopLossPrice).Abs()
	if risk.IsZero() {
		return nil
	}
	return &risk
}

// RMultiple returns per-share P&L as a multiple of per-share risk, or nil
// when the risk is nil or zero.
func RMultiple(pnlPerShare decimal.Decimal, riskPerShare *decimal.Decimal) *decimal.Decimal {
	if riskPerShare == nil || riskPerShare.IsZero() {
		return nil
	}
	r := pnlPerShare.Div(*riskPerShare)
	return &r
}

// Classify maps net P&L to a result: strictly positive is a win, strictly
// negative a loss, exact zero breakeven.
func Classify(netPnl decimal.Decimal) models.TradeResult {
	switch netPnl.Sign() {
	case 1:
		return models.ResultWin
	case -1:
		return models.ResultLoss
	default:
		return models.ResultBreakeven
	}
}

// Derive computes all derived fields for a trade. A trade without an exit
// price or quantity has no realized P&L and no result classification; a
// stop-loss alone still yields a risk-per-share.
func Derive(t models.Trade) models.DerivedFields {
	var d models.DerivedFields
	multiplier := t.AssetClass.Multiplier()

	if t.ExitPrice != nil && t.Quantity != nil {
		gross := Gross(t.Direction, t.EntryPrice, *t.ExitPrice, *t.Quantity, multiplier)
		net := Net(gross, t.Fees)
		perShare := PerShare(t.Direction, t.EntryPrice, *t.ExitPrice)
		d.GrossPnl = &gross
		d.NetPnl = &net
		d.PnlPerShare = &perShare
	}

	if t.StopLossPrice != nil {
		d.RiskPerShare = RiskPerShare(t.EntryPrice, *t.StopLossPrice)
	}

	if d.PnlPerShare != nil {
		d.RMultiple = RMultiple(*d.PnlPerShare, d.RiskPerShare)
	}

	if d.NetPnl != nil {
		d.Result = Classify(*d.NetPnl)
	}

	return d
}

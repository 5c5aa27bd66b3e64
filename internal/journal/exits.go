// Package journal reconstructs logical trades from broker executions and
// manual entries, and owns their validation rules.
package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

// QtyEpsilon is the tolerance used when deciding whether a position is
// fully exited. Repeated fractional-share fills accumulate rounding noise
// in broker logs, so exact quantity equality is deliberately not required.
var QtyEpsilon = decimal.NewFromFloat(0.0001)

// ExitSource selects the validation regime for exit aggregation. Imported
// fills were already screened line-by-line by the parser and are taken as
// given; manual entries are user input and any invalid leg aborts the whole
// operation.
type ExitSource int

const (
	ExitSourceImported ExitSource = iota
	ExitSourceManual
)

// ExitSummary is the aggregate of a trade's exit legs. Status is empty when
// no exits were supplied, in which case the caller keeps its prior status.
type ExitSummary struct {
	AvgExitPrice   *decimal.Decimal
	LatestExitTime string
	TotalQuantity  decimal.Decimal
	TotalFees      decimal.Decimal
	Status         models.Status
}

// AggregateExits reduces a trade's exit legs against its entry quantity:
// weighted-average exit price, summed fees, latest exit time, and the
// open/closed decision. The position counts as closed once the remaining
// quantity is within QtyEpsilon of zero.
//
// In manual mode each leg must have a positive quantity and price and a
// non-negative fee, and the exits may not oversell the entry; the first
// violation aborts with an error naming the leg's 1-based ordinal.
func AggregateExits(entryQty decimal.Decimal, exits []models.ExitLeg, source ExitSource) (ExitSummary, error) {
	var summary ExitSummary
	if len(exits) == 0 {
		return summary, nil
	}

	if source == ExitSourceManual {
		for i, leg := range exits {
			if leg.Quantity.Sign() <= 0 {
				return summary, fmt.Errorf("exit %d quantity must be greater than 0", i+1)
			}
			if leg.Price.Sign() <= 0 {
				return summary, fmt.Errorf("exit %d price must be greater than 0", i+1)
			}
			if leg.Fees != nil && leg.Fees.Sign() < 0 {
				return summary, fmt.Errorf("exit %d fees cannot be negative", i+1)
			}
		}
	}

	totalQty := decimal.Zero
	weighted := decimal.Zero
	fees := decimal.Zero
	latestTime := ""
	for _, leg := range exits {
		totalQty = totalQty.Add(leg.Quantity)
		weighted = weighted.Add(leg.Quantity.Mul(leg.Price))
		if leg.Fees != nil {
			fees = fees.Add(*leg.Fees)
		}
		if leg.ExitTime != "" && leg.ExitTime > latestTime {
			latestTime = leg.ExitTime
		}
	}

	if source == ExitSourceManual && entryQty.Sign() > 0 && totalQty.GreaterThan(entryQty) {
		return summary, fmt.Errorf("total exit quantity (%s) cannot exceed entry quantity (%s)", totalQty, entryQty)
	}

	summary.TotalQuantity = totalQty
	summary.TotalFees = fees
	summary.LatestExitTime = latestTime
	if totalQty.Sign() > 0 {
		avg := weighted.Div(totalQty)
		summary.AvgExitPrice = &avg
	}

	// Manual exits must land within the epsilon of the entry to close;
	// imported fills also close on over-exit, where the remainder goes
	// negative.
	closed := false
	if entryQty.Sign() > 0 {
		if source == ExitSourceManual {
			closed = totalQty.Sub(entryQty).Abs().LessThan(QtyEpsilon)
		} else {
			closed = entryQty.Sub(totalQty).LessThanOrEqual(QtyEpsilon)
		}
	}
	switch {
	case closed:
		summary.Status = models.StatusClosed
	case totalQty.Sign() > 0 && totalQty.LessThan(entryQty):
		summary.Status = models.StatusOpen
	}

	return summary, nil
}

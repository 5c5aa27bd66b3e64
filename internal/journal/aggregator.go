package journal

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
	"github.com/gbFinch/FreeTradingJournal/internal/pnl"
)

// TradeLeg is one entry or exit inside an aggregated trade. Quantity and
// fees are unsigned magnitudes regardless of the wire encoding.
type TradeLeg struct {
	ExecutionDate     time.Time       `json:"execution_date"`
	ExecutionTime     string          `json:"execution_time,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	Fees              decimal.Decimal `json:"fees"`
	Exchange          string          `json:"exchange,omitempty"`
	BrokerExecutionID string          `json:"broker_execution_id"`
}

// AggregatedTrade is one logical round-trip (or still-open position)
// reconstructed from executions of a single instrument.
type AggregatedTrade struct {
	Key              string            `json:"key"`
	Symbol           string            `json:"symbol"`
	UnderlyingSymbol string            `json:"underlying_symbol"`
	AssetClass       models.AssetClass `json:"asset_class"`
	OptionType       models.OptionType `json:"option_type,omitempty"`
	StrikePrice      *decimal.Decimal  `json:"strike_price,omitempty"`
	ExpirationDate   *time.Time        `json:"expiration_date,omitempty"`
	Direction        models.Direction  `json:"direction"`
	TradeDate        time.Time         `json:"trade_date"`
	Entries          []TradeLeg        `json:"entries"`
	Exits            []TradeLeg        `json:"exits"`
	Status           models.Status     `json:"status"`
	TotalQuantity    decimal.Decimal   `json:"total_quantity"`
	AvgEntryPrice    decimal.Decimal   `json:"avg_entry_price"`
	AvgExitPrice     *decimal.Decimal  `json:"avg_exit_price,omitempty"`
	TotalFees        decimal.Decimal   `json:"total_fees"`
	NetPnl           *decimal.Decimal  `json:"net_pnl,omitempty"`
}

// positionTracker accumulates same-symbol executions into one trade.
type positionTracker struct {
	symbol        string
	underlying    string
	assetClass    models.AssetClass
	optionDetails *models.OptionDetails
	direction     models.Direction
	entries       []models.Execution
	exits         []models.Execution
	openQty       decimal.Decimal
}

func newPositionTracker(exec models.Execution) *positionTracker {
	return &positionTracker{
		symbol:        exec.Symbol,
		underlying:    exec.UnderlyingSymbol(),
		assetClass:    exec.AssetClass,
		optionDetails: exec.OptionDetails,
	}
}

func (p *positionTracker) add(exec models.Execution) {
	qty := exec.AbsQuantity()
	if exec.Action.IsOpening() {
		// The first opening execution fixes the direction for good.
		if p.direction == "" {
			if exec.Action == models.ActionBuyToOpen {
				p.direction = models.DirectionLong
			} else {
				p.direction = models.DirectionShort
			}
		}
		p.entries = append(p.entries, exec)
		p.openQty = p.openQty.Add(qty)
	} else {
		p.exits = append(p.exits, exec)
		p.openQty = p.openQty.Sub(qty)
	}
}

// Aggregate reconstructs logical trades from a batch of parsed executions.
// Executions are time-sorted here, then bucketed by raw symbol, so option
// contracts with different strikes or expiries never merge. Output slices
// are ordered by (trade date, symbol).
func Aggregate(execs []models.Execution) (closed, open []AggregatedTrade) {
	sorted := make([]models.Execution, len(execs))
	copy(sorted, execs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ExecutionDate.Equal(sorted[j].ExecutionDate) {
			return sorted[i].ExecutionDate.Before(sorted[j].ExecutionDate)
		}
		return sorted[i].ExecutionTime < sorted[j].ExecutionTime
	})

	trackers := make(map[string]*positionTracker)
	for _, exec := range sorted {
		tracker, ok := trackers[exec.Symbol]
		if !ok {
			tracker = newPositionTracker(exec)
			trackers[exec.Symbol] = tracker
		}
		tracker.add(exec)
	}

	for _, tracker := range trackers {
		trade := tracker.aggregatedTrade()
		if trade.Status == models.StatusClosed {
			closed = append(closed, trade)
		} else {
			open = append(open, trade)
		}
	}

	sortTrades(closed)
	sortTrades(open)
	return closed, open
}

// sortTrades orders by trade date, then symbol. The symbol tie-break keeps
// output deterministic where map iteration order is not.
func sortTrades(trades []AggregatedTrade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].TradeDate.Equal(trades[j].TradeDate) {
			return trades[i].TradeDate.Before(trades[j].TradeDate)
		}
		return trades[i].Symbol < trades[j].Symbol
	})
}

func (p *positionTracker) aggregatedTrade() AggregatedTrade {
	entries := legsFromExecutions(p.entries)
	exits := legsFromExecutions(p.exits)

	var tradeDate time.Time
	switch {
	case len(entries) > 0:
		tradeDate = entries[0].ExecutionDate
	case len(exits) > 0:
		// Degenerate bucket with no entries; cannot occur from a coherent
		// log but must still produce a well-formed open position.
		tradeDate = exits[0].ExecutionDate
	}

	direction := p.direction
	if direction == "" {
		direction = models.DirectionLong
	}

	trade := AggregatedTrade{
		Key:              fmt.Sprintf("%s_%s", p.symbol, tradeDate.Format("2006-01-02")),
		Symbol:           p.symbol,
		UnderlyingSymbol: p.underlying,
		AssetClass:       p.assetClass,
		Direction:        direction,
		TradeDate:        tradeDate,
		Entries:          entries,
		Exits:            exits,
		Status:           models.StatusOpen,
	}

	if p.optionDetails != nil {
		trade.OptionType = p.optionDetails.OptionType
		strike := p.optionDetails.StrikePrice
		trade.StrikePrice = &strike
		expiry := p.optionDetails.ExpirationDate
		trade.ExpirationDate = &expiry
	}

	trade.calculateDerived()
	return trade
}

func legsFromExecutions(execs []models.Execution) []TradeLeg {
	legs := make([]TradeLeg, 0, len(execs))
	for i := range execs {
		e := &execs[i]
		legs = append(legs, TradeLeg{
			ExecutionDate:     e.ExecutionDate,
			ExecutionTime:     e.ExecutionTime,
			Quantity:          e.AbsQuantity(),
			Price:             e.Price,
			Fees:              e.AbsFees(),
			Exchange:          e.Exchange,
			BrokerExecutionID: e.BrokerExecutionID,
		})
	}
	return legs
}

// calculateDerived fills the aggregate fields from the entry and exit legs:
// total quantity, weighted-average prices, fee total, status, and net P&L
// for closed positions.
func (t *AggregatedTrade) calculateDerived() {
	totalQty := decimal.Zero
	weighted := decimal.Zero
	entryFees := decimal.Zero
	for _, leg := range t.Entries {
		totalQty = totalQty.Add(leg.Quantity)
		weighted = weighted.Add(leg.Quantity.Mul(leg.Price))
		entryFees = entryFees.Add(leg.Fees)
	}
	t.TotalQuantity = totalQty
	if totalQty.Sign() > 0 {
		t.AvgEntryPrice = weighted.Div(totalQty)
	} else {
		t.AvgEntryPrice = decimal.Zero
	}

	exitLegs := make([]models.ExitLeg, 0, len(t.Exits))
	for _, leg := range t.Exits {
		fees := leg.Fees
		exitLegs = append(exitLegs, models.ExitLeg{
			ExitDate: leg.ExecutionDate,
			ExitTime: leg.ExecutionTime,
			Quantity: leg.Quantity,
			Price:    leg.Price,
			Fees:     &fees,
		})
	}
	// Imported fills were screened by the parser; over-exits close the
	// position rather than aborting it.
	summary, _ := AggregateExits(totalQty, exitLegs, ExitSourceImported)

	t.TotalFees = entryFees.Add(summary.TotalFees)

	if summary.Status == models.StatusClosed && len(t.Entries) > 0 {
		t.Status = models.StatusClosed
		t.AvgExitPrice = summary.AvgExitPrice
		gross := pnl.Gross(t.Direction, t.AvgEntryPrice, *summary.AvgExitPrice, totalQty, t.AssetClass.Multiplier())
		net := pnl.Net(gross, t.TotalFees)
		t.NetPnl = &net
	} else {
		t.Status = models.StatusOpen
		t.AvgExitPrice = nil
		t.NetPnl = nil
	}
}

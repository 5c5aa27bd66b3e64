package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Trade direction constants
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ParseDirection matches a direction string case-insensitively.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(s)) {
	case DirectionLong:
		return DirectionLong, true
	case DirectionShort:
		return DirectionShort, true
	}
	return "", false
}

// Trade lifecycle constants
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ParseStatus matches a status string case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(s)) {
	case StatusOpen:
		return StatusOpen, true
	case StatusClosed:
		return StatusClosed, true
	}
	return "", false
}

// Trade result constants. The empty string means unclassified (open trade).
type TradeResult string

const (
	ResultWin       TradeResult = "win"
	ResultLoss      TradeResult = "loss"
	ResultBreakeven TradeResult = "breakeven"
)

// ExitLeg is one partial exit of a trade: either an imported closing fill or
// a manually entered exit.
type ExitLeg struct {
	ExitDate time.Time        `json:"exit_date"`
	ExitTime string           `json:"exit_time,omitempty"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    decimal.Decimal  `json:"price"`
	Fees     *decimal.Decimal `json:"fees,omitempty"`
}

// Trade is the journal's trade record with resolved entry/exit economics.
// Quantity is always unsigned; direction carries the side.
type Trade struct {
	ID            string           `json:"id"`
	Symbol        string           `json:"symbol"`
	AssetClass    AssetClass       `json:"asset_class"`
	Currency      string           `json:"currency"`
	TradeDate     time.Time        `json:"trade_date"`
	Direction     Direction        `json:"direction"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	EntryPrice    decimal.Decimal  `json:"entry_price"`
	ExitPrice     *decimal.Decimal `json:"exit_price,omitempty"`
	StopLossPrice *decimal.Decimal `json:"stop_loss_price,omitempty"`
	EntryTime     string           `json:"entry_time,omitempty"`
	ExitTime      string           `json:"exit_time,omitempty"`
	Fees          decimal.Decimal  `json:"fees"`
	Strategy      string           `json:"strategy,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Status        Status           `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// DerivedFields are the financial metrics computed from a trade's resolved
// fields. A trade without an exit price yields all-nil derived fields.
type DerivedFields struct {
	GrossPnl     *decimal.Decimal `json:"gross_pnl,omitempty"`
	NetPnl       *decimal.Decimal `json:"net_pnl,omitempty"`
	PnlPerShare  *decimal.Decimal `json:"pnl_per_share,omitempty"`
	RiskPerShare *decimal.Decimal `json:"risk_per_share,omitempty"`
	RMultiple    *decimal.Decimal `json:"r_multiple,omitempty"`
	Result       TradeResult      `json:"result,omitempty"`
}

// TradeWithDerived couples a trade with its derived metrics.
type TradeWithDerived struct {
	Trade
	DerivedFields
}

// CreateTradeInput carries a manually entered trade, optionally with partial
// exits that are aggregated into the trade's exit price and status.
type CreateTradeInput struct {
	Symbol        string           `json:"symbol"`
	AssetClass    AssetClass       `json:"asset_class,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	TradeDate     time.Time        `json:"trade_date"`
	Direction     Direction        `json:"direction"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	EntryPrice    decimal.Decimal  `json:"entry_price"`
	ExitPrice     *decimal.Decimal `json:"exit_price,omitempty"`
	StopLossPrice *decimal.Decimal `json:"stop_loss_price,omitempty"`
	EntryTime     string           `json:"entry_time,omitempty"`
	ExitTime      string           `json:"exit_time,omitempty"`
	Fees          *decimal.Decimal `json:"fees,omitempty"`
	Strategy      string           `json:"strategy,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Status        Status           `json:"status,omitempty"`
	Exits         []ExitLeg        `json:"exits,omitempty"`
}

// UpdateTradeInput carries a partial trade update. Nil fields keep the
// stored value. Supplying exits replaces the trade's exit set and
// recomputes exit price, exit time, fees, and status from it.
type UpdateTradeInput struct {
	Symbol        *string          `json:"symbol,omitempty"`
	TradeDate     *time.Time       `json:"trade_date,omitempty"`
	Direction     *Direction       `json:"direction,omitempty"`
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	EntryPrice    *decimal.Decimal `json:"entry_price,omitempty"`
	ExitPrice     *decimal.Decimal `json:"exit_price,omitempty"`
	StopLossPrice *decimal.Decimal `json:"stop_loss_price,omitempty"`
	EntryTime     *string          `json:"entry_time,omitempty"`
	ExitTime      *string          `json:"exit_time,omitempty"`
	Fees          *decimal.Decimal `json:"fees,omitempty"`
	Strategy      *string          `json:"strategy,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Status        *Status          `json:"status,omitempty"`
	Exits         []ExitLeg        `json:"exits,omitempty"`
}

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Action is a broker execution action from the trade log.
type Action string

const (
	ActionBuyToOpen   Action = "BUYTOOPEN"
	ActionSellToClose Action = "SELLTOCLOSE"
	ActionSellToOpen  Action = "SELLTOOPEN"
	ActionBuyToClose  Action = "BUYTOCLOSE"
)

// ParseAction matches an action string case-insensitively against the four
// known broker actions.
func ParseAction(s string) (Action, bool) {
	switch Action(strings.ToUpper(s)) {
	case ActionBuyToOpen:
		return ActionBuyToOpen, true
	case ActionSellToClose:
		return ActionSellToClose, true
	case ActionSellToOpen:
		return ActionSellToOpen, true
	case ActionBuyToClose:
		return ActionBuyToClose, true
	}
	return "", false
}

// IsOpening reports whether this action starts a position.
func (a Action) IsOpening() bool {
	return a == ActionBuyToOpen || a == ActionSellToOpen
}

// IsClosing reports whether this action reduces or ends a position.
func (a Action) IsClosing() bool {
	return a == ActionSellToClose || a == ActionBuyToClose
}

// IsBuy reports whether this is a buy action (long entry or short exit).
func (a Action) IsBuy() bool {
	return a == ActionBuyToOpen || a == ActionBuyToClose
}

// Asset class constants
type AssetClass string

const (
	AssetClassStock  AssetClass = "stock"
	AssetClassOption AssetClass = "option"
)

// ParseAssetClass matches an asset class string case-insensitively.
func ParseAssetClass(s string) (AssetClass, bool) {
	switch AssetClass(strings.ToLower(s)) {
	case AssetClassStock:
		return AssetClassStock, true
	case AssetClassOption:
		return AssetClassOption, true
	}
	return "", false
}

// Multiplier returns the contract multiplier for this asset class:
// 100 for options (1 contract = 100 shares), 1 for everything else.
func (a AssetClass) Multiplier() decimal.Decimal {
	if a == AssetClassOption {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(1)
}

// Option type constants
type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

// OptionDetails holds the contract terms decoded from a packed OCC symbol.
type OptionDetails struct {
	Underlying     string          `json:"underlying"`
	ExpirationDate time.Time       `json:"expiration_date"`
	OptionType     OptionType      `json:"option_type"`
	StrikePrice    decimal.Decimal `json:"strike_price"`
}

// Execution is one fill parsed from a broker trade log line. Quantity keeps
// the wire sign (positive buys, negative sells) and fees keep the wire
// convention of a negative magnitude.
type Execution struct {
	BrokerExecutionID string           `json:"broker_execution_id"`
	Symbol            string           `json:"symbol"`
	Name              string           `json:"name"`
	Exchange          string           `json:"exchange"`
	Action            Action           `json:"action"`
	ExecutionDate     time.Time        `json:"execution_date"`
	ExecutionTime     string           `json:"execution_time"`
	Currency          string           `json:"currency"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Multiplier        decimal.Decimal  `json:"multiplier"`
	Price             decimal.Decimal  `json:"price"`
	Total             decimal.Decimal  `json:"total"`
	Fees              decimal.Decimal  `json:"fees"`
	FxRate            *decimal.Decimal `json:"fx_rate,omitempty"`
	AssetClass        AssetClass       `json:"asset_class"`
	OptionDetails     *OptionDetails   `json:"option_details,omitempty"`
}

// AbsQuantity returns the unsigned fill quantity.
func (e *Execution) AbsQuantity() decimal.Decimal {
	return e.Quantity.Abs()
}

// AbsFees returns the fee magnitude.
func (e *Execution) AbsFees() decimal.Decimal {
	return e.Fees.Abs()
}

// UnderlyingSymbol returns the instrument the execution ultimately exposes:
// the decoded underlying for options, the raw symbol otherwise.
func (e *Execution) UnderlyingSymbol() string {
	if e.OptionDetails != nil {
		return e.OptionDetails.Underlying
	}
	return e.Symbol
}

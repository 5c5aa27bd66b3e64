package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ProfitFactor is gross wins over the magnitude of gross losses. It is kept
// as a float64 because +Inf (wins with zero losses) is a legal value that
// decimals cannot represent. It serializes as a JSON number, or the string
// "inf" for the infinite case, since encoding/json rejects IEEE infinities.
type ProfitFactor float64

func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(p), 1) {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(p))
}

func (p *ProfitFactor) UnmarshalJSON(b []byte) error {
	if string(b) == `"inf"` {
		*p = ProfitFactor(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*p = ProfitFactor(f)
	return nil
}

// IsInf reports whether the profit factor is the documented infinite case.
func (p ProfitFactor) IsInf() bool {
	return math.IsInf(float64(p), 1)
}

// InfiniteProfitFactor is the value for a period with wins and no losses.
func InfiniteProfitFactor() ProfitFactor {
	return ProfitFactor(math.Inf(1))
}

// DailyPerformance aggregates realized results for one calendar day.
// Breakeven trades count toward TradeCount but neither win nor loss.
type DailyPerformance struct {
	Date           time.Time       `json:"date"`
	RealizedNetPnl decimal.Decimal `json:"realized_net_pnl"`
	TradeCount     int             `json:"trade_count"`
	WinCount       int             `json:"win_count"`
	LossCount      int             `json:"loss_count"`
}

// PeriodMetrics aggregates an arbitrary trade set for dashboard analytics.
// Optional fields are nil when the trade set has nothing to decide them
// with (no decisive trades, no wins, no losses).
type PeriodMetrics struct {
	TotalNetPnl    decimal.Decimal  `json:"total_net_pnl"`
	TradeCount     int              `json:"trade_count"`
	WinCount       int              `json:"win_count"`
	LossCount      int              `json:"loss_count"`
	BreakevenCount int              `json:"breakeven_count"`
	WinRate        *decimal.Decimal `json:"win_rate,omitempty"`
	AvgWin         *decimal.Decimal `json:"avg_win,omitempty"`
	AvgLoss        *decimal.Decimal `json:"avg_loss,omitempty"`
	ProfitFactor   *ProfitFactor    `json:"profit_factor,omitempty"`
	Expectancy     *decimal.Decimal `json:"expectancy,omitempty"`
	MaxDrawdown    decimal.Decimal  `json:"max_drawdown"`
	MaxWinStreak   int              `json:"max_win_streak"`
	MaxLossStreak  int              `json:"max_loss_streak"`
}

// EquityPoint is one date on the cumulative equity curve. Drawdown is the
// distance below the running peak and is never negative.
type EquityPoint struct {
	Date          time.Time       `json:"date"`
	CumulativePnl decimal.Decimal `json:"cumulative_pnl"`
	Drawdown      decimal.Decimal `json:"drawdown"`
}

// Package analytics derives portfolio-level performance metrics from
// closed trades: daily results, period statistics, and the equity curve.
//
// Only trades with a computed net P&L contribute. Breakeven trades count
// toward trade totals but are excluded from win/loss ratios, and they
// reset both win and loss streaks.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

// day truncates a timestamp to its UTC calendar date so trades bucket by
// date regardless of any time-of-day component.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DailyMetrics groups realized trades by date, ascending. Trades without a
// net P&L (still open) are ignored.
func DailyMetrics(trades []models.TradeWithDerived) []models.DailyPerformance {
	byDate := make(map[time.Time]*models.DailyPerformance)

	for _, t := range trades {
		if t.NetPnl == nil {
			continue
		}
		d := day(t.TradeDate)
		perf, ok := byDate[d]
		if !ok {
			perf = &models.DailyPerformance{Date: d}
			byDate[d] = perf
		}
		perf.RealizedNetPnl = perf.RealizedNetPnl.Add(*t.NetPnl)
		perf.TradeCount++
		switch t.Result {
		case models.ResultWin:
			perf.WinCount++
		case models.ResultLoss:
			perf.LossCount++
		}
	}

	out := make([]models.DailyPerformance, 0, len(byDate))
	for _, perf := range byDate {
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// PeriodStats computes aggregate statistics over every realized trade in
// the slice. Ratio fields are nil when their denominator is empty: no
// decisive trades means no win rate and no profit factor.
func PeriodStats(trades []models.TradeWithDerived) models.PeriodMetrics {
	realized := realizedByDate(trades)

	m := models.PeriodMetrics{}

	sumWins := decimal.Zero
	sumLosses := decimal.Zero
	winStreak, lossStreak := 0, 0

	for _, t := range realized {
		net := *t.NetPnl
		m.TotalNetPnl = m.TotalNetPnl.Add(net)
		m.TradeCount++

		switch t.Result {
		case models.ResultWin:
			m.WinCount++
			sumWins = sumWins.Add(net)
			winStreak++
			lossStreak = 0
		case models.ResultLoss:
			m.LossCount++
			sumLosses = sumLosses.Add(net)
			lossStreak++
			winStreak = 0
		default:
			m.BreakevenCount++
			winStreak = 0
			lossStreak = 0
		}
		if winStreak > m.MaxWinStreak {
			m.MaxWinStreak = winStreak
		}
		if lossStreak > m.MaxLossStreak {
			m.MaxLossStreak = lossStreak
		}
	}

	decisive := m.WinCount + m.LossCount
	if decisive > 0 {
		winRate := decimal.NewFromInt(int64(m.WinCount)).Div(decimal.NewFromInt(int64(decisive)))
		m.WinRate = &winRate
	}
	if m.WinCount > 0 {
		avgWin := sumWins.Div(decimal.NewFromInt(int64(m.WinCount)))
		m.AvgWin = &avgWin
	}
	if m.LossCount > 0 {
		avgLoss := sumLosses.Div(decimal.NewFromInt(int64(m.LossCount)))
		m.AvgLoss = &avgLoss
	}
	m.ProfitFactor = profitFactor(sumWins, sumLosses, m.WinCount, m.LossCount)
	m.Expectancy = expectancy(m.WinRate, m.AvgWin, m.AvgLoss)
	m.MaxDrawdown = maxDrawdown(EquityCurve(trades))

	return m
}

// profitFactor is gross wins over gross losses. All wins and no losses is a
// legal infinite factor; no decisive trades yields nil.
func profitFactor(sumWins, sumLosses decimal.Decimal, winCount, lossCount int) *models.ProfitFactor {
	if winCount == 0 && lossCount == 0 {
		return nil
	}
	if lossCount == 0 || sumLosses.IsZero() {
		pf := models.InfiniteProfitFactor()
		return &pf
	}
	wins, _ := sumWins.Float64()
	losses, _ := sumLosses.Abs().Float64()
	pf := models.ProfitFactor(wins / losses)
	return &pf
}

// expectancy is the average expected P&L per trade:
// winRate*avgWin + (1-winRate)*avgLoss. It needs every input present.
func expectancy(winRate, avgWin, avgLoss *decimal.Decimal) *decimal.Decimal {
	if winRate == nil || avgWin == nil || avgLoss == nil {
		return nil
	}
	lossRate := decimal.NewFromInt(1).Sub(*winRate)
	exp := winRate.Mul(*avgWin).Add(lossRate.Mul(*avgLoss))
	return &exp
}

// EquityCurve returns one point per trading day with realized activity:
// cumulative net P&L and drawdown from the running peak. The curve starts
// at zero equity, so the peak never goes below zero.
func EquityCurve(trades []models.TradeWithDerived) []models.EquityPoint {
	daily := DailyMetrics(trades)

	curve := make([]models.EquityPoint, 0, len(daily))
	cumulative := decimal.Zero
	peak := decimal.Zero

	for _, d := range daily {
		cumulative = cumulative.Add(d.RealizedNetPnl)
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		curve = append(curve, models.EquityPoint{
			Date:          d.Date,
			CumulativePnl: cumulative,
			Drawdown:      peak.Sub(cumulative),
		})
	}
	return curve
}

func maxDrawdown(curve []models.EquityPoint) decimal.Decimal {
	max := decimal.Zero
	for _, p := range curve {
		if p.Drawdown.GreaterThan(max) {
			max = p.Drawdown
		}
	}
	return max
}

// realizedByDate filters to trades with a net P&L and orders them by trade
// date, preserving input order within a date so streaks are deterministic.
func realizedByDate(trades []models.TradeWithDerived) []models.TradeWithDerived {
	realized := make([]models.TradeWithDerived, 0, len(trades))
	for _, t := range trades {
		if t.NetPnl != nil {
			realized = append(realized, t)
		}
	}
	sort.SliceStable(realized, func(i, j int) bool {
		return realized[i].TradeDate.Before(realized[j].TradeDate)
	})
	return realized
}

package journal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

func sp(s string) *string {
	return &s
}

// MockRepository implements TradeRepository for testing
type MockRepository struct {
	trades     []models.Trade
	legs       map[string][]TradeExecution
	executions map[string]string

	InsertTradeCalls int
	UpdateTradeCalls int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		legs:       make(map[string][]TradeExecution),
		executions: make(map[string]string),
	}
}

func (m *MockRepository) InsertTrade(t *models.Trade) error {
	m.InsertTradeCalls++
	m.trades = append(m.trades, *t)
	return nil
}

func (m *MockRepository) UpdateTrade(t *models.Trade) error {
	m.UpdateTradeCalls++
	for i := range m.trades {
		if m.trades[i].ID == t.ID {
			m.trades[i] = *t
			return nil
		}
	}
	return fmt.Errorf("trade %s not found", t.ID)
}

func (m *MockRepository) GetTrade(id string) (*models.Trade, error) {
	for _, t := range m.trades {
		if t.ID == id {
			trade := t
			return &trade, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) ListTrades(filter TradeFilter) ([]models.Trade, error) {
	var out []models.Trade
	for _, t := range m.trades {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.StartDate != nil && t.TradeDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && t.TradeDate.After(*filter.EndDate) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *MockRepository) DeleteTrade(id string) error {
	for i, t := range m.trades {
		if t.ID == id {
			m.trades = append(m.trades[:i], m.trades[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockRepository) HasBrokerExecution(id string) (bool, error) {
	_, ok := m.executions[id]
	return ok, nil
}

func (m *MockRepository) RecordExecutions(tradeID string, execs []TradeExecution) error {
	for _, e := range execs {
		m.legs[tradeID] = append(m.legs[tradeID], e)
		if e.BrokerExecutionID != "" {
			m.executions[e.BrokerExecutionID] = tradeID
		}
	}
	return nil
}

func (m *MockRepository) ReplaceExitExecutions(tradeID string, execs []TradeExecution) error {
	var kept []TradeExecution
	for _, e := range m.legs[tradeID] {
		if e.Side != ExecutionSideExit {
			kept = append(kept, e)
		}
	}
	m.legs[tradeID] = kept
	return m.RecordExecutions(tradeID, execs)
}

func (m *MockRepository) ListExecutions(tradeID string) ([]TradeExecution, error) {
	return m.legs[tradeID], nil
}

func newTestService(repo TradeRepository) *TradeService {
	return NewTradeService(repo, Defaults{
		Currency:   "USD",
		AssetClass: models.AssetClassStock,
	})
}

func TestCreateTrade(t *testing.T) {
	tradeDate := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)

	t.Run("winning long trade", func(t *testing.T) {
		repo := NewMockRepository()
		service := newTestService(repo)

		trade, err := service.CreateTrade(models.CreateTradeInput{
			Symbol:        "aapl",
			TradeDate:     tradeDate,
			Direction:     models.DirectionLong,
			Quantity:      dp("100"),
			EntryPrice:    d("150"),
			ExitPrice:     dp("155"),
			StopLossPrice: dp("147.50"),
			Fees:          dp("10"),
		})
		require.NoError(t, err)
		require.NotNil(t, trade)

		assert.NotEmpty(t, trade.ID)
		assert.Equal(t, "AAPL", trade.Symbol)
		assert.Equal(t, models.AssetClassStock, trade.AssetClass)
		assert.Equal(t, "USD", trade.Currency)
		assert.Equal(t, models.StatusClosed, trade.Status)

		require.NotNil(t, trade.NetPnl)
		assert.True(t, trade.NetPnl.Equal(d("490")))
		require.NotNil(t, trade.RMultiple)
		assert.True(t, trade.RMultiple.Equal(d("2")))
		assert.Equal(t, models.ResultWin, trade.Result)
		assert.Equal(t, 1, repo.InsertTradeCalls)
	})

	t.Run("short win", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		trade, err := service.CreateTrade(models.CreateTradeInput{
			Symbol:     "TSLA",
			TradeDate:  tradeDate,
			Direction:  models.DirectionShort,
			Quantity:   dp("100"),
			EntryPrice: d("210"),
			ExitPrice:  dp("200"),
		})
		require.NoError(t, err)

		require.NotNil(t, trade.NetPnl)
		assert.True(t, trade.NetPnl.Equal(d("1000")))
		assert.Equal(t, models.ResultWin, trade.Result)
	})

	t.Run("status defaults to closed", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		trade, err := service.CreateTrade(models.CreateTradeInput{
			Symbol:     "MSFT",
			TradeDate:  tradeDate,
			Direction:  models.DirectionLong,
			Quantity:   dp("10"),
			EntryPrice: d("400"),
			ExitPrice:  dp("410"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusClosed, trade.Status)
	})

	t.Run("explicit open status survives without exits", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		trade, err := service.CreateTrade(models.CreateTradeInput{
			Symbol:     "MSFT",
			TradeDate:  tradeDate,
			Direction:  models.DirectionLong,
			Quantity:   dp("10"),
			EntryPrice: d("400"),
			Status:     models.StatusOpen,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusOpen, trade.Status)
		assert.Nil(t, trade.NetPnl)
	})

	t.Run("exit legs aggregate into trade", func(t *testing.T) {
		repo := NewMockRepository()
		service := newTestService(repo)

		trade, err := service.CreateTrade(models.CreateTradeInput{
			Symbol:     "AAPL",
			TradeDate:  tradeDate,
			Direction:  models.DirectionLong,
			Quantity:   dp("100"),
			EntryPrice: d("100"),
			Fees:       dp("5"),
			Exits: []models.ExitLeg{
				{ExitDate: tradeDate, ExitTime: "10:00:00", Quantity: d("60"), Price: d("110"), Fees: dp("3")},
				{ExitDate: tradeDate, ExitTime: "10:30:00", Quantity: d("40"), Price: d("115"), Fees: dp("2")},
			},
		})
		require.NoError(t, err)

		require.NotNil(t, trade.ExitPrice)
		assert.True(t, trade.ExitPrice.Equal(d("112")))
		assert.Equal(t, "10:30:00", trade.ExitTime)
		assert.True(t, trade.Fees.Equal(d("10")))
		assert.Equal(t, models.StatusClosed, trade.Status)

		// gross (112-100)*100 = 1200, net 1190
		require.NotNil(t, trade.NetPnl)
		assert.True(t, trade.NetPnl.Equal(d("1190")))

		execs, err := service.GetTradeExecutions(trade.ID)
		require.NoError(t, err)
		require.Len(t, execs, 2)
		for _, exec := range execs {
			assert.Equal(t, ExecutionSideExit, exec.Side)
			assert.Equal(t, trade.ID, exec.TradeID)
		}
		assert.True(t, execs[0].Quantity.Equal(d("60")))
		assert.True(t, execs[1].Quantity.Equal(d("40")))
	})

	t.Run("partial exits leave the trade open", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		trade, err := service.CreateTrade(models.CreateTradeInput{
			Symbol:     "AAPL",
			TradeDate:  tradeDate,
			Direction:  models.DirectionLong,
			Quantity:   dp("100"),
			EntryPrice: d("100"),
			Exits: []models.ExitLeg{
				{ExitDate: tradeDate, Quantity: d("40"), Price: d("110")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusOpen, trade.Status)
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name    string
			input   models.CreateTradeInput
			wantErr string
		}{
			{
				"zero entry price",
				models.CreateTradeInput{Symbol: "AAPL", Direction: models.DirectionLong, EntryPrice: d("0")},
				"entry price must be greater than 0",
			},
			{
				"negative quantity",
				models.CreateTradeInput{Symbol: "AAPL", Direction: models.DirectionLong, EntryPrice: d("100"), Quantity: dp("-5")},
				"quantity must be greater than 0",
			},
			{
				"zero exit price",
				models.CreateTradeInput{Symbol: "AAPL", Direction: models.DirectionLong, EntryPrice: d("100"), ExitPrice: dp("0")},
				"exit price must be greater than 0",
			},
			{
				"zero stop loss",
				models.CreateTradeInput{Symbol: "AAPL", Direction: models.DirectionLong, EntryPrice: d("100"), StopLossPrice: dp("0")},
				"stop loss price must be greater than 0",
			},
			{
				"negative fees",
				models.CreateTradeInput{Symbol: "AAPL", Direction: models.DirectionLong, EntryPrice: d("100"), Fees: dp("-1")},
				"fees cannot be negative",
			},
			{
				"invalid exit leg",
				models.CreateTradeInput{
					Symbol: "AAPL", Direction: models.DirectionLong, EntryPrice: d("100"), Quantity: dp("10"),
					Exits: []models.ExitLeg{{Quantity: d("0"), Price: d("100")}},
				},
				"exit 1 quantity must be greater than 0",
			},
			{
				"exits exceed entry",
				models.CreateTradeInput{
					Symbol: "AAPL", Direction: models.DirectionLong, EntryPrice: d("100"), Quantity: dp("10"),
					Exits: []models.ExitLeg{{Quantity: d("20"), Price: d("100")}},
				},
				"total exit quantity (20) cannot exceed entry quantity (10)",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := NewMockRepository()
				service := newTestService(repo)

				_, err := service.CreateTrade(tt.input)
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				assert.Zero(t, repo.InsertTradeCalls)
			})
		}
	})
}

func TestUpdateTrade(t *testing.T) {
	tradeDate := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, service *TradeService) *models.TradeWithDerived {
		trade, err := service.CreateTrade(models.CreateTradeInput{
			Symbol:     "AAPL",
			TradeDate:  tradeDate,
			Direction:  models.DirectionLong,
			Quantity:   dp("100"),
			EntryPrice: d("150"),
			ExitPrice:  dp("155"),
		})
		require.NoError(t, err)
		return trade
	}

	t.Run("merges changed fields and re-derives pnl", func(t *testing.T) {
		repo := NewMockRepository()
		service := newTestService(repo)
		created := seed(t, service)

		updated, err := service.UpdateTrade(created.ID, models.UpdateTradeInput{
			ExitPrice: dp("160"),
			Notes:     sp("Updated notes"),
		})
		require.NoError(t, err)
		require.NotNil(t, updated)

		require.NotNil(t, updated.ExitPrice)
		assert.True(t, updated.ExitPrice.Equal(d("160")))
		assert.Equal(t, "Updated notes", updated.Notes)

		// untouched fields survive the merge
		assert.Equal(t, "AAPL", updated.Symbol)
		assert.True(t, updated.EntryPrice.Equal(d("150")))
		require.NotNil(t, updated.Quantity)
		assert.True(t, updated.Quantity.Equal(d("100")))

		// (160-150)*100 = 1000
		require.NotNil(t, updated.GrossPnl)
		assert.True(t, updated.GrossPnl.Equal(d("1000")))
		assert.Equal(t, 1, repo.UpdateTradeCalls)

		stored, err := service.GetTrade(created.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.ExitPrice.Equal(d("160")))
	})

	t.Run("unknown trade returns nil", func(t *testing.T) {
		repo := NewMockRepository()
		service := newTestService(repo)

		updated, err := service.UpdateTrade("no-such-trade", models.UpdateTradeInput{
			Notes: sp("ignored"),
		})
		require.NoError(t, err)
		assert.Nil(t, updated)
		assert.Zero(t, repo.UpdateTradeCalls)
	})

	t.Run("merged result is validated", func(t *testing.T) {
		repo := NewMockRepository()
		service := newTestService(repo)
		created := seed(t, service)

		_, err := service.UpdateTrade(created.ID, models.UpdateTradeInput{
			ExitPrice: dp("0"),
		})
		require.Error(t, err)
		assert.Equal(t, "exit price must be greater than 0", err.Error())
		assert.Zero(t, repo.UpdateTradeCalls)
	})

	t.Run("re-supplied exits replace recorded fills", func(t *testing.T) {
		repo := NewMockRepository()
		service := newTestService(repo)

		created, err := service.CreateTrade(models.CreateTradeInput{
			Symbol:     "AAPL",
			TradeDate:  tradeDate,
			Direction:  models.DirectionLong,
			Quantity:   dp("100"),
			EntryPrice: d("100"),
			Exits: []models.ExitLeg{
				{ExitDate: tradeDate, ExitTime: "10:00:00", Quantity: d("40"), Price: d("110")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusOpen, created.Status)

		updated, err := service.UpdateTrade(created.ID, models.UpdateTradeInput{
			Exits: []models.ExitLeg{
				{ExitDate: tradeDate, ExitTime: "10:00:00", Quantity: d("40"), Price: d("110")},
				{ExitDate: tradeDate, ExitTime: "11:00:00", Quantity: d("60"), Price: d("120")},
			},
		})
		require.NoError(t, err)
		require.NotNil(t, updated)

		// (40*110 + 60*120) / 100 = 116
		require.NotNil(t, updated.ExitPrice)
		assert.True(t, updated.ExitPrice.Equal(d("116")))
		assert.Equal(t, "11:00:00", updated.ExitTime)
		assert.Equal(t, models.StatusClosed, updated.Status)

		execs, err := service.GetTradeExecutions(created.ID)
		require.NoError(t, err)
		require.Len(t, execs, 2)
		for _, exec := range execs {
			assert.Equal(t, ExecutionSideExit, exec.Side)
		}
	})

	t.Run("re-supplied exits cannot exceed entry quantity", func(t *testing.T) {
		service := newTestService(NewMockRepository())
		created := seed(t, service)

		_, err := service.UpdateTrade(created.ID, models.UpdateTradeInput{
			Exits: []models.ExitLeg{
				{ExitDate: tradeDate, Quantity: d("150"), Price: d("155")},
			},
		})
		require.Error(t, err)
		assert.Equal(t, "total exit quantity (150) cannot exceed entry quantity (100)", err.Error())
	})
}

func TestListTrades(t *testing.T) {
	tradeDate := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)

	seed := func(service *TradeService) {
		_, err := service.CreateTrade(models.CreateTradeInput{
			Symbol: "AAPL", TradeDate: tradeDate, Direction: models.DirectionLong,
			Quantity: dp("100"), EntryPrice: d("150"), ExitPrice: dp("155"),
		})
		require.NoError(t, err)
		_, err = service.CreateTrade(models.CreateTradeInput{
			Symbol: "MSFT", TradeDate: tradeDate.AddDate(0, 0, 1), Direction: models.DirectionLong,
			Quantity: dp("10"), EntryPrice: d("400"), Status: models.StatusOpen,
		})
		require.NoError(t, err)
	}

	t.Run("closed trades only", func(t *testing.T) {
		service := newTestService(NewMockRepository())
		seed(service)

		trades, err := service.ClosedTrades(nil, nil)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "AAPL", trades[0].Symbol)
		require.NotNil(t, trades[0].NetPnl)
	})

	t.Run("all trades include open", func(t *testing.T) {
		service := newTestService(NewMockRepository())
		seed(service)

		trades, err := service.AllTrades(nil, nil)
		require.NoError(t, err)
		assert.Len(t, trades, 2)
	})

	t.Run("date range filter", func(t *testing.T) {
		service := newTestService(NewMockRepository())
		seed(service)

		end := tradeDate
		trades, err := service.AllTrades(nil, &end)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "AAPL", trades[0].Symbol)
	})
}

const importLog = `
STK_TRD|1001|AAPL|APPLE INC|DARK|BUYTOOPEN|O|20260127|09:30:00|USD|100.00|1.00|150.00|15000.00|-1.00|0.85
STK_TRD|1002|AAPL|APPLE INC|DARK|SELLTOCLOSE|C|20260127|10:00:00|USD|-100.00|1.00|155.00|-15500.00|-1.00|0.85
STK_TRD|1003|MSFT|MICROSOFT|DARK|BUYTOOPEN|O|20260127|09:45:00|USD|50.00|1.00|400.00|20000.00|-1.00|0.85
`

func TestPreviewImport(t *testing.T) {
	t.Run("fresh log", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		preview, err := service.PreviewImport(importLog)
		require.NoError(t, err)

		require.Len(t, preview.TradesToImport, 1)
		assert.Equal(t, "AAPL", preview.TradesToImport[0].Symbol)
		require.Len(t, preview.OpenPositions, 1)
		assert.Equal(t, "MSFT", preview.OpenPositions[0].Symbol)
		assert.Zero(t, preview.DuplicateCount)
		assert.Empty(t, preview.ParseErrors)
	})

	t.Run("already imported executions count as duplicates", func(t *testing.T) {
		repo := NewMockRepository()
		service := newTestService(repo)

		first, err := service.PreviewImport(importLog)
		require.NoError(t, err)
		_, err = service.ExecuteImport(first.TradesToImport, true)
		require.NoError(t, err)

		second, err := service.PreviewImport(importLog)
		require.NoError(t, err)
		assert.Empty(t, second.TradesToImport)
		assert.Equal(t, 1, second.DuplicateCount)
	})

	t.Run("empty log yields empty collections, not nil", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		preview, err := service.PreviewImport("")
		require.NoError(t, err)
		assert.NotNil(t, preview.TradesToImport)
		assert.NotNil(t, preview.OpenPositions)
		assert.NotNil(t, preview.ParseErrors)
		assert.Empty(t, preview.TradesToImport)
		assert.Empty(t, preview.OpenPositions)
		assert.Empty(t, preview.ParseErrors)
	})

	t.Run("parse errors are surfaced", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		preview, err := service.PreviewImport("STK_TRD|bad|line\n")
		require.NoError(t, err)
		require.Len(t, preview.ParseErrors, 1)
		assert.Equal(t, 1, preview.ParseErrors[0].Line)
	})
}

func TestExecuteImport(t *testing.T) {
	t.Run("imports closed trades and records executions", func(t *testing.T) {
		repo := NewMockRepository()
		service := newTestService(repo)

		closed, _, errs := ParseAndAggregate(importLog)
		require.Empty(t, errs)

		result, err := service.ExecuteImport(closed, true)
		require.NoError(t, err)

		assert.Equal(t, 1, result.ImportedCount)
		assert.Zero(t, result.SkippedDuplicates)
		assert.Empty(t, result.Errors)

		trades, err := service.ClosedTrades(nil, nil)
		require.NoError(t, err)
		require.Len(t, trades, 1)

		trade := trades[0]
		assert.Equal(t, "AAPL", trade.Symbol)
		assert.Equal(t, "USD", trade.Currency)
		assert.Equal(t, "09:30:00", trade.EntryTime)
		assert.Equal(t, "10:00:00", trade.ExitTime)
		require.NotNil(t, trade.NetPnl)
		assert.True(t, trade.NetPnl.Equal(d("498")))

		exists, err := repo.HasBrokerExecution("1001")
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = repo.HasBrokerExecution("1002")
		require.NoError(t, err)
		assert.True(t, exists)

		execs, err := service.GetTradeExecutions(trade.ID)
		require.NoError(t, err)
		require.Len(t, execs, 2)
		assert.Equal(t, ExecutionSideEntry, execs[0].Side)
		assert.Equal(t, "1001", execs[0].BrokerExecutionID)
		assert.True(t, execs[0].Price.Equal(d("150")))
		assert.Equal(t, ExecutionSideExit, execs[1].Side)
		assert.Equal(t, "1002", execs[1].BrokerExecutionID)
		assert.True(t, execs[1].Price.Equal(d("155")))
	})

	t.Run("executions for an unknown trade are empty", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		execs, err := service.GetTradeExecutions("no-such-trade")
		require.NoError(t, err)
		assert.NotNil(t, execs)
		assert.Empty(t, execs)
	})

	t.Run("reimport skips duplicates", func(t *testing.T) {
		service := newTestService(NewMockRepository())

		closed, _, _ := ParseAndAggregate(importLog)
		_, err := service.ExecuteImport(closed, true)
		require.NoError(t, err)

		result, err := service.ExecuteImport(closed, true)
		require.NoError(t, err)
		assert.Zero(t, result.ImportedCount)
		assert.Equal(t, 1, result.SkippedDuplicates)
	})
}

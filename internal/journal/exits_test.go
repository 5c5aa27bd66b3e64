package journal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbFinch/FreeTradingJournal/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func exitLeg(date string, exitTime, qty, price, fees string) models.ExitLeg {
	day, _ := time.Parse("2006-01-02", date)
	leg := models.ExitLeg{
		ExitDate: day,
		ExitTime: exitTime,
		Quantity: d(qty),
		Price:    d(price),
	}
	if fees != "" {
		leg.Fees = dp(fees)
	}
	return leg
}

func TestAggregateExits(t *testing.T) {
	t.Run("no exits leaves status undecided", func(t *testing.T) {
		summary, err := AggregateExits(d("100"), nil, ExitSourceManual)
		require.NoError(t, err)

		assert.Nil(t, summary.AvgExitPrice)
		assert.Empty(t, summary.LatestExitTime)
		assert.True(t, summary.TotalQuantity.IsZero())
		assert.True(t, summary.TotalFees.IsZero())
		assert.Empty(t, summary.Status)
	})

	t.Run("full exit closes the trade", func(t *testing.T) {
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "10:00:00", "100", "155", "1"),
		}
		summary, err := AggregateExits(d("100"), exits, ExitSourceManual)
		require.NoError(t, err)

		require.NotNil(t, summary.AvgExitPrice)
		assert.True(t, summary.AvgExitPrice.Equal(d("155")))
		assert.Equal(t, models.StatusClosed, summary.Status)
	})

	t.Run("weighted average across partial exits", func(t *testing.T) {
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "10:00:00", "60", "110", "0.60"),
			exitLeg("2026-01-27", "10:30:00", "40", "115", "0.40"),
		}
		summary, err := AggregateExits(d("100"), exits, ExitSourceManual)
		require.NoError(t, err)

		// (60*110 + 40*115) / 100 = 112
		require.NotNil(t, summary.AvgExitPrice)
		assert.True(t, summary.AvgExitPrice.Equal(d("112")))
		assert.True(t, summary.TotalQuantity.Equal(d("100")))
		assert.True(t, summary.TotalFees.Equal(d("1")))
		assert.Equal(t, "10:30:00", summary.LatestExitTime)
		assert.Equal(t, models.StatusClosed, summary.Status)
	})

	t.Run("partial exit stays open", func(t *testing.T) {
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "10:00:00", "60", "110", ""),
		}
		summary, err := AggregateExits(d("100"), exits, ExitSourceManual)
		require.NoError(t, err)

		assert.Equal(t, models.StatusOpen, summary.Status)
		assert.True(t, summary.TotalQuantity.Equal(d("60")))
	})

	t.Run("fractional share remainder within epsilon closes", func(t *testing.T) {
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "10:00:00", "99.99995", "110", ""),
		}
		summary, err := AggregateExits(d("100"), exits, ExitSourceImported)
		require.NoError(t, err)

		assert.Equal(t, models.StatusClosed, summary.Status)
	})

	t.Run("epsilon remainder boundary", func(t *testing.T) {
		// A remainder of exactly 0.0001 sits on the boundary: imported
		// fills treat it as closed (<=), manual entry does not (<).
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "10:00:00", "99.9999", "110", ""),
		}

		imported, err := AggregateExits(d("100"), exits, ExitSourceImported)
		require.NoError(t, err)
		assert.Equal(t, models.StatusClosed, imported.Status)

		manual, err := AggregateExits(d("100"), exits, ExitSourceManual)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOpen, manual.Status)
	})

	t.Run("manual remainder below epsilon closes", func(t *testing.T) {
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "10:00:00", "99.99995", "110", ""),
		}
		summary, err := AggregateExits(d("100"), exits, ExitSourceManual)
		require.NoError(t, err)

		assert.Equal(t, models.StatusClosed, summary.Status)
	})

	t.Run("manual oversell is rejected", func(t *testing.T) {
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "10:00:00", "150", "110", ""),
		}
		_, err := AggregateExits(d("100"), exits, ExitSourceManual)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed entry quantity")
	})

	t.Run("imported oversell closes instead of failing", func(t *testing.T) {
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "10:00:00", "150", "110", ""),
		}
		summary, err := AggregateExits(d("100"), exits, ExitSourceImported)
		require.NoError(t, err)
		assert.Equal(t, models.StatusClosed, summary.Status)
	})

	t.Run("validation names the offending leg", func(t *testing.T) {
		tests := []struct {
			name    string
			exits   []models.ExitLeg
			wantErr string
		}{
			{
				"zero quantity",
				[]models.ExitLeg{exitLeg("2026-01-27", "", "0", "110", "")},
				"exit 1 quantity must be greater than 0",
			},
			{
				"second leg zero price",
				[]models.ExitLeg{
					exitLeg("2026-01-27", "", "10", "110", ""),
					exitLeg("2026-01-27", "", "10", "0", ""),
				},
				"exit 2 price must be greater than 0",
			},
			{
				"negative fees",
				[]models.ExitLeg{exitLeg("2026-01-27", "", "10", "110", "-1")},
				"exit 1 fees cannot be negative",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := AggregateExits(d("100"), tt.exits, ExitSourceManual)
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			})
		}
	})

	t.Run("imported legs skip validation", func(t *testing.T) {
		exits := []models.ExitLeg{
			exitLeg("2026-01-27", "", "10", "0", ""),
		}
		_, err := AggregateExits(d("100"), exits, ExitSourceImported)
		require.NoError(t, err)
	})
}

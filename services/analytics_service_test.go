package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClickThroughRate(t *testing.T) {
	assert.Equal(t, 0.0, clickThroughRate(0, 0), "no impressions must yield 0, not NaN")
	assert.Equal(t, 0.0, clickThroughRate(5, 0))
	assert.Equal(t, 50.0, clickThroughRate(5, 10))
	assert.Equal(t, 100.0, clickThroughRate(10, 10))
	assert.InDelta(t, 0.1, clickThroughRate(1, 1000), 1e-9)
}

func TestGrowthPercent(t *testing.T) {
	assert.Equal(t, 0.0, growthPercent(100, 0), "zero prior period must yield 0, not infinity")
	assert.Equal(t, 0.0, growthPercent(0, 0))
	assert.Equal(t, 100.0, growthPercent(200, 100))
	assert.Equal(t, -50.0, growthPercent(50, 100))
	assert.Equal(t, -100.0, growthPercent(0, 100))
}

func TestFinancialSummary(t *testing.T) {
	t.Run("normal spend", func(t *testing.T) {
		cost, spent, remaining := financialSummary(1000, 500, 100)

		assert.True(t, cost.Equal(decimal.RequireFromString("0.01")), "cost per impression at 100/unit")
		assert.True(t, spent.Equal(decimal.RequireFromString("5")), "500 impressions at 0.01")
		assert.True(t, remaining.Equal(decimal.RequireFromString("995")))
	})

	t.Run("overspend clamps remaining to zero", func(t *testing.T) {
		_, _, remaining := financialSummary(10, 5000, 100)
		assert.True(t, remaining.IsZero())
	})

	t.Run("zero ratio falls back to raw credit", func(t *testing.T) {
		cost, spent, remaining := financialSummary(250, 500, 0)
		assert.True(t, cost.IsZero())
		assert.True(t, spent.IsZero())
		assert.True(t, remaining.Equal(decimal.NewFromInt(250)))
	})

	t.Run("no impressions means nothing spent", func(t *testing.T) {
		_, spent, remaining := financialSummary(1000, 0, 100)
		assert.True(t, spent.IsZero())
		assert.True(t, remaining.Equal(decimal.NewFromInt(1000)))
	})
}

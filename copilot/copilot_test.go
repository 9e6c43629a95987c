package copilot

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  Category
	}{
		{"What were my most POPULAR dishes this week?", CategoryPopularDishes},
		{"popular times", CategoryHelp},
		{"Forecast my busiest time tomorrow", CategoryBusyForecast},
		{"how busy is it", CategoryBusyForecast},
		{"Show me revenue trends", CategoryRevenue},
		{"sales last week", CategoryRevenue},
		{"Analyze customer wait times", CategoryWaitTimes},
		{"popular dish forecast", CategoryPopularDishes},
		{"", CategoryHelp},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestRespondPopularDishes(t *testing.T) {
	out := Respond(CategoryPopularDishes, Stats{TopDishes: []DishCount{
		{Name: "Grilled Salmon", Quantity: 32},
		{Name: "Caesar Salad", Quantity: 24},
	}})
	assert.Contains(t, out, "1. Grilled Salmon (32 ordered)")
	assert.Contains(t, out, "2. Caesar Salad (24 ordered)")

	assert.Contains(t, Respond(CategoryPopularDishes, Stats{}), "No orders yet")
}

func TestRespondRevenue(t *testing.T) {
	out := Respond(CategoryRevenue, Stats{OrderCount: 4, Revenue: decimal.RequireFromString("114.00")})
	assert.Contains(t, out, "Total: $114.00")
	assert.Contains(t, out, "Average order value: $28.50")

	assert.Contains(t, Respond(CategoryRevenue, Stats{}), "Average order value: $0.00")
}

func TestRespondBusyForecast(t *testing.T) {
	out := Respond(CategoryBusyForecast, Stats{TotalTables: 20, OccupiedTables: 19, QueueDepth: 3})
	assert.Contains(t, out, "19 of 20 tables occupied (95%)")
	assert.Contains(t, out, "full house")

	assert.Contains(t, Respond(CategoryBusyForecast, Stats{}), "Quiet")
}

func TestRespondWaitTimesAndHelp(t *testing.T) {
	assert.Contains(t, Respond(CategoryWaitTimes, Stats{WaitEstimate: "5-10 minutes"}), "about 5-10 minutes")
	assert.Contains(t, Respond(CategoryHelp, Stats{}), "I can help with")
	assert.Equal(t, Respond(CategoryHelp, Stats{}), Respond(Category("unknown"), Stats{}))
}

// Package copilot answers staff questions about the restaurant with fixed
// templates filled from live order statistics. There is no language model
// behind it: a query is matched to one of a few categories by keyword.
package copilot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryPopularDishes Category = "popular_dishes"
	CategoryBusyForecast  Category = "busy_forecast"
	CategoryRevenue       Category = "revenue"
	CategoryWaitTimes     Category = "wait_times"
	CategoryHelp          Category = "help"
)

// Classify picks the category for a free-text query. Rules are checked in
// order and the first match wins.
func Classify(query string) Category {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "popular") && strings.Contains(q, "dish"):
		return CategoryPopularDishes
	case strings.Contains(q, "busy") || strings.Contains(q, "forecast"):
		return CategoryBusyForecast
	case strings.Contains(q, "revenue") || strings.Contains(q, "sales"):
		return CategoryRevenue
	case strings.Contains(q, "wait"):
		return CategoryWaitTimes
	default:
		return CategoryHelp
	}
}

type DishCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Stats is the snapshot the templates are rendered from.
type Stats struct {
	TopDishes      []DishCount
	OrderCount     int
	Revenue        decimal.Decimal
	QueueDepth     int64
	AwaitingCount  int64
	TotalTables    int
	OccupiedTables int
	WaitEstimate   string
}

// Respond renders the fixed answer for category c.
func Respond(c Category, s Stats) string {
	var b strings.Builder
	switch c {
	case CategoryPopularDishes:
		b.WriteString("Most popular dishes:\n")
		if len(s.TopDishes) == 0 {
			b.WriteString("No orders yet.\n")
		}
		for i, d := range s.TopDishes {
			fmt.Fprintf(&b, "%d. %s (%d ordered)\n", i+1, d.Name, d.Quantity)
		}

	case CategoryBusyForecast:
		load := 0
		if s.TotalTables > 0 {
			load = s.OccupiedTables * 100 / s.TotalTables
		}
		fmt.Fprintf(&b, "Current load: %d of %d tables occupied (%d%%).\n", s.OccupiedTables, s.TotalTables, load)
		fmt.Fprintf(&b, "Queue: %d waiting, %d on their way in.\n", s.QueueDepth, s.AwaitingCount)
		switch {
		case load >= 90:
			b.WriteString("Expect a full house. Hold new walk-ins and notify queued diners early.\n")
		case load >= 60:
			b.WriteString("Busy but manageable. Keep an eye on tables turning over.\n")
		default:
			b.WriteString("Quiet right now. Good time to seat the queue.\n")
		}

	case CategoryRevenue:
		avg := decimal.Zero
		if s.OrderCount > 0 {
			avg = s.Revenue.Div(decimal.NewFromInt(int64(s.OrderCount)))
		}
		b.WriteString("Revenue from completed orders:\n")
		fmt.Fprintf(&b, "Total: $%s\n", s.Revenue.StringFixed(2))
		fmt.Fprintf(&b, "Orders: %d\n", s.OrderCount)
		fmt.Fprintf(&b, "Average order value: $%s\n", avg.StringFixed(2))

	case CategoryWaitTimes:
		fmt.Fprintf(&b, "A new diner joining now would wait about %s.\n", s.WaitEstimate)
		fmt.Fprintf(&b, "%d orders are in the queue.\n", s.QueueDepth)

	default:
		b.WriteString("I can help with:\n")
		b.WriteString("- \"What are the most popular dishes?\"\n")
		b.WriteString("- \"How busy are we? Give me a forecast\"\n")
		b.WriteString("- \"Show me revenue\"\n")
		b.WriteString("- \"What are the current wait times?\"\n")
	}
	return b.String()
}

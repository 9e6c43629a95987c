package lifecycle

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"restaurant-queue/copilot"
	"restaurant-queue/models"
	"restaurant-queue/store"
)

const topDishes = 5

// Insight is the copilot answer returned to staff.
type Insight struct {
	Query    string           `json:"query"`
	Category copilot.Category `json:"category"`
	Response string           `json:"response"`
}

// Ask classifies query and renders the matching answer from current data.
func (m *Manager) Ask(ctx context.Context, query string) (*Insight, error) {
	category := copilot.Classify(query)
	stats, err := m.stats(ctx, category)
	if err != nil {
		return nil, err
	}
	return &Insight{
		Query:    query,
		Category: category,
		Response: copilot.Respond(category, stats),
	}, nil
}

// stats loads only what the category's template needs.
func (m *Manager) stats(ctx context.Context, c copilot.Category) (copilot.Stats, error) {
	var s copilot.Stats

	switch c {
	case copilot.CategoryPopularDishes:
		orders, err := m.store.ListOrders(ctx, store.OrderFilter{
			ExcludeStatuses: []models.OrderStatus{models.StatusCancelled},
			WithItems:       true,
		})
		if err != nil {
			return s, err
		}
		s.TopDishes = rankDishes(orders, topDishes)

	case copilot.CategoryRevenue:
		orders, err := m.store.ListOrders(ctx, store.OrderFilter{
			Statuses:  []models.OrderStatus{models.StatusCompleted},
			WithItems: true,
		})
		if err != nil {
			return s, err
		}
		s.Revenue = decimal.Zero
		for i := range orders {
			s.Revenue = s.Revenue.Add(orders[i].Total())
		}
		s.OrderCount = len(orders)

	case copilot.CategoryBusyForecast:
		p, err := m.Profile(ctx)
		if err != nil {
			return s, err
		}
		s.TotalTables, s.OccupiedTables = p.TotalTables, p.OccupiedTables
		if s.QueueDepth, err = m.store.CountOrders(ctx, models.StatusInQueue); err != nil {
			return s, err
		}
		if s.AwaitingCount, err = m.store.CountOrders(ctx, models.StatusAwaitingArrival); err != nil {
			return s, err
		}

	case copilot.CategoryWaitTimes:
		var err error
		if s.QueueDepth, err = m.store.CountOrders(ctx, models.StatusInQueue); err != nil {
			return s, err
		}
		s.WaitEstimate = m.EstimateWait(ctx)
	}
	return s, nil
}

// rankDishes sums quantities per dish name, highest first, ties by name.
func rankDishes(orders []models.Order, limit int) []copilot.DishCount {
	totals := map[string]int{}
	for _, o := range orders {
		for _, it := range o.Items {
			totals[it.Name] += it.Quantity
		}
	}
	out := make([]copilot.DishCount, 0, len(totals))
	for name, qty := range totals {
		out = append(out, copilot.DishCount{Name: name, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

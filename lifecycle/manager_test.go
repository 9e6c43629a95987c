package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"restaurant-queue/apperr"
	"restaurant-queue/copilot"
	"restaurant-queue/events"
	"restaurant-queue/metrics"
	"restaurant-queue/models"
	"restaurant-queue/queue"
	"restaurant-queue/store"
	"restaurant-queue/store/sqlite"
)

var t0 = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

type fixture struct {
	store   *sqlite.Store
	mgr     *Manager
	rec     *events.Recorder
	metrics *metrics.Metrics
	now     time.Time
	salmon  models.MenuItem
	salad   models.MenuItem
	dessert models.MenuItem
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s, err := sqlite.Open(":memory:", logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	f := &fixture{store: s, rec: &events.Recorder{}, now: t0}
	_, f.metrics = metrics.NewRegistry()

	f.salmon = models.MenuItem{Name: "Grilled Salmon", Price: decimal.RequireFromString("18.50"), EstimatedPrepMinutes: 20, IsAvailable: true}
	f.salad = models.MenuItem{Name: "Caesar Salad", Price: decimal.RequireFromString("9.75"), EstimatedPrepMinutes: 8, IsAvailable: true}
	f.dessert = models.MenuItem{Name: "Chocolate Fondant", Price: decimal.RequireFromString("7.00"), IsAvailable: false}
	for _, it := range []*models.MenuItem{&f.salmon, &f.salad, &f.dessert} {
		require.NoError(t, s.CreateMenuItem(ctx, it))
	}

	base := []Option{
		WithClock(func() time.Time { return f.now }),
		WithPublisher(f.rec),
		WithMetrics(f.metrics),
	}
	f.mgr = New(s, append(base, opts...)...)
	return f
}

func (f *fixture) place(t *testing.T, name string) *models.Order {
	t.Helper()
	p, err := f.mgr.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: name,
		Items:        map[uint]int{f.salmon.ID: 1},
	})
	require.NoError(t, err)
	return p.Order
}

func (f *fixture) saveProfile(t *testing.T, total, occupied, avg int) {
	t.Helper()
	require.NoError(t, f.store.SaveProfile(context.Background(), &models.RestaurantProfile{
		Name: "Test", TotalTables: total, OccupiedTables: occupied, AvgDineInMinutes: avg,
	}))
}

func TestCreateOrderSnapshotsMenu(t *testing.T) {
	f := newFixture(t)

	p, err := f.mgr.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "  Ada Lovelace ",
		Items:        map[uint]int{f.salmon.ID: 2, f.salad.ID: 0},
	})
	require.NoError(t, err)

	o := p.Order
	assert.Equal(t, "Ada Lovelace", o.CustomerName)
	assert.Equal(t, models.StatusInQueue, o.Status)
	require.NotNil(t, o.QueuePosition)
	assert.Equal(t, 1, *o.QueuePosition)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Grilled Salmon", o.Items[0].Name)
	assert.Equal(t, "37.00", o.Total().StringFixed(2))
	assert.Equal(t, queue.DefaultWaitBand, p.WaitEstimate)

	got := f.rec.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.OrderCreated, got[0].Type)
	assert.Equal(t, o.OrderCode, got[0].OrderCode)
	assert.Equal(t, ActorCustomer, got[0].ChangedBy)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OrdersCreated.WithLabelValues("IN_QUEUE")))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateOrderRequest
		kind apperr.Kind
	}{
		{"blank name", CreateOrderRequest{CustomerName: "  ", Items: map[uint]int{f.salmon.ID: 1}}, apperr.KindValidation},
		{"no items", CreateOrderRequest{CustomerName: "Ada"}, apperr.KindValidation},
		{"only zero quantities", CreateOrderRequest{CustomerName: "Ada", Items: map[uint]int{f.salmon.ID: 0}}, apperr.KindValidation},
		{"negative quantity", CreateOrderRequest{CustomerName: "Ada", Items: map[uint]int{f.salmon.ID: -1}}, apperr.KindValidation},
		{"quantity above limit", CreateOrderRequest{CustomerName: "Ada", Items: map[uint]int{f.salmon.ID: models.MaxItemQuantity + 1}}, apperr.KindValidation},
		{"unknown menu item", CreateOrderRequest{CustomerName: "Ada", Items: map[uint]int{9999: 1}}, apperr.KindNotFound},
		{"unavailable item", CreateOrderRequest{CustomerName: "Ada", Items: map[uint]int{f.dessert.ID: 1}}, apperr.KindValidation},
		{"bad initial status", CreateOrderRequest{CustomerName: "Ada", Items: map[uint]int{f.salmon.ID: 1}, Status: models.StatusPreparing}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.mgr.CreateOrder(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	n, err := f.store.CountOrders(ctx, models.StatusInQueue)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.rec.Events())
}

func TestWalkInOrderSkipsQueue(t *testing.T) {
	f := newFixture(t)
	p, err := f.mgr.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerName: "Walk In",
		Items:        map[uint]int{f.salad.ID: 1},
		Status:       models.StatusReceived,
		Actor:        StaffActor("sam"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceived, p.Order.Status)
	assert.Nil(t, p.Order.QueuePosition)
}

func TestPositionsIncreaseAndSurviveDepartures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.place(t, "A")
	b := f.place(t, "B")
	c := f.place(t, "C")
	_, err := f.mgr.NotifyDiner(ctx, b.ID, StaffActor("sam"))
	require.NoError(t, err)
	d := f.place(t, "D")

	assert.Equal(t, []int{1, 2, 3, 4}, []int{*a.QueuePosition, *b.QueuePosition, *c.QueuePosition, *d.QueuePosition})
}

func TestEstimateWait(t *testing.T) {
	tests := []struct {
		name                 string
		total, occupied, avg int
		queued               int
		want                 string
	}{
		{"tables free", 20, 15, 45, 3, "5-10 minutes"},
		{"overflowing", 20, 18, 60, 10, "19-28 minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.saveProfile(t, tt.total, tt.occupied, tt.avg)
			for i := 0; i < tt.queued; i++ {
				f.place(t, "Diner")
			}
			assert.Equal(t, tt.want, f.mgr.EstimateWait(context.Background()))
			assert.Equal(t, float64(tt.queued), testutil.ToFloat64(f.metrics.QueueDepth))
		})
	}
}

func TestEstimateWaitWithoutProfile(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "15-25 minutes", f.mgr.EstimateWait(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WaitEstimateFallbacks.WithLabelValues("no_profile")))
}

type brokenProfileStore struct {
	store.Store
}

func (brokenProfileStore) GetProfile(context.Context) (*models.RestaurantProfile, error) {
	return nil, errors.New("connection reset")
}

func TestEstimateWaitNeverFails(t *testing.T) {
	_, m := metrics.NewRegistry()
	mgr := New(brokenProfileStore{}, WithMetrics(m))

	assert.Equal(t, queue.DefaultWaitBand, mgr.EstimateWait(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WaitEstimateFallbacks.WithLabelValues("store_error")))
}

func TestNotifyDinerSetsTargetArrival(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "Ada")

	f.now = t0.Add(3 * time.Minute)
	notified, err := f.mgr.NotifyDiner(context.Background(), o.ID, StaffActor("sam"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusAwaitingArrival, notified.Status)
	require.NotNil(t, notified.TargetArrivalTime)
	assert.WithinDuration(t, f.now.Add(15*time.Minute), *notified.TargetArrivalTime, time.Second)
	assert.Equal(t, o.OrderCode, notified.OrderCode)
	assert.Equal(t, *o.QueuePosition, *notified.QueuePosition)

	got := f.rec.Events()
	require.Len(t, got, 2)
	assert.Equal(t, events.OrderDinerNotified, got[1].Type)
	assert.Equal(t, models.StatusInQueue, got[1].FromStatus)
}

func TestNotifyLeadTimeOption(t *testing.T) {
	f := newFixture(t, WithNotifyLeadTime(5*time.Minute))
	o := f.place(t, "Ada")

	notified, err := f.mgr.NotifyDiner(context.Background(), o.ID, "staff:sam")
	require.NoError(t, err)
	assert.WithinDuration(t, t0.Add(5*time.Minute), *notified.TargetArrivalTime, time.Second)
}

func TestFullLifecycleTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, "Ada")
	actor := StaffActor("sam")

	_, err := f.mgr.NotifyDiner(ctx, o.ID, actor)
	require.NoError(t, err)
	_, err = f.mgr.UpdateStatus(ctx, o.ID, models.StatusReceived, actor, "")
	require.NoError(t, err)
	_, err = f.mgr.UpdateStatus(ctx, o.ID, models.StatusPreparing, actor, "")
	require.NoError(t, err)

	f.now = t0.Add(40 * time.Minute)
	ready, err := f.mgr.UpdateStatus(ctx, o.ID, models.StatusReady, actor, "table 4")
	require.NoError(t, err)
	require.NotNil(t, ready.SeatedAtTime)
	assert.WithinDuration(t, f.now, *ready.SeatedAtTime, time.Second)
	assert.Nil(t, ready.CompletedAtTime)

	f.now = t0.Add(90 * time.Minute)
	done, err := f.mgr.UpdateStatus(ctx, o.ID, models.StatusCompleted, actor, "")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAtTime)
	assert.WithinDuration(t, f.now, *done.CompletedAtTime, time.Second)
	assert.WithinDuration(t, t0.Add(40*time.Minute), *done.SeatedAtTime, time.Second)
	assert.Equal(t, o.OrderCode, done.OrderCode)
	assert.Equal(t, *o.QueuePosition, *done.QueuePosition)

	full, err := f.mgr.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, full.StatusHistory, 6)
	assert.Equal(t, "table 4", full.StatusHistory[4].Note)
	assert.Equal(t, actor, full.StatusHistory[5].ChangedBy)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StatusTransitions.WithLabelValues("READY", "COMPLETED")))
}

func TestStrictTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, "Ada")

	_, err := f.mgr.UpdateStatus(ctx, o.ID, models.StatusReady, "staff:sam", "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))

	_, err = f.mgr.UpdateStatus(ctx, o.ID, models.OrderStatus("DELIVERED"), "staff:sam", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.mgr.UpdateStatus(ctx, 4242, models.StatusCancelled, "staff:sam", "")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	unchanged, err := f.mgr.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInQueue, unchanged.Status)
	assert.Nil(t, unchanged.SeatedAtTime)
	assert.Len(t, unchanged.StatusHistory, 1)
}

func TestPermissiveTransitions(t *testing.T) {
	f := newFixture(t, WithStrictTransitions(false))
	ctx := context.Background()
	o := f.place(t, "Ada")

	ready, err := f.mgr.UpdateStatus(ctx, o.ID, models.StatusReady, "staff:sam", "")
	require.NoError(t, err)
	assert.NotNil(t, ready.SeatedAtTime)

	_, err = f.mgr.UpdateStatus(ctx, o.ID, models.OrderStatus("bogus"), "staff:sam", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCancelRecordsNoTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, "Ada")

	cancelled, err := f.mgr.UpdateStatus(ctx, o.ID, models.StatusCancelled, "staff:sam", "left")
	require.NoError(t, err)
	assert.Nil(t, cancelled.TargetArrivalTime)
	assert.Nil(t, cancelled.SeatedAtTime)
	assert.Nil(t, cancelled.CompletedAtTime)
	assert.Equal(t, 1, *cancelled.QueuePosition)

	_, err = f.mgr.UpdateStatus(ctx, o.ID, models.StatusInQueue, "staff:sam", "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))

	next := f.place(t, "Grace")
	assert.Equal(t, 1, *next.QueuePosition)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.rec.Err = errors.New("broker unreachable")

	o := f.place(t, "Ada")
	assert.NotEmpty(t, o.OrderCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventPublishFailures.WithLabelValues(events.OrderCreated)))
}

func TestGetOrderStatusByCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, "Ada")

	got, err := f.mgr.GetOrderStatus(ctx, " "+o.OrderCode+" ")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.mgr.GetOrderStatus(ctx, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestDashboardGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.place(t, "First")
	second := f.place(t, "Second")
	third := f.place(t, "Third")
	gone := f.place(t, "Gone")

	_, err := f.mgr.NotifyDiner(ctx, second.ID, "staff:sam")
	require.NoError(t, err)
	f.now = t0.Add(-10 * time.Minute)
	_, err = f.mgr.NotifyDiner(ctx, third.ID, "staff:sam")
	require.NoError(t, err)
	_, err = f.mgr.UpdateStatus(ctx, third.ID, models.StatusReceived, "staff:sam", "")
	require.NoError(t, err)
	_, err = f.mgr.UpdateStatus(ctx, gone.ID, models.StatusCancelled, "staff:sam", "")
	require.NoError(t, err)

	d, err := f.mgr.Dashboard(ctx)
	require.NoError(t, err)
	require.Len(t, d.Queue, 1)
	assert.Equal(t, first.ID, d.Queue[0].ID)
	require.Len(t, d.Awaiting, 1)
	assert.Equal(t, second.ID, d.Awaiting[0].ID)
	require.Len(t, d.Active, 2)
	assert.Equal(t, queue.DefaultWaitBand, d.WaitEstimate)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.ListOrders(context.Background(), models.OrderStatus("LOST"))
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	f.place(t, "Ada")
	orders, err := f.mgr.ListOrders(context.Background(), models.StatusInQueue)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestUpdateOccupancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.mgr.UpdateOccupancy(ctx, 18)
	require.NoError(t, err)
	assert.Equal(t, 18, p.OccupiedTables)
	assert.Equal(t, models.DefaultTotalTables, p.TotalTables)

	_, err = f.mgr.UpdateOccupancy(ctx, 21)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	saved, err := f.mgr.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18, saved.OccupiedTables)
}

func TestMenuListsAvailableItems(t *testing.T) {
	f := newFixture(t)
	items, wait, err := f.mgr.Menu(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, queue.DefaultWaitBand, wait)
}

func TestAskPopularDishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.CreateOrder(ctx, CreateOrderRequest{CustomerName: "A", Items: map[uint]int{f.salad.ID: 3, f.salmon.ID: 1}})
	require.NoError(t, err)
	_, err = f.mgr.CreateOrder(ctx, CreateOrderRequest{CustomerName: "B", Items: map[uint]int{f.salmon.ID: 1}})
	require.NoError(t, err)

	in, err := f.mgr.Ask(ctx, "what are the popular dishes?")
	require.NoError(t, err)
	assert.Equal(t, copilot.CategoryPopularDishes, in.Category)
	assert.Contains(t, in.Response, "1. Caesar Salad (3 ordered)")
	assert.Contains(t, in.Response, "2. Grilled Salmon (2 ordered)")
}

func TestAskRevenueCountsCompletedOrders(t *testing.T) {
	f := newFixture(t, WithStrictTransitions(false))
	ctx := context.Background()

	o := f.place(t, "Ada")
	f.place(t, "Grace")
	_, err := f.mgr.UpdateStatus(ctx, o.ID, models.StatusCompleted, "staff:sam", "")
	require.NoError(t, err)

	in, err := f.mgr.Ask(ctx, "show me sales")
	require.NoError(t, err)
	assert.Equal(t, copilot.CategoryRevenue, in.Category)
	assert.Contains(t, in.Response, "Total: $18.50")
	assert.Contains(t, in.Response, "Orders: 1")
}

// Package lifecycle owns every change to an order after the HTTP or CLI
// layer has parsed the request: creation, the notify-diner step, status
// transitions with their timestamp side effects, and the wait estimate.
package lifecycle

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"restaurant-queue/apperr"
	"restaurant-queue/events"
	"restaurant-queue/logger"
	"restaurant-queue/metrics"
	"restaurant-queue/models"
	"restaurant-queue/ordercode"
	"restaurant-queue/queue"
	"restaurant-queue/statemachine"
	"restaurant-queue/store"
)

const (
	// DefaultNotifyLeadTime is how long a notified diner has to arrive.
	DefaultNotifyLeadTime = 15 * time.Minute

	maxCustomerNameLen = 100
	publishTimeout     = 5 * time.Second
)

// Actors recorded in status history.
const (
	ActorCustomer = "customer"
	ActorSystem   = "system"
)

// StaffActor formats the history actor for a logged-in staff member.
func StaffActor(username string) string { return "staff:" + username }

// CLIActor formats the history actor for an operator using the CLI.
func CLIActor(user string) string { return "cli:" + user }

type Manager struct {
	store      store.Store
	codes      store.CodeSource
	machine    statemachine.Machine
	now        func() time.Time
	notifyLead time.Duration
	publisher  events.Publisher
	metrics    *metrics.Metrics
	log        *logger.Logger
}

type Option func(*Manager)

func WithCodeSource(c store.CodeSource) Option {
	return func(m *Manager) { m.codes = c }
}

// WithStrictTransitions toggles the transition table. When false any known
// status may follow any other.
func WithStrictTransitions(strict bool) Option {
	return func(m *Manager) { m.machine = statemachine.New(strict) }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithNotifyLeadTime(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.notifyLead = d
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New builds a Manager with strict transitions, a 15 minute notify lead
// time, no event publishing and a discarding logger unless told otherwise.
func New(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:      s,
		codes:      ordercode.New(),
		machine:    statemachine.New(true),
		now:        time.Now,
		notifyLead: DefaultNotifyLeadTime,
		publisher:  events.NopPublisher{},
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store exposes the backing store for read-only callers such as the menu
// admin handlers.
func (m *Manager) Store() store.Store {
	return m.store
}

// Machine returns the transition validator in use.
func (m *Manager) Machine() statemachine.Machine {
	return m.machine
}

type CreateOrderRequest struct {
	CustomerName string
	// Items maps menu item id to quantity. Zero quantities are ignored.
	Items map[uint]int
	// Status is IN_QUEUE when empty. RECEIVED places a walk-in order that
	// skips the queue.
	Status models.OrderStatus
	Actor  string
}

// Placement is what a diner gets back after ordering.
type Placement struct {
	Order        *models.Order `json:"order"`
	WaitEstimate string        `json:"estimated_wait"`
}

func (m *Manager) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Placement, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, apperr.Validation("customer_name is required")
	}
	if utf8.RuneCountInString(name) > maxCustomerNameLen {
		return nil, apperr.Validation("customer_name must be at most %d characters", maxCustomerNameLen)
	}

	status := req.Status
	if status == "" {
		status = models.StatusInQueue
	}
	if status != models.StatusInQueue && status != models.StatusReceived {
		return nil, apperr.Validation("orders can only be created as %s or %s", models.StatusInQueue, models.StatusReceived)
	}

	items, err := m.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	actor := req.Actor
	if actor == "" {
		actor = ActorCustomer
	}

	order, err := m.store.CreateOrder(ctx, store.NewOrder{
		CustomerName: name,
		Status:       status,
		Items:        items,
		CreatedBy:    actor,
	}, m.codes)
	if err != nil {
		if apperr.IsKind(err, apperr.KindCodeSpaceExhausted) {
			m.metrics.CodeSpaceExhausted()
		}
		m.log.WithError(err).Error("create order failed", "customer", name)
		return nil, err
	}

	m.metrics.OrderCreated(order.Status)
	m.log.Info("order created",
		"order_id", order.ID,
		"order_code", order.OrderCode,
		"status", order.Status,
		"queue_position", order.QueuePosition,
		"total", order.Total().StringFixed(2),
	)
	m.publish(ctx, events.FromOrder(events.OrderCreated, order, "", actor, m.now()))

	return &Placement{Order: order, WaitEstimate: m.EstimateWait(ctx)}, nil
}

// priceItems validates quantities against the menu and snapshots name and
// price onto each line. Lines come back ordered by menu item id.
func (m *Manager) priceItems(ctx context.Context, quantities map[uint]int) ([]models.OrderItem, error) {
	ids := make([]uint, 0, len(quantities))
	for id, qty := range quantities {
		if qty < 0 {
			return nil, apperr.Validation("quantity for menu item %d must not be negative", id)
		}
		if qty > models.MaxItemQuantity {
			return nil, apperr.Validation("quantity for menu item %d must be at most %d", id, models.MaxItemQuantity)
		}
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	menu, err := m.store.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(ids))
	for _, id := range ids {
		mi, ok := menu[id]
		if !ok {
			return nil, apperr.NotFound("menu item %d not found", id)
		}
		if !mi.IsAvailable {
			return nil, apperr.Validation("menu item %q is not available", mi.Name)
		}
		items = append(items, models.OrderItem{
			MenuItemID: mi.ID,
			Quantity:   quantities[id],
			Price:      mi.Price,
			Name:       mi.Name,
		})
	}
	return items, nil
}

// GetOrderStatus is the diner-facing lookup by order code.
func (m *Manager) GetOrderStatus(ctx context.Context, code string) (*models.Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.Validation("order code is required")
	}
	return m.store.GetOrderByCode(ctx, code)
}

func (m *Manager) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	return m.store.GetOrder(ctx, id)
}

// ListOrders returns orders in the given statuses, newest first. No
// statuses means all orders.
func (m *Manager) ListOrders(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, apperr.Validation("unknown status %q", st)
		}
	}
	return m.store.ListOrders(ctx, store.OrderFilter{
		Statuses: statuses,
		OrderBy:  store.OrderByCreatedAtDesc,
	})
}

// Dashboard groups live orders the way the staff screen shows them.
type Dashboard struct {
	Queue        []models.Order `json:"queue"`
	Awaiting     []models.Order `json:"awaiting"`
	Active       []models.Order `json:"active"`
	WaitEstimate string         `json:"estimated_wait"`
}

func (m *Manager) Dashboard(ctx context.Context) (*Dashboard, error) {
	q, err := m.store.ListOrders(ctx, store.OrderFilter{
		Statuses:  []models.OrderStatus{models.StatusInQueue},
		OrderBy:   store.OrderByCreatedAt,
		WithItems: true,
	})
	if err != nil {
		return nil, err
	}
	awaiting, err := m.store.ListOrders(ctx, store.OrderFilter{
		Statuses:  []models.OrderStatus{models.StatusAwaitingArrival},
		OrderBy:   store.OrderByTargetArrival,
		WithItems: true,
	})
	if err != nil {
		return nil, err
	}
	active, err := m.store.ListOrders(ctx, store.OrderFilter{
		ExcludeStatuses: []models.OrderStatus{models.StatusInQueue, models.StatusCompleted, models.StatusCancelled},
		OrderBy:         store.OrderByCreatedAt,
		WithItems:       true,
	})
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Queue:        nonNil(q),
		Awaiting:     nonNil(awaiting),
		Active:       nonNil(active),
		WaitEstimate: m.EstimateWait(ctx),
	}, nil
}

func nonNil(orders []models.Order) []models.Order {
	if orders == nil {
		return []models.Order{}
	}
	return orders
}

func (m *Manager) DeleteOrder(ctx context.Context, id uint, actor string) error {
	if err := m.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	m.log.Info("order deleted", "order_id", id, "changed_by", actor)
	return nil
}

// EstimateWait never fails. A missing profile, a profile without tables or
// a store error all yield the default band.
func (m *Manager) EstimateWait(ctx context.Context) string {
	profile, err := m.store.GetProfile(ctx)
	if err != nil {
		m.log.WithError(err).Warn("wait estimate: profile unavailable")
		m.metrics.EstimateFallback("store_error")
		return queue.DefaultWaitBand
	}
	if profile == nil {
		m.metrics.EstimateFallback("no_profile")
		return queue.DefaultWaitBand
	}
	if profile.TotalTables <= 0 {
		m.metrics.EstimateFallback("no_tables")
		return queue.DefaultWaitBand
	}

	depth, err := m.store.CountOrders(ctx, models.StatusInQueue)
	if err != nil {
		m.log.WithError(err).Warn("wait estimate: queue depth unavailable")
		m.metrics.EstimateFallback("store_error")
		return queue.DefaultWaitBand
	}
	m.metrics.SetQueueDepth(depth)
	return queue.EstimateWait(profile, depth)
}

// NotifyDiner moves a queued order to AWAITING_ARRIVAL and gives the diner
// until now plus the lead time to arrive.
func (m *Manager) NotifyDiner(ctx context.Context, id uint, actor string) (*models.Order, error) {
	return m.transition(ctx, id, models.StatusAwaitingArrival, actor, "diner notified to approach", events.OrderDinerNotified)
}

// UpdateStatus applies a staff-requested status change.
func (m *Manager) UpdateStatus(ctx context.Context, id uint, to models.OrderStatus, actor, note string) (*models.Order, error) {
	return m.transition(ctx, id, to, actor, note, events.OrderStatusChanged)
}

func (m *Manager) transition(ctx context.Context, id uint, to models.OrderStatus, actor, note, eventType string) (*models.Order, error) {
	if !to.Valid() {
		return nil, apperr.Validation("unknown status %q", to)
	}

	var (
		from models.OrderStatus
		at   time.Time
	)
	order, err := m.store.UpdateOrder(ctx, id, func(o *models.Order) (*models.OrderStatusHistory, error) {
		if err := m.machine.CanTransition(o.Status, to); err != nil {
			return nil, err
		}
		from = o.Status
		at = m.now()
		m.applySideEffects(o, to, at)
		o.Status = to
		return &models.OrderStatusHistory{
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  actor,
			Note:       note,
		}, nil
	})
	if err != nil {
		m.log.WithError(err).Warn("status change rejected", "order_id", id, "to", to, "changed_by", actor)
		return nil, err
	}

	m.metrics.Transition(from, to)
	m.log.Info("order status changed",
		"order_id", order.ID,
		"order_code", order.OrderCode,
		"from", from,
		"to", to,
		"changed_by", actor,
	)
	m.publish(ctx, events.FromOrder(eventType, order, from, actor, at))
	return order, nil
}

// applySideEffects stamps lifecycle timestamps for the status being
// entered. Cancellation records nothing and the queue position is kept.
func (m *Manager) applySideEffects(o *models.Order, to models.OrderStatus, at time.Time) {
	switch to {
	case models.StatusAwaitingArrival:
		target := at.Add(m.notifyLead)
		o.TargetArrivalTime = &target
	case models.StatusReady:
		seated := at
		o.SeatedAtTime = &seated
	case models.StatusCompleted:
		completed := at
		o.CompletedAtTime = &completed
	}
}

// Profile returns the saved profile, or the install defaults when none was
// saved yet.
func (m *Manager) Profile(ctx context.Context) (*models.RestaurantProfile, error) {
	p, err := m.store.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		def := models.DefaultProfile()
		return &def, nil
	}
	return p, nil
}

func (m *Manager) SaveProfile(ctx context.Context, p *models.RestaurantProfile) error {
	if err := m.store.SaveProfile(ctx, p); err != nil {
		return err
	}
	m.log.Info("restaurant profile saved",
		"total_tables", p.TotalTables,
		"occupied_tables", p.OccupiedTables,
		"avg_dine_in_minutes", p.AvgDineInMinutes,
	)
	return nil
}

// UpdateOccupancy sets the number of occupied tables, creating the profile
// from defaults if needed.
func (m *Manager) UpdateOccupancy(ctx context.Context, occupied int) (*models.RestaurantProfile, error) {
	p, err := m.Profile(ctx)
	if err != nil {
		return nil, err
	}
	p.OccupiedTables = occupied
	if err := m.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Menu lists the items diners can order together with the current wait.
func (m *Manager) Menu(ctx context.Context) ([]models.MenuItem, string, error) {
	items, err := m.store.ListMenuItems(ctx, true)
	if err != nil {
		return nil, "", err
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	return items, m.EstimateWait(ctx), nil
}

func (m *Manager) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.metrics.PublishFailed(e.Type)
		m.log.WithError(err).Warn("event publish failed", "type", e.Type, "order_id", e.OrderID)
	}
}

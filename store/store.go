// Package store declares the persistence contracts used by the lifecycle
// manager and the HTTP layer. Implementations live in store/sqlite and
// store/postgres.
package store

import (
	"context"

	"restaurant-queue/models"
	"restaurant-queue/ordercode"
)

// DefaultInsertRetries bounds how many times CreateOrder regenerates a code
// after a unique-index violation raced past the in-transaction check.
const DefaultInsertRetries = 5

// CodeSource picks a free order code. taken is evaluated inside the creation
// transaction.
type CodeSource interface {
	Generate(ctx context.Context, taken ordercode.TakenFunc) (string, error)
}

// NewOrder is the input to CreateOrder. Items carry their snapshot name and
// price; OrderID is filled in by the store.
type NewOrder struct {
	CustomerName string
	Status       models.OrderStatus
	Items        []models.OrderItem
	CreatedBy    string
}

// OrderBy names a supported sort order for ListOrders.
type OrderBy string

const (
	OrderByCreatedAt     OrderBy = "created_at"
	OrderByCreatedAtDesc OrderBy = "created_at_desc"
	OrderByTargetArrival OrderBy = "target_arrival_time"
	OrderByQueuePosition OrderBy = "queue_position"
)

// Column returns the SQL ORDER BY clause for o. Unknown values fall back to
// creation order.
func (o OrderBy) Column() string {
	switch o {
	case OrderByCreatedAtDesc:
		return "created_at DESC, id DESC"
	case OrderByTargetArrival:
		return "target_arrival_time ASC, id ASC"
	case OrderByQueuePosition:
		return "queue_position ASC, id ASC"
	default:
		return "created_at ASC, id ASC"
	}
}

// OrderFilter narrows ListOrders. Empty slices mean no constraint.
type OrderFilter struct {
	Statuses        []models.OrderStatus
	ExcludeStatuses []models.OrderStatus
	OrderBy         OrderBy
	WithItems       bool
	Limit           int
}

// MutateFunc edits an order loaded inside UpdateOrder's transaction. The
// returned history entry, if any, is appended in the same transaction.
type MutateFunc func(o *models.Order) (*models.OrderStatusHistory, error)

type OrderStore interface {
	// CreateOrder assigns a unique code and, for IN_QUEUE orders, the next
	// queue position atomically with the insert.
	CreateOrder(ctx context.Context, in NewOrder, codes CodeSource) (*models.Order, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	GetOrderByCode(ctx context.Context, code string) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	CountOrders(ctx context.Context, status models.OrderStatus) (int64, error)
	// UpdateOrder persists customer name, status and lifecycle timestamps.
	// Order code and queue position are never rewritten.
	UpdateOrder(ctx context.Context, id uint, mutate MutateFunc) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uint) error
	OrderHistory(ctx context.Context, id uint) ([]models.OrderStatusHistory, error)
}

type MenuStore interface {
	ListMenuItems(ctx context.Context, onlyAvailable bool) ([]models.MenuItem, error)
	GetMenuItems(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error)
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	UpdateMenuItem(ctx context.Context, item *models.MenuItem) error
	DeleteMenuItem(ctx context.Context, id uint) error
}

type ProfileStore interface {
	// GetProfile returns nil without error when no profile was saved yet.
	GetProfile(ctx context.Context) (*models.RestaurantProfile, error)
	SaveProfile(ctx context.Context, p *models.RestaurantProfile) error
}

type StaffStore interface {
	CreateStaff(ctx context.Context, u *models.StaffUser) error
	GetStaffByUsername(ctx context.Context, username string) (*models.StaffUser, error)
}

// Store is everything the application needs from a backend.
type Store interface {
	OrderStore
	MenuStore
	ProfileStore
	StaffStore

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a queued dine-in order
type OrderStatus string

const (
	StatusInQueue         OrderStatus = "IN_QUEUE"
	StatusAwaitingArrival OrderStatus = "AWAITING_ARRIVAL"
	StatusReceived        OrderStatus = "RECEIVED"
	StatusPreparing       OrderStatus = "PREPARING"
	StatusReady           OrderStatus = "READY"
	StatusCompleted       OrderStatus = "COMPLETED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []OrderStatus{
	StatusInQueue,
	StatusAwaitingArrival,
	StatusReceived,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
	StatusCancelled,
}

var statusLabels = map[OrderStatus]string{
	StatusInQueue:         "In Queue",
	StatusAwaitingArrival: "Awaiting Arrival",
	StatusReceived:        "Order Received",
	StatusPreparing:       "Preparing",
	StatusReady:           "Ready for Seating",
	StatusCompleted:       "Completed",
	StatusCancelled:       "Cancelled",
}

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Terminal reports whether no further transition is possible
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Label is the human facing name shown to diners and staff
func (s OrderStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Order struct {
	ID                uint                 `json:"id" gorm:"primaryKey"`
	CustomerName      string               `json:"customer_name" gorm:"size:100;not null"`
	OrderCode         string               `json:"order_code" gorm:"size:4;uniqueIndex;not null"`
	Status            OrderStatus          `json:"status" gorm:"size:20;index;not null;default:'IN_QUEUE'"`
	QueuePosition     *int                 `json:"queue_position"`
	TargetArrivalTime *time.Time           `json:"target_arrival_time"`
	SeatedAtTime      *time.Time           `json:"seated_at_time"`
	CompletedAtTime   *time.Time           `json:"completed_at_time"`
	Items             []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory     []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Total sums the snapshot line prices
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// MaxItemQuantity caps a single order line.
const MaxItemQuantity = 99

type OrderItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	OrderID    uint            `json:"order_id" gorm:"index;not null"`
	MenuItemID uint            `json:"menu_item_id" gorm:"not null"`
	Quantity   int             `json:"quantity" gorm:"not null;check:quantity > 0"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(6,2);not null"` // snapshot price at time of order
	Name       string          `json:"name"`                                    // snapshot name
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"index;not null"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  string      `json:"changed_by"` // staff username, "customer" or "cli:<user>"
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

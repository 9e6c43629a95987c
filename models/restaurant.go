package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Defaults for a freshly installed restaurant
const (
	DefaultRestaurantName   = "Our Restaurant"
	DefaultTotalTables      = 20
	DefaultOccupiedTables   = 15
	DefaultAvgDineInMinutes = 45
	DefaultPrepMinutes      = 15
)

// RestaurantProfile is a singleton row describing seating capacity
type RestaurantProfile struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"size:100;not null"`
	TotalTables      int       `json:"total_tables" gorm:"not null"`
	OccupiedTables   int       `json:"occupied_tables" gorm:"not null"`
	AvgDineInMinutes int       `json:"avg_dine_in_minutes" gorm:"not null"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultProfile mirrors the values a new install starts with
func DefaultProfile() RestaurantProfile {
	return RestaurantProfile{
		Name:             DefaultRestaurantName,
		TotalTables:      DefaultTotalTables,
		OccupiedTables:   DefaultOccupiedTables,
		AvgDineInMinutes: DefaultAvgDineInMinutes,
	}
}

// MaxMenuPrice is the largest price a decimal(6,2) column holds.
var MaxMenuPrice = decimal.RequireFromString("9999.99")

type MenuItem struct {
	ID                   uint            `json:"id" gorm:"primaryKey"`
	Name                 string          `json:"name" gorm:"size:100;not null"`
	Description          string          `json:"description"`
	Price                decimal.Decimal `json:"price" gorm:"type:decimal(6,2);not null"`
	EstimatedPrepMinutes int             `json:"estimated_prep_minutes" gorm:"not null;default:15"`
	IsAvailable          bool            `json:"is_available" gorm:"not null"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

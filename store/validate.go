package store

import (
	"strings"

	"restaurant-queue/apperr"
	"restaurant-queue/models"
)

// ValidateProfile checks the capacity invariants before a profile is saved.
func ValidateProfile(p *models.RestaurantProfile) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("restaurant name is required")
	}
	if p.TotalTables < 1 {
		return apperr.Validation("total_tables must be at least 1")
	}
	if p.OccupiedTables < 0 || p.OccupiedTables > p.TotalTables {
		return apperr.Validation("occupied_tables must be between 0 and %d", p.TotalTables)
	}
	if p.AvgDineInMinutes < 1 {
		return apperr.Validation("avg_dine_in_minutes must be at least 1")
	}
	return nil
}

// ValidateMenuItem checks a menu item before it is written.
func ValidateMenuItem(item *models.MenuItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return apperr.Validation("menu item name is required")
	}
	if !item.Price.IsPositive() {
		return apperr.Validation("menu item price must be greater than zero")
	}
	if item.Price.GreaterThan(models.MaxMenuPrice) {
		return apperr.Validation("menu item price must be at most %s", models.MaxMenuPrice.StringFixed(2))
	}
	if item.EstimatedPrepMinutes < 0 {
		return apperr.Validation("estimated_prep_minutes must not be negative")
	}
	return nil
}

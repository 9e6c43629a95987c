package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"restaurant-queue/apperr"
	"restaurant-queue/models"
)

func TestValidateMenuItem(t *testing.T) {
	tests := []struct {
		name  string
		price string
		ok    bool
	}{
		{"regular price", "18.50", true},
		{"largest storable price", "9999.99", true},
		{"zero", "0", false},
		{"negative", "-1", false},
		{"too large for decimal(6,2)", "10000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMenuItem(&models.MenuItem{Name: "Dish", Price: decimal.RequireFromString(tt.price)})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
		})
	}
}

func TestValidateProfile(t *testing.T) {
	p := models.DefaultProfile()
	assert.NoError(t, ValidateProfile(&p))

	p.OccupiedTables = p.TotalTables + 1
	assert.True(t, apperr.IsKind(ValidateProfile(&p), apperr.KindValidation))
}

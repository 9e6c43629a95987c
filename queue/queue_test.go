package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"restaurant-queue/models"
)

func profile(total, occupied, avg int) *models.RestaurantProfile {
	return &models.RestaurantProfile{TotalTables: total, OccupiedTables: occupied, AvgDineInMinutes: avg}
}

func TestEstimateWait(t *testing.T) {
	tests := []struct {
		name    string
		profile *models.RestaurantProfile
		depth   int64
		want    string
	}{
		{"free tables cover the queue", profile(20, 15, 45), 3, "5-10 minutes"},
		{"exactly full", profile(20, 17, 45), 3, "5-10 minutes"},
		{"busy evening", profile(20, 18, 60), 10, "19-28 minutes"},
		{"lower bound floored at five", profile(20, 20, 90), 1, "5-5 minutes"},
		{"full house with a short queue", profile(7, 7, 60), 2, "13-20 minutes"},
		{"no profile", nil, 4, "15-25 minutes"},
		{"zero tables", profile(0, 0, 45), 4, "15-25 minutes"},
		{"negative tables", profile(-3, 0, 45), 4, "15-25 minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateWait(tt.profile, tt.depth))
		})
	}
}

func TestEstimateWaitNeverInvertsBand(t *testing.T) {
	// base = 1/20*45 = 2.25 → floor(2.7) would be below the five minute floor
	assert.Equal(t, "5-5 minutes", EstimateWait(profile(20, 20, 45), 1))
}

func TestNextPosition(t *testing.T) {
	three := 3
	zero := 0
	assert.Equal(t, 1, NextPosition(nil))
	assert.Equal(t, 1, NextPosition(&zero))
	assert.Equal(t, 4, NextPosition(&three))
}

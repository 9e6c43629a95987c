// Package queue holds the arithmetic behind queue positions and the wait
// estimate shown to diners.
package queue

import (
	"fmt"
	"math"

	"restaurant-queue/models"
)

const (
	// ShortWaitBand is shown when free tables already cover the queue.
	ShortWaitBand = "5-10 minutes"
	// DefaultWaitBand is shown whenever the estimate cannot be computed.
	DefaultWaitBand = "15-25 minutes"

	minWaitMinutes = 5
)

// NextPosition returns the slot for a newly queued order given the highest
// position among orders still IN_QUEUE. Positions are arrival order, not a
// count, so departures leave gaps that are never renumbered.
func NextPosition(currentMax *int) int {
	if currentMax == nil || *currentMax < 1 {
		return 1
	}
	return *currentMax + 1
}

// EstimateWait derives a human readable wait band from seating capacity and
// the number of parties currently queued. It never fails: a missing profile or
// one without tables yields DefaultWaitBand.
func EstimateWait(profile *models.RestaurantProfile, queueDepth int64) string {
	if profile == nil || profile.TotalTables <= 0 {
		return DefaultWaitBand
	}

	tablesNeeded := queueDepth + int64(profile.OccupiedTables) - int64(profile.TotalTables)
	if tablesNeeded <= 0 {
		return ShortWaitBand
	}

	base := float64(tablesNeeded) / float64(profile.TotalTables) * float64(profile.AvgDineInMinutes)
	lo := max(minWaitMinutes, int(math.Floor(base*0.8)))
	hi := max(lo, int(math.Floor(base*1.2)))
	return fmt.Sprintf("%d-%d minutes", lo, hi)
}

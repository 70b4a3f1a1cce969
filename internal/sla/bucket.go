package sla

import (
	"time"

	"github.com/rmarroquin/casedesk-backend/pkg/enums"
)

// Thresholds carry the bucket boundaries in whole days.
type Thresholds struct {
	GreenMaxDays  int
	YellowMaxDays int
}

// DefaultThresholds matches the portal's semaforo: day 0-1 green, 2-3
// yellow, 4+ red.
func DefaultThresholds() Thresholds {
	return Thresholds{GreenMaxDays: 1, YellowMaxDays: 3}
}

// DaysOpen returns whole days elapsed since the case was received.
func DaysOpen(now, receivedAt time.Time) int {
	elapsed := now.Sub(receivedAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

// BucketFor evaluates the semaforo rule for the given age.
func (t Thresholds) BucketFor(daysOpen int) enums.SLABucket {
	switch {
	case daysOpen <= t.GreenMaxDays:
		return enums.SLABucketGreen
	case daysOpen <= t.YellowMaxDays:
		return enums.SLABucketYellow
	default:
		return enums.SLABucketRed
	}
}

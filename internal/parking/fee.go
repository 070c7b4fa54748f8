package parking

import (
	"fmt"
	"math"
)

// minutesPerHour for fee rounding.
const minutesPerHour = 60

// CalculateFee computes the parking fee for a stay of the given length.
//
// Rules:
//   - Stays within the grace period (inclusive) are free.
//   - Beyond grace, time is billed in whole hours, rounded up: 61 minutes
//     costs two hours.
//   - The total is capped at the daily maximum.
//   - The result is rounded to 2 decimal places.
//
// Negative durations (clock skew between controller and backend) are
// treated as zero.
func CalculateFee(p Pricing, durationMinutes int) float64 {
	if durationMinutes <= p.GracePeriodMinutes {
		return 0
	}

	hours := (durationMinutes + minutesPerHour - 1) / minutesPerHour
	fee := float64(hours) * p.HourlyRate
	if fee > p.DailyMaxRate {
		fee = p.DailyMaxRate
	}

	return math.Round(fee*100) / 100 //nolint:mnd // round to 2dp
}

// FormatDuration renders a stay length for display: "45m", "2h 5m", "1h".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h := minutes / minutesPerHour
	m := minutes % minutesPerHour

	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

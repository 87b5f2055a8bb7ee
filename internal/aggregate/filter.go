// Package aggregate holds the pure table transforms behind the dashboard.
// Every function takes a record slice, leaves it untouched and returns a
// freshly allocated derived table with a total ordering, so equal inputs
// always yield equal outputs and results are safe to memoise.
package aggregate

import (
	"ecommerce-dashboard/internal/models"
)

// FilterByDate returns the records purchased on or between rng.Start and
// rng.End. A range whose start is after its end selects nothing.
func FilterByDate(records []models.Record, rng models.DateRange) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if rng.Contains(r.PurchasedAt) {
			out = append(out, r)
		}
	}
	return out
}

// Bounds returns the first and last purchase day present in records.
func Bounds(records []models.Record) (models.DateRange, bool) {
	if len(records) == 0 {
		return models.DateRange{}, false
	}

	lo, hi := records[0].PurchasedAt, records[0].PurchasedAt
	for _, r := range records[1:] {
		if r.PurchasedAt.Before(lo) {
			lo = r.PurchasedAt
		}
		if r.PurchasedAt.After(hi) {
			hi = r.PurchasedAt
		}
	}
	return models.NewDateRange(lo, hi), true
}

package aggregate

import (
	"cmp"
	"slices"
	"strings"

	"ecommerce-dashboard/internal/models"
)

// CityTransactions counts records per customer city, most active first.
// The full ranking is returned; callers cut it to a top-N.
func CityTransactions(records []models.Record) []models.CityTransactions {
	counts := cityCounts(records)

	result := make([]models.CityTransactions, 0, len(counts))
	for city, n := range counts {
		result = append(result, models.CityTransactions{CustomerCity: city, TransactionAmount: n})
	}
	slices.SortFunc(result, func(a, b models.CityTransactions) int {
		if c := cmp.Compare(b.TransactionAmount, a.TransactionAmount); c != 0 {
			return c
		}
		return strings.Compare(a.CustomerCity, b.CustomerCity)
	})
	return result
}

// GeoTransactions annotates every record with the transaction count of its
// city. The output has one point per input record, in input order.
func GeoTransactions(records []models.Record) []models.GeoPoint {
	counts := cityCounts(records)

	points := make([]models.GeoPoint, 0, len(records))
	for _, r := range records {
		points = append(points, models.GeoPoint{
			OrderID:           r.OrderID,
			CustomerCity:      r.CustomerCity,
			Lat:               r.Lat,
			Lng:               r.Lng,
			TransactionAmount: counts[r.CustomerCity],
		})
	}
	return points
}

func cityCounts(records []models.Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.CustomerCity]++
	}
	return counts
}

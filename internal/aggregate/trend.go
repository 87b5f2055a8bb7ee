package aggregate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

const monthLayout = "2006-01"

var ErrUnknownMetric = errors.New("unknown metric")

type TrendMetric int

const (
	// TrendOrders counts distinct order ids per month.
	TrendOrders TrendMetric = iota
	// TrendRevenue sums item prices per month.
	TrendRevenue
	// TrendPaymentValue sums payment values per month.
	TrendPaymentValue
)

func ParseTrendMetric(s string) (TrendMetric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "orders", "order", "order_id":
		return TrendOrders, nil
	case "revenue", "price":
		return TrendRevenue, nil
	case "payment_value", "payments":
		return TrendPaymentValue, nil
	}
	return 0, fmt.Errorf("%w: trend metric %q", ErrUnknownMetric, s)
}

func (m TrendMetric) String() string {
	switch m {
	case TrendRevenue:
		return "revenue"
	case TrendPaymentValue:
		return "payment_value"
	default:
		return "orders"
	}
}

// Column is the public name of the value column of the trend table.
func (m TrendMetric) Column() string {
	if m == TrendOrders {
		return "order"
	}
	return "revenue"
}

// MonthlyTrend groups records by calendar month and emits one row per month
// that has at least one record, in chronological order.
func MonthlyTrend(records []models.Record, metric TrendMetric) models.TrendTable {
	sums := make(map[string]decimal.Decimal)
	orders := make(map[string]map[string]struct{})

	for _, r := range records {
		month := r.PurchasedAt.Format(monthLayout)
		switch metric {
		case TrendOrders:
			set, ok := orders[month]
			if !ok {
				set = make(map[string]struct{})
				orders[month] = set
			}
			set[r.OrderID] = struct{}{}
		case TrendRevenue:
			sums[month] = sums[month].Add(r.Price)
		case TrendPaymentValue:
			sums[month] = sums[month].Add(r.PaymentValue)
		}
	}

	for month, set := range orders {
		sums[month] = decimal.NewFromInt(int64(len(set)))
	}

	rows := make([]models.TrendRow, 0, len(sums))
	for month, v := range sums {
		rows = append(rows, models.TrendRow{Month: month, Value: v})
	}
	slices.SortFunc(rows, func(a, b models.TrendRow) int {
		return strings.Compare(a.Month, b.Month)
	})

	return models.TrendTable{ValueColumn: metric.Column(), Rows: rows}
}

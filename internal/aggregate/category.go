package aggregate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

type CategoryMetric int

const (
	// CategoryItems sums order_item_id, a proxy for the number of items sold.
	CategoryItems CategoryMetric = iota
	// CategoryRevenue sums item prices.
	CategoryRevenue
)

func ParseCategoryMetric(s string) (CategoryMetric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "items", "orders", "total_order":
		return CategoryItems, nil
	case "revenue", "price":
		return CategoryRevenue, nil
	}
	return 0, fmt.Errorf("%w: category metric %q", ErrUnknownMetric, s)
}

func (m CategoryMetric) String() string {
	if m == CategoryRevenue {
		return "revenue"
	}
	return "items"
}

func (m CategoryMetric) Column() string {
	if m == CategoryRevenue {
		return "revenue"
	}
	return "total_order"
}

// RankCategories sums the chosen metric per product category. Records without
// a category are grouped together under a null label. Top is ordered by total
// descending (ties by label) and Bottom is exactly Top reversed.
func RankCategories(records []models.Record, metric CategoryMetric) models.CategoryRanking {
	totals := make(map[null.String]decimal.Decimal)
	for _, r := range records {
		label := categoryLabel(r.ProductCategory)
		switch metric {
		case CategoryRevenue:
			totals[label] = totals[label].Add(r.Price)
		default:
			totals[label] = totals[label].Add(decimal.NewFromInt(r.OrderItemID))
		}
	}

	top := make([]models.CategoryRow, 0, len(totals))
	for label, total := range totals {
		top = append(top, models.CategoryRow{ProductType: label, Total: total})
	}
	slices.SortFunc(top, func(a, b models.CategoryRow) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return compareLabel(a.ProductType, b.ProductType)
	})

	bottom := slices.Clone(top)
	slices.Reverse(bottom)

	return models.CategoryRanking{
		ValueColumn: metric.Column(),
		Top:         top,
		Bottom:      bottom,
	}
}

func categoryLabel(s null.String) null.String {
	if !s.Valid || s.String == "" {
		return null.String{}
	}
	return s
}

// compareLabel orders the null label before every named category.
func compareLabel(a, b null.String) int {
	switch {
	case a.Valid == b.Valid:
		return strings.Compare(a.String, b.String)
	case !a.Valid:
		return -1
	default:
		return 1
	}
}

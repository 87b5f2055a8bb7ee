package aggregate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

type PaymentSort int

const (
	SortByCount PaymentSort = iota
	SortByValue
)

func ParsePaymentSort(s string) (PaymentSort, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "count", "transaction_count":
		return SortByCount, nil
	case "value", "payment_value":
		return SortByValue, nil
	}
	return 0, fmt.Errorf("%w: payment sort %q", ErrUnknownMetric, s)
}

func (s PaymentSort) String() string {
	if s == SortByValue {
		return "value"
	}
	return "count"
}

// PaymentDistribution groups records by payment type. TransactionCount is the
// number of distinct orders, so multi-item orders count once; PaymentValue is
// the sum over all rows.
func PaymentDistribution(records []models.Record, sortBy PaymentSort) []models.PaymentMethod {
	type group struct {
		orders map[string]struct{}
		value  decimal.Decimal
	}

	groups := make(map[string]*group)
	for _, r := range records {
		g, ok := groups[r.PaymentType]
		if !ok {
			g = &group{orders: make(map[string]struct{})}
			groups[r.PaymentType] = g
		}
		g.orders[r.OrderID] = struct{}{}
		g.value = g.value.Add(r.PaymentValue)
	}

	result := make([]models.PaymentMethod, 0, len(groups))
	for paymentType, g := range groups {
		result = append(result, models.PaymentMethod{
			PaymentType:      paymentType,
			TransactionCount: len(g.orders),
			PaymentValue:     g.value,
		})
	}

	slices.SortFunc(result, func(a, b models.PaymentMethod) int {
		var c int
		if sortBy == SortByValue {
			c = b.PaymentValue.Cmp(a.PaymentValue)
		} else {
			c = cmp.Compare(b.TransactionCount, a.TransactionCount)
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.PaymentType, b.PaymentType)
	})

	return result
}

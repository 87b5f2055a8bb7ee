package handlers

import (
	"fmt"
	"strings"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

const noTransactions = "No transactions in the selected range."

const uncategorised = "(uncategorised)"

var hundred = decimal.NewFromInt(100)

func categoryLabel(s null.String) string {
	if !s.Valid {
		return uncategorised
	}
	return s.String
}

// formatValue renders an aggregate value for the given value column. Order
// counts are whole numbers, everything else is currency.
func formatValue(column string, v decimal.Decimal) string {
	if column == "order" || column == "total_order" {
		return v.StringFixed(0)
	}
	return v.StringFixed(2)
}

func share(part, total decimal.Decimal) string {
	if total.IsZero() {
		return "0.0"
	}
	return part.Div(total).Mul(hundred).StringFixed(1)
}

// CommentaryTrend names the peak month and compares the latest month with
// the first.
func CommentaryTrend(t models.TrendTable) string {
	if len(t.Rows) == 0 {
		return noTransactions
	}

	what := "Revenue"
	if t.ValueColumn == "order" {
		what = "Order volume"
	}

	peak := t.Rows[0]
	for _, row := range t.Rows[1:] {
		if row.Value.GreaterThan(peak.Value) {
			peak = row
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s peaked in %s at %s.", what, peak.Month, formatValue(t.ValueColumn, peak.Value))

	if len(t.Rows) > 1 {
		first, last := t.Rows[0], t.Rows[len(t.Rows)-1]
		fmt.Fprintf(&b, " Across %d months it moved from %s in %s to %s in %s",
			len(t.Rows),
			formatValue(t.ValueColumn, first.Value), first.Month,
			formatValue(t.ValueColumn, last.Value), last.Month,
		)
		if !first.Value.IsZero() {
			change := last.Value.Sub(first.Value).Div(first.Value).Mul(hundred)
			sign := ""
			if change.IsPositive() {
				sign = "+"
			}
			fmt.Fprintf(&b, " (%s%s%%)", sign, change.StringFixed(1))
		}
		b.WriteString(".")
	}
	return b.String()
}

func CommentaryCategories(c models.CategoryRanking) string {
	if len(c.Top) == 0 {
		return noTransactions
	}

	unit := "in revenue"
	if c.ValueColumn == "total_order" {
		unit = "items sold"
	}

	top := c.Top[0]
	msg := fmt.Sprintf("%s leads with %s %s.", categoryLabel(top.ProductType), formatValue(c.ValueColumn, top.Total), unit)
	if len(c.Bottom) > 1 {
		bottom := c.Bottom[0]
		msg += fmt.Sprintf(" %s trails with %s.", categoryLabel(bottom.ProductType), formatValue(c.ValueColumn, bottom.Total))
	}
	return msg
}

func CommentaryPayments(p []models.PaymentMethod) string {
	if len(p) == 0 {
		return noTransactions
	}

	var total int
	lead := p[0]
	for _, m := range p {
		total += m.TransactionCount
		if m.TransactionCount > lead.TransactionCount {
			lead = m
		}
	}

	// An order paid with two methods counts once for each.
	return fmt.Sprintf("%s is the most used payment method, used by %d orders (%s%% of %d payment method uses).",
		lead.PaymentType, lead.TransactionCount,
		share(decimal.NewFromInt(int64(lead.TransactionCount)), decimal.NewFromInt(int64(total))),
		total,
	)
}

func CommentaryCities(c []models.CityTransactions) string {
	if len(c) == 0 {
		return noTransactions
	}

	var total int
	for _, city := range c {
		total += city.TransactionAmount
	}
	lead := c[0]

	return fmt.Sprintf("%s leads with %d transactions, %s%% of all transactions across %d cities.",
		lead.CustomerCity, lead.TransactionAmount,
		share(decimal.NewFromInt(int64(lead.TransactionAmount)), decimal.NewFromInt(int64(total))),
		len(c),
	)
}

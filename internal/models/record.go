package models

import (
	"fmt"
	"time"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Record is one order-item row. Several records may share an OrderID.
type Record struct {
	OrderID         string
	PurchasedAt     time.Time
	ProductCategory null.String
	OrderItemID     int64
	Price           decimal.Decimal
	PaymentType     string
	PaymentValue    decimal.Decimal
	CustomerCity    string
	Lat             null.Float
	Lng             null.Float
}

type Dataset struct {
	Version  string
	LoadedAt time.Time
	Records  []Record
}

// DateRange is inclusive on both ends at day granularity.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: truncateDay(start), End: truncateDay(end)}
}

func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("parse end date %q: %w", end, err)
	}
	return DateRange{Start: s, End: e}, nil
}

// Contains reports whether t falls on or between the start and end days.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End.AddDate(0, 0, 1))
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type TrendRow struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

type TrendTable struct {
	ValueColumn string     `json:"value_column"`
	Rows        []TrendRow `json:"rows"`
}

type CategoryRow struct {
	ProductType null.String     `json:"product_type"`
	Total       decimal.Decimal `json:"total"`
}

type CategoryRanking struct {
	ValueColumn string        `json:"value_column"`
	Top         []CategoryRow `json:"top"`
	Bottom      []CategoryRow `json:"bottom"`
}

// Head returns a copy of the ranking with both orderings cut to n rows.
func (c CategoryRanking) Head(n int) CategoryRanking {
	return CategoryRanking{
		ValueColumn: c.ValueColumn,
		Top:         Head(c.Top, n),
		Bottom:      Head(c.Bottom, n),
	}
}

type PaymentMethod struct {
	PaymentType      string          `json:"payment_type"`
	TransactionCount int             `json:"transaction_count"`
	PaymentValue     decimal.Decimal `json:"payment_value"`
}

type CityTransactions struct {
	CustomerCity      string `json:"customer_city"`
	TransactionAmount int    `json:"transaction_amount"`
}

type GeoPoint struct {
	OrderID           string     `json:"order_id"`
	CustomerCity      string     `json:"customer_city"`
	Lat               null.Float `json:"geolocation_lat"`
	Lng               null.Float `json:"geolocation_lng"`
	TransactionAmount int        `json:"transaction_amount"`
}

// Head cuts a ranked aggregate to its first n rows. A negative n keeps all rows.
func Head[T any](rows []T, n int) []T {
	if n < 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}

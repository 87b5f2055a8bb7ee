package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"

	"ecommerce-dashboard/internal/models"
)

const (
	ColOrderID      = "order_id"
	ColPurchasedAt  = "order_purchase_timestamp"
	ColCategory     = "product_category_name"
	ColOrderItemID  = "order_item_id"
	ColPrice        = "price"
	ColPaymentType  = "payment_type"
	ColPaymentValue = "payment_value"
	ColCity         = "customer_city"
	ColLat          = "geolocation_lat"
	ColLng          = "geolocation_lng"
)

var RequiredColumns = []string{
	ColOrderID, ColPurchasedAt, ColCategory, ColOrderItemID, ColPrice,
	ColPaymentType, ColPaymentValue, ColCity, ColLat, ColLng,
}

var ErrMissingColumn = errors.New("missing column")

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseError reports a value that could not be coerced to its column type.
type ParseError struct {
	Source string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s row %d: column %s: cannot parse %q: %v", e.Source, e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseCSV reads a delimited table with a header row into records. Only the
// purchase timestamp is strictly coerced; malformed numeric cells become zero
// and malformed coordinates become null. A header with no rows yields an
// empty slice.
func ParseCSV(r io.Reader, source string) ([]models.Record, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", source, err)
	}
	if len(rows) == 1 {
		if _, err := checkColumns(rows[0], source); err != nil {
			return nil, err
		}
		return []models.Record{}, nil
	}

	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv %s: %w", source, df.Err)
	}

	present, err := checkColumns(df.Names(), source)
	if err != nil {
		return nil, err
	}

	cols := make(map[string][]string, len(RequiredColumns))
	for _, name := range df.Names() {
		key := normalizeHeader(name)
		if present[key] {
			cols[key] = df.Col(name).Records()
		}
	}

	records := make([]models.Record, df.Nrow())
	for i := range records {
		// Row numbers are 1-based and count the header line.
		row := i + 2

		ts, err := parseTimestamp(cols[ColPurchasedAt][i])
		if err != nil {
			return nil, &ParseError{
				Source: source,
				Row:    row,
				Column: ColPurchasedAt,
				Value:  cols[ColPurchasedAt][i],
				Err:    err,
			}
		}

		records[i] = models.Record{
			OrderID:         strings.TrimSpace(cols[ColOrderID][i]),
			PurchasedAt:     ts,
			ProductCategory: parseLabel(cols[ColCategory][i]),
			OrderItemID:     parseInt(cols[ColOrderItemID][i]),
			Price:           parseDecimal(cols[ColPrice][i]),
			PaymentType:     strings.TrimSpace(cols[ColPaymentType][i]),
			PaymentValue:    parseDecimal(cols[ColPaymentValue][i]),
			CustomerCity:    strings.TrimSpace(cols[ColCity][i]),
			Lat:             parseCoord(cols[ColLat][i]),
			Lng:             parseCoord(cols[ColLng][i]),
		}
	}

	return records, nil
}

func checkColumns(names []string, source string) (map[string]bool, error) {
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[normalizeHeader(name)] = true
	}
	for _, col := range RequiredColumns {
		if !present[col] {
			return nil, fmt.Errorf("%s: %w %q", source, ErrMissingColumn, col)
		}
	}
	return present, nil
}

func normalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
}

func parseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func isMissing(v string) bool {
	switch v {
	case "", "NA", "NaN", "<nil>":
		return true
	}
	return false
}

func parseLabel(v string) null.String {
	v = strings.TrimSpace(v)
	if isMissing(v) {
		return null.String{}
	}
	return null.StringFrom(v)
}

func parseDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(v string) int64 {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f)
	}
	return 0
}

func parseCoord(v string) null.Float {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"ecommerce-dashboard/internal/aggregate"
	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/loader"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/services"
)

// datastar sends the signals of GET requests as JSON in this query parameter.
const datastarQueryKey = "datastar"

// filterSignals mirrors the controls on the dashboard page.
type filterSignals struct {
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	TrendMetric    string `json:"trendMetric"`
	CategoryMetric string `json:"categoryMetric"`
	PaymentSort    string `json:"paymentSort"`
}

type filters struct {
	Range    models.DateRange
	Trend    aggregate.TrendMetric
	Category aggregate.CategoryMetric
	Payment  aggregate.PaymentSort
}

// dateRange resolves the requested range from the start and end query
// parameters, falling back to the dataset bounds for whichever is missing.
func dateRange(r *http.Request, bounds models.DateRange) (models.DateRange, error) {
	q := r.URL.Query()
	return resolveRange(q.Get("start"), q.Get("end"), bounds)
}

// readFilters does the same for datastar requests, whose controls travel as
// signals. Plain query parameters fill in whatever the signals leave empty.
func readFilters(r *http.Request, bounds models.DateRange) (filters, error) {
	var signals filterSignals
	if r.Method != http.MethodGet || r.URL.Query().Has(datastarQueryKey) {
		if err := datastar.ReadSignals(r, &signals); err != nil {
			return filters{}, errors.BadRequestWrap(err, "Invalid datastar signals")
		}
	}

	q := r.URL.Query()
	fallback := func(v *string, key string) {
		if *v == "" {
			*v = q.Get(key)
		}
	}
	fallback(&signals.StartDate, "start")
	fallback(&signals.EndDate, "end")
	fallback(&signals.TrendMetric, "trend_metric")
	fallback(&signals.CategoryMetric, "category_metric")
	fallback(&signals.PaymentSort, "sort")

	var (
		f   filters
		err error
	)
	if f.Range, err = resolveRange(signals.StartDate, signals.EndDate, bounds); err != nil {
		return filters{}, err
	}
	if f.Trend, err = aggregate.ParseTrendMetric(signals.TrendMetric); err != nil {
		return filters{}, err
	}
	if f.Category, err = aggregate.ParseCategoryMetric(signals.CategoryMetric); err != nil {
		return filters{}, err
	}
	if f.Payment, err = aggregate.ParsePaymentSort(signals.PaymentSort); err != nil {
		return filters{}, err
	}
	return f, nil
}

func resolveRange(start, end string, bounds models.DateRange) (models.DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" {
		start = bounds.Start.Format(models.DateLayout)
	}
	if end == "" {
		end = bounds.End.Format(models.DateLayout)
	}

	rng, err := models.ParseDateRange(start, end)
	if err != nil {
		return models.DateRange{}, errors.BadRequestWrap(err, "Dates must use the YYYY-MM-DD format")
	}
	return rng, nil
}

func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.BadRequest("limit must be a non-negative integer")
	}
	return n, nil
}

// toAppError classifies errors coming out of the loader, the service and the
// metric parsers.
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var parseErr *loader.ParseError
	switch {
	case stderrors.As(err, &parseErr):
		e := errors.DataQualityWrap(err, "Source data contains a value that cannot be parsed")
		e.Details = parseErr.Error()
		return e
	case stderrors.Is(err, loader.ErrMissingColumn):
		e := errors.MissingColumnWrap(err, "Source data is missing a required column")
		e.Details = err.Error()
		return e
	case stderrors.Is(err, aggregate.ErrUnknownMetric):
		e := errors.BadRequestWrap(err, "Unknown metric")
		e.Details = err.Error()
		return e
	case stderrors.Is(err, services.ErrNoSources):
		return errors.ServiceUnavailable("No data sources are configured for reload")
	default:
		return errors.InternalWrap(err, "An unexpected error occurred")
	}
}

package http

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bikereport/internal/dataprocessing"
	apierrors "bikereport/internal/errors"
	"bikereport/pkg/contracts/domain"
)

// Output formats accepted by the report endpoints
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ReportQuery is the raw query string of a report request. Empty fields keep
// the service defaults.
type ReportQuery struct {
	Start          string `query:"start" validate:"omitempty,datetime=2006-01-02"`
	End            string `query:"end" validate:"omitempty,datetime=2006-01-02"`
	Include        string `query:"include" validate:"max=2000"`
	IncludeEnabled string `query:"include_enabled" validate:"omitempty,boolean"`
	Exclude        string `query:"exclude" validate:"max=2000"`
	ExcludeEnabled string `query:"exclude_enabled" validate:"omitempty,boolean"`
	BikeType       string `query:"type" validate:"max=200"`
	Policy         string `query:"policy" validate:"omitempty,oneof=fixed configurable"`
	Numerator      string `query:"numerator" validate:"max=2000"`
	Denominator    string `query:"denominator" validate:"max=2000"`
	Order          string `query:"order" validate:"omitempty,oneof=lexicographic first_seen"`
	Join           string `query:"join" validate:"omitempty,oneof=right left inner"`
	Format         string `query:"format" validate:"omitempty,oneof=json csv xlsx"`
}

type dateRange struct {
	Start time.Time `query:"start" validate:"required"`
	End   time.Time `query:"end" validate:"required,gtefield=Start"`
}

// ParamParser turns query strings into validated report parameters
type ParamParser struct {
	validate *validator.Validate
}

// NewParamParser creates a parser reporting field names by their query key
func NewParamParser() *ParamParser {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("query")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &ParamParser{validate: v}
}

// QueryFromValues reads a ReportQuery out of URL values
func QueryFromValues(values url.Values) ReportQuery {
	return ReportQuery{
		Start:          strings.TrimSpace(values.Get("start")),
		End:            strings.TrimSpace(values.Get("end")),
		Include:        values.Get("include"),
		IncludeEnabled: values.Get("include_enabled"),
		Exclude:        values.Get("exclude"),
		ExcludeEnabled: values.Get("exclude_enabled"),
		BikeType:       strings.TrimSpace(values.Get("type")),
		Policy:         strings.ToLower(strings.TrimSpace(values.Get("policy"))),
		Numerator:      values.Get("numerator"),
		Denominator:    values.Get("denominator"),
		Order:          strings.ToLower(strings.TrimSpace(values.Get("order"))),
		Join:           strings.ToLower(strings.TrimSpace(values.Get("join"))),
		Format:         strings.ToLower(strings.TrimSpace(values.Get("format"))),
	}
}

// Parse validates q and applies it on top of defaults
func (p *ParamParser) Parse(q ReportQuery, defaults dataprocessing.ReportParams) (dataprocessing.ReportParams, error) {
	if err := p.validate.Struct(q); err != nil {
		return dataprocessing.ReportParams{}, validationProblem(err)
	}

	params := defaults
	if q.Start != "" {
		params.Start, _ = time.Parse(domain.DateLayout, q.Start)
	}
	if q.End != "" {
		params.End, _ = time.Parse(domain.DateLayout, q.End)
	}
	if err := p.validate.Struct(dateRange{Start: params.Start, End: params.End}); err != nil {
		return dataprocessing.ReportParams{}, validationProblem(err)
	}

	if q.Include != "" {
		params.IncludeKeywords = splitList(q.Include)
		params.IncludeEnabled = true
	}
	if q.Exclude != "" {
		params.ExcludeKeywords = splitList(q.Exclude)
		params.ExcludeEnabled = true
	}
	if q.IncludeEnabled != "" {
		params.IncludeEnabled, _ = strconv.ParseBool(q.IncludeEnabled)
	}
	if q.ExcludeEnabled != "" {
		params.ExcludeEnabled, _ = strconv.ParseBool(q.ExcludeEnabled)
	}

	if q.BikeType != "" {
		params.BikeType = q.BikeType
	}
	if q.Policy != "" {
		params.Policy = q.Policy
	}
	if q.Numerator != "" {
		params.Numerator = splitList(q.Numerator)
	}
	if q.Denominator != "" {
		params.Denominator = splitList(q.Denominator)
	}
	if q.Order != "" {
		params.Order = dataprocessing.OrderPolicy(q.Order)
	}
	if q.Join != "" {
		params.Join.Mode = dataprocessing.JoinMode(q.Join)
	}
	return params, nil
}

// splitList splits a comma separated list, dropping blanks. Keywords keep
// their case; matching is case-insensitive downstream.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validationProblem(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.New(http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	}

	details := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return apierrors.NewValidationErrors(details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "boolean":
		return "must be true or false"
	case "gtefield":
		return "must not be before start"
	case "required":
		return "is required"
	case "max":
		return "is too long"
	default:
		return "is invalid"
	}
}

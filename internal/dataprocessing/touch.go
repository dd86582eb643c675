package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "bikereport/internal/errors"
	"bikereport/pkg/contracts/domain"
)

// BikeCheckService marks services that count every bike at the property
const BikeCheckService = "BIKE CHECK"

// ErrNonNumericBikeCount is wrapped by Touched when a bike check record has no
// usable bike count.
var ErrNonNumericBikeCount = errors.New("bike count is not numeric")

// Touched returns the number of bikes a service handled: the registry bike
// count for bike checks, otherwise one.
func Touched(rec domain.ServiceRecord) (int, error) {
	if !strings.Contains(rec.Service, BikeCheckService) {
		return 1, nil
	}
	if rec.BikeCount == nil {
		return 0, apperrors.NewRecordError(
			fmt.Sprintf("order %s on %s: bike count %q", rec.OrderID, rec.DateString(), rec.BikeCountRaw),
			ErrNonNumericBikeCount).
			WithContext("order_id", rec.OrderID)
	}
	return *rec.BikeCount, nil
}

// ApplyTouches returns copies of records with Touched set. Records whose
// touch count cannot be computed are left out and reported as warnings.
func ApplyTouches(ctx context.Context, logger *slog.Logger, records []domain.ServiceRecord) ([]domain.ServiceRecord, []Warning) {
	out := make([]domain.ServiceRecord, 0, len(records))
	var warnings []Warning

	for _, rec := range records {
		n, err := Touched(rec)
		if err != nil {
			warnings = append(warnings, Warning{
				Kind:    WarningNonNumericBikeCount,
				Message: err.Error(),
				OrderID: rec.OrderID,
			})
			if logger != nil {
				logger.WarnContext(ctx, "record excluded from touches",
					slog.String("order_id", rec.OrderID),
					slog.String("service", rec.Service),
					slog.String("bike_count", rec.BikeCountRaw))
			}
			continue
		}
		rec.Touched = n
		out = append(out, rec)
	}
	return out, warnings
}

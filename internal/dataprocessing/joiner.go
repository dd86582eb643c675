package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"bikereport/internal/config"
	apperrors "bikereport/internal/errors"
	"bikereport/pkg/contracts/domain"
)

// JoinMode selects which table is the spine of the join
type JoinMode string

const (
	// JoinRight keeps every dispatch row and enriches it from the registry
	JoinRight JoinMode = config.JoinRight
	// JoinLeft keeps every registry row and attaches its dispatches
	JoinLeft JoinMode = config.JoinLeft
	// JoinInner keeps only dispatches with a registry match
	JoinInner JoinMode = config.JoinInner
)

// dateLayouts are tried in order when parsing dispatch timestamps
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
	"01/02/2006",
}

// ParseDate parses a dispatch timestamp and discards the time of day
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// CalendarDate truncates t to midnight UTC of its own calendar day
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseBikeCount accepts integers and integral floats such as "3.0" that
// fit in an int
func parseBikeCount(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) && f >= math.MinInt && f < math.MaxInt {
		n := int(f)
		return &n
	}
	return nil
}

// JoinOptions configures the joiner
type JoinOptions struct {
	Mode JoinMode
	// ExcludedServices drops any row whose raw service label contains one of
	// these substrings (case-sensitive).
	ExcludedServices []string
	// RequireRegistry drops rows missing partner, type, unit, order or bikes
	RequireRegistry bool
	// StrictJoinKeys turns duplicate registry order IDs into an error
	StrictJoinKeys bool
}

// DefaultJoinOptions mirrors the report defaults
func DefaultJoinOptions() JoinOptions {
	return JoinOptions{
		Mode:             JoinRight,
		ExcludedServices: append([]string(nil), config.DefaultExcludedServices...),
		RequireRegistry:  true,
	}
}

// JoinStats counts rows seen and dropped by the joiner. Each dropped dispatch
// row is counted once. Unmatched counts dispatch rows without a registry row,
// or registry rows without dispatches in left mode.
type JoinStats struct {
	DispatchRows  int `json:"dispatch_rows"`
	RegistryRows  int `json:"registry_rows"`
	Joined        int `json:"joined"`
	Unmatched     int `json:"unmatched"`
	Excluded      int `json:"excluded"`
	Incomplete    int `json:"incomplete"`
	BadDate       int `json:"bad_date"`
	DuplicateKeys int `json:"duplicate_keys"`
	DuplicateRows int `json:"duplicate_rows"`
}

// JoinResult is the output of Joiner.Join
type JoinResult struct {
	Records  []domain.ServiceRecord
	Stats    JoinStats
	Warnings []Warning
}

// Joiner merges registry entries into dispatch rows
type Joiner struct {
	opts   JoinOptions
	logger *slog.Logger
}

// NewJoiner creates a joiner
func NewJoiner(opts JoinOptions, logger *slog.Logger) *Joiner {
	if opts.Mode == "" {
		opts.Mode = JoinRight
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Joiner{
		opts:   opts,
		logger: logger.With(slog.String("component", "joiner")),
	}
}

// Join produces service records from the two tables. Inputs are not modified.
func (j *Joiner) Join(ctx context.Context, registry []domain.RegistryEntry, dispatches []domain.DispatchRow) (*JoinResult, error) {
	result := &JoinResult{
		Stats: JoinStats{DispatchRows: len(dispatches), RegistryRows: len(registry)},
	}

	byOrder, err := j.indexRegistry(ctx, registry, result)
	if err != nil {
		return nil, err
	}

	switch j.opts.Mode {
	case JoinRight, JoinInner:
		for _, d := range dispatches {
			entry, ok := byOrder[d.RentalAgreementID]
			if !ok {
				result.Stats.Unmatched++
				if j.opts.Mode == JoinInner || j.opts.RequireRegistry {
					continue
				}
			}
			j.emit(result, entry, ok, d)
		}
	case JoinLeft:
		byKey := make(map[string][]domain.DispatchRow, len(dispatches))
		for _, d := range dispatches {
			byKey[d.RentalAgreementID] = append(byKey[d.RentalAgreementID], d)
		}
		seen := make(map[string]bool, len(byOrder))
		for _, entry := range registry {
			if seen[entry.OrderID] {
				continue
			}
			seen[entry.OrderID] = true
			matches := byKey[entry.OrderID]
			if entry.OrderID == "" || len(matches) == 0 {
				result.Stats.Unmatched++
				continue
			}
			for _, d := range matches {
				j.emit(result, entry, true, d)
			}
		}
	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown join mode %q", j.opts.Mode))
	}

	result.Stats.Joined = len(result.Records)

	j.logger.DebugContext(ctx, "join complete",
		slog.String("mode", string(j.opts.Mode)),
		slog.Int("dispatch_rows", result.Stats.DispatchRows),
		slog.Int("registry_rows", result.Stats.RegistryRows),
		slog.Int("joined", result.Stats.Joined),
		slog.Int("excluded", result.Stats.Excluded),
		slog.Int("incomplete", result.Stats.Incomplete),
		slog.Int("bad_date", result.Stats.BadDate))

	return result, nil
}

// indexRegistry maps order IDs to the first registry row carrying them and
// reports duplicates.
func (j *Joiner) indexRegistry(ctx context.Context, registry []domain.RegistryEntry, result *JoinResult) (map[string]domain.RegistryEntry, error) {
	byOrder := make(map[string]domain.RegistryEntry, len(registry))
	counts := make(map[string]int)
	var dupOrder []string

	for _, entry := range registry {
		if entry.OrderID == "" {
			continue
		}
		counts[entry.OrderID]++
		switch counts[entry.OrderID] {
		case 1:
			byOrder[entry.OrderID] = entry
		case 2:
			dupOrder = append(dupOrder, entry.OrderID)
		}
	}

	for _, key := range dupOrder {
		dupErr := apperrors.NewJoinKeyError(key, counts[key])
		if j.opts.StrictJoinKeys {
			return nil, dupErr
		}
		result.Stats.DuplicateKeys++
		result.Stats.DuplicateRows += counts[key] - 1
		result.Warnings = append(result.Warnings, Warning{
			Kind:    WarningDuplicateKey,
			Message: dupErr.Message + "; using the first row",
			OrderID: key,
		})
		j.logger.WarnContext(ctx, "duplicate registry order ID",
			slog.String("order_id", key),
			slog.Int("count", counts[key]))
	}

	return byOrder, nil
}

func (j *Joiner) emit(result *JoinResult, entry domain.RegistryEntry, matched bool, d domain.DispatchRow) {
	if j.isExcluded(d.Service) {
		result.Stats.Excluded++
		return
	}

	date, err := ParseDate(d.Dispatch)
	if err != nil {
		result.Stats.BadDate++
		return
	}

	if d.Service == "" {
		result.Stats.Incomplete++
		return
	}
	if j.opts.RequireRegistry && matched && !entry.HasJoinFields() {
		result.Stats.Incomplete++
		return
	}

	rec := domain.ServiceRecord{
		OrderID:    d.RentalAgreementID,
		Date:       date,
		Service:    d.Service,
		OfficeNote: strings.ToUpper(d.OfficeNote),
		DriverNote: strings.ToUpper(d.DriverNote),
		Customer:   d.Customer,
		Enriched:   matched,
	}
	if matched {
		rec.Partner = entry.Partner
		rec.BikeType = entry.BikeType
		rec.Unit = entry.Unit
		rec.OrderID = entry.OrderID
		rec.BikeCountRaw = entry.BikesRaw
		rec.BikeCount = parseBikeCount(entry.BikesRaw)
	}

	result.Records = append(result.Records, rec)
}

func (j *Joiner) isExcluded(service string) bool {
	for _, sub := range j.opts.ExcludedServices {
		if sub != "" && strings.Contains(service, sub) {
			return true
		}
	}
	return false
}

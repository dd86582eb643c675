package dataprocessing

import (
	"fmt"
	"strings"
	"time"

	apperrors "bikereport/internal/errors"
	"bikereport/pkg/contracts/domain"
)

// DateRange is an inclusive range of calendar dates
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both bounds to calendar dates and rejects an end
// before the start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: CalendarDate(start), End: CalendarDate(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, apperrors.NewAppValidationError(
			fmt.Sprintf("end date %s is before start date %s", r.End.Format(domain.DateLayout), r.Start.Format(domain.DateLayout)))
	}
	return r, nil
}

// Contains reports whether t falls on a day within the range
func (r DateRange) Contains(t time.Time) bool {
	d := CalendarDate(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// FilterByDate returns the records dated within r
func FilterByDate(records []domain.ServiceRecord, r DateRange) []domain.ServiceRecord {
	out := make([]domain.ServiceRecord, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}

// KeywordPredicate matches records whose office note contains any of its
// keywords. Keywords are upper-cased once on construction.
type KeywordPredicate struct {
	keywords []string
}

// NewKeywordPredicate builds a predicate over an explicit keyword set.
// Blank and repeated keywords are dropped.
func NewKeywordPredicate(keywords []string) KeywordPredicate {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return KeywordPredicate{keywords: out}
}

// Keywords returns the normalized keyword set
func (p KeywordPredicate) Keywords() []string {
	return append([]string(nil), p.keywords...)
}

// Matches is false for every record when the keyword set is empty
func (p KeywordPredicate) Matches(rec domain.ServiceRecord) bool {
	for _, k := range p.keywords {
		if strings.Contains(rec.OfficeNote, k) {
			return true
		}
	}
	return false
}

// KeywordMode is the state of one keyword filter axis
type KeywordMode int

const (
	KeywordOff KeywordMode = iota
	KeywordInclude
	KeywordExclude
)

func (m KeywordMode) String() string {
	switch m {
	case KeywordInclude:
		return "include"
	case KeywordExclude:
		return "exclude"
	default:
		return "off"
	}
}

// KeywordAxis pairs a mode with its predicate
type KeywordAxis struct {
	Mode      KeywordMode
	Predicate KeywordPredicate
}

func (a KeywordAxis) keep(rec domain.ServiceRecord) bool {
	switch a.Mode {
	case KeywordInclude:
		return a.Predicate.Matches(rec)
	case KeywordExclude:
		return !a.Predicate.Matches(rec)
	default:
		return true
	}
}

// KeywordFilter composes the independent include and exclude axes
type KeywordFilter struct {
	Include KeywordAxis
	Exclude KeywordAxis
}

// NewKeywordFilter builds a filter from the two toggles and keyword lists
func NewKeywordFilter(includeOn bool, include []string, excludeOn bool, exclude []string) KeywordFilter {
	f := KeywordFilter{
		Include: KeywordAxis{Predicate: NewKeywordPredicate(include)},
		Exclude: KeywordAxis{Predicate: NewKeywordPredicate(exclude)},
	}
	if includeOn {
		f.Include.Mode = KeywordInclude
	}
	if excludeOn {
		f.Exclude.Mode = KeywordExclude
	}
	return f
}

// Keep reports whether rec passes both axes
func (f KeywordFilter) Keep(rec domain.ServiceRecord) bool {
	return f.Include.keep(rec) && f.Exclude.keep(rec)
}

// Apply returns copies of the kept records with the keyword flags set
func (f KeywordFilter) Apply(records []domain.ServiceRecord) []domain.ServiceRecord {
	out := make([]domain.ServiceRecord, 0, len(records))
	for _, rec := range records {
		rec.HasIncludeKeyword = f.Include.Predicate.Matches(rec)
		rec.HasExcludeKeyword = f.Exclude.Predicate.Matches(rec)
		if f.Keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Select returns the records matching p
func Select(records []domain.ServiceRecord, p KeywordPredicate) []domain.ServiceRecord {
	out := make([]domain.ServiceRecord, 0, len(records))
	for _, rec := range records {
		if p.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

package dataprocessing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"bikereport/internal/config"
)

// UndefinedMarker is rendered in place of an efficiency with a zero denominator
const UndefinedMarker = "undefined"

// DeliveryService is the one non-check label counted in the denominator
const DeliveryService = "DELIVERY"

// EfficiencyPolicy splits one pivot column into numerator and denominator sums
type EfficiencyPolicy interface {
	Name() string
	Partition(column map[string]float64) (numerator, denominator float64)
}

// IsDenominatorService is the automatic classification used by
// ConfigurablePartition: bike checks and deliveries are routine work.
func IsDenominatorService(service string) bool {
	return strings.Contains(service, BikeCheckService) || service == DeliveryService
}

// ConfigurablePartition classifies labels automatically unless an explicit
// list is given for that side. The two sides are independent and may overlap.
type ConfigurablePartition struct {
	Numerator   []string
	Denominator []string
}

// Name implements EfficiencyPolicy
func (p ConfigurablePartition) Name() string { return config.PolicyConfigurable }

// Partition implements EfficiencyPolicy
func (p ConfigurablePartition) Partition(column map[string]float64) (numerator, denominator float64) {
	numSet := toSet(p.Numerator)
	denSet := toSet(p.Denominator)

	for service, v := range column {
		inDen := IsDenominatorService(service)
		if denSet != nil {
			inDen = denSet[service]
		}
		inNum := !IsDenominatorService(service)
		if numSet != nil {
			inNum = numSet[service]
		}

		if inDen {
			denominator += v
		}
		if inNum {
			numerator += v
		}
	}
	return numerator, denominator
}

// FixedPartition uses a named denominator list; the numerator is everything
// else in the column.
type FixedPartition struct {
	Denominator []string
}

// NewFixedPartition uses labels, or the default five labels when empty
func NewFixedPartition(labels []string) FixedPartition {
	if len(labels) == 0 {
		labels = config.DefaultDenominatorServices
	}
	return FixedPartition{Denominator: append([]string(nil), labels...)}
}

// Name implements EfficiencyPolicy
func (p FixedPartition) Name() string { return config.PolicyFixed }

// Partition implements EfficiencyPolicy
func (p FixedPartition) Partition(column map[string]float64) (numerator, denominator float64) {
	var total float64
	for _, v := range column {
		total += v
	}
	for service := range toSet(p.Denominator) {
		denominator += column[service]
	}
	return total - denominator, denominator
}

// NewEfficiencyPolicy builds the policy named by name
func NewEfficiencyPolicy(name string, numerator, denominator []string) (EfficiencyPolicy, error) {
	switch name {
	case config.PolicyFixed, "":
		return NewFixedPartition(denominator), nil
	case config.PolicyConfigurable:
		return ConfigurablePartition{Numerator: numerator, Denominator: denominator}, nil
	default:
		return nil, fmt.Errorf("unknown efficiency policy %q", name)
	}
}

func toSet(list []string) map[string]bool {
	if len(list) == 0 {
		return nil
	}
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}

// EfficiencyResult is the efficiency of one bike type. Defined is false when
// the denominator is zero; Percent is then meaningless.
type EfficiencyResult struct {
	BikeType    string
	Numerator   float64
	Denominator float64
	Percent     float64
	Defined     bool
}

// String renders the percentage with two decimals or the undefined marker
func (r EfficiencyResult) String() string {
	if !r.Defined {
		return UndefinedMarker
	}
	return fmt.Sprintf("%.2f", r.Percent)
}

// MarshalJSON writes a null percent for undefined results
func (r EfficiencyResult) MarshalJSON() ([]byte, error) {
	var pct *float64
	if r.Defined {
		pct = &r.Percent
	}
	return json.Marshal(struct {
		BikeType    string   `json:"type"`
		Numerator   float64  `json:"numerator"`
		Denominator float64  `json:"denominator"`
		Percent     *float64 `json:"percent"`
		Defined     bool     `json:"defined"`
		Display     string   `json:"display"`
	}{r.BikeType, r.Numerator, r.Denominator, pct, r.Defined, r.String()})
}

// Efficiency computes round((1 - numerator/denominator) * 100, 2) for one
// pivot column. A bike type absent from the pivot yields an undefined result.
func Efficiency(p *Pivot, bikeType string, policy EfficiencyPolicy) EfficiencyResult {
	num, den := policy.Partition(p.Column(bikeType))
	r := EfficiencyResult{BikeType: bikeType, Numerator: num, Denominator: den}
	if den == 0 {
		return r
	}
	r.Percent = math.Round((1-num/den)*100*100) / 100
	r.Defined = true
	return r
}

// ErrNoDenominator is returned for a policy that can never produce a ratio
var ErrNoDenominator = errors.New("efficiency policy has no denominator services")

// EfficiencyTable computes every pivot column, followed by any extra types not
// present in the pivot.
func EfficiencyTable(p *Pivot, extra []string, policy EfficiencyPolicy) ([]EfficiencyResult, error) {
	if fp, ok := policy.(FixedPartition); ok && len(fp.Denominator) == 0 {
		return nil, ErrNoDenominator
	}

	types := append([]string(nil), p.Columns...)
	for _, t := range extra {
		if !containsString(types, t) {
			types = append(types, t)
		}
	}

	out := make([]EfficiencyResult, 0, len(types))
	for _, t := range types {
		out = append(out, Efficiency(p, t, policy))
	}
	return out, nil
}

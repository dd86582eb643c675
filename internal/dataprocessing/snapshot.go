package dataprocessing

import (
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"bikereport/pkg/contracts/domain"
)

// Snapshot is an immutable copy of both source tables. Reports are always
// computed from a snapshot; a refresh replaces it instead of mutating it.
type Snapshot struct {
	Registry    []domain.RegistryEntry
	Dispatches  []domain.DispatchRow
	Source      string
	LoadedAt    time.Time
	Fingerprint string
}

// NewSnapshot copies the tables and fingerprints their content
func NewSnapshot(source string, registry []domain.RegistryEntry, dispatches []domain.DispatchRow) *Snapshot {
	s := &Snapshot{
		Registry:   append([]domain.RegistryEntry(nil), registry...),
		Dispatches: append([]domain.DispatchRow(nil), dispatches...),
		Source:     source,
		LoadedAt:   time.Now().UTC(),
	}
	s.Fingerprint = fingerprint(s.Registry, s.Dispatches)
	return s
}

// fingerprint is a BLAKE2b-256 digest over every cell, so two loads of the
// same data share a fingerprint.
func fingerprint(registry []domain.RegistryEntry, dispatches []domain.DispatchRow) string {
	h, _ := blake2b.New256(nil)
	write := func(fields ...string) {
		h.Write([]byte(strings.Join(fields, "\x1f")))
		h.Write([]byte{'\x1e'})
	}

	for _, e := range registry {
		write(e.Geo, e.Partner, e.Unit, e.UnitNote, e.VendorCode, e.Name, e.Area, e.Address,
			e.OrderID, e.Billing, e.BikesRaw, e.BikeType, e.Locks, e.Storage, e.StartDate, e.EndDate)
	}
	h.Write([]byte{'\x1d'})
	for _, d := range dispatches {
		write(d.RentalAgreementID, d.Dispatch, d.Service, d.OfficeNote, d.DriverNote, d.Customer)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BikeTypes lists the distinct registry bike types, sorted
func (s *Snapshot) BikeTypes() []string {
	set := make(map[string]bool)
	for _, e := range s.Registry {
		if e.BikeType != "" {
			set[e.BikeType] = true
		}
	}
	return sortedKeys(set)
}

// Services lists the distinct dispatch service labels, sorted
func (s *Snapshot) Services() []string {
	set := make(map[string]bool)
	for _, d := range s.Dispatches {
		if d.Service != "" {
			set[d.Service] = true
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"bikereport/internal/config"
	"bikereport/internal/dataprocessing"
	apperrors "bikereport/internal/errors"
	"bikereport/internal/infrastructure"
	"bikereport/pkg/contracts/domain"
)

// Events sent to the notifier
const (
	EventSnapshotReloaded = "snapshot:reloaded"
	EventSnapshotFailed   = "snapshot:failed"
)

// Notifier receives snapshot lifecycle events. *websocket.Hub implements it.
type Notifier interface {
	Broadcast(ctx context.Context, messageType string, data interface{})
}

// SnapshotInfo describes the loaded snapshot
type SnapshotInfo struct {
	Fingerprint  string    `json:"fingerprint"`
	Source       string    `json:"source"`
	LoadedAt     time.Time `json:"loaded_at"`
	RegistryRows int       `json:"registry_rows"`
	DispatchRows int       `json:"dispatch_rows"`
}

// Options lists the values the report selectors can take
type Options struct {
	BikeTypes        []string `json:"bike_types"`
	Services         []string `json:"services"`
	Keywords         []string `json:"keywords"`
	TypesOfInterest  []string `json:"types_of_interest"`
	Policies         []string `json:"policies"`
	JoinModes        []string `json:"join_modes"`
	OrderPolicies    []string `json:"order_policies"`
	Tables           []string `json:"tables"`
	DefaultStartDate string   `json:"default_start"`
	DefaultEndDate   string   `json:"default_end"`

	Snapshot *SnapshotInfo `json:"snapshot,omitempty"`
}

// ReportService loads source data and builds reports from it
type ReportService struct {
	source   dataprocessing.Source
	builder  *dataprocessing.ReportBuilder
	defaults dataprocessing.ReportParams
	notifier Notifier
	metrics  *infrastructure.ReportMetrics
	logger   *slog.Logger

	snapshot  atomic.Pointer[dataprocessing.Snapshot]
	reloading sync.Mutex
}

// NewReportService creates a report service. notifier and metrics may be nil.
func NewReportService(source dataprocessing.Source, defaults dataprocessing.ReportParams, notifier Notifier, metrics *infrastructure.ReportMetrics, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "report_service"))

	return &ReportService{
		source:   source,
		builder:  dataprocessing.NewReportBuilder(logger, metrics),
		defaults: defaults,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Reload reads both tables in parallel and replaces the snapshot. On failure
// the previous snapshot stays in place. Concurrent reloads are rejected.
func (s *ReportService) Reload(ctx context.Context) (*dataprocessing.Snapshot, error) {
	if !s.reloading.TryLock() {
		return nil, apperrors.NewUnavailableError(ErrReloadInProgress.Error())
	}
	defer s.reloading.Unlock()

	ctx, span := infrastructure.StartSpan(ctx, "snapshot.reload")
	defer span.End()

	started := time.Now()
	var registry []domain.RegistryEntry
	var dispatches []domain.DispatchRow

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		var err error
		registry, err = dataprocessing.LoadRegistry(gctx, s.source)
		s.metrics.RecordSourceLoad(gctx, string(dataprocessing.TableRegistry), len(registry), time.Since(t), err)
		return err
	})
	g.Go(func() error {
		t := time.Now()
		var err error
		dispatches, err = dataprocessing.LoadDispatches(gctx, s.source)
		s.metrics.RecordSourceLoad(gctx, string(dataprocessing.TableDispatch), len(dispatches), time.Since(t), err)
		return err
	})

	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "snapshot reload failed",
			slog.String("source", s.source.Name()),
			slog.String("error", err.Error()))
		s.notify(ctx, EventSnapshotFailed, map[string]string{"error": err.Error()})
		return nil, err
	}

	snap := dataprocessing.NewSnapshot(s.source.Name(), registry, dispatches)
	s.snapshot.Store(snap)

	info := snapshotInfo(snap)
	s.logger.InfoContext(ctx, "snapshot reloaded",
		slog.String("source", info.Source),
		slog.String("fingerprint", info.Fingerprint),
		slog.Int("registry_rows", info.RegistryRows),
		slog.Int("dispatch_rows", info.DispatchRows),
		slog.Duration("duration", time.Since(started)))
	s.notify(ctx, EventSnapshotReloaded, info)

	return snap, nil
}

// Snapshot returns the current snapshot, or nil before the first reload
func (s *ReportService) Snapshot() *dataprocessing.Snapshot {
	return s.snapshot.Load()
}

// SnapshotInfo describes the current snapshot
func (s *ReportService) SnapshotInfo() (SnapshotInfo, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return SnapshotInfo{}, apperrors.NewUnavailableError(ErrNoSnapshot.Error())
	}
	return snapshotInfo(snap), nil
}

// Defaults returns a copy of the configured report parameters
func (s *ReportService) Defaults() dataprocessing.ReportParams {
	p := s.defaults
	p.IncludeKeywords = append([]string(nil), s.defaults.IncludeKeywords...)
	p.ExcludeKeywords = append([]string(nil), s.defaults.ExcludeKeywords...)
	p.Numerator = append([]string(nil), s.defaults.Numerator...)
	p.Denominator = append([]string(nil), s.defaults.Denominator...)
	p.FixedDenominator = append([]string(nil), s.defaults.FixedDenominator...)
	p.TypesOfInterest = append([]string(nil), s.defaults.TypesOfInterest...)
	p.Join.ExcludedServices = append([]string(nil), s.defaults.Join.ExcludedServices...)
	return p
}

// Build computes a report from the current snapshot
func (s *ReportService) Build(ctx context.Context, params dataprocessing.ReportParams) (*dataprocessing.Report, error) {
	return s.builder.Build(ctx, s.snapshot.Load(), params)
}

// Options returns the selector values for the current snapshot. Without a
// snapshot only the static values are filled in.
func (s *ReportService) Options(ctx context.Context) Options {
	opts := Options{
		BikeTypes:        []string{},
		Services:         []string{},
		Keywords:         append([]string(nil), s.defaults.IncludeKeywords...),
		TypesOfInterest:  append([]string(nil), s.defaults.TypesOfInterest...),
		Policies:         []string{config.PolicyFixed, config.PolicyConfigurable},
		JoinModes:        []string{config.JoinRight, config.JoinLeft, config.JoinInner},
		OrderPolicies:    []string{config.OrderLexicographic, config.OrderFirstSeen},
		Tables:           append([]string(nil), dataprocessing.Sections...),
		DefaultStartDate: s.defaults.Start.Format(domain.DateLayout),
		DefaultEndDate:   s.defaults.End.Format(domain.DateLayout),
	}

	if snap := s.snapshot.Load(); snap != nil {
		opts.BikeTypes = snap.BikeTypes()
		opts.Services = snap.Services()
		info := snapshotInfo(snap)
		opts.Snapshot = &info
	}
	return opts
}

func (s *ReportService) notify(ctx context.Context, event string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(ctx, event, data)
	}
}

func snapshotInfo(snap *dataprocessing.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		Fingerprint:  snap.Fingerprint,
		Source:       snap.Source,
		LoadedAt:     snap.LoadedAt,
		RegistryRows: len(snap.Registry),
		DispatchRows: len(snap.Dispatches),
	}
}

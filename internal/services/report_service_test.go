package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikereport/internal/dataprocessing"
	apperrors "bikereport/internal/errors"
	"bikereport/internal/shared/testutil"
)

func TestReportService_Reload(t *testing.T) {
	notifier := &MockNotifier{}
	notifier.On("Broadcast", mock.Anything, EventSnapshotReloaded, mock.AnythingOfType("services.SnapshotInfo")).Once()

	logger, logs := testutil.NewTestLogger(t)
	svc := NewReportService(scenarioSource(t), defaultParams(t), notifier, nil, logger)
	assert.Nil(t, svc.Snapshot())

	snap, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, svc.Snapshot())
	assert.Len(t, snap.Registry, 4)
	assert.Len(t, snap.Dispatches, 8)
	assert.Equal(t, "csv", snap.Source)

	info, err := svc.SnapshotInfo()
	require.NoError(t, err)
	assert.Equal(t, snap.Fingerprint, info.Fingerprint)
	assert.Equal(t, 8, info.DispatchRows)

	notifier.AssertExpectations(t)
	testutil.AssertLogAttr(t, logs, "component", "report_service")
	assert.True(t, logs.ContainsMessage("snapshot reloaded"))
}

func TestReportService_ReloadFailureKeepsSnapshot(t *testing.T) {
	notifier := &MockNotifier{}
	notifier.On("Broadcast", mock.Anything, EventSnapshotReloaded, mock.Anything).Once()
	notifier.On("Broadcast", mock.Anything, EventSnapshotFailed, mock.Anything).Once()

	svc := NewReportService(scenarioSource(t), defaultParams(t), notifier, nil, nil)
	first, err := svc.Reload(context.Background())
	require.NoError(t, err)

	svc.source = missingSource(t)
	_, err = svc.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))

	assert.Same(t, first, svc.Snapshot())
	notifier.AssertExpectations(t)
}

func TestReportService_BuildWithoutSnapshot(t *testing.T) {
	svc := NewReportService(scenarioSource(t), defaultParams(t), nil, nil, nil)

	_, err := svc.Build(context.Background(), svc.Defaults())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnavailable))

	_, err = svc.SnapshotInfo()
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnavailable))
}

func TestReportService_Build(t *testing.T) {
	svc := NewReportService(scenarioSource(t), defaultParams(t), nil, nil, nil)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	report, err := svc.Build(context.Background(), svc.Defaults())
	require.NoError(t, err)
	assert.Equal(t, svc.Snapshot().Fingerprint, report.Fingerprint)
	assert.Equal(t, 3.0, report.Touches.Get("BIKE CHECK", "Yellow 360 YOLO"))
	assert.Empty(t, report.SectionErrors)
}

func TestReportService_DefaultsAreCopies(t *testing.T) {
	svc := NewReportService(scenarioSource(t), defaultParams(t), nil, nil, nil)

	p := svc.Defaults()
	p.IncludeKeywords[0] = "CHANGED"
	p.TypesOfInterest[0] = "CHANGED"

	assert.NotEqual(t, "CHANGED", svc.Defaults().IncludeKeywords[0])
	assert.NotEqual(t, "CHANGED", svc.Defaults().TypesOfInterest[0])
}

func TestReportService_Options(t *testing.T) {
	svc := NewReportService(scenarioSource(t), defaultParams(t), nil, nil, nil)

	opts := svc.Options(context.Background())
	assert.Empty(t, opts.BikeTypes)
	assert.Nil(t, opts.Snapshot)
	assert.Equal(t, "2023-01-01", opts.DefaultStartDate)
	assert.Equal(t, "2023-09-13", opts.DefaultEndDate)
	assert.Contains(t, opts.Keywords, "CHAIN")
	assert.Equal(t, dataprocessing.Sections, opts.Tables)

	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	opts = svc.Options(context.Background())
	assert.Equal(t, []string{"2022 Vacayzen TAXI", "Generic New Wave", "Vacayzen New Wave", "Yellow 360 YOLO"}, opts.BikeTypes)
	assert.Contains(t, opts.Services, "BIKE CHECK")
	require.NotNil(t, opts.Snapshot)
	assert.Equal(t, 4, opts.Snapshot.RegistryRows)
}

func TestReportService_ConcurrentBuildsDuringReload(t *testing.T) {
	svc := NewReportService(scenarioSource(t), defaultParams(t), nil, nil, nil)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Build(context.Background(), svc.Defaults())
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Reload(context.Background())
			if apperrors.IsType(err, apperrors.ErrTypeUnavailable) {
				err = nil
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bikereport/internal/config"
	"bikereport/internal/dataprocessing"
	"bikereport/internal/shared/testutil"
)

// MockNotifier is a mock for the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Broadcast(ctx context.Context, messageType string, data interface{}) {
	m.Called(ctx, messageType, data)
}

func scenarioSource(t *testing.T) dataprocessing.Source {
	t.Helper()
	registry, dispatch, err := testutil.WriteScenarioCSV(t.TempDir())
	require.NoError(t, err)
	return dataprocessing.NewCSVSource(registry, dispatch)
}

func missingSource(t *testing.T) dataprocessing.Source {
	dir := t.TempDir()
	return dataprocessing.NewCSVSource(filepath.Join(dir, "none.csv"), filepath.Join(dir, "none2.csv"))
}

func defaultParams(t *testing.T) dataprocessing.ReportParams {
	t.Helper()
	params, err := dataprocessing.ParamsFromConfig(config.Default().Report)
	require.NoError(t, err)
	return params
}

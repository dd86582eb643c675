package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikereport/internal/dataprocessing"
)

type fakeSnapshots struct{ snap *dataprocessing.Snapshot }

func (f fakeSnapshots) Snapshot() *dataprocessing.Snapshot { return f.snap }

type fakeClients int

func (f fakeClients) ClientCount() int { return int(f) }

func TestHealthService_HealthCheck(t *testing.T) {
	hs := NewHealthService("1.4.0", "", fakeSnapshots{}, nil, nil)

	status := hs.HealthCheck(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.4.0", status.Version)
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthService_ReadinessCheck(t *testing.T) {
	notReady := NewHealthService("1.4.0", "", fakeSnapshots{}, fakeClients(0), nil)
	status := notReady.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", status.Status)
	assert.Equal(t, ErrNoSnapshot.Error(), status.Services["data"].Message)

	snap := dataprocessing.NewSnapshot("csv", nil, nil)
	ready := NewHealthService("1.4.0", "", fakeSnapshots{snap}, fakeClients(2), nil)
	status = ready.ReadinessCheck(context.Background())
	assert.Equal(t, "ready", status.Status)
	assert.Contains(t, status.Services["data"].Message, snap.Fingerprint[:12])
	assert.Equal(t, "2 clients connected", status.Services["websocket"].Message)

	missing := NewHealthService("1.4.0", "", nil, nil, nil)
	assert.Equal(t, "not_ready", missing.ReadinessCheck(context.Background()).Status)
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	hs := NewHealthService("1.4.0", "2024-01-01T00:00:00Z", nil, nil, nil)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	require.Contains(t, live.Runtime, "goroutines")

	v := hs.Version()
	assert.Equal(t, "1.4.0", v["version"])
	assert.Equal(t, "2024-01-01T00:00:00Z", v["build_time"])

	assert.NotContains(t, NewHealthService("1.4.0", "", nil, nil, nil).Version(), "build_time")
}

package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-registry/internal/config"
	"github.com/jwalitptl/patient-registry/internal/model"
)

func testConfig(t *testing.T, transport string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			Path:        filepath.Join(dir, "registry.db"),
			BusyTimeout: time.Second,
		},
		Notifier: config.NotifierConfig{
			Transport: transport,
			Dir:       filepath.Join(dir, "signals"),
		},
		Query:      config.QueryConfig{HistorySize: 10},
		Monitoring: config.MonitoringConfig{Namespace: "test"},
	}
}

func TestNewBrokerByTransport(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, transport := range []string{"memory", "file", "redis"} {
		t.Run(transport, func(t *testing.T) {
			cfg := testConfig(t, transport)
			cfg.Redis.URL = "redis://" + mr.Addr()

			broker, err := NewBroker(cfg, nil)
			require.NoError(t, err)
			assert.NoError(t, broker.Close())
		})
	}

	_, err := NewBroker(testConfig(t, "carrier-pigeon"), nil)
	assert.Error(t, err)
}

func TestTwoProcessesShareChanges(t *testing.T) {
	cfg := testConfig(t, "file")
	ctx := context.Background()

	first, err := New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { first.Close() })
	second, err := New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	require.NoError(t, first.Session.Wait(ctx))
	require.NoError(t, second.Session.Wait(ctx))

	before, err := second.Patients.ListPatients(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, before)

	stop, err := second.Patients.Listen("second")
	require.NoError(t, err)
	t.Cleanup(stop)

	_, err = first.Patients.CreatePatient(ctx, "first", &model.PatientRequest{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		patients, err := second.Patients.ListPatients(ctx, nil)
		return err == nil && len(patients) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klokku/booking/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, ":8181", cfg.Listen)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, LockBackendLocal, cfg.Lock.Backend)
	start, end, err := cfg.Scheduling.BusinessWindow()
	require.NoError(t, err)
	assert.Equal(t, utils.NewTimeOfDay(8, 0, 0), start)
	assert.Equal(t, utils.NewTimeOfDay(18, 0, 0), end)
	assert.Equal(t, 30*time.Minute, cfg.Scheduling.SlotStep())
	assert.Equal(t, 6, cfg.Scheduling.RecurrenceHorizonMonths)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "application.yaml")
	yaml := `
scheduling:
  timezone: Europe/Warsaw
  businesshours:
    start: "07:00"
lock:
  backend: redis
  redis:
    addr: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("BOOKING_DB_HOST", "db.internal")

	// when
	cfg, err := Load(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "Europe/Warsaw", cfg.Scheduling.Timezone)
	assert.Equal(t, "07:00", cfg.Scheduling.BusinessHours.Start)
	assert.Equal(t, "18:00:00", cfg.Scheduling.BusinessHours.End)
	assert.Equal(t, LockBackendRedis, cfg.Lock.Backend)
	assert.Equal(t, "redis:6379", cfg.Lock.Redis.Addr)
}

func TestLoad_InvalidBusinessHours(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	yaml := `
scheduling:
  businesshours:
    start: "18:00"
    end: "08:00"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	_, err := Load(path)

	assert.Error(t, err)
}

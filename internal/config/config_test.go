package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	require.Equal(t, DefaultServerPort, cfg.Server.Port)
	require.Equal(t, int64(DefaultMinIncrement), cfg.Auction.MinIncrement)
	require.Equal(t, DefaultBidWaitTimeout, cfg.Auction.BidWaitTimeout)
	require.Equal(t, DefaultSweepInterval, cfg.Scheduler.Interval)
	require.Equal(t, DefaultSweepConcurrency, cfg.Scheduler.Concurrency)
	require.False(t, cfg.Database.Enabled)
	require.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)

	require.NoError(t, cfg.Validate())
}

func TestLoadAndValidate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  port: 9090
auction:
  min_increment: 50
  bid_wait_timeout: 1s
scheduler:
  interval: 2s
metrics:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, int64(50), cfg.Auction.MinIncrement)
	require.Equal(t, Duration(time.Second), cfg.Auction.BidWaitTimeout)
	require.Equal(t, Duration(2*time.Second), cfg.Scheduler.Interval)
	// Unset fields fall back to defaults
	require.Equal(t, DefaultSweepConcurrency, cfg.Scheduler.Concurrency)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("AUCTION_TEST_DB_PASSWORD", "hunter2")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
database:
  enabled: true
  host: localhost
  name: auctions
  user: auction
  password: ${AUCTION_TEST_DB_PASSWORD}
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)
	require.Equal(t, "hunter2", cfg.Database.Password)
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(cfg *ServiceConfig)
	}{
		{name: "port_out_of_range", mutate: func(cfg *ServiceConfig) { cfg.Server.Port = 70000 }},
		{name: "negative_min_increment", mutate: func(cfg *ServiceConfig) { cfg.Auction.MinIncrement = -1 }},
		{name: "negative_sweep_interval", mutate: func(cfg *ServiceConfig) { cfg.Scheduler.Interval = Duration(-time.Second) }},
		{name: "db_enabled_missing_host", mutate: func(cfg *ServiceConfig) {
			cfg.Database.Enabled = true
			cfg.Database.Name = "auctions"
			cfg.Database.User = "auction"
		}},
		{name: "db_min_conns_above_max", mutate: func(cfg *ServiceConfig) {
			cfg.Database.Enabled = true
			cfg.Database.Host = "localhost"
			cfg.Database.Name = "auctions"
			cfg.Database.User = "auction"
			cfg.Database.MinConns = 20
			cfg.Database.MaxConns = 5
		}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerPort       = 8080
	DefaultShutdownTimeout  = Duration(10 * time.Second)
	DefaultMinIncrement     = 100
	DefaultBidWaitTimeout   = Duration(2 * time.Second)
	DefaultSweepInterval    = Duration(5 * time.Second)
	DefaultSweepConcurrency = 8
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultHubWriteTimeout  = Duration(5 * time.Second)
	DefaultDispatcherQueue  = 1024
	DefaultMetricsPath      = "/metrics"
)

func (c *ServiceConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Auction.MinIncrement == 0 {
		c.Auction.MinIncrement = DefaultMinIncrement
	}
	if c.Auction.BidWaitTimeout == 0 {
		c.Auction.BidWaitTimeout = DefaultBidWaitTimeout
	}

	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = DefaultSweepInterval
	}
	if c.Scheduler.Concurrency == 0 {
		c.Scheduler.Concurrency = DefaultSweepConcurrency
	}

	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	if c.Hub.WriteTimeout == 0 {
		c.Hub.WriteTimeout = DefaultHubWriteTimeout
	}

	if c.Dispatcher.QueueSize == 0 {
		c.Dispatcher.QueueSize = DefaultDispatcherQueue
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

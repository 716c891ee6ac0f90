package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for values that cannot work at runtime.
// Call after defaults have been applied.
func (c *ServiceConfig) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Auction.MinIncrement <= 0 {
		errs = append(errs, fmt.Errorf("auction.min_increment must be positive, got %d", c.Auction.MinIncrement))
	}
	if c.Auction.BidWaitTimeout <= 0 {
		errs = append(errs, errors.New("auction.bid_wait_timeout must be positive"))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	if c.Scheduler.Concurrency <= 0 {
		errs = append(errs, errors.New("scheduler.concurrency must be positive"))
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host required when database.enabled"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name required when database.enabled"))
		}
		if c.Database.User == "" {
			errs = append(errs, errors.New("database.user required when database.enabled"))
		}
		if c.Database.MinConns > c.Database.MaxConns {
			errs = append(errs, fmt.Errorf("database.min_conns %d exceeds max_conns %d",
				c.Database.MinConns, c.Database.MaxConns))
		}
	}

	return errors.Join(errs...)
}

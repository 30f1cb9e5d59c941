package config

import (
	"fmt"

	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/rules"
)

// Validate rejects a configuration the pipeline could not run with.
// The first problem is returned as INVALID_CONFIGURATION naming the field.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewInvalidConfiguration("log.level", fmt.Sprintf("unknown level %q (want debug, info, warn or error)", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.NewInvalidConfiguration("log.format", fmt.Sprintf("unknown format %q (want json or console)", c.Log.Format))
	}
	if c.Batch.Workers < 0 {
		return errors.NewInvalidConfiguration("batch.workers", "must be >= 0")
	}
	if c.DB.MaxOpenConns < 0 {
		return errors.NewInvalidConfiguration("db.max_open_conns", "must be >= 0")
	}
	if c.DB.MaxIdleConns < 0 {
		return errors.NewInvalidConfiguration("db.max_idle_conns", "must be >= 0")
	}

	if _, err := rules.Compile(c.Rules); err != nil {
		return err
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	return c.Priority.Validate()
}

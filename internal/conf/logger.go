// Package conf provides configuration management for meteorscan.
package conf

import (
	"log/slog"
)

// GetLogger returns a logger scoped to the conf package. Fetched fresh each
// call from slog.Default(), which logging.Init() replaces with the
// structured logger once it runs; conf cannot import logging, which
// already imports conf.
func GetLogger() *slog.Logger {
	return slog.Default().With("service", "config")
}

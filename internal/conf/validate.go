package conf

import (
	"encoding/json"
	"fmt"
)

// validateSettings applies the handful of cross-field constraints the
// orchestrator and catalog layer rely on; it never overrides what the user
// configured beyond clamping to sane bounds.
func validateSettings(s *Settings) error {
	if s.Processing.Threads < 0 {
		return fmt.Errorf("processing.threads must be >= 0 (0 means use all CPUs), got %d", s.Processing.Threads)
	}
	if s.Monitoring.IntervalMinutes < 0 {
		return fmt.Errorf("monitoring.interval_minutes must be >= 0, got %d", s.Monitoring.IntervalMinutes)
	}
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		return fmt.Errorf("output.sqlite and output.mysql cannot both be enabled")
	}
	if s.Repository.FTP.Enabled && s.Repository.FTP.RatePerS <= 0 {
		s.Repository.FTP.RatePerS = 2
	}
	return nil
}

// structToMap round-trips settings through JSON to obtain a plain map that
// viper.MergeConfigMap can consume; JSON tags are absent so field names
// match viper's lower-cased key matching directly.
func structToMap(s *Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal settings into map: %w", err)
	}
	return out, nil
}

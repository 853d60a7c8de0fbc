// root.go viper root command code
package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bramsnet/meteorscan/internal/buildinfo"
	"github.com/bramsnet/meteorscan/internal/conf"
	"github.com/bramsnet/meteorscan/internal/datastore"
	"github.com/bramsnet/meteorscan/internal/diskmanager"
	"github.com/bramsnet/meteorscan/internal/logging"
	"github.com/bramsnet/meteorscan/internal/mqtt"
	"github.com/bramsnet/meteorscan/internal/observability"
	"github.com/bramsnet/meteorscan/internal/pipeline"
	"github.com/bramsnet/meteorscan/internal/report"
	"github.com/bramsnet/meteorscan/internal/repository"
)

// cacheCleanupInterval is how often the FTP cache directory is swept for
// usage-based retention whenever an FTP source with a cache directory is
// configured.
const cacheCleanupInterval = 10 * time.Minute

// RootCommand creates and returns the root command. runtime carries
// build-time metadata injected from main, not user configuration.
func RootCommand(settings *conf.Settings, runtime *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "meteorscan",
		Short:   "BRAMS radio-meteor forward-scatter detection",
		Version: fmt.Sprintf("%s (built %s)", runtime.GetVersion(), runtime.GetBuildDate()),
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		log.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(detectCommand(settings), monitorCommand(settings))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Init()
		pipeline.LogCPUTopology()
		return nil
	}

	return rootCmd
}

// setupFlags defines flags global to every subcommand.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVarP(&settings.Processing.Threads, "threads", "j",
		viper.GetInt("processing.threads"), "Number of worker goroutines (default 0 = all logical CPUs)")
	rootCmd.PersistentFlags().StringSliceVar(&settings.Stations.Codes, "stations",
		viper.GetStringSlice("stations.codes"), "Station codes to scan")
	rootCmd.PersistentFlags().IntSliceVar(&settings.Stations.Antennas, "antennas",
		viper.GetIntSlice("stations.antennas"), "Antenna IDs to scan (default: all)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// buildCollaborators wires the repository source, catalog store, and
// notification sinks every subcommand needs, from the resolved settings.
func buildCollaborators(settings *conf.Settings) (repository.Source, datastore.Store, *observability.Registry, error) {
	var source repository.Source
	if settings.Repository.FTP.Enabled {
		source = repository.NewFTPSource(settings.Repository.FTP.Host, 21,
			settings.Repository.FTP.Username, settings.Repository.FTP.Password, settings.Repository.FTP.Root,
			settings.Repository.FTP.RatePerS, settings.Repository.CacheDir, settings.Repository.MinFreeDiskMB)
	} else {
		source = &repository.FileTreeSource{Root: settings.Repository.FileDirectory, IsWavTree: settings.Repository.IsWavTree}
	}

	store, err := datastore.New(settings)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening catalog: %w", err)
	}

	reg := observability.NewRegistry()
	diskmanager.SetMetrics(reg.DiskManager)

	if settings.Repository.FTP.Enabled && settings.Repository.CacheDir != "" {
		startCacheJanitor(settings.Repository.CacheDir)
	}

	return source, store, reg, nil
}

// startCacheJanitor periodically sweeps the FTP cache directory down to 80%
// utilization once it crosses 90%, freeing space for new downloads without
// starving concurrently-running recordings.
func startCacheJanitor(cacheDir string) {
	go func() {
		ticker := time.NewTicker(cacheCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			result := diskmanager.UsageBasedCleanup(context.Background(), cacheDir, 90, 80)
			if result.Err != nil {
				logging.Warn("cache cleanup failed", "cache_dir", cacheDir, "error", result.Err)
			}
		}
	}()
}

func detectCommand(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run meteor detection for one instant across configured stations",
		RunE: func(cmd *cobra.Command, args []string) error {
			instant, err := resolveInstant(settings.Detection.Time)
			if err != nil {
				return err
			}

			source, store, reg, err := buildCollaborators(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			candidateSink := &report.MQTTCandidateSink{}
			if settings.MQTT.Enabled {
				client := mqtt.NewClient(settings)
				if err := client.Connect(cmd.Context()); err != nil {
					logging.Warn("mqtt connect failed, candidates will not be published", "error", err)
				}
				candidateSink.Client = client
				defer client.Disconnect()
			}

			orch := pipeline.New(settings, store, source, nil, candidateSink, reg.Pipeline)

			if settings.WebServer.Enabled {
				srv := observability.NewServer(settings, reg)
				srv.Start()
				defer srv.Shutdown(context.Background())
			}

			summary, err := orch.RunDetection(cmd.Context(), instant, settings.Stations.Codes, settings.Stations.Antennas)
			if err != nil {
				return fmt.Errorf("detection run failed: %w", err)
			}

			logging.Info("detection run complete",
				"run_id", summary.RunID, "stations", summary.PerStationCounts, "files_skipped", summary.FilesSkipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&settings.Detection.Time, "time", settings.Detection.Time, "UTC instant to detect at, RFC3339 (default: now)")
	return cmd
}

func monitorCommand(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run PSD monitoring over a date range across configured stations",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := resolveMonitoringRange(settings)
			if err != nil {
				return err
			}

			source, store, reg, err := buildCollaborators(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			var alerts report.AlertSink
			if len(settings.Notify.URLs) > 0 {
				alerts = report.NewShoutrrrSink(settings.Notify.URLs)
			}

			orch := pipeline.New(settings, store, source, alerts, nil, reg.Pipeline)

			if settings.WebServer.Enabled {
				srv := observability.NewServer(settings, reg)
				srv.Start()
				defer srv.Shutdown(context.Background())
			}

			summary, err := orch.RunMonitoring(cmd.Context(), start, end, settings.Monitoring.IntervalMinutes,
				settings.Monitoring.Overwrite, settings.Stations.Codes, settings.Stations.Antennas)
			if err != nil {
				return fmt.Errorf("monitoring run failed: %w", err)
			}

			logging.Info("monitoring run complete",
				"run_id", summary.RunID, "intervals_run", summary.IntervalsRun,
				"intervals_reused", summary.IntervalsReused, "flags_raised", summary.FlagsRaised,
				"files_skipped", summary.FilesSkipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&settings.Monitoring.StartDate, "start-date", settings.Monitoring.StartDate, "UTC start date, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&settings.Monitoring.EndDate, "end-date", settings.Monitoring.EndDate, "UTC end date, RFC3339 or YYYY-MM-DD")
	cmd.Flags().IntVar(&settings.Monitoring.IntervalMinutes, "interval-minutes", settings.Monitoring.IntervalMinutes, "Sampling interval in minutes")
	cmd.Flags().BoolVar(&settings.Monitoring.Overwrite, "overwrite", settings.Monitoring.Overwrite, "Reprocess intervals already recorded in the catalog")
	return cmd
}

// resolveInstant parses Settings.Detection.Time, defaulting to now when empty.
func resolveInstant(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --time %q: %w", raw, err)
	}
	return t.UTC(), nil
}

// resolveMonitoringRange parses Settings.Monitoring.StartDate/EndDate,
// accepting RFC3339 or a bare YYYY-MM-DD date.
func resolveMonitoringRange(settings *conf.Settings) (start, end time.Time, err error) {
	start, err = parseDateOrInstant(settings.Monitoring.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start-date: %w", err)
	}
	end, err = parseDateOrInstant(settings.Monitoring.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end-date: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end-date must be after --start-date")
	}
	return start, end, nil
}

func parseDateOrInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

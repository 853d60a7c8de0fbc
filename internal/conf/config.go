// conf/config.go
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the full configuration contract consumed by the cmd layer and
// the pipeline orchestrator. Fields map directly to spec.md §6's
// "Configuration" block plus the catalog/repository/report wiring C9–C11
// need to construct their dependencies.
type Settings struct {
	Debug bool

	Main struct {
		Name string // identifies this installation in logs and MQTT client IDs
		Log  LogConfig
	}

	Processing struct {
		Threads int // recording-level worker pool size; 0 = use all logical CPUs
	}

	Stations struct {
		ReferenceStation string   // station code the detection instant is anchored to
		Codes            []string // station codes to scan
		Antennas         []int    // optional antenna filter; empty means all antennas
	}

	Repository struct {
		FileDirectory string // root of the local <STATION>/<YYYY>/<MM>/<DD> tree
		IsWavTree     bool   // true: bare .wav files; false: hourly .tar archives

		FTP struct {
			Enabled  bool
			Host     string
			Username string
			Password string
			Root     string
			RatePerS float64 // FTP request rate limit, requests/second
		}

		CacheDir      string // local staging directory for FTP-fetched files
		MinFreeDiskMB int64  // refuse to stage new files below this free-space floor
	}

	Detection struct {
		Time string // UTC instant, RFC3339; parsed by the cmd layer into µs
	}

	Monitoring struct {
		StartDate       string // UTC date, RFC3339 or YYYY-MM-DD
		EndDate         string
		IntervalMinutes int
		Overwrite       bool
	}

	Plot struct {
		FMin float64
		FMax float64
	}

	Output struct {
		CSV struct {
			Enabled     bool
			Destination string
		}

		SQLite struct {
			Enabled bool
			Path    string
		}

		MySQL struct {
			Enabled  bool
			Username string
			Password string
			Database string
			Host     string
			Port     string
		}
	}

	Notify struct {
		URLs  []string // shoutrrr service URLs for PSD variation alerts
		Email string   // summary recipient; delivery itself is an external collaborator
	}

	MQTT struct {
		Enabled  bool
		Broker   string
		Username string
		Password string
	}

	WebServer struct {
		Enabled bool
		Listen  string // address for the /healthz and /metrics endpoints
	}
}

// LogConfig defines the configuration for a log file.
type LogConfig struct {
	Enabled     bool
	Path        string
	Rotation    RotationType
	MaxSize     int64
	RotationDay time.Weekday
}

// RotationType defines the available log rotation strategies.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

var buildDate string

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and flag overrides into a fresh
// Settings instance, the order viper resolves them in. Environment
// variables are not consulted.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	fmt.Printf("meteorscan build date: %s, using config file: %s\n", buildDate, viper.ConfigFileUsed())
	return nil
}

func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded default config: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings persists the current in-memory settings to the YAML file.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	settingsMap, err := structToMap(settingsInstance)
	if err != nil {
		return fmt.Errorf("error converting settings to map: %w", err)
	}
	if err := viper.MergeConfigMap(settingsMap); err != nil {
		return fmt.Errorf("error merging settings with viper: %w", err)
	}
	return viper.WriteConfig()
}

// UpdateSettings validates and replaces the in-memory settings, persisting
// the result.
func UpdateSettings(newSettings *Settings) error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := validateSettings(newSettings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	settingsInstance = newSettings

	settingsMap, err := structToMap(newSettings)
	if err != nil {
		return fmt.Errorf("error converting settings to map: %w", err)
	}
	if err := viper.MergeConfigMap(settingsMap); err != nil {
		return fmt.Errorf("error merging settings with viper: %w", err)
	}
	return viper.WriteConfig()
}

// Setting returns the process-wide settings instance, loading it from disk
// on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

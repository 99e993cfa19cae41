// Package config layers vitals options: defaults, an optional YAML file,
// a .env file, VITALS_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "VITALS_"
	pathEnv   = ".env"
)

// Config carries runtime options for vitals.
type Config struct {
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT"` // text or json
	// LogFile receives logs in the terminal UI, which owns stderr. Empty
	// discards them there.
	LogFile     string `yaml:"log_file" env:"LOG_FILE"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
	// HistoryWidth is the graph width in cells; it is the capacity of every
	// history buffer.
	HistoryWidth int `yaml:"history_width" env:"HISTORY_WIDTH"`

	CPU       CPUConfig       `yaml:"cpu" envPrefix:"CPU_"`
	Memory    MemoryConfig    `yaml:"memory" envPrefix:"MEMORY_"`
	Disk      DiskConfig      `yaml:"disk" envPrefix:"DISK_"`
	GPU       GPUConfig       `yaml:"gpu" envPrefix:"GPU_"`
	Network   NetworkConfig   `yaml:"network" envPrefix:"NETWORK_"`
	Processes ProcessesConfig `yaml:"processes" envPrefix:"PROCESSES_"`
	Weather   WeatherConfig   `yaml:"weather" envPrefix:"WEATHER_"`
}

type CPUConfig struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	// SensorLabel names the temperature sensor, e.g. "Package id 0". Empty
	// disables the readout.
	SensorLabel string `yaml:"sensor_label" env:"SENSOR_LABEL"`
}

type MemoryConfig struct {
	Interval      time.Duration `yaml:"interval" env:"INTERVAL"`
	FrequencyFile string        `yaml:"frequency_file" env:"FREQUENCY_FILE"`
}

type DiskConfig struct {
	Interval   time.Duration `yaml:"interval" env:"INTERVAL"`
	Name       string        `yaml:"name" env:"NAME"`
	MountPoint string        `yaml:"mount_point" env:"MOUNT_POINT"`
	DevicePath string        `yaml:"device_path" env:"DEVICE_PATH"`
}

type GPUConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

type NetworkConfig struct {
	Interval         time.Duration `yaml:"interval" env:"INTERVAL"`
	InterfacePattern string        `yaml:"interface_pattern" env:"INTERFACE_PATTERN"`
	// PublicIPInterval of zero disables public address lookups.
	PublicIPInterval time.Duration `yaml:"public_ip_interval" env:"PUBLIC_IP_INTERVAL"`
	DownloadMax      float64       `yaml:"download_max" env:"DOWNLOAD_MAX"` // bytes/s drawn as a full graph
	UploadMax        float64       `yaml:"upload_max" env:"UPLOAD_MAX"`
}

type ProcessesConfig struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
	TopK     int           `yaml:"top_k" env:"TOP_K"`
}

type WeatherConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	Interval     time.Duration `yaml:"interval" env:"INTERVAL"`
	RetryTimeout time.Duration `yaml:"retry_timeout" env:"RETRY_TIMEOUT"`
	CityID       uint64        `yaml:"city_id" env:"CITY_ID"`
	APIKey       string        `yaml:"api_key" env:"API_KEY"`
	Units        string        `yaml:"units" env:"UNITS"`
	CacheFile    string        `yaml:"cache_file" env:"CACHE_FILE"`
}

func Default() Config {
	return Config{
		LogLevel:     "info",
		LogFormat:    "text",
		MetricsAddr:  ":9120",
		HistoryWidth: 60,
		CPU:          CPUConfig{Interval: time.Second},
		Memory:       MemoryConfig{Interval: time.Second},
		Disk: DiskConfig{
			Interval:   5 * time.Second,
			Name:       "Root",
			MountPoint: "/",
		},
		GPU: GPUConfig{Enabled: true, Interval: time.Second},
		Network: NetworkConfig{
			Interval:         time.Second,
			InterfacePattern: `^(en|eth|wl)`,
			PublicIPInterval: 10 * time.Minute,
			DownloadMax:      12.5e6,
			UploadMax:        2.5e6,
		},
		Processes: ProcessesConfig{Interval: 2 * time.Second, TopK: 10},
		Weather: WeatherConfig{
			Interval:     10 * time.Minute,
			RetryTimeout: 30 * time.Second,
			Units:        "metric",
			CacheFile:    defaultCacheFile(),
		},
	}
}

func defaultCacheFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "vitals", "weather.json")
}

// Load merges the YAML file at path (if any), a .env file in the working
// directory, and VITALS_* variables over the defaults. A missing file at path
// is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, nil
}

// BindFlags registers the command-line overrides on fs. Flags are applied
// directly to c when fs is parsed.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text|json")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "log file used while the terminal UI runs")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "listen address of the metrics endpoint")
	fs.IntVar(&c.HistoryWidth, "history-width", c.HistoryWidth, "history graph width in samples")
	fs.DurationVar(&c.CPU.Interval, "cpu-interval", c.CPU.Interval, "CPU refresh interval")
	fs.StringVar(&c.CPU.SensorLabel, "cpu-sensor", c.CPU.SensorLabel, "CPU temperature sensor label")
	fs.DurationVar(&c.Memory.Interval, "memory-interval", c.Memory.Interval, "memory refresh interval")
	fs.StringVar(&c.Disk.MountPoint, "disk-mount", c.Disk.MountPoint, "mount point to watch")
	fs.StringVar(&c.Disk.DevicePath, "disk-device", c.Disk.DevicePath, "block device of the mount point")
	fs.BoolVar(&c.GPU.Enabled, "gpu", c.GPU.Enabled, "enable GPU sampling")
	fs.StringVar(&c.Network.InterfacePattern, "interface", c.Network.InterfacePattern, "regex matching the network interface")
	fs.DurationVar(&c.Network.PublicIPInterval, "public-ip-interval", c.Network.PublicIPInterval, "public address refresh interval (0 disables)")
	fs.IntVar(&c.Processes.TopK, "top", c.Processes.TopK, "processes listed per ranking")
	fs.BoolVar(&c.Weather.Enabled, "weather", c.Weather.Enabled, "enable the weather panel")
	fs.Uint64Var(&c.Weather.CityID, "city-id", c.Weather.CityID, "OpenWeather city ID")
}

// Override copies the flags that were explicitly set on changed onto c, so
// flags win over the file and the environment while unset flags keep the
// loaded values.
func (c *Config) Override(changed *pflag.FlagSet) error {
	target := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
	c.BindFlags(target)
	var err error
	changed.Visit(func(f *pflag.Flag) {
		if err != nil || target.Lookup(f.Name) == nil {
			return
		}
		if setErr := target.Set(f.Name, f.Value.String()); setErr != nil {
			err = fmt.Errorf("config: flag --%s: %w", f.Name, setErr)
		}
	})
	return err
}

// Validate reports every invalid option at once.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	positive("cpu.interval", c.CPU.Interval)
	positive("memory.interval", c.Memory.Interval)
	positive("disk.interval", c.Disk.Interval)
	positive("network.interval", c.Network.Interval)
	positive("processes.interval", c.Processes.Interval)
	if c.GPU.Enabled {
		positive("gpu.interval", c.GPU.Interval)
	}
	if c.Network.PublicIPInterval < 0 {
		errs = append(errs, fmt.Errorf("network.public_ip_interval must not be negative, got %s", c.Network.PublicIPInterval))
	}
	if c.Weather.Enabled {
		positive("weather.interval", c.Weather.Interval)
		positive("weather.retry_timeout", c.Weather.RetryTimeout)
		if c.Weather.CacheFile == "" {
			errs = append(errs, errors.New("weather.cache_file is required"))
		}
	}

	if c.Network.InterfacePattern == "" {
		errs = append(errs, errors.New("network.interface_pattern is required"))
	} else if _, err := regexp.Compile(c.Network.InterfacePattern); err != nil {
		errs = append(errs, fmt.Errorf("network.interface_pattern: %w", err))
	}
	if c.Disk.MountPoint == "" {
		errs = append(errs, errors.New("disk.mount_point is required"))
	}
	if c.Processes.TopK < 1 {
		errs = append(errs, fmt.Errorf("processes.top_k must be at least 1, got %d", c.Processes.TopK))
	}
	if c.HistoryWidth < 1 {
		errs = append(errs, fmt.Errorf("history_width must be at least 1, got %d", c.HistoryWidth))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be 'text' or 'json', got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

package khova

import (
	"os"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the khova tools.
type Config struct {
	Workers     int    `yaml:"workers"`      // max concurrent differential builds (0 denotes GOMAXPROCS)
	CatalogPath string `yaml:"catalog_path"` // omit for an in-memory catalog
	UseCatalog  bool   `yaml:"use_catalog"`  // look up and store results in the catalog
	Verbosity   int    `yaml:"verbosity"`    // klog -v level
	MetricsAddr string `yaml:"metrics_addr"` // if set, serve prometheus metrics on this address
}

func DefaultConfig() Config {
	return Config{
		Workers:   runtime.GOMAXPROCS(0),
		Verbosity: 1,
	}
}

// LoadConfig returns the default config, overlaid by the YAML file at configPath (if given and present)
// and then by KHOVA_* environment variables.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return config, errors.Wrapf(err, "read config %q", configPath)
		}
		if err == nil {
			if err = yaml.Unmarshal(data, &config); err != nil {
				return config, errors.Wrapf(ErrBadConfig, "parse config %q: %v", configPath, err)
			}
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("KHOVA_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Workers = i
		}
	}
	if v := os.Getenv("KHOVA_CATALOG"); v != "" {
		config.CatalogPath = v
		config.UseCatalog = true
	}
	if v := os.Getenv("KHOVA_VERBOSITY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Verbosity = i
		}
	}
	if v := os.Getenv("KHOVA_METRICS_ADDR"); v != "" {
		config.MetricsAddr = v
	}
}

func (config *Config) Validate() error {
	if config.Workers < 0 {
		return errors.Wrapf(ErrBadConfig, "workers must be >= 0 (got %d)", config.Workers)
	}
	if config.Workers == 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	if config.Verbosity < 0 {
		return errors.Wrapf(ErrBadConfig, "verbosity must be >= 0 (got %d)", config.Verbosity)
	}
	return nil
}

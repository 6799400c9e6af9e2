package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "TORRENTD"
	appName      = "torrentd"
)

const (
	EngineAnacrolix = "anacrolix"
	EngineRain      = "rain"
)

type Config struct {
	Addr             string        `envconfig:"TORRENTD_ADDR"              yaml:"addr"`
	Capacity         int           `envconfig:"TORRENTD_CAPACITY"          yaml:"capacity"`
	AdmissionTimeout time.Duration `envconfig:"TORRENTD_ADMISSION_TIMEOUT" yaml:"admissionTimeout"`
	PersistTimeout   time.Duration `envconfig:"TORRENTD_PERSIST_TIMEOUT"   yaml:"persistTimeout"`
	DataDirectory    string        `envconfig:"TORRENTD_DATA_DIRECTORY"    yaml:"dataDirectory"`
	Engine           string        `envconfig:"TORRENTD_ENGINE"            yaml:"engine"`
	RainServerURL    string        `envconfig:"TORRENTD_RAIN_SERVER_URL"   yaml:"rainServerURL"`
	DatabaseURL      string        `envconfig:"TORRENTD_DATABASE_URL"      yaml:"databaseURL"`
	Trackers         []string      `envconfig:"TORRENTD_TRACKERS"          yaml:"trackers"`
	PollInterval     time.Duration `envconfig:"TORRENTD_POLL_INTERVAL"     yaml:"pollInterval"`
	LogLevel         slog.Level    `envconfig:"TORRENTD_LOG_LEVEL"         yaml:"logLevel"`
}

// DefaultConfig holds the values used for any key which is neither in the
// config file nor in the environment.
func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:8080",
		Capacity:       4,
		PersistTimeout: 10 * time.Second,
		DataDirectory:  "data",
		Engine:         EngineAnacrolix,
		PollInterval:   time.Second,
		LogLevel:       slog.LevelInfo,
		Trackers: []string{
			"udp://tracker.opentrackr.org:1337",
			"http://tracker.opentrackr.org:1337/announce",
			"udp://open.stealth.si:80/announce",
			"udp://tracker.torrent.eu.org:451/announce",
			"udp://explodie.org:6969/announce",
			"udp://exodus.desync.com:6969/announce",
			"udp://opentracker.io:6969/announce",
			"udp://bt1.archive.org:6969/announce",
			"udp://bt2.archive.org:6969/announce",
		},
	}
}

func LoadConfig() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		configFile = filepath.Join(home, ".config", appName+".yaml")
	}
	return loadConfig(configFile)
}

func loadConfig(configFile string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		if c.Addr == "" {
			return "addr", "ADDR"
		}
		if c.DataDirectory == "" {
			return "dataDirectory", "DATA_DIRECTORY"
		}
		if c.Engine == EngineRain && c.RainServerURL == "" {
			return "rainServerURL", "RAIN_SERVER_URL"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing required configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}

	if c.Capacity < 1 {
		return fmt.Errorf(
			"invalid configuration: capacity / %s_CAPACITY: wanted a "+
				"positive number; found `%d`",
			envVarPrefix,
			c.Capacity,
		)
	}
	if c.Engine != EngineAnacrolix && c.Engine != EngineRain {
		return fmt.Errorf(
			"invalid configuration: engine / %s_ENGINE: wanted `%s` or "+
				"`%s`; found `%s`",
			envVarPrefix,
			EngineAnacrolix,
			EngineRain,
			c.Engine,
		)
	}
	return nil
}

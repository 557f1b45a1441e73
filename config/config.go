package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"

	"github.com/l3uddz/delugetools/logger"
	"github.com/l3uddz/delugetools/stringutils"
)

type Configuration struct {
	Servers        []string      `koanf:"servers"`
	RPCTimeout     time.Duration `koanf:"rpc_timeout"`
	ConnectRetries uint          `koanf:"connect_retries"`
	// ConnectRetryDelay is the pause between connection attempts.
	ConnectRetryDelay time.Duration     `koanf:"connect_retry_delay"`
	Add               AddConfiguration  `koanf:"add"`
	Cull              CullConfiguration `koanf:"cull"`
}

type AddConfiguration struct {
	Paused           bool   `koanf:"paused"`
	DownloadLocation string `koanf:"download_location"`
}

type CullConfiguration struct {
	Workers    int                 `koanf:"workers"`
	RemoveRate int                 `koanf:"remove_rate"`
	Filter     FilterConfiguration `koanf:"filter"`
}

/* Vars */

const (
	EnvPrefix = "DELUGETOOLS_"
)

var (
	cfgPath = ""

	Delimiter = "."
	Config    *Configuration
	K         = koanf.New(Delimiter)

	defaults = map[string]interface{}{
		"rpc_timeout":         "30s",
		"connect_retries":     3,
		"connect_retry_delay": "1s",
		"cull.workers":        10,
		"cull.remove_rate":    0,
	}
)

/* Public */

// Init loads defaults, then the config file (when present), then environment overrides.
func Init(configFilePath string) error {
	k, err := load(configFilePath)
	if err != nil {
		return err
	}

	cfg := new(Configuration)
	if err := k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	// set package variables
	cfgPath = configFilePath
	K = k
	Config = cfg
	return nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Configuration {
	k := koanf.New(Delimiter)
	_ = k.Load(confmap.Provider(defaults, Delimiter), nil)

	cfg := new(Configuration)
	_ = k.Unmarshal("", cfg)
	return cfg
}

func ShowUsing() {
	log := logger.GetLogger("cfg")
	if cfgPath == "" {
		log.Infof("Using %s = %s", stringutils.LeftJust("CONFIG", " ", 10), "defaults")
		return
	}

	log.Infof("Using %s = %q", stringutils.LeftJust("CONFIG", " ", 10), cfgPath)
}

// GetDefaultConfigDirectory prefers the binary's own folder when it already holds filename.
func GetDefaultConfigDirectory(app string, filename string) string {
	// binary folder
	if ex, err := os.Executable(); err == nil {
		dir := filepath.Dir(ex)
		if _, err := os.Stat(filepath.Join(dir, filename)); err == nil {
			return dir
		}
	}

	// user config folder
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, app)
	}

	// working folder
	return "."
}

/* Private */

func load(configFilePath string) (*koanf.Koanf, error) {
	k := koanf.New(Delimiter)

	// defaults
	if err := k.Load(confmap.Provider(defaults, Delimiter), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// file
	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err == nil {
			if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat: %w", err)
		}
	}

	// environment
	if err := k.Load(env.Provider(EnvPrefix, Delimiter, envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	return k, nil
}

// envKey maps DELUGETOOLS_CULL__REMOVE_RATE to cull.remove_rate
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", Delimiter)
}

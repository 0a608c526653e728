package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads configuration from (in increasing priority) defaults, the
// YAML file at configFile (skipped when no file exists there), and
// environment variables, following the teacher's PORT->FROSTNEWS_PORT
// env aliasing idiom: UC_CONFIG_HOME, UC_DATA_HOME and LOG_LEVEL are
// copied to their UCBRIDGE_-prefixed names. UC_CONFIG_HOME does not
// change which file is read.
func Load(configFile string) (*Config, error) {
	if v := os.Getenv("UC_CONFIG_HOME"); v != "" {
		os.Setenv("UCBRIDGE_CONFIG_HOME", v)
	}
	if v := os.Getenv("UC_DATA_HOME"); v != "" {
		os.Setenv("UCBRIDGE_DATA_HOME", v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		os.Setenv("UCBRIDGE_LOGGING_LEVEL", v)
	}

	setDefaults()

	viper.SetEnvPrefix("ucbridge")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, newConfigError(fmt.Sprintf("reading config file: %s", err))
			}
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := viper.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
		c.ErrorUnused = true
	}); err != nil {
		return nil, newConfigError(fmt.Sprintf("unknown or malformed config key: %s", err))
	}

	level, err := ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		return nil, newConfigError(fmt.Sprintf("logging.level: %s", err))
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DataHome resolves the directory driver.json and other runtime state
// live under: UC_DATA_HOME/UCBRIDGE_DATA_HOME if set, else the
// teacher's "." current-directory fallback.
func DataHome() string {
	if v := os.Getenv("UC_DATA_HOME"); v != "" {
		return v
	}
	if v := os.Getenv("UCBRIDGE_DATA_HOME"); v != "" {
		return v
	}
	return "."
}

func setDefaults() {
	viper.SetDefault("hass.tls.verify", true)
	viper.SetDefault("hass.connection_timeout", 10)
	viper.SetDefault("hass.max_frame_size", 1<<20)
	viper.SetDefault("integration.http.port", 8443)
	viper.SetDefault("integration.http_log", false)
	viper.SetDefault("integration.websocket.heartbeat_interval", 30)
	viper.SetDefault("logging.level", "info")
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	RPCURL      string
	PostgresDSN string
	Host        string
	Port        int
	LogLevel    string
	HTTPTimeout time.Duration
}

// ScanConfig holds configuration for the scan command.
type ScanConfig struct {
	RPCURL       string
	Address      string
	WithMetadata bool
	Order        string
	LogLevel     string
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"host":         "0.0.0.0",
		"port":         8080,
		"log-level":    "info",
		"http-timeout": 30 * time.Second,
	})
	if err != nil {
		return ServeConfig{}, err
	}

	cfg := ServeConfig{
		RPCURL:      v.GetString("rpc"),
		PostgresDSN: v.GetString("pg-dsn"),
		Host:        v.GetString("host"),
		Port:        v.GetInt("port"),
		LogLevel:    v.GetString("log-level"),
		HTTPTimeout: v.GetDuration("http-timeout"),
	}

	return cfg, nil
}

// LoadScan merges config file, environment variables, and flags into ScanConfig.
func LoadScan(cfgFile string, flags *pflag.FlagSet) (ScanConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"with-metadata": true,
		"order":         "asc",
		"log-level":     "info",
	})
	if err != nil {
		return ScanConfig{}, err
	}

	cfg := ScanConfig{
		RPCURL:       v.GetString("rpc"),
		Address:      v.GetString("address"),
		WithMetadata: v.GetBool("with-metadata"),
		Order:        v.GetString("order"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("MARKETLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/setanarut/tilerecon"
	"gopkg.in/yaml.v3"
)

// configEnv names the config file when --config is not given.
const configEnv = "TILERECON_CONFIG"

type Config struct {
	Conversion tilerecon.Options `yaml:"conversion"`
	Log        LogConfig         `yaml:"log"`
	Output     OutputConfig      `yaml:"output"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Indent   bool   `yaml:"indent"`
	Zip      bool   `yaml:"zip"`
	Report   bool   `yaml:"report"`
	Families int    `yaml:"families"`
}

func DefaultConfig() Config {
	return Config{
		Conversion: tilerecon.DefaultOptions(),
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Dir:      ".",
			Families: 4,
		},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path falls back
// to $TILERECON_CONFIG; without either the defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv(configEnv)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Conversion.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

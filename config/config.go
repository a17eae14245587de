// Package config loads the device configuration from YAML.
package config

import (
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors smartlights.yml.
type Config struct {
	Server string `yaml:"server"` // Master node host
	Port   int    `yaml:"port"`   // Master node port

	TickMS      int  `yaml:"tick_ms"`      // scheduler clock period, 1 by default
	EnableClock bool `yaml:"enable_clock"` // sleep/interval support

	EEPROMPath string `yaml:"eeprom_path"` // hosted builds: device-ID record file

	WifiSSID       string `yaml:"wifi_ssid"`
	WifiPassphrase string `yaml:"wifi_passphrase"`
}

func defaultConfig() Config {
	return Config{
		Server:      "devices.c1moore.codes",
		Port:        80,
		TickMS:      1,
		EnableClock: true,
		EEPROMPath:  "smartlights.eeprom",
	}
}

// Load reads YAML and overrides defaults; an empty path or a missing file
// yields defaults only.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)

	// sanity clamps
	if cfg.Server == "" {
		cfg.Server = "devices.c1moore.codes"
	}
	if cfg.Port <= 0 {
		cfg.Port = 80
	}
	if cfg.TickMS <= 0 {
		cfg.TickMS = 1
	}
	if cfg.EEPROMPath == "" {
		cfg.EEPROMPath = "smartlights.eeprom"
	}

	return cfg
}

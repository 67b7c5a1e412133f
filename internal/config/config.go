// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type GADefaults struct {
	NumVehicles int     `yaml:"numVehicles"`
	PopSize     int     `yaml:"popSize"`
	CxPb        float64 `yaml:"cxPb"`
	MutPb       float64 `yaml:"mutPb"`
	TournSize   int     `yaml:"tournSize"`
	NGen        int     `yaml:"nGen"`
	Seed        int64   `yaml:"seed"`
}

type CoordDefaults struct {
	DepotX float64 `yaml:"depotX"`
	DepotY float64 `yaml:"depotY"`
	XMin   float64 `yaml:"xMin"`
	XMax   float64 `yaml:"xMax"`
	YMin   float64 `yaml:"yMin"`
	YMax   float64 `yaml:"yMax"`
}

type Config struct {
	Addr        string        `yaml:"addr"`
	DatabaseURL string        `yaml:"databaseUrl"`
	RedisURL    string        `yaml:"redisUrl"`
	GA          GADefaults    `yaml:"ga"`
	Coords      CoordDefaults `yaml:"coords"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr: ":8080",
		GA: GADefaults{
			NumVehicles: 3,
			PopSize:     200,
			CxPb:        0.7,
			MutPb:       0.2,
			TournSize:   3,
			NGen:        30,
			Seed:        42,
		},
		Coords: CoordDefaults{
			DepotX: 100, DepotY: 100,
			XMin: 100, XMax: 1000,
			YMin: 100, YMax: 1000,
		},
	}
}

// Load reads the YAML file at path (if non-empty and present) on top of the
// defaults, then applies environment overrides. A missing file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	return cfg, nil
}

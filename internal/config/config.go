package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// AllowedOrigins feeds CORS; empty allows every origin.
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Lessons struct {
		TTL string `yaml:"ttl"`
		// Dir holds extra JSON/YAML lesson files served next to the built-in ones.
		Dir string `yaml:"dir"`
	} `yaml:"lessons"`
	SessionAPI struct {
		BaseURL    string `yaml:"baseUrl"`
		Token      string `yaml:"token"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"maxRetries"`
	} `yaml:"sessionApi"`
	Player struct {
		ShakeDuration string `yaml:"shakeDuration"`
		NarrowLayout  bool   `yaml:"narrowLayout"`
		Seed          int64  `yaml:"seed"`
		MuteAudio     bool   `yaml:"muteAudio"`
	} `yaml:"player"`
	Activities struct {
		Breathing struct {
			Inhale string `yaml:"inhale"`
			Hold   string `yaml:"hold"`
			Exhale string `yaml:"exhale"`
			Cycles int    `yaml:"cycles"`
		} `yaml:"breathing"`
		CountingTarget int `yaml:"countingTarget"`
	} `yaml:"activities"`
}

// Default is the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Mode = "dev"
	cfg.Redis.TTL = "30m"
	cfg.Lessons.TTL = "10m"
	cfg.SessionAPI.Timeout = "10s"
	cfg.SessionAPI.MaxRetries = 2
	cfg.Player.ShakeDuration = "500ms"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

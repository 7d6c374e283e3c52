package config

import "time"

type Config struct {
	SessionIdleTimeout   time.Duration
	SessionCheckInterval time.Duration
	UsageStatusInterval  time.Duration
	GenerationModel      string
}

func NewConfig() *Config {
	return &Config{
		SessionIdleTimeout:   30 * time.Minute,
		SessionCheckInterval: 1 * time.Minute,
		UsageStatusInterval:  30 * time.Second,
		GenerationModel:      "gemini-1.5-flash",
	}
}

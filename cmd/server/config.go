package main

import (
	"fmt"
	"time"
)

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=9090"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	ShutdownGrace   time.Duration `env:"SHUTDOWN_GRACE,default=5s"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	// Comma-separated word list; moderation is disabled when empty.
	ModerationWords string `env:"MODERATION_WORDS"`
	ModerationChar  string `env:"MODERATION_CHARACTER,default=*"`
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.ModerationChar)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER must be a single character, got %q",
			c.ModerationChar,
		)
	}
	return r[0], nil
}

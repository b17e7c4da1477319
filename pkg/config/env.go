package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFiles are loaded by FromEnv when no files are given.
var DefaultEnvFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads each file into the process environment. Missing files
// are skipped and variables that are already set are left alone.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// FromEnv reads a limiter from variables named prefix+MAX_RATE and
// prefix+TIME_PERIOD, after loading files (or DefaultEnvFiles).
//
//	API_MAX_RATE=100
//	API_TIME_PERIOD=30s
//
//	l, err := config.FromEnv("API_")
func FromEnv(prefix string, files ...string) (Limiter, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	if err := LoadEnvFiles(files...); err != nil {
		return Limiter{}, err
	}

	var l Limiter
	if err := env.ParseWithOptions(&l, env.Options{Prefix: prefix}); err != nil {
		return Limiter{}, fmt.Errorf("parse %s* environment: %w", prefix, err)
	}
	if err := l.Validate(); err != nil {
		return Limiter{}, err
	}
	return l, nil
}

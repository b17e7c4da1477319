// Package config loads leaky bucket limiter settings from the environment
// (with optional .env files) or from a YAML file, and builds the limiters.
//
// A file holds any number of named limiters:
//
//	limiters:
//	  api:
//	    max_rate: 100
//	    time_period: 30s
//
//	f, err := config.FromFile("limiters.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	limiters, err := f.Build(leakybucket.Config{Logger: logger})
//
// A single limiter can also come from prefixed environment variables:
//
//	l, err := config.FromEnv("API_")
//	limiter := leakybucket.NewWithConfig(l.Config("api", leakybucket.Config{}))
package config

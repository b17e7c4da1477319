package config

import (
	"fmt"
	"math"
	"sort"
	"time"

	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
	"github.com/vnykmshr/dripflow/pkg/ratelimit/leakybucket"
)

const module = "config"

// Limiter is the serializable part of a leakybucket.Config.
type Limiter struct {
	MaxRate    float64       `env:"MAX_RATE" yaml:"max_rate"`
	TimePeriod time.Duration `env:"TIME_PERIOD" envDefault:"60s" yaml:"time_period"`
}

// File is the layout of a limiter configuration file.
type File struct {
	Limiters map[string]Limiter `yaml:"limiters"`
}

// Validate checks that the limiter can be built. A zero TimePeriod is
// accepted and means leakybucket.DefaultTimePeriod.
func (l Limiter) Validate() error {
	if l.MaxRate <= 0 || math.IsNaN(l.MaxRate) || math.IsInf(l.MaxRate, 0) {
		return gferrors.NewValidationError(module, "max_rate", l.MaxRate, "must be a positive finite number").
			WithHint("max_rate is the burst size and the number of units per time_period")
	}
	if l.TimePeriod < 0 {
		return gferrors.NewValidationError(module, "time_period", l.TimePeriod, "must not be negative").
			WithHint("use a Go duration such as 1s, 30s or 1m")
	}
	return nil
}

// Config returns a leakybucket.Config for this limiter, with runtime-only
// fields copied from base.
func (l Limiter) Config(name string, base leakybucket.Config) leakybucket.Config {
	base.MaxRate = l.MaxRate
	base.TimePeriod = l.TimePeriod
	base.Name = name
	return base
}

// Validate checks every limiter in the file.
func (f *File) Validate() error {
	if len(f.Limiters) == 0 {
		return fmt.Errorf("%w: no limiters defined", gferrors.ErrInvalidConfiguration)
	}
	for _, name := range f.Names() {
		if name == "" {
			return fmt.Errorf("%w: limiter with empty name", gferrors.ErrInvalidConfiguration)
		}
		if err := f.Limiters[name].Validate(); err != nil {
			return fmt.Errorf("limiter %q: %w", name, err)
		}
	}
	return nil
}

// Names returns the limiter names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Limiters))
	for name := range f.Limiters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates one limiter per entry. Loop, Logger and OnAnomaly are taken
// from base; every limiter is named after its key.
func (f *File) Build(base leakybucket.Config) (map[string]leakybucket.Limiter, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	limiters := make(map[string]leakybucket.Limiter, len(f.Limiters))
	for _, name := range f.Names() {
		l, err := leakybucket.NewWithConfigSafe(f.Limiters[name].Config(name, base))
		if err != nil {
			return nil, fmt.Errorf("limiter %q: %w", name, err)
		}
		limiters[name] = l
	}
	return limiters, nil
}

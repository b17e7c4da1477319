package config

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
	"github.com/vnykmshr/dripflow/pkg/ratelimit/leakybucket"
	"github.com/vnykmshr/dripflow/pkg/scheduling/loop"
)

const sample = `
limiters:
  api:
    max_rate: 100
    time_period: 30s
  exports:
    max_rate: 2
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"api", "exports"}, f.Names())
	assert.Equal(t, Limiter{MaxRate: 100, TimePeriod: 30 * time.Second}, f.Limiters["api"])
	assert.Equal(t, Limiter{MaxRate: 2}, f.Limiters["exports"])
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		is   error
	}{
		{"empty document", "limiters: {}\n", gferrors.ErrInvalidConfiguration},
		{"zero rate", "limiters:\n  a:\n    max_rate: 0\n", gferrors.ErrInvalidArgument},
		{"negative period", "limiters:\n  a:\n    max_rate: 1\n    time_period: -1s\n", gferrors.ErrInvalidArgument},
		{"unknown key", "limiters:\n  a:\n    max_rate: 1\n    burst: 3\n", nil},
		{"bad duration", "limiters:\n  a:\n    max_rate: 1\n    time_period: soon\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestValidateHint(t *testing.T) {
	err := Limiter{MaxRate: math.NaN()}.Validate()
	require.Error(t, err)

	var verr *gferrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "max_rate", verr.Field)
	assert.NotEmpty(t, verr.Hint)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limiters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := FromFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Limiters, 2)

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	var opErr *gferrors.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "read", opErr.Operation)
}

func TestBuild(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	clock := loop.NewManual(time.Time{})
	limiters, err := f.Build(leakybucket.Config{Loop: clock})
	require.NoError(t, err)
	require.Len(t, limiters, 2)

	api := limiters["api"]
	assert.Equal(t, 100.0, api.MaxRate())
	assert.Equal(t, 30*time.Second, api.TimePeriod())
	assert.Contains(t, api.(interface{ String() string }).String(), "max_rate=100")

	exports := limiters["exports"]
	assert.Equal(t, leakybucket.DefaultTimePeriod, exports.TimePeriod())

	// The shared loop drives every built limiter
	require.NoError(t, exports.AcquireN(context.Background(), 2))
	clock.Advance(30 * time.Second)
	assert.InDelta(t, 1.0, exports.Level(), 1e-9)
}

func TestBuildInvalid(t *testing.T) {
	f := &File{Limiters: map[string]Limiter{"bad": {MaxRate: -1}}}
	_, err := f.Build(leakybucket.Config{})
	assert.ErrorIs(t, err, gferrors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), `limiter "bad"`)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DRIPTEST_MAX_RATE", "12.5")
	t.Setenv("DRIPTEST_TIME_PERIOD", "5s")

	l, err := FromEnv("DRIPTEST_", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, Limiter{MaxRate: 12.5, TimePeriod: 5 * time.Second}, l)
}

func TestFromEnvDefaultPeriod(t *testing.T) {
	t.Setenv("DRIPDEF_MAX_RATE", "3")

	l, err := FromEnv("DRIPDEF_", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, l.TimePeriod)
}

func TestFromEnvMissingRate(t *testing.T) {
	_, err := FromEnv("DRIPMISSING_", filepath.Join(t.TempDir(), "none.env"))
	assert.ErrorIs(t, err, gferrors.ErrInvalidArgument)
}

func TestFromEnvDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DRIPDOT_MAX_RATE=7\nDRIPDOT_TIME_PERIOD=1m30s\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DRIPDOT_MAX_RATE")
		os.Unsetenv("DRIPDOT_TIME_PERIOD")
	})

	l, err := FromEnv("DRIPDOT_", path)
	require.NoError(t, err)
	assert.Equal(t, 7.0, l.MaxRate)
	assert.Equal(t, 90*time.Second, l.TimePeriod)

	// Build a limiter straight from the environment values
	limiter, err := leakybucket.NewWithConfigSafe(l.Config("dotenv", leakybucket.Config{}))
	require.NoError(t, err)
	assert.Equal(t, 7.0, limiter.MaxRate())
}

func TestFromEnvMalformed(t *testing.T) {
	t.Setenv("DRIPBAD_MAX_RATE", "lots")
	_, err := FromEnv("DRIPBAD_", filepath.Join(t.TempDir(), "none.env"))
	assert.Error(t, err)
}

package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestValidationErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "amount above capacity",
			err: NewValidationError("leakybucket", "amount", 5.0, "exceeds maximum capacity").
				WithHint("request at most the configured max rate"),
			want: "leakybucket: invalid amount=5 (exceeds maximum capacity) - request at most the configured max rate",
		},
		{
			name: "no hint",
			err:  NewValidationError("workerpool", "task", nil, "cannot be nil"),
			want: "workerpool: invalid task=<nil> (cannot be nil)",
		},
		{
			name: "empty string",
			err:  NewValidationError("scheduler", "id", "", "cannot be empty"),
			want: "scheduler: invalid id= (cannot be empty)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationErrorSurvivesWrapping(t *testing.T) {
	inner := NewValidationError("config", "max_rate", 0.0, "must be a positive finite number")
	err := fmt.Errorf("limiter %q: %w", "api", inner)

	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("wrapped validation error should match ErrInvalidArgument")
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should see through wrapping")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "max_rate" {
		t.Errorf("errors.As did not recover the field: %v", verr)
	}
	if IsValidationError(fmt.Errorf("%w: no limiters defined", ErrInvalidConfiguration)) {
		t.Error("a configuration sentinel is not a ValidationError")
	}
}

func TestWithHintChains(t *testing.T) {
	err := NewValidationError("leakybucket", "time_period", 0, "must be positive")
	if got := err.WithHint("use a duration such as 1s"); got != err {
		t.Error("WithHint should return the receiver")
	}
	if err.Hint != "use a duration such as 1s" {
		t.Errorf("Hint = %q", err.Hint)
	}
}

func TestOperationError(t *testing.T) {
	err := NewOperationError("config", "read", fs.ErrNotExist).WithContext("limits.yaml")

	want := "config.read failed: file does not exist (limits.yaml)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("OperationError should unwrap to its cause")
	}

	bare := NewOperationError("scheduler", "submit", ErrClosed)
	if got := bare.Error(); got != "scheduler.submit failed: resource is closed" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"limiter reset", ErrLimiterReset, true},
		{"queued task hit a reset", fmt.Errorf("%w: %w", ErrRateLimited, ErrLimiterReset), true},
		{"queue timeout", fmt.Errorf("cannot submit task: %w: %w", ErrTimeout, context.DeadlineExceeded), true},
		{"rate limited with bad amount", fmt.Errorf("%w: %w", ErrRateLimited,
			NewValidationError("leakybucket", "amount", 3.0, "exceeds maximum capacity")), false},
		{"closed pool", fmt.Errorf("cannot submit task: %w", ErrClosed), false},
		{"plain cancellation", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTemporary(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"scheduler full", fmt.Errorf("maximum number of tasks reached: %w", ErrCapacityExceeded), true},
		{"queue timeout", fmt.Errorf("%w: %w", ErrTimeout, context.DeadlineExceeded), true},
		{"limiter reset", ErrLimiterReset, false},
		{"invalid configuration", ErrInvalidConfiguration, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTemporary(tt.err); got != tt.want {
				t.Errorf("IsTemporary(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestAnomalySentinelIsDistinct(t *testing.T) {
	if errors.Is(ErrAnomalyDetected, ErrLimiterReset) || errors.Is(ErrLimiterReset, ErrAnomalyDetected) {
		t.Error("anomalies are reported, resets are returned; the sentinels must differ")
	}
}

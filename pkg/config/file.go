package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	gferrors "github.com/vnykmshr/dripflow/pkg/common/errors"
)

// FromFile reads and validates a YAML limiter file.
func FromFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gferrors.NewOperationError(module, "read", err).WithContext(path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a YAML limiter document:
//
//	limiters:
//	  api:
//	    max_rate: 100
//	    time_period: 30s
//	  exports:
//	    max_rate: 2
//
// Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

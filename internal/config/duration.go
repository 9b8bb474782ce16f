// Package config holds YAML-config helper types shared by the console
// binaries.
package config

import (
	"fmt"
	"time"
)

// Duration parses Go duration strings ("30s", "1m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	err := unmarshal(&s)
	if err != nil {
		return err
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("couldn't parse duration: %w", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) Duration() time.Duration {
	return time.Duration(*d)
}

// Or returns the configured duration, or fallback when unset.
func (d *Duration) Or(fallback time.Duration) time.Duration {
	if d == nil || *d == 0 {
		return fallback
	}
	return time.Duration(*d)
}

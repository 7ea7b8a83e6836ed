package config

import (
	"errors"
	"fmt"
)

// ErrConfig is the sentinel matched by every ConfigError.
var ErrConfig = errors.New("configuration error")

// ConfigError reports a missing or invalid required setting. It is fatal to a run
// and is raised before any network call.
//
//nolint:revive // config.ConfigError reads better at call sites than config.Error
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Key, e.Message)
}

// Is lets errors.Is(err, ErrConfig) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

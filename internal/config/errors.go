package config

import "github.com/pkg/errors"

// ErrConfig is the ConfigError sentinel from spec.md §7: surfaces at
// startup only, maps to process exit code 2.
var ErrConfig = errors.New("config")

// ExitCode is the process exit code a ConfigError maps to.
const ExitCode = 2

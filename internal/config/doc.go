// Package config loads, validates, and normalizes beatwatch configuration.
//
// Configuration comes from a TOML file (default ~/.config/beatwatch/config.toml,
// or ./beatwatch.toml for project-local runs) with environment variable
// overrides for credentials so secrets can stay out of the file. Defaults are
// defined in defaults.go and a documented sample lives in sample_config.toml,
// written by 'beatwatch config init'.
package config

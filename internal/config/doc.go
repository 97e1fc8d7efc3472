// Package config loads and validates the YAML configuration shared by the
// server and the CLI.
package config

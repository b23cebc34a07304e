// Package config handles configuration loading and management for hitwire.
//
// It provides functionality for:
//   - Loading configuration from .hitwire.json or .hitwire.yml files
//   - Default configuration values
//   - Merging overrides into a new configuration value
package config

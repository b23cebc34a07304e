// Package cmd implements the hitwire CLI commands using Cobra.
//
// Available commands:
//   - request: Send one request and print the parsed response
//   - init: Write a starter .hitwire.yaml
//   - version: Show hitwire version information
//   - completion: Generate shell completion scripts
//
// Flags override the configuration file, which overrides the defaults.
package cmd

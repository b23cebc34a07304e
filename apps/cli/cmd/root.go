package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hitwire",
	Short: "Send HTTP requests with content negotiation built in.",
	Long: `hitwire sends HTTP requests from the command line. Bodies are encoded
by content type, responses are decompressed and parsed by content type, and
requests can be signed with OAuth 1.0a or bearer tokens.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits with the code matching the failure.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if !exitErr.reported {
				rootCmd.PrintErrln("Error:", exitErr.err)
			}
			os.Exit(exitErr.code)
		}
		rootCmd.PrintErrln("Error:", err)
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

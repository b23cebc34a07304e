package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitwire/packages/core/config"
)

var (
	forceInit   bool
	initBaseURI string
	initJSON    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter hitwire config file",
	Long: `Write a configuration file with the default settings to the current
directory. Requests pick it up automatically.

Examples:
  hitwire init
  hitwire init --base-uri https://api.example.com
  hitwire init --json --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
	initCmd.Flags().StringVar(&initBaseURI, "base-uri", "", "Base URI relative request paths resolve against")
	initCmd.Flags().BoolVar(&initJSON, "json", false, "Write .hitwire.json instead of .hitwire.yaml")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return writeInitConfig(cmd, cwd)
}

func writeInitConfig(cmd *cobra.Command, dir string) error {
	name := ".hitwire.yaml"
	if initJSON {
		name = ".hitwire.json"
	}
	configFile := filepath.Join(dir, name)

	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile))
		}
	}

	cfg := config.DefaultConfig()
	cfg.BaseURI = initBaseURI
	cfg.Compression = []string{"gzip", "deflate"}
	cfg.Headers = map[string]string{
		"User-Agent": "hitwire/" + version,
	}
	if err := cfg.Validate(); err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun 'hitwire request GET /' to send a request against it.\n")
	return nil
}

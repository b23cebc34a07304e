package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for hitwire.

Bash:
  $ source <(hitwire completion bash)

Zsh:
  $ hitwire completion zsh > "${fpath[1]}/_hitwire"

Fish:
  $ hitwire completion fish > ~/.config/fish/completions/hitwire.fish

PowerShell:
  PS> hitwire completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

var requestMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodHead, http.MethodOptions, http.MethodTrace,
}

var contentTypeCompletions = []string{
	"application/json",
	"application/xml",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"text/plain",
	"text/html",
	"application/octet-stream",
	"*/*",
}

// registerRequestCompletions completes the method argument and the flags
// that take a fixed set of values.
func registerRequestCompletions(cmd *cobra.Command) {
	cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return requestMethods, cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	fixed := map[string][]string{
		"output":               {"console", "json"},
		"jwt-method":           {"HS256", "HS384", "HS512"},
		"compressed":           {"gzip", "deflate"},
		"content-type":         contentTypeCompletions,
		"request-content-type": contentTypeCompletions,
	}
	for name, values := range fixed {
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
	}
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

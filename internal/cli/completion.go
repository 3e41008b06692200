package cli

import (
	"fmt"

	"github.com/kilupskalvis/envstash/internal/config"
	"github.com/kilupskalvis/envstash/internal/registry"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for envstash. Stash entry names
are completed for restore and remove.

To load completions:

Bash:
  $ source <(envstash completion bash)

Zsh:
  $ envstash completion zsh > "${fpath[1]}/_envstash"

Fish:
  $ envstash completion fish > ~/.config/fish/completions/envstash.fish

PowerShell:
  PS> envstash completion powershell | Out-String | Invoke-Expression
`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	DisableFlagsInUseLine: true,
	RunE:                  runCompletion,
}

func init() {
	rootCmd.AddCommand(completionCmd)

	restoreCmd.ValidArgsFunction = completeEntryNames
	removeCmd.ValidArgsFunction = completeEntryNames
}

func runCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return rootCmd.GenBashCompletionV2(out, true)
	case "zsh":
		return rootCmd.GenZshCompletion(out)
	case "fish":
		return rootCmd.GenFishCompletion(out, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	}
	return fmt.Errorf("unsupported shell %q", args[0])
}

// completeEntryNames offers the names in the stash registry. Errors yield no
// suggestions rather than failing the shell.
func completeEntryNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names, err := listEntryNames()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// listEntryNames reads the registry without opening the state store, so
// completion works while another invocation holds the lock.
func listEntryNames() ([]string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return registry.New(cfg.StashRoot()).List()
}

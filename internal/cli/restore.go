package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/envstash/internal/core"
	"github.com/spf13/cobra"
)

var (
	restoreYes    bool
	restoreKeepDB bool
	restorePop    bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Restore a stash entry",
	Long: `Replace the live database and persistent resources with a stash entry,
then flush caches, run migrations, and publish resources.

The database is dropped and recreated first unless --keep-db is given.
Completed steps are not undone if a later step fails.

Examples:
  envstash restore before-upgrade          Restore and keep the entry
  envstash restore before-upgrade --pop    Restore and remove the entry
  envstash restore before-upgrade --yes    Skip the confirmation prompt`,
	Args: cobra.ExactArgs(1),
	Run:  runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Do not ask for confirmation")
	restoreCmd.Flags().BoolVar(&restoreKeepDB, "keep-db", false, "Load into the existing database without dropping it")
	restoreCmd.Flags().BoolVar(&restorePop, "pop", false, "Remove the entry after a successful restore")
}

func runRestore(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	c := initContext()
	defer c.Close()

	result, err := c.Manager.Restore(ctx, core.RestoreOptions{
		Name:      args[0],
		AssumeYes: restoreYes,
		KeepDB:    restoreKeepDB,
		Pop:       restorePop,
	})
	if err != nil {
		c.Close()
		exitOnError(err)
	}

	color.New(color.FgGreen).Printf("Restored stash entry %q\n", result.Name)
	if result.Resources != nil {
		fmt.Printf("  persistent: %s\n", result.Resources)
	}
	if result.Removed {
		fmt.Println("  entry removed")
	}
	fmt.Printf("Duration: %s\n", formatDuration(result.Duration))
}

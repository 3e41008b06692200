package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a stash entry from the current state",
	Long: `Dump the database and hard-link the persistent resources and metadata
into a new stash entry. An existing entry with the same name is never
overwritten.`,
	Args: cobra.ExactArgs(1),
	Run:  runCreate,
}

func runCreate(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	c := initContext()
	defer c.Close()

	result, err := c.Manager.Create(ctx, args[0])
	if err != nil {
		c.Close()
		exitOnError(err)
	}

	yellow := color.New(color.FgYellow)
	for _, w := range result.Warnings {
		yellow.Printf("Warning: %s\n", w)
	}

	color.New(color.FgGreen).Printf("Created stash entry %q\n", result.Entry.Name)
	fmt.Printf("  persistent: %s\n", result.Persistent)
	fmt.Printf("  metadata:   %s\n", result.Metadata)
	fmt.Printf("Duration: %s\n", formatDuration(result.Duration))
}

package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var removeYes bool

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a stash entry",
	Args:  cobra.ExactArgs(1),
	Run:   runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Do not ask for confirmation")
}

func runRemove(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	result, err := c.Manager.Remove(context.Background(), args[0], removeYes)
	if err != nil {
		c.Close()
		exitOnError(err)
	}

	color.New(color.FgGreen).Printf("Removed stash entry %q\n", result.Name)
	fmt.Printf("Duration: %s\n", formatDuration(result.Duration))
}

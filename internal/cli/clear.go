package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stash entries",
	Run:   runClear,
}

func runClear(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	result, err := c.Manager.Clear(context.Background())
	if err != nil {
		exitError("%v", err)
	}

	n := result.Removed
	color.New(color.FgGreen).Printf("Removed %d stash entr%s\n", n, plural(n, "y", "ies"))
	fmt.Printf("Duration: %s\n", formatDuration(result.Duration))
}

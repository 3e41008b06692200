package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stash entries",
	Run:   runList,
}

func runList(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	entries, err := c.Manager.List()
	if err != nil {
		exitError("%v", err)
	}

	if len(entries) == 0 {
		fmt.Println("Stash is empty.")
		c.Close()
		os.Exit(1)
	}

	current := ""
	if m, err := c.Manager.Status(); err == nil && m != nil {
		current = m.Name
	}

	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)
	for _, e := range entries {
		marker := "  "
		if e.Name == current {
			marker = "* "
		}
		fmt.Print(marker)
		cyan.Printf("%-30s", e.Name)
		fmt.Printf(" %s", humanize.Time(e.CreatedAt))
		if !e.Complete {
			red.Print(" (incomplete)")
		}
		fmt.Println()
	}
}

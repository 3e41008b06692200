package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/envstash/internal/models"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent stash operations",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "number", "n", 20, "Number of records to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	records, err := c.Manager.History(historyLimit)
	if err != nil {
		exitError("%v", err)
	}

	if len(records) == 0 {
		fmt.Println("No operations recorded")
		return
	}

	for _, r := range records {
		fmt.Println(formatRecord(r))
	}
}

// formatRecord renders one history line.
func formatRecord(r *models.HistoryRecord) string {
	name := r.Name
	if name == "" {
		name = "-"
	}
	status := color.GreenString("ok")
	if r.Failed() {
		status = color.RedString("failed: %s", r.Error)
	}
	return fmt.Sprintf("%-8s %-24s %-14s %8s  %s",
		r.Operation, name, humanize.Time(r.StartedAt), formatDuration(r.Duration), status)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/envstash/internal/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recently restored stash entry",
	Run:   runStatus,
}

var statusShowConfig bool

func init() {
	statusCmd.Flags().BoolVar(&statusShowConfig, "config", false, "Also print the effective configuration (secrets masked)")
}

func runStatus(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	m, err := c.Manager.Status()
	if err != nil {
		exitError("%v", err)
	}

	if m == nil {
		fmt.Println("No stash entry restored yet")
	} else {
		fmt.Print("Current stash entry: ")
		color.New(color.FgCyan).Println(m.Name)
		fmt.Printf("Restored %s (%s)\n", humanize.Time(m.RestoredAt), m.RestoredAt.Local().Format("2006-01-02 15:04:05"))
	}

	if statusShowConfig {
		printConfig(config.Sanitize(c.Config))
	}
}

func printConfig(cfg *config.Config) {
	fmt.Println()
	fmt.Printf("Driver:     %s\n", cfg.Database.Driver)
	fmt.Printf("Database:   %s@%s/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Name)
	fmt.Printf("Password:   %s\n", cfg.Database.Password)
	fmt.Printf("Collation:  %s\n", cfg.Database.Collation)
	fmt.Printf("Stash:      %s\n", cfg.StashRoot())
	fmt.Printf("Persistent: %s\n", cfg.PersistentPath())
	fmt.Printf("Metadata:   %s\n", cfg.MetadataPath())
}

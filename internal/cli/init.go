package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/envstash/internal/config"
	"github.com/kilupskalvis/envstash/internal/database"
	"github.com/kilupskalvis/envstash/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize envstash in the current project",
	Long: `Initialize envstash in the current directory.
This creates a .envstash directory holding the configuration and state.

The database password may be left out and supplied later through
ENVSTASH_DB_PASSWORD.`,
	Run: runInit,
}

var initDB config.Database

func init() {
	def := config.Default()
	initCmd.Flags().StringVar(&initDB.Driver, "driver", def.Database.Driver, "Database driver")
	initCmd.Flags().StringVar(&initDB.Host, "host", def.Database.Host, "Database host")
	initCmd.Flags().IntVar(&initDB.Port, "port", 0, "Database port (tool default when 0)")
	initCmd.Flags().StringVar(&initDB.User, "user", "", "Database user")
	initCmd.Flags().StringVar(&initDB.Password, "password", "", "Database password")
	initCmd.Flags().StringVar(&initDB.Name, "name", "", "Database name")
	initCmd.Flags().StringVar(&initDB.Collation, "collation", def.Database.Collation, "Collation used when recreating the database")
}

func runInit(cmd *cobra.Command, args []string) {
	cwd, err := os.Getwd()
	if err != nil {
		exitError("%v", err)
	}

	// Check if already initialized
	if _, err := config.FindRoot(cwd); err == nil {
		exitError("envstash project already exists")
	}

	if err := database.CheckDriver(initDB.Driver); err != nil {
		exitError("%v", err)
	}
	if initDB.Name == "" {
		exitError("database name is required (--name)")
	}

	cfg := config.Default()
	cfg.Database = initDB

	cfg, err = config.Initialize(cwd, cfg)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	st, err := store.New(cfg.StatePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	shown := config.Sanitize(cfg)
	color.New(color.FgGreen).Printf("Initialized envstash in %s/\n", config.StashDirName)
	fmt.Printf("Database:   %s@%s/%s\n", shown.Database.User, shown.Database.Host, shown.Database.Name)
	fmt.Printf("Stash:      %s\n", cfg.StashRoot())
	fmt.Printf("Persistent: %s\n", cfg.PersistentPath())
	fmt.Printf("Metadata:   %s\n", cfg.MetadataPath())
}

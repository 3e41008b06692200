// Command envstash snapshots and restores an application's database and
// persistent resources.
package main

import (
	"os"

	"github.com/kilupskalvis/envstash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package config

import (
	"flag"
	"os"

	"github.com/ledgerkeeper/ledgerkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path of the local SQLite database
//	-r string   PostgreSQL DSN of the remote document store
//	-s string   conflict resolution strategy
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "path of the local database file")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "PostgreSQL DSN of the remote store")
	fs.StringVar(&cfg.SyncStrategy, "s", cfg.SyncStrategy, "conflict resolution strategy")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

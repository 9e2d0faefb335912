package config

import (
	"flag"
	"os"
	"time"

	"github.com/bujoapp/journalsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// os.Args is filtered to the flags handled here so the -c/-config flags of
// the JSON layer do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-e", "-u", "-d", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.EndpointURL, "e", cfg.EndpointURL, "base URL of the sync backend")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "user id rows are merged into")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local SQLite database")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "auto-sync interval (in seconds)")
	httpTimeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
}

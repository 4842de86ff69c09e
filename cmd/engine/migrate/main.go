package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/launchforge/curve-middleware/pkg/config"
	"github.com/launchforge/curve-middleware/pkg/migrations/enginedb"
	"github.com/launchforge/curve-middleware/pkg/pgutil"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	rollback   = flag.Bool("rollback", false, "Rollback the last migration group instead of migrating")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if *rollback {
		err = enginedb.Rollback(ctx, db)
	} else {
		err = enginedb.Migrate(ctx, db)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}

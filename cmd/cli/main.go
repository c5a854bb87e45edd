package main

import (
	"context"
	"log"
	"os"

	"github.com/ledgerkeeper/ledgerkeeper/internal/buildinfo"
	"github.com/ledgerkeeper/ledgerkeeper/internal/cli"
	"github.com/ledgerkeeper/ledgerkeeper/internal/config"
	"github.com/ledgerkeeper/ledgerkeeper/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSON(os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/imagegen/internal/buildinfo"
	"github.com/dmitrijs2005/imagegen/internal/client/cli"
	"github.com/dmitrijs2005/imagegen/internal/client/config"
	"github.com/dmitrijs2005/imagegen/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if z, ok := logger.(*logging.ZapLogger); ok {
		defer z.Sync()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	// Ctrl-C cancels a running generation first and exits otherwise.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if !app.Interrupt() {
				cancel()
				os.Stdin.Close()
				return
			}
		}
	}()

	app.Run(ctx)

}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PongOnline/core"
	"PongOnline/logger"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("pong", pflag.ExitOnError)
	core.BindFlags(flags)
	_ = flags.Parse(os.Args[1:])

	cfg, err := core.LoadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Log.Init(cfg.PropertiesDir); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	deadlock.Opts.Disable = !cfg.DeadlockDetection

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := core.StartService(ctx, cfg); err != nil {
		logger.Log.Fatal(err.Error())
	}
}

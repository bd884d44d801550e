package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/courierhq/courier/internal/client"
	"github.com/courierhq/courier/internal/config"
	"github.com/courierhq/courier/internal/paths"
	"go.uber.org/fx"
)

func main() {
	emailFlag := flag.String("email", "", "signed-in user email (overrides config)")
	dataFlag := flag.String("data", "", "data directory (default ~/.courier)")
	flag.Parse()

	cfg, err := config.Load(paths.ConfigPath())
	if err != nil {
		cfg = &config.Config{}
	}
	if *emailFlag != "" {
		cfg.Email = *emailFlag
	}
	if *dataFlag != "" {
		cfg.DataDir = *dataFlag
	}
	if cfg.DataDir == "" {
		cfg.DataDir = paths.DefaultDataDir()
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		client.Module(client.Params{Config: cfg, DataDir: cfg.DataDir}),
	)

	app.Run()
}

package main

import (
	"context"
	"log"

	"copacabana/internal/app"
	"copacabana/pkg/config"
	"copacabana/pkg/shutdown"
)

// build metadata - set via ldflags during release
var version = "dev"

func main() {
	flags := config.ParseCommandFlags()
	eff, err := config.LoadEffective(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	a, err := app.New(eff, version)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()
	if err := a.Run(ctx); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

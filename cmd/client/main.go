package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/finsync/internal/buildinfo"
	"github.com/dmitrijs2005/finsync/internal/client/app"
	"github.com/dmitrijs2005/finsync/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

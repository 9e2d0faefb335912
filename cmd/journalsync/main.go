package main

import (
	"context"
	"log"

	"github.com/bujoapp/journalsync/internal/app"
	"github.com/bujoapp/journalsync/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	a.Run(ctx)

}

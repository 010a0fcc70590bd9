package main

import (
	"context"
	"os"

	"github.com/iin-community/kehila/pkg/cli"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional and only used for local development
	_ = godotenv.Load()

	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		os.Exit(err.Code)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdejongh/bucketsync/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.NewApp(os.Stdout, os.Stderr).Run(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}

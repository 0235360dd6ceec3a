// cmd/chromabuild/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/arc-language/chromabuild/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		cli.PrintError(err)
		stop()
		os.Exit(1)
	}
}

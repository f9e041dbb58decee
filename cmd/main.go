package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tripledger/bookings/internal/cli"
	"github.com/tripledger/bookings/pkg/logger"
)

func main() {
	logger.Init(logger.IsDev())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}

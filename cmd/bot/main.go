package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nyan-bot/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		log.Printf("[FATAL] %v", err)
		os.Exit(1)
	}
}

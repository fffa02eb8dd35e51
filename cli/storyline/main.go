package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	storylinecmder "github.com/papercomputeco/storyline/cmd/storyline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := storylinecmder.NewStorylineCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

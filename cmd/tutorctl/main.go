package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/textbook-tutor/internal/adapters/cli"
	"github.com/kirillkom/textbook-tutor/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()
	// stdout carries command output and the MCP stdio protocol.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "tutorctl", os.Getenv("LOG_LEVEL")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.Options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

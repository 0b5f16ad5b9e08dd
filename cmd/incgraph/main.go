package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"incgraph/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if err := loadEnvFile(".env"); err != nil {
		fmt.Fprintf(stderr, "load .env: %v\n", err)
	}
	cfg, err := loadConfig(args, stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "incgraph: %v\n", err)
		return 2
	}

	logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), cfg.LogLevel, stderr)
	logStartupConfig(logger, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 2)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	stopSignals := watchShutdownSignals(logger, cancel, signalCh)
	defer stopSignals()

	instance, err := newApp(cfg, logger, stdout)
	if err != nil {
		logger.Error("startup failed", map[string]string{"error": err.Error()})
		return 1
	}
	if err := instance.Serve(ctx); err != nil {
		logger.Error("incgraph stopped with errors", map[string]string{"error": err.Error()})
		return 1
	}
	return 0
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/logging"
)

// watchDebugSignal switches between the configured level and debug each
// time the process receives SIGUSR1, until ctx is done.
func watchDebugSignal(ctx context.Context, log *logging.Logger, configured string) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			toggleDebug(log, configured)
		}
	}
}

func toggleDebug(log *logging.Logger, configured string) {
	if log.Level() == slog.LevelDebug {
		log.SetLevel(configured)
	} else {
		log.SetLevel("debug")
	}
	log.Info("log level changed", "level", log.Level().String())
}

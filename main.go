package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/dnldd/trendsignal/service"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Msgf("loading config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backtestCfg, err := cfg.backtestConfig(cancel)
	if err != nil {
		log.Error().Msgf("creating backtest config: %v", err)
		os.Exit(1)
	}

	backtest, err := service.NewBacktest(ctx, backtestCfg)
	if err != nil {
		log.Error().Msgf("creating backtest service: %v", err)
		os.Exit(1)
	}

	go handleTermination(ctx, cancel)

	err = backtest.Run(ctx)
	if err != nil {
		log.Error().Msgf("running backtest: %v", err)
		os.Exit(1)
	}
}

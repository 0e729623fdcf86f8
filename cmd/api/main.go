package main

import (
	"log"
	"log/slog"
	"os"

	"PaymentWebhooks/config"
	"PaymentWebhooks/internal/api"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Config error: %s", err)
	}
	if err := api.Run(cfg); err != nil {
		slog.Error("Service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

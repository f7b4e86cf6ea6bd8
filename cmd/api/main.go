package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/metinatakli/cinema-booking/internal/app"
)

func main() {
	// a missing .env is fine, the environment may already be set
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment variables")
	}

	err := app.Run()
	if err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

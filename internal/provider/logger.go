package provider

import (
	"io"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/snappedai/snapsearch/internal/logging"
)

// Package-level logger specific to the provider service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "provider.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "provider", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize provider file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "provider")
		closeLogger = func() error { return nil }
	}
}

// CloseLogger closes the provider service log file.
func CloseLogger() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}

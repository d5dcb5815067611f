package datastore

import (
	"io"
	"log/slog"

	gormlogger "gorm.io/gorm/logger"

	"github.com/snappedai/snapsearch/internal/logging"
)

var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
	closeLogger     func() error
)

func init() {
	var err error
	logger, closeLogger, err = logging.NewFileLogger("logs/datastore.log", "datastore", serviceLevelVar)
	if err != nil || logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil)).With("service", "datastore")
		closeLogger = func() error { return nil }
	}
}

// CloseLogger flushes and closes the datastore log file.
func CloseLogger() error {
	if closeLogger != nil {
		return closeLogger()
	}
	return nil
}

// createGormLogger keeps GORM quiet unless debug is on. Query tracing in
// debug mode goes to GORM's default writer.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.Default.LogMode(level)
}

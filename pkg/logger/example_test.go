package logger_test

import (
	"log/slog"

	"github.com/soundprediction/mangagraph/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("This is a debug message")
	log.Info("Connected to graph store") // Will be green in terminal
	log.Warn("Search strategy failed")   // Will be yellow in terminal
	log.Error("Graph store unavailable") // Will be red in terminal
}

func ExampleNewLogger() {
	log := logger.NewLogger(logger.Config{Level: slog.LevelInfo, Format: "json"})

	log.Info("Cascade finished", "query", "ワンピース", "attempts", 2, "works", 12)
}

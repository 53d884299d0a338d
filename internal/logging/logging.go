package logging

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

const (
	JSON = "json"
	Text = "text"
	Tint = "tint"
)

// Initialize sets the default slog logger. Tint output is the default for
// interactive use; json for anything collecting the logs.
func Initialize(loggingType, logLevelName string) error {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(logLevelName)); err != nil {
		return fmt.Errorf("could not parse log level: %w", err)
	}

	var handler slog.Handler
	switch loggingType {
	case JSON:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	case Text:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	case Tint:
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: logLevel})
	default:
		return fmt.Errorf("unknown logging type: %s", loggingType)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

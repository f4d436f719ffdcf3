package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development (more readable), JSON for production
	var handler slog.Handler
	if os.Getenv("APP_ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Business logic logging methods

// LogHoldCreated logs when a provisional hold is created
func (l *Logger) LogHoldCreated(ctx context.Context, holdID, eventID, holderRef string) {
	l.Logger.InfoContext(ctx,
		"Hold Created",
		slog.String("hold_id", holdID),
		slog.String("event_id", eventID),
		slog.String("holder_ref", holderRef),
	)
}

// LogHoldExpired logs when a hold is reclaimed after its deadline
func (l *Logger) LogHoldExpired(ctx context.Context, holdID, eventID string) {
	l.Logger.InfoContext(ctx,
		"Hold Expired",
		slog.String("hold_id", holdID),
		slog.String("event_id", eventID),
	)
}

// LogGroupReservation logs the outcome of a group reservation attempt
func (l *Logger) LogGroupReservation(ctx context.Context, reservationID, eventID string, granted, failed int) {
	l.Logger.InfoContext(ctx,
		"Group Reservation",
		slog.String("reservation_id", reservationID),
		slog.String("event_id", eventID),
		slog.Int("granted", granted),
		slog.Int("failed", failed),
	)
}

// LogThresholdCrossed logs when utilization crosses a configured boundary
func (l *Logger) LogThresholdCrossed(ctx context.Context, eventID, accessTypeID string, boundary float64) {
	l.Logger.WarnContext(ctx,
		"Capacity Threshold Crossed",
		slog.String("event_id", eventID),
		slog.String("access_type_id", accessTypeID),
		slog.Float64("boundary", boundary),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

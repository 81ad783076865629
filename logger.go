package multipath

import (
	"log/slog"
	"os"
)

// LevelTrace is the finest severity named in spec.md section 7 (severity 4).
// slog has no built-in trace level, so it is modeled one step below Debug.
const LevelTrace = slog.LevelDebug - 4

var logLevel = new(slog.LevelVar)

// ConfigureLogging sets up the global default logger with a TextHandler on
// stderr (so control-socket reply bodies, which go to the client socket, are
// never interleaved with log output), configuring the level from the
// MULTIPATHD_LOG_LEVEL environment variable. Defaults to Info.
//
// Call this once at daemon startup.
func ConfigureLogging() {
	logLevel.Set(slog.LevelInfo)

	switch os.Getenv("MULTIPATHD_LOG_LEVEL") {
	case "TRACE":
		logLevel.Set(LevelTrace)
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel sets the logging level for the logger configured by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

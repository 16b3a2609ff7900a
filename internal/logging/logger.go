package logging

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

type Fields map[string]interface{}

var debugEnabled = os.Getenv("SKIRMISH_DEBUG") == "1"

func output(level, msg string, fields Fields) {
	out := make(Fields, len(fields)+3)
	for k, v := range fields {
		out[k] = v
	}
	out["level"] = level
	out["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	out["msg"] = msg
	b, err := json.Marshal(out)
	if err != nil {
		// fallback to plain logging
		log.Printf("%s: %s (%v)\n", level, msg, fields)
		return
	}
	log.Println(string(b))
}

// SetDebug toggles debug output at runtime.
func SetDebug(enabled bool) { debugEnabled = enabled }

// Debug logs only when debug output is enabled (SKIRMISH_DEBUG=1).
func Debug(msg string, fields Fields) {
	if !debugEnabled {
		return
	}
	output("debug", msg, fields)
}

// Info logs an informational message with optional fields.
func Info(msg string, fields Fields) {
	output("info", msg, fields)
}

// Warn logs a recoverable condition worth an operator's attention.
func Warn(msg string, fields Fields) {
	output("warn", msg, fields)
}

// Error logs an error message and includes the error text in the fields.
func Error(msg string, err error, fields Fields) {
	out := Fields{}
	for k, v := range fields {
		out[k] = v
	}
	if err != nil {
		out["error"] = err.Error()
	}
	output("error", msg, out)
}

// Fatal logs a fatal error and exits the process.
func Fatal(msg string, err error, fields Fields) {
	out := Fields{}
	for k, v := range fields {
		out[k] = v
	}
	if err != nil {
		out["error"] = err.Error()
	}
	output("fatal", msg, out)
	os.Exit(1)
}

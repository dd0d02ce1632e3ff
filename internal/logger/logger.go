// Package logger is the order service's structured logger: colorized on
// the terminal, JSON lines in a daily log file. Adapted from the
// ticketing platform's shared logger; categories are renamed for the
// order-orchestration domain (ORDER, PAYMENT, SEATING, CATALOG, OUTBOX,
// CORRELATION) instead of the original SSE/analytics/auth categories.
package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

type entry struct {
	Timestamp     string `json:"timestamp"`
	Level         string `json:"level"`
	Category      string `json:"category"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
	File          string `json:"file,omitempty"`
	Line          int    `json:"line,omitempty"`
}

// Logger writes every line to stdout (colorized) and to a daily JSON log
// file under logsDir.
type Logger struct {
	logFile *os.File
}

// New creates a Logger, opening (or creating) today's log file under
// logsDir. logsDir defaults to "logs" when empty.
func New(logsDir string) *Logger {
	if logsDir == "" {
		logsDir = "logs"
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		log.Fatal("failed to create logs directory:", err)
	}

	name := fmt.Sprintf("%s/order-service-%s.log", logsDir, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.Fatal("failed to open log file:", err)
	}

	l := &Logger{logFile: f}
	l.Info("LOGGER", fmt.Sprintf("logging to %s", name))
	return l
}

func (l *Logger) write(level Level, category, correlationID, message string) {
	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	e := entry{
		Timestamp:     time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:         levelString(level),
		Category:      strings.ToUpper(category),
		Message:       message,
		CorrelationID: correlationID,
		File:          file,
		Line:          line,
	}

	fmt.Print(l.terminalLine(e))
	if l.logFile != nil {
		if b, err := json.Marshal(e); err == nil {
			l.logFile.Write(append(b, '\n'))
		}
	}
}

func (l *Logger) terminalLine(e entry) string {
	var c *color.Color
	switch e.Level {
	case "DEBUG":
		c = color.New(color.FgCyan)
	case "INFO":
		c = color.New(color.FgGreen)
	case "WARN":
		c = color.New(color.FgYellow)
	case "ERROR":
		c = color.New(color.FgRed)
	case "FATAL":
		c = color.New(color.FgRed, color.Bold)
	default:
		c = color.New(color.FgWhite)
	}

	timeStr := color.New(color.FgBlue).Sprintf("%s", e.Timestamp[11:19])
	levelStr := c.Sprintf("%-5s", e.Level)
	categoryStr := c.Sprintf("[%-11s]", e.Category)

	corr := ""
	if e.CorrelationID != "" {
		corr = color.New(color.FgMagenta).Sprintf(" (%s)", e.CorrelationID)
	}

	return fmt.Sprintf("%s %s %s %s%s\n", timeStr, levelStr, categoryStr, e.Message, corr)
}

func levelString(l Level) string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

func (l *Logger) Debug(category, message string) { l.write(Debug, category, "", message) }
func (l *Logger) Info(category, message string)  { l.write(Info, category, "", message) }
func (l *Logger) Warn(category, message string)  { l.write(Warn, category, "", message) }
func (l *Logger) Error(category, message string) { l.write(Error, category, "", message) }

// Fatal logs at the highest severity and exits the process.
func (l *Logger) Fatal(category, message string) {
	l.write(Fatal, category, "", message)
	os.Exit(1)
}

// WithCorrelation returns a logger facade whose Debug/Info/Warn/Error
// calls stamp every line with correlationID.
func (l *Logger) WithCorrelation(correlationID string) *Correlated {
	return &Correlated{l: l, correlationID: correlationID}
}

// Correlated is a Logger bound to one request's correlation id.
type Correlated struct {
	l             *Logger
	correlationID string
}

func (c *Correlated) Debug(category, message string) {
	c.l.write(Debug, category, c.correlationID, message)
}
func (c *Correlated) Info(category, message string) {
	c.l.write(Info, category, c.correlationID, message)
}
func (c *Correlated) Warn(category, message string) {
	c.l.write(Warn, category, c.correlationID, message)
}
func (c *Correlated) Error(category, message string) {
	c.l.write(Error, category, c.correlationID, message)
}

// Close flushes and releases the underlying log file.
func (l *Logger) Close() {
	if l.logFile != nil {
		l.Info("LOGGER", "closing log file")
		l.logFile.Close()
	}
}

package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jupierce/coverage-report/pkg/config"
)

// Level represents logging verbosity
type Level int

const (
	ErrorLevel Level = iota
	InfoLevel
	DebugLevel
	TraceLevel
)

var levelNames = map[Level]string{
	ErrorLevel: "ERROR",
	InfoLevel:  "INFO",
	DebugLevel: "DEBUG",
	TraceLevel: "TRACE",
}

// statusWidth is the column the status titles are right-aligned to.
const statusWidth = 12

// Logger provides structured logging with verbosity control
type Logger struct {
	level      Level
	logDir     string
	logFile    *os.File
	mu         sync.Mutex
	stdout     io.Writer
	stderr     io.Writer
	fileLogger *log.Logger
	title      lipgloss.Style
}

// New creates a new logger
func New(level Level, logDir string) (*Logger, error) {
	l := NewWithWriters(level, os.Stdout, os.Stderr)
	l.logDir = logDir

	// Create log directory if specified
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}

		// Create log file
		logPath := filepath.Join(logDir, fmt.Sprintf("coverage-report-%s.log", time.Now().Format("20060102-150405")))
		f, err := os.Create(logPath)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.logFile = f
		l.fileLogger = log.New(f, "", log.LstdFlags)
	}

	return l, nil
}

// NewWithWriters creates a console-only logger writing to the given streams
func NewWithWriters(level Level, stdout, stderr io.Writer) *Logger {
	title := lipgloss.NewRenderer(stdout).NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("2")).
		Width(statusWidth).
		Align(lipgloss.Right)
	return &Logger{
		level:  level,
		stdout: stdout,
		stderr: stderr,
		title:  title,
	}
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// log writes a log message
func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level > l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	levelName := levelNames[level]

	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, levelName, msg)

	// Write to file if available
	if l.fileLogger != nil {
		l.fileLogger.Println(logLine)
	}

	// Write to stdout/stderr
	if level == ErrorLevel {
		fmt.Fprintf(l.stderr, "❌ %s\n", msg)
	} else {
		fmt.Fprintf(l.stdout, "%s\n", msg)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ErrorLevel, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(InfoLevel, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DebugLevel, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(TraceLevel, format, args...)
}

// emit writes an always-shown message with a console marker
func (l *Logger) emit(tag, marker, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.fileLogger != nil {
		l.fileLogger.Printf("[%s] %s", tag, msg)
	}
	fmt.Fprintf(l.stdout, "%s %s\n", marker, msg)
}

// Progress logs a progress message (always shown)
func (l *Logger) Progress(format string, args ...interface{}) {
	l.emit("PROGRESS", "⏳", format, args...)
}

// Success logs a success message (always shown)
func (l *Logger) Success(format string, args ...interface{}) {
	l.emit("SUCCESS", "✅", format, args...)
}

// Warning logs a warning message. Logger is the builder's diagnostics sink
// through this method.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.emit("WARNING", "⚠️ ", format, args...)
}

// Status prints message after a bold, right-aligned title
func (l *Logger) Status(title, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLogger != nil {
		l.fileLogger.Printf("[STATUS] %s %s", title, message)
	}
	fmt.Fprintf(l.stdout, "%s %s\n", l.title.Render(title), message)
}

// Introduction describes the report about to be generated
func (l *Logger) Introduction(cfg config.Config) {
	l.Status("Generating", fmt.Sprintf("%s report for %d input(s)", cfg.Reporter, len(cfg.Inputs)))
	l.Status("", fmt.Sprintf("Report name: '%s'", cfg.Name))
	l.Status("", fmt.Sprintf("Reporter: '%s'", cfg.Reporter))
	l.Status("", "Inputs:")
	for _, in := range cfg.Inputs {
		name := ""
		if in.Name != "" {
			name = in.Name + ": "
		}
		l.Status("", fmt.Sprintf("  - %s%s", name, in.Path))
	}
}

// Conclusion reports where the report was written
func (l *Logger) Conclusion(output string) {
	l.Status("Success", fmt.Sprintf("Report generated at %s", output))
}

// ParseLevel parses a string into a log level
func ParseLevel(s string) (Level, error) {
	switch s {
	case "error":
		return ErrorLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "trace":
		return TraceLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %s (valid: error, info, debug, trace)", s)
	}
}

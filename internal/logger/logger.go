package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"rpsvision/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level file names, also used by the log viewing endpoints.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to rotated files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      map[string]*lumberjack.Logger
	logDir     string
	infoOff    bool
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to the configured log directory.
func NewLogger(config *config.Config) *Logger {
	l, err := New(config.LogDirectory)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return l
}

// New creates a Logger. An empty dir logs to the console only.
func New(dir string) (*Logger, error) {
	l := &Logger{
		logDir: dir,
		files:  make(map[string]*lumberjack.Logger),
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	l.setupLoggers()
	return l, nil
}

// NewWriter creates a Logger that sends every level to w. Useful in tests.
func NewWriter(w io.Writer) *Logger {
	return &Logger{
		infoLog:    log.New(w, "INFO    ", log.Lmsgprefix),
		warningLog: log.New(w, "WARNING ", log.Lmsgprefix),
		errorLog:   log.New(w, "ERROR   ", log.Lmsgprefix),
		files:      make(map[string]*lumberjack.Logger),
	}
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers() {
	infoWriter := l.writer(os.Stdout, InfoFile)
	warningWriter := l.writer(os.Stdout, WarningFile)
	errorWriter := l.writer(os.Stderr, ErrorFile)

	l.infoLog = log.New(infoWriter, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

func (l *Logger) writer(console io.Writer, name string) io.Writer {
	if l.logDir == "" {
		return console
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(l.logDir, name),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     14,
		LocalTime:  true,
	}
	l.files[name] = file
	return io.MultiWriter(console, file)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.infoOff {
		return
	}
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// SetInfoEnabled turns info-level output on or off. Warnings and errors are always written.
func (l *Logger) SetInfoEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoOff = !enabled
}

// Directory returns the directory the level files live in, or "" for console-only loggers.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, ok := l.files[fileName]
	if !ok {
		return fmt.Errorf("unknown log file: %s", fileName)
	}

	// Reopened in append mode on the next write.
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", fileName, err)
	}

	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}
	return nil
}

// Close flushes and closes all level files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, file := range l.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

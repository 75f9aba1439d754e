package logging

import (
	"bytes"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is a wrapper around the log.Logger from the charmbracelet/log package.
// Buffer is only set for loggers created with NewTestLogger.
type Logger struct {
	*log.Logger
	Buffer *bytes.Buffer
}

var (
	logger *Logger
	once   sync.Once
	mu     sync.Mutex
)

// CreateLogger sets up the process-wide logger. DEBUG=1 enables debug level
// with caller and timestamp reporting.
func CreateLogger() {
	once.Do(func() {
		baseLogger := log.New(os.Stderr)

		if os.Getenv("DEBUG") == "1" {
			baseLogger = log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				Prefix:          "kxlate",
			})
			baseLogger.SetLevel(log.DebugLevel)
		} else {
			baseLogger.SetLevel(log.InfoLevel)
		}

		mu.Lock()
		logger = &Logger{Logger: baseLogger}
		mu.Unlock()
	})
}

// NewTestLogger returns a debug-level logger that writes into an in-memory buffer.
func NewTestLogger() *Logger {
	buf := new(bytes.Buffer)
	base := log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
	return &Logger{Logger: base, Buffer: buf}
}

// GetOutput returns everything written to a test logger so far.
func (l *Logger) GetOutput() string {
	if l.Buffer == nil {
		return ""
	}
	return l.Buffer.String()
}

// With returns a child logger carrying the given key/value pairs. The child
// shares the parent's buffer.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...), Buffer: l.Buffer}
}

// BaseLogger returns the underlying *log.Logger.
func (l *Logger) BaseLogger() *log.Logger {
	return l.Logger
}

// TimeOperation runs fn and logs its duration under the given operation name.
func (l *Logger) TimeOperation(operation string, fn func() error) error {
	start := time.Now()
	l.Debug("starting operation", "operation", operation)

	err := fn()
	duration := time.Since(start)

	if err != nil {
		l.Error("operation failed", "operation", operation, "duration", duration, "error", err)
	} else {
		l.Debug("operation completed", "operation", operation, "duration", duration)
	}
	return err
}

// Debug logs debug messages if debug logging is enabled.
func Debug(msg interface{}, keyvals ...interface{}) {
	GetLogger().Debug(msg, keyvals...)
}

// Info logs informational messages.
func Info(msg interface{}, keyvals ...interface{}) {
	GetLogger().Info(msg, keyvals...)
}

// Warn logs warning messages.
func Warn(msg interface{}, keyvals ...interface{}) {
	GetLogger().Warn(msg, keyvals...)
}

// Error logs error messages.
func Error(msg interface{}, keyvals ...interface{}) {
	GetLogger().Error(msg, keyvals...)
}

// Fatal logs a fatal message and exits the program.
func Fatal(msg interface{}, keyvals ...interface{}) {
	GetLogger().Fatal(msg, keyvals...)
}

// GetLogger returns the process-wide Logger, creating it on first use.
func GetLogger() *Logger {
	EnsureInitialized()
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// EnsureInitialized creates the logger if it does not exist yet.
func EnsureInitialized() {
	mu.Lock()
	ready := logger != nil
	mu.Unlock()
	if !ready {
		CreateLogger()
	}
}

// SetTestLogger replaces the process-wide logger.
func SetTestLogger(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// ResetForTest drops the process-wide logger so the next call recreates it.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	logger = nil
	once = sync.Once{}
}

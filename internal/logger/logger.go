package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

func init() {
	// Silence the default charmbracelet/log logger
	// All logging should go through our custom logger instance
	log.SetLevel(log.FatalLevel)
}

var (
	// Log is the global logger instance
	Log = log.New(io.Discard)

	logFile *os.File
)

// Init initializes the logger. Logs always go to the log file; verbose mode
// also mirrors them to stderr at debug level.
func Init(verbose bool) error {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	logPath := GetLogPath()
	output, err := openLogFile(logPath)
	if err != nil {
		// Fall back to stderr only
		Log = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
		if verbose {
			Log.SetLevel(log.DebugLevel)
		} else {
			Log.SetLevel(log.WarnLevel)
		}
		return nil
	}

	if verbose {
		output = io.MultiWriter(output, os.Stderr)
	}

	Log = log.NewWithOptions(output, log.Options{ReportTimestamp: true})
	Log.SetLevel(level)
	return nil
}

func openLogFile(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	logFile = f
	return f, nil
}

// Named returns a child of the global logger tagged with a component prefix
func Named(component string) *log.Logger {
	return Log.WithPrefix(component)
}

// Close closes the log file
func Close() {
	if logFile != nil {
		_ = logFile.Close()
	}
}

// GetLogPath returns the path to the log file
func GetLogPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		homeDir, _ := os.UserHomeDir()
		cacheDir = filepath.Join(homeDir, ".cache")
	}
	return filepath.Join(cacheDir, "buildctl", "buildctl.log")
}

// Convenience functions that use the global logger

func Debug(msg interface{}, keyvals ...interface{}) {
	Log.Debug(msg, keyvals...)
}

func Info(msg interface{}, keyvals ...interface{}) {
	Log.Info(msg, keyvals...)
}

func Warn(msg interface{}, keyvals ...interface{}) {
	Log.Warn(msg, keyvals...)
}

func Error(msg interface{}, keyvals ...interface{}) {
	Log.Error(msg, keyvals...)
}

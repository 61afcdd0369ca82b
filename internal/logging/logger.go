// Package logging provides categorized logging for DMF workspaces.
// Log output goes to <workspace>/logs/dmf.log; warnings and errors are
// mirrored to stderr. Before Initialize is called every logger is a no-op,
// so library code can log unconditionally.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // CLI startup, command dispatch
	CategoryWorkspace Category = "workspace" // workspace lifecycle
	CategoryStore     Category = "store"     // resource database operations
	CategoryRelation  Category = "relation"  // relation creation and traversal
	CategoryFiles     Category = "files"     // data file import and access
	CategoryShell     Category = "shell"     // interactive shell
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize sets up workspace logging. The log file lives under
// <workspaceRoot>/logs/dmf.log; debug widens the file level to debug.
// Safe to call more than once; the last call wins.
func Initialize(workspaceRoot string, debug bool) error {
	if workspaceRoot == "" {
		return fmt.Errorf("workspace path required")
	}

	logsDir := filepath.Join(workspaceRoot, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	logPath := filepath.Join(logsDir, "dmf.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	fileLevel := zapcore.InfoLevel
	if debug {
		fileLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), fileLevel)
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stderr),
		zapcore.WarnLevel,
	)

	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		_ = root.Sync()
	}
	root = zap.New(zapcore.NewTee(fileCore, consoleCore))
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the logger for a category. A no-op logger is returned when
// Initialize has not run (e.g. commands that execute outside a workspace).
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	r := root
	mu.RUnlock()

	if r == nil {
		return zap.NewNop().Sugar()
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}
	l := root.Named(string(c)).Sugar()
	loggers[c] = l
	return l
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}

// Convenience helpers, one pair per category.

func Boot(format string, args ...interface{})  { Get(CategoryBoot).Infof(format, args...) }
func Store(format string, args ...interface{}) { Get(CategoryStore).Infof(format, args...) }
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debugf(format, args...)
}
func Workspace(format string, args ...interface{}) {
	Get(CategoryWorkspace).Infof(format, args...)
}
func WorkspaceDebug(format string, args ...interface{}) {
	Get(CategoryWorkspace).Debugf(format, args...)
}
func Relation(format string, args ...interface{}) {
	Get(CategoryRelation).Infof(format, args...)
}
func RelationDebug(format string, args ...interface{}) {
	Get(CategoryRelation).Debugf(format, args...)
}
func Files(format string, args ...interface{}) { Get(CategoryFiles).Infof(format, args...) }
func FilesDebug(format string, args ...interface{}) {
	Get(CategoryFiles).Debugf(format, args...)
}
func Shell(format string, args ...interface{}) { Get(CategoryShell).Infof(format, args...) }

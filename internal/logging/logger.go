// Package logging provides config-driven categorized file-based logging for alice.
// Logs are written to .alice/logs/ with separate files per category.
// Logging is controlled by logging.debug in .alice/config.json - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system
type Category string

const (
	// Core categories
	CategoryBoot    Category = "boot"    // Boot/initialization
	CategorySession Category = "session" // Session lifecycle, state transitions
	CategoryAPI     Category = "api"     // Reasoning-provider HTTP calls

	// Component categories
	CategoryAgent      Category = "agent"      // Orchestration state machine
	CategoryCapability Category = "capability" // Registry, synthesis, invocation
	CategoryPerception Category = "perception" // Request/response translation
	CategoryMemory     Category = "memory"     // Vector store, retrieval, rerank
	CategorySandbox    Category = "sandbox"    // Script/shell runners
	CategoryStore      Category = "store"      // Catalog persistence
	CategoryService    Category = "service"    // Memory HTTP daemon
	CategoryIndexer    Category = "indexer"    // Document ingestion
)

// loggingConfig mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type loggingConfig struct {
	Debug      bool            `json:"debug"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

// configFile structure for reading .alice/config.json
type configFile struct {
	Logging loggingConfig `json:"logging"`
}

// StructuredLogEntry represents a JSON log entry for machine parsing.
type StructuredLogEntry struct {
	Timestamp int64          `json:"ts"`  // Unix milliseconds
	Category  string         `json:"cat"` // Log category
	Level     string         `json:"lvl"` // debug/info/warn/error
	Message   string         `json:"msg"` // Log message
	RequestID string         `json:"req,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	workspace string
	config    loggingConfig
	configMu  sync.RWMutex
	logLevel  int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".alice", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not load config: %v\n", err)
		config.Debug = false
	}

	// Only create the logs directory when debug logging is on.
	if !config.Debug {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== alice logging initialized ===")
	boot.Info("Workspace: %s", workspace)
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", config.Level)

	return nil
}

// loadConfig reads the logging config from .alice/config.json
func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	configPath := filepath.Join(workspace, ".alice", "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config = logging disabled
			config.Debug = false
			return nil
		}
		return err
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	config = cf.Logging

	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "info":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	return nil
}

// ReloadConfig reloads the config from disk.
func ReloadConfig() error {
	return loadConfig()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.Debug
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.Debug {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}
	if logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a plain file-delete.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...any) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("debug", msg)
	} else {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...any) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("info", msg)
	} else {
		l.logger.Printf("[INFO] %s", msg)
	}
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...any) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("warn", msg)
	} else {
		l.logger.Printf("[WARN] %s", msg)
	}
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...any) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if config.JSONFormat {
		l.logJSON("error", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// CloseAll closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...any) {
	Get(CategoryBoot).Info(format, args...)
}

// Session logs to the session category
func Session(format string, args ...any) {
	Get(CategorySession).Info(format, args...)
}

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...any) {
	Get(CategorySession).Debug(format, args...)
}

// API logs to the api category
func API(format string, args ...any) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...any) {
	Get(CategoryAPI).Debug(format, args...)
}

// Agent logs to the agent category
func Agent(format string, args ...any) {
	Get(CategoryAgent).Info(format, args...)
}

// AgentDebug logs debug to the agent category
func AgentDebug(format string, args ...any) {
	Get(CategoryAgent).Debug(format, args...)
}

// Capability logs to the capability category
func Capability(format string, args ...any) {
	Get(CategoryCapability).Info(format, args...)
}

// CapabilityDebug logs debug to the capability category
func CapabilityDebug(format string, args ...any) {
	Get(CategoryCapability).Debug(format, args...)
}

// Perception logs to the perception category
func Perception(format string, args ...any) {
	Get(CategoryPerception).Info(format, args...)
}

// PerceptionDebug logs debug to the perception category
func PerceptionDebug(format string, args ...any) {
	Get(CategoryPerception).Debug(format, args...)
}

// Memory logs to the memory category
func Memory(format string, args ...any) {
	Get(CategoryMemory).Info(format, args...)
}

// MemoryDebug logs debug to the memory category
func MemoryDebug(format string, args ...any) {
	Get(CategoryMemory).Debug(format, args...)
}

// Sandbox logs to the sandbox category
func Sandbox(format string, args ...any) {
	Get(CategorySandbox).Info(format, args...)
}

// SandboxDebug logs debug to the sandbox category
func SandboxDebug(format string, args ...any) {
	Get(CategorySandbox).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...any) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...any) {
	Get(CategoryStore).Debug(format, args...)
}

// Service logs to the service category
func Service(format string, args ...any) {
	Get(CategoryService).Info(format, args...)
}

// ServiceDebug logs debug to the service category
func ServiceDebug(format string, args ...any) {
	Get(CategoryService).Debug(format, args...)
}

// Indexer logs to the indexer category
func Indexer(format string, args ...any) {
	Get(CategoryIndexer).Info(format, args...)
}

// IndexerDebug logs debug to the indexer category
func IndexerDebug(format string, args ...any) {
	Get(CategoryIndexer).Debug(format, args...)
}

// =============================================================================
// WARN/ERROR CONVENIENCE FUNCTIONS
// =============================================================================

// BootWarn logs a warning to the boot category
func BootWarn(format string, args ...any) {
	Get(CategoryBoot).Warn(format, args...)
}

// BootError logs an error to the boot category
func BootError(format string, args ...any) {
	Get(CategoryBoot).Error(format, args...)
}

// SessionWarn logs a warning to the session category
func SessionWarn(format string, args ...any) {
	Get(CategorySession).Warn(format, args...)
}

// SessionError logs an error to the session category
func SessionError(format string, args ...any) {
	Get(CategorySession).Error(format, args...)
}

// APIWarn logs a warning to the api category
func APIWarn(format string, args ...any) {
	Get(CategoryAPI).Warn(format, args...)
}

// APIError logs an error to the api category
func APIError(format string, args ...any) {
	Get(CategoryAPI).Error(format, args...)
}

// AgentWarn logs a warning to the agent category
func AgentWarn(format string, args ...any) {
	Get(CategoryAgent).Warn(format, args...)
}

// AgentError logs an error to the agent category
func AgentError(format string, args ...any) {
	Get(CategoryAgent).Error(format, args...)
}

// CapabilityWarn logs a warning to the capability category
func CapabilityWarn(format string, args ...any) {
	Get(CategoryCapability).Warn(format, args...)
}

// CapabilityError logs an error to the capability category
func CapabilityError(format string, args ...any) {
	Get(CategoryCapability).Error(format, args...)
}

// PerceptionWarn logs a warning to the perception category
func PerceptionWarn(format string, args ...any) {
	Get(CategoryPerception).Warn(format, args...)
}

// PerceptionError logs an error to the perception category
func PerceptionError(format string, args ...any) {
	Get(CategoryPerception).Error(format, args...)
}

// MemoryWarn logs a warning to the memory category
func MemoryWarn(format string, args ...any) {
	Get(CategoryMemory).Warn(format, args...)
}

// MemoryError logs an error to the memory category
func MemoryError(format string, args ...any) {
	Get(CategoryMemory).Error(format, args...)
}

// SandboxWarn logs a warning to the sandbox category
func SandboxWarn(format string, args ...any) {
	Get(CategorySandbox).Warn(format, args...)
}

// SandboxError logs an error to the sandbox category
func SandboxError(format string, args ...any) {
	Get(CategorySandbox).Error(format, args...)
}

// StoreWarn logs a warning to the store category
func StoreWarn(format string, args ...any) {
	Get(CategoryStore).Warn(format, args...)
}

// StoreError logs an error to the store category
func StoreError(format string, args ...any) {
	Get(CategoryStore).Error(format, args...)
}

// ServiceWarn logs a warning to the service category
func ServiceWarn(format string, args ...any) {
	Get(CategoryService).Warn(format, args...)
}

// ServiceError logs an error to the service category
func ServiceError(format string, args ...any) {
	Get(CategoryService).Error(format, args...)
}

// IndexerWarn logs a warning to the indexer category
func IndexerWarn(format string, args ...any) {
	Get(CategoryIndexer).Warn(format, args...)
}

// IndexerError logs an error to the indexer category
func IndexerError(format string, args ...any) {
	Get(CategoryIndexer).Error(format, args...)
}

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// RequestLogger provides request-scoped logging with a correlation ID
type RequestLogger struct {
	logger    *Logger
	requestID string
	fields    map[string]any
}

// WithRequestID creates a request-scoped logger
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		logger:    Get(category),
		requestID: requestID,
		fields:    make(map[string]any),
	}
}

// WithField adds a field to the request logger
func (r *RequestLogger) WithField(key string, value any) *RequestLogger {
	r.fields[key] = value
	return r
}

func (r *RequestLogger) formatMsg(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if len(r.fields) > 0 {
		return fmt.Sprintf("[req:%s] %s | %v", r.requestID, msg, r.fields)
	}
	return fmt.Sprintf("[req:%s] %s", r.requestID, msg)
}

func (r *RequestLogger) Debug(format string, args ...any) {
	if r.logger.logger == nil || logLevel > LevelDebug {
		return
	}
	r.logger.logger.Printf("[DEBUG] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Info(format string, args ...any) {
	if r.logger.logger == nil || logLevel > LevelInfo {
		return
	}
	r.logger.logger.Printf("[INFO] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Warn(format string, args ...any) {
	if r.logger.logger == nil || logLevel > LevelWarn {
		return
	}
	r.logger.logger.Printf("[WARN] %s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Error(format string, args ...any) {
	if r.logger.logger == nil {
		return
	}
	r.logger.logger.Printf("[ERROR] %s", r.formatMsg(format, args...))
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

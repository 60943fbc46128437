package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *Event) error

	// Attack lifecycle events
	LogAttackStarted(ctx context.Context, attackID int64, severity int) error
	LogMitigationRecorded(ctx context.Context, attackID int64, severityAfter int) error
	LogAttackEnded(ctx context.Context, attackID int64, finalSeverity int) error

	// Vocabulary events
	LogVocabularyTagAdded(ctx context.Context, vocabulary, tag string) error
	LogVocabularyTagRemoved(ctx context.Context, vocabulary, tag string) error

	// Persistence events
	LogSnapshotSaveFailed(ctx context.Context, err error) error
	LogDataInconsistency(ctx context.Context, err error) error

	// App returns the application logger shared by other components
	App() *zap.Logger

	// Sync flushes buffered log entries
	Sync() error

	// Close closes the audit logger
	Close() error
}

// Config represents audit logger configuration
type Config struct {
	// AuditLogPath is the path to the audit log file
	AuditLogPath string

	// AppLogPath is the path to the application log file
	AppLogPath string

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files
	MaxAge int

	// Compress determines if rotated files should be compressed
	Compress bool

	// LogLevel is the minimum log level (debug, info, warn, error)
	LogLevel string
}

// DefaultConfig returns default audit logger configuration
func DefaultConfig() *Config {
	return &Config{
		AuditLogPath: "logs/audit.log",
		AppLogPath:   "logs/app.log",
		MaxSize:      50, // megabytes
		MaxBackups:   5,
		MaxAge:       90, // days
		Compress:     true,
		LogLevel:     "info",
	}
}

// auditLogger implements the Logger interface
type auditLogger struct {
	appLogger   *zap.Logger
	auditLogger *zap.Logger
	config      *Config
	mu          sync.Mutex
	buffer      []*Event
	flushTicker *time.Ticker
	stopCh      chan struct{}
}

// NewLogger creates a new audit logger
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := zapcore.ParseLevel(config.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.LogLevel, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// Application logger with rotation
	appRotator := &lumberjack.Logger{
		Filename:   config.AppLogPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	appCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(appRotator),
		level,
	)

	appLogger := zap.New(appCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	// Audit logger with rotation (always INFO level, append-only)
	auditRotator := &lumberjack.Logger{
		Filename:   config.AuditLogPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	auditCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(auditRotator),
		zapcore.InfoLevel,
	)

	auditZapLogger := zap.New(auditCore)

	logger := &auditLogger{
		appLogger:   appLogger,
		auditLogger: auditZapLogger,
		config:      config,
		buffer:      make([]*Event, 0, 100),
		flushTicker: time.NewTicker(1 * time.Second),
		stopCh:      make(chan struct{}),
	}

	go logger.autoFlush()

	return logger, nil
}

// Log logs an audit event
func (l *auditLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffer = append(l.buffer, event)

	if len(l.buffer) >= 100 {
		return l.flushLocked()
	}

	return nil
}

// flushLocked flushes the buffer (caller must hold lock)
func (l *auditLogger) flushLocked() error {
	if len(l.buffer) == 0 {
		return nil
	}

	for _, event := range l.buffer {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			l.appLogger.Error("failed to marshal audit event",
				zap.Error(err),
				zap.String("event_type", string(event.EventType)),
			)
			continue
		}

		l.auditLogger.Info(string(eventJSON),
			zap.String("correlation_id", event.CorrelationID),
			zap.String("event_type", string(event.EventType)),
			zap.String("result", string(event.Result)),
		)
	}

	l.buffer = l.buffer[:0]

	return nil
}

// autoFlush periodically flushes the buffer
func (l *auditLogger) autoFlush() {
	for {
		select {
		case <-l.flushTicker.C:
			l.mu.Lock()
			_ = l.flushLocked()
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}

// LogAttackStarted logs the creation of a new active attack
func (l *auditLogger) LogAttackStarted(ctx context.Context, attackID int64, severity int) error {
	event := NewEvent(EventAttackStarted).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAttack(attackID).
		WithSeverity(severity).
		WithDescription(fmt.Sprintf("Attack %d started at severity %d", attackID, severity))

	return l.Log(ctx, event)
}

// LogMitigationRecorded logs a mitigation attempt on the active attack
func (l *auditLogger) LogMitigationRecorded(ctx context.Context, attackID int64, severityAfter int) error {
	event := NewEvent(EventAttackMitigated).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAttack(attackID).
		WithSeverity(severityAfter).
		WithDescription(fmt.Sprintf("Mitigation recorded on attack %d, severity now %d", attackID, severityAfter))

	return l.Log(ctx, event)
}

// LogAttackEnded logs the end of the active attack
func (l *auditLogger) LogAttackEnded(ctx context.Context, attackID int64, finalSeverity int) error {
	event := NewEvent(EventAttackEnded).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithAttack(attackID).
		WithSeverity(finalSeverity).
		WithDescription(fmt.Sprintf("Attack %d ended at severity %d", attackID, finalSeverity))

	return l.Log(ctx, event)
}

// LogVocabularyTagAdded logs a tag addition
func (l *auditLogger) LogVocabularyTagAdded(ctx context.Context, vocabulary, tag string) error {
	event := NewEvent(EventVocabularyTagAdded).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithVocabulary(vocabulary, tag).
		WithDescription(fmt.Sprintf("Tag %q added to %s vocabulary", tag, vocabulary))

	return l.Log(ctx, event)
}

// LogVocabularyTagRemoved logs a tag removal
func (l *auditLogger) LogVocabularyTagRemoved(ctx context.Context, vocabulary, tag string) error {
	event := NewEvent(EventVocabularyTagRemoved).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithVocabulary(vocabulary, tag).
		WithDescription(fmt.Sprintf("Tag %q removed from %s vocabulary", tag, vocabulary))

	return l.Log(ctx, event)
}

// LogSnapshotSaveFailed logs a failed snapshot write
func (l *auditLogger) LogSnapshotSaveFailed(ctx context.Context, err error) error {
	event := NewEvent(EventSnapshotSaveFailed).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithError(err).
		WithDescription("Snapshot persistence failed; in-memory state is ahead of disk")

	return l.Log(ctx, event)
}

// LogDataInconsistency logs a multiple-active-attacks condition found on load
func (l *auditLogger) LogDataInconsistency(ctx context.Context, err error) error {
	event := NewEvent(EventDataInconsistency).
		WithCorrelationID(GetCorrelationID(ctx)).
		WithError(err).
		WithDescription("Persisted data held more than one attack without an end time; first kept active, rest demoted")

	return l.Log(ctx, event)
}

// App returns the application logger
func (l *auditLogger) App() *zap.Logger {
	return l.appLogger
}

// Sync flushes buffered log entries
func (l *auditLogger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.flushLocked(); err != nil {
		return err
	}

	if err := l.auditLogger.Sync(); err != nil {
		return err
	}

	return l.appLogger.Sync()
}

// Close closes the audit logger
func (l *auditLogger) Close() error {
	close(l.stopCh)
	l.flushTicker.Stop()

	if err := l.Sync(); err != nil {
		return err
	}

	return nil
}

// correlationIDKey is the context key for request correlation IDs.
type correlationIDKey struct{}

// GetCorrelationID extracts correlation ID from context
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID adds correlation ID to context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

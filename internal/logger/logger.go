package logger

import (
	"context"
	"os"
	"time"

	"github.com/flexprice/plansync/internal/config"
	"github.com/flexprice/plansync/internal/types"
	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const fluentTag = "plansync.logs"

// Logger is a zap.SugaredLogger that also forwards keyed entries to Fluentd
type Logger struct {
	*zap.SugaredLogger
	fluentdLogger *fluent.Fluent
	filePath      string
}

// NewLogger creates and returns a new Logger instance
func NewLogger(cfg *config.Configuration) (*Logger, error) {
	config := zap.NewProductionConfig()

	if cfg.Logging.Level == types.LogLevelDebug {
		config = zap.NewDevelopmentConfig()
	} else if cfg.Logging.Level != "" {
		level, err := zapcore.ParseLevel(string(cfg.Logging.Level))
		if err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Disable stack traces for warnings to reduce log noise
	config.DisableStacktrace = true

	// Save logging mirrors every entry into a local file the CLI can show and clear
	var filePath string
	if cfg.Logging.SaveLogging && cfg.Logging.FilePath != "" {
		filePath = cfg.Logging.FilePath
		config.OutputPaths = append(config.OutputPaths, filePath)
	}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	var fluentdLogger *fluent.Fluent
	if cfg.Logging.FluentdEnabled {
		fluentdLogger = newFluent(cfg.Logging.FluentdHost, cfg.Logging.FluentdPort, zapLogger.Sugar())
	}

	return &Logger{
		SugaredLogger: zapLogger.Sugar(),
		fluentdLogger: fluentdLogger,
		filePath:      filePath,
	}, nil
}

// NewNopLogger returns a logger that discards everything, for tests
func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// FilePath returns the save-logging file, empty when save logging is off
func (l *Logger) FilePath() string {
	return l.filePath
}

// newFluent connects the async Fluentd forwarder. Failures leave stdout and
// the save-logging file as the only sinks.
func newFluent(host string, port int, fallback *zap.SugaredLogger) *fluent.Fluent {
	if host == "" || port <= 0 {
		fallback.Warnw("fluentd enabled without host and port, forwarding disabled")
		return nil
	}
	f, err := fluent.New(fluent.Config{
		FluentHost:   host,
		FluentPort:   port,
		Async:        true,
		BufferLimit:  8 * 1024 * 1024,
		WriteTimeout: 3 * time.Second,
		RetryWait:    500,
		MaxRetry:     5,
	})
	if err != nil {
		fallback.Warnw("fluentd unavailable, forwarding disabled", "host", host, "port", port, "error", err)
		return nil
	}
	return f
}

func (l *Logger) forward(level, msg string, keysAndValues []interface{}) {
	if l.fluentdLogger == nil {
		return
	}

	record := map[string]interface{}{
		"level":     level,
		"message":   msg,
		"service":   "plansync",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			record[key] = keysAndValues[i+1]
		}
	}

	if err := l.fluentdLogger.Post(fluentTag, record); err != nil {
		l.SugaredLogger.Warnw("fluentd post failed", "error", err)
	}
}

func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(
			"request_id", types.GetRequestID(ctx),
			"run_id", types.GetRunID(ctx),
		),
		fluentdLogger: l.fluentdLogger,
		filePath:      l.filePath,
	}
}

func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
	l.forward("debug", msg, keysAndValues)
}

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
	l.forward("info", msg, keysAndValues)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
	l.forward("warning", msg, keysAndValues)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
	l.forward("error", msg, keysAndValues)
}

// Sync flushes buffered entries and closes the Fluentd connection
func (l *Logger) Sync() error {
	if l.fluentdLogger != nil {
		_ = l.fluentdLogger.Close()
	}
	return l.SugaredLogger.Sync()
}

// ReadLogFile returns the saved log contents; missing file reads as empty
func ReadLogFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ClearLogFile truncates the saved log
func ClearLogFile(path string) error {
	return os.WriteFile(path, nil, 0o644)
}

// retryableHTTPLogger adapts our Logger to go-retryablehttp's leveled logging interface
type retryableHTTPLogger struct {
	logger *Logger
}

// GetRetryableHTTPLogger returns a retryable HTTP client-compatible logger
func (l *Logger) GetRetryableHTTPLogger() *retryableHTTPLogger {
	return &retryableHTTPLogger{logger: l}
}

func (r *retryableHTTPLogger) Error(msg string, keysAndValues ...interface{}) {
	r.logger.Errorw(msg, keysAndValues...)
}

func (r *retryableHTTPLogger) Info(msg string, keysAndValues ...interface{}) {
	r.logger.Debugw(msg, keysAndValues...)
}

func (r *retryableHTTPLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.logger.Debugw(msg, keysAndValues...)
}

func (r *retryableHTTPLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.logger.Warnw(msg, keysAndValues...)
}

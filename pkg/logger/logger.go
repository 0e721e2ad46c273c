package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"chronos/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger
var sugar *zap.SugaredLogger

const (
	defaultTraceID = "0"
)

type traceKey struct{}

func init() {
	defaultConfig := zap.NewDevelopmentConfig()
	defaultConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	defaultConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	defaultLogger, _ := defaultConfig.Build(zap.AddCallerSkip(1))

	Log = defaultLogger
	sugar = defaultLogger.Sugar()
}

// Init builds the process logger from config.GlobalConfig.Logger.
func Init() error {
	return Setup(config.GlobalConfig.Logger)
}

// Setup builds the process logger from cfg.
func Setup(cfg config.LoggerConfig) error {
	atomicLevel := zap.NewAtomicLevel()
	switch cfg.Level {
	case "debug":
		atomicLevel.SetLevel(zapcore.DebugLevel)
	case "warn":
		atomicLevel.SetLevel(zapcore.WarnLevel)
	case "error":
		atomicLevel.SetLevel(zapcore.ErrorLevel)
	default:
		atomicLevel.SetLevel(zapcore.InfoLevel)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var syncer zapcore.WriteSyncer
	switch cfg.Output {
	case "file":
		file, err := openLogFile(cfg.File.Path)
		if err != nil {
			return err
		}
		syncer = zapcore.AddSync(file)
	case "both":
		file, err := openLogFile(cfg.File.Path)
		if err != nil {
			return err
		}
		syncer = zapcore.NewMultiWriteSyncer(
			zapcore.AddSync(os.Stdout),
			zapcore.AddSync(file),
		)
	default: // console
		syncer = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		syncer,
		atomicLevel,
	)

	Log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	sugar = Log.Sugar()

	return nil
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		path = "logs/chronos.log"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}
	return file, nil
}

// WithTraceID returns a context whose log lines are prefixed with traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceID returns the trace id carried by ctx, "0" when there is none.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return defaultTraceID
	}
	if id, ok := ctx.Value(traceKey{}).(string); ok && id != "" {
		return id
	}
	return defaultTraceID
}

func defaultPrefix() string {
	return fmt.Sprintf("%s\t", defaultTraceID)
}

func Debugf(format string, args ...interface{}) {
	sugar.Debugf(defaultPrefix()+format, args...)
}

func Infof(format string, args ...interface{}) {
	sugar.Infof(defaultPrefix()+format, args...)
}

func Warnf(format string, args ...interface{}) {
	sugar.Warnf(defaultPrefix()+format, args...)
}

func Errorf(format string, args ...interface{}) {
	sugar.Errorf(defaultPrefix()+format, args...)
}

func Fatalf(format string, args ...interface{}) {
	sugar.Fatalf(defaultPrefix()+format, args...)
}

func DebugCtx(ctx context.Context, format string, args ...interface{}) {
	sugar.Debugf(TraceID(ctx)+"\t"+format, args...)
}

func InfoCtx(ctx context.Context, format string, args ...interface{}) {
	sugar.Infof(TraceID(ctx)+"\t"+format, args...)
}

func WarnCtx(ctx context.Context, format string, args ...interface{}) {
	sugar.Warnf(TraceID(ctx)+"\t"+format, args...)
}

func ErrorCtx(ctx context.Context, format string, args ...interface{}) {
	sugar.Errorf(TraceID(ctx)+"\t"+format, args...)
}

func FatalCtx(ctx context.Context, format string, args ...interface{}) {
	sugar.Fatalf(TraceID(ctx)+"\t"+format, args...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return Log.Sync()
}

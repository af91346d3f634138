package logsvc

import (
	"fmt"
	"log"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/ratiba/core"
)

// ZapLogger writes structured JSON lines; used outside of QA/PROD.
type ZapLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(conf *core.Config) *ZapLogger {
	level := zap.InfoLevel
	if conf.Debug {
		level = zap.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      conf.Env == "DEV",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		log.Fatalf("logsvc.NewZapLogger: %v", err)
	}
	return &ZapLogger{zl: zl.Named(conf.AppName)}
}

// NewNopLogger discards everything; for tests.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{zl: zap.NewNop()}
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(zl *zap.Logger) *ZapLogger {
	return &ZapLogger{zl: zl}
}

func (l ZapLogger) Sync() error {
	return l.zl.Sync()
}

// fields converts args (error, map[string]interface{}, core.Actor or anything else) to zap fields.
func fields(args []interface{}) []zap.Field {
	flds := make([]zap.Field, 0, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			flds = append(flds, zap.Error(v))
		case core.Actor:
			flds = append(flds, zap.String("actor_id", v.ID), zap.String("school_id", v.SchoolID))
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				flds = append(flds, zap.Any(k, v[k]))
			}
		default:
			flds = append(flds, zap.Any(fmt.Sprintf("arg%d", i), v))
		}
	}
	return flds
}

func (l ZapLogger) Debug(msg string, args ...interface{}) {
	l.zl.Debug(msg, fields(args)...)
}

func (l ZapLogger) Info(msg string, args ...interface{}) {
	l.zl.Info(msg, fields(args)...)
}

func (l ZapLogger) Warn(msg string, args ...interface{}) {
	l.zl.Warn(msg, fields(args)...)
}

func (l ZapLogger) Error(msg string, args ...interface{}) {
	l.zl.Error(msg, fields(args)...)
}

func (l ZapLogger) Fatal(msg string, args ...interface{}) {
	l.zl.Fatal(msg, fields(args)...)
}

package logging

import (
	"net/http"
	"os"
	"strings"

	"github.com/arencloud/s3lister/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Error(msg string, kv ...any)
	Fatal(msg string, kv ...any)
}

// global log level shared by every logger built with New; adjustable at runtime.
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

type zapLogger struct {
	z *zap.Logger
	s *zap.SugaredLogger
}

// New creates the process logger writing to stderr. cfg.LogLevel sets the
// shared level and cfg.LogJSON picks the JSON or console encoder.
func New(cfg *config.Config) Logger {
	return NewWithCore(cfg.Env, cfg.LogJSON, cfg.LogLevel, zapcore.Lock(os.Stderr))
}

// NewWithCore is New with an explicit sink.
func NewWithCore(env string, json bool, lvl string, sink zapcore.WriteSyncer) Logger {
	SetLevel(lvl)
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	z := zap.New(zapcore.NewCore(enc, sink, level), zap.AddCaller(), zap.AddCallerSkip(1)).
		With(zap.String("env", env))
	return &zapLogger{z: z, s: z.Sugar()}
}

// Zap returns the underlying zap logger for middleware that needs it
// (gin-contrib/zap). Loggers not built by this package get a no-op logger.
func Zap(l Logger) *zap.Logger {
	if zl, ok := l.(*zapLogger); ok {
		return zl.z.WithOptions(zap.AddCallerSkip(-1))
	}
	return zap.NewNop()
}

// Level control
func SetLevel(lvl string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(lvl)))); err != nil {
		l = zapcore.InfoLevel
	}
	level.SetLevel(l)
}

func GetLevel() string { return level.Level().String() }

// LevelHandler serves GET (current level) and PUT {"level":"debug"} to change it.
func LevelHandler() http.Handler { return level }

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l *zapLogger) Fatal(msg string, kv ...any) { l.s.Fatalw(msg, kv...) }

package logger

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// mu guards globalLogger against concurrent SetLogger/Logger calls.
	mu sync.RWMutex //nolint:gochecknoglobals // package-level ambient logger state.

	globalLogger *zap.SugaredLogger //nolint:gochecknoglobals // package-level ambient logger state.

	// atomicLevel backs Level/SetLevel; zap.AtomicLevel is itself
	// concurrency-safe, so it doesn't need mu.
	atomicLevel = zap.NewAtomicLevel() //nolint:gochecknoglobals // package-level ambient logger state.

	initOnce atomic.Bool //nolint:gochecknoglobals // guards the init-time default logger setup.
)

//nolint:gochecknoinits // package needs a usable default logger before any caller configures one.
func init() {
	if initOnce.CompareAndSwap(false, true) {
		SetLogger(New(atomicLevel))
	}
}

// New builds a zap-backed sugared logger writing human-readable, colorized
// console output to stderr at the given level. A nil level falls back to the
// shared atomic level so callers can pass `nil` to mean "current level".
func New(level zapcore.LevelEnabler) *zap.SugaredLogger {
	if level == nil {
		level = atomicLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), level)

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// ParseLogLevel parses a case-insensitive, whitespace-trimmed level name
// (debug/info/warn/error/dpanic/panic/fatal) into its zapcore.Level. On
// failure it returns zapcore.InfoLevel and false.
func ParseLogLevel(raw string) (zapcore.Level, bool) {
	var level zapcore.Level

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return zapcore.InfoLevel, false
	}

	if err := level.UnmarshalText([]byte(trimmed)); err != nil {
		return zapcore.InfoLevel, false
	}

	return level, true
}

// Level returns the current global logging level.
func Level() zapcore.Level {
	return atomicLevel.Level()
}

// SetLevel updates the current global logging level in place; loggers built
// with the shared atomic level pick up the change immediately.
func SetLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}

// Logger returns the current global sugared logger.
func Logger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()

	return globalLogger
}

// SetLogger replaces the global logger, e.g. to swap in one built with a
// different level or a named sub-logger.
func SetLogger(l *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()

	globalLogger = l
}

// fromContext currently ignores ctx values and returns the global logger;
// it exists so call sites read naturally if per-request loggers are ever
// injected into the context later.
func fromContext(_ context.Context) *zap.SugaredLogger {
	return Logger()
}

func Debug(ctx context.Context, args ...any) { fromContext(ctx).Debug(args...) }

func Debugf(ctx context.Context, template string, args ...any) { fromContext(ctx).Debugf(template, args...) }

func DebugKV(ctx context.Context, msg string, kv ...any) { fromContext(ctx).Debugw(msg, kv...) }

func Info(ctx context.Context, args ...any) { fromContext(ctx).Info(args...) }

func Infof(ctx context.Context, template string, args ...any) { fromContext(ctx).Infof(template, args...) }

func InfoKV(ctx context.Context, msg string, kv ...any) { fromContext(ctx).Infow(msg, kv...) }

func Warn(ctx context.Context, args ...any) { fromContext(ctx).Warn(args...) }

func Warnf(ctx context.Context, template string, args ...any) { fromContext(ctx).Warnf(template, args...) }

func WarnKV(ctx context.Context, msg string, kv ...any) { fromContext(ctx).Warnw(msg, kv...) }

func Error(ctx context.Context, args ...any) { fromContext(ctx).Error(args...) }

func Errorf(ctx context.Context, template string, args ...any) { fromContext(ctx).Errorf(template, args...) }

func ErrorKV(ctx context.Context, msg string, kv ...any) { fromContext(ctx).Errorw(msg, kv...) }

// Fatalf logs at fatal level with a formatted message and terminates the
// process, matching zap's Fatal semantics (os.Exit(1) after the write).
func Fatalf(ctx context.Context, template string, args ...any) { fromContext(ctx).Fatalf(template, args...) }

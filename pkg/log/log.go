package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

var l *logger

func init() {
	var err error
	if l, err = newLogger(zapcore.InfoLevel, EncodingConsole); err != nil {
		panic(err)
	}

	l.install()
}

type logger struct {
	level       zap.AtomicLevel
	logEncoding string

	// base reports the caller of zap itself, Logger the caller of this package
	base *zap.Logger
	*zap.Logger
}

// Options configure the process logger. Service and Env are attached to every entry.
type Options struct {
	Service string
	Env     string
	Level   string
	// Encoding is "json" or "console". Empty picks json for the prod environment.
	Encoding string
}

// Setup replaces the process logger. It is meant for main, before other goroutines log.
// The current logger is kept when opts are invalid.
func Setup(opts Options) error {
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
			return fmt.Errorf("failed to parse log level %q: %w", opts.Level, err)
		}
	}

	encoding := opts.Encoding
	if encoding == "" {
		encoding = EncodingConsole
		if opts.Env == "prod" {
			encoding = EncodingJSON
		}
	}

	var fields []zap.Field
	if opts.Service != "" {
		fields = append(fields, zap.String("service", opts.Service))
	}
	if opts.Env != "" {
		fields = append(fields, zap.String("env", opts.Env))
	}

	nl, err := newLogger(lvl, encoding, fields...)
	if err != nil {
		return err
	}

	l = nl
	l.install()

	return nil
}

func (lg *logger) install() {
	zap.ReplaceGlobals(lg.base)

	if _, err := zap.RedirectStdLogAt(lg.base, zapcore.InfoLevel); err != nil {
		panic(err)
	}
}

func newLogger(logLevel zapcore.Level, encoding string, fields ...zap.Field) (*logger, error) {
	encoder, err := getEncoder(encoding)
	if err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevelAt(logLevel)

	base := zap.New(zapcore.NewTee(
		zapcore.NewCore(
			encoder,
			zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return level.Enabled(lvl) && lvl < zapcore.ErrorLevel
			}),
		),
		zapcore.NewCore(
			encoder,
			zapcore.Lock(os.Stderr),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			}),
		),
	), zap.AddCaller()).With(fields...)

	return &logger{
		level:       level,
		logEncoding: encoding,
		base:        base,
		Logger:      base.WithOptions(zap.AddCallerSkip(1)),
	}, nil
}

func getEncoder(encoding string) (zapcore.Encoder, error) {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey: "message",

		LevelKey:    "level",
		EncodeLevel: zapcore.CapitalLevelEncoder,

		TimeKey:    "time",
		EncodeTime: zapcore.ISO8601TimeEncoder,

		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	switch encoding {
	case EncodingJSON:
		return zapcore.NewJSONEncoder(encoderConfig), nil
	case EncodingConsole:
		return zapcore.NewConsoleEncoder(encoderConfig), nil
	default:
		return nil, fmt.Errorf("failed to find encoder: %q", encoding)
	}
}

func Debug(msg string, fields ...zap.Field) { l.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { l.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { l.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { l.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { l.Fatal(msg, fields...) }
func Panic(msg string, fields ...zap.Field) { l.Panic(msg, fields...) }
func Sync() error {
	return l.Sync()
}

// Package logger builds the zap loggers used across tomes.
//
// Every logger carries a "service" field, and command loggers also carry
// the cobra command name, so log lines from serve, sync and ask can be told
// apart when they share an output.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Service is the value of the "service" field on every logger.
const Service = "tomes"

// Option configures a logger built with New.
type Option func(*options)

type options struct {
	debug   bool
	command string
	writers []io.Writer
}

// WithDebug enables Debug level output when true.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithCommand tags every entry with the running command.
func WithCommand(name string) Option {
	return func(o *options) {
		o.command = name
	}
}

// WithWriters sets the outputs. Defaults to os.Stdout.
func WithWriters(w ...io.Writer) Option {
	return func(o *options) {
		o.writers = w
	}
}

// New builds a console logger with ISO8601 times and coloured levels.
func New(opts ...Option) *zap.Logger {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.writers) == 0 {
		o.writers = []io.Writer{os.Stdout}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zap.InfoLevel
	if o.debug {
		level = zap.DebugLevel
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(o.writers))
	for _, w := range o.writers {
		syncers = append(syncers, zapcore.AddSync(w))
	}

	fields := []zap.Field{zap.String("service", Service)}
	if o.command != "" {
		fields = append(fields, zap.String("command", o.command))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(syncers...),
		level,
	)

	return zap.New(core, zap.AddCaller(), zap.Fields(fields...))
}

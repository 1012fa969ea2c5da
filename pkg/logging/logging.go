// Package logging builds the engine's structured logger, following the
// reference corpus's own pkg/logutil: a LogConfig that picks an encoder
// and a write syncer, then composes them into a zap.Logger through a
// list of zapcore.NewTee'd sinks.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/arraydb/arraydb/pkg/config"
)

// LogConfig mirrors the knobs carried on config.Options, kept as its
// own type so a caller can build a logger without a full config.Options
// (tests construct one directly).
type LogConfig struct {
	Level      string
	Format     string // "console" or "json"
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxDays    int
}

// FromOptions derives a LogConfig from the engine's loaded config.
func FromOptions(opts config.Options) LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "json",
		Filename:   opts.LogPath,
		MaxSize:    opts.LogMaxSizeMB,
		MaxBackups: opts.LogMaxBackups,
		MaxDays:    opts.LogMaxAgeDays,
	}
}

func (c *LogConfig) getLevel() zap.AtomicLevel {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		lvl = zap.InfoLevel
	}
	return zap.NewAtomicLevelAt(lvl)
}

func (c *LogConfig) getEncoder() zapcore.Encoder {
	return getLoggerEncoder(c.Format)
}

func getLoggerEncoder(format string) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	switch format {
	case "console":
		return zapcore.NewConsoleEncoder(encCfg)
	case "json":
		return zapcore.NewJSONEncoder(encCfg)
	default:
		panic(fmt.Sprintf("unsupported log format: %s", format))
	}
}

func (c *LogConfig) getSyncer() zapcore.WriteSyncer {
	if c.Filename == "" {
		return zapcore.AddSync(os.Stderr)
	}
	if fi, err := os.Stat(c.Filename); err == nil && fi.IsDir() {
		panic("log file can't be a directory")
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   c.Filename,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxDays,
	})
}

// sink pairs one encoder with one destination; New tees every sink into
// a single core so a caller can, in principle, split console output
// from the rotated file without two independent loggers.
type sink struct {
	encoder zapcore.Encoder
	syncer  zapcore.WriteSyncer
}

func (c *LogConfig) getSinks() []sink {
	sinks := []sink{{c.getEncoder(), c.getSyncer()}}
	if c.Filename != "" {
		sinks = append(sinks, sink{getLoggerEncoder("console"), zapcore.AddSync(os.Stderr)})
	}
	return sinks
}

// New builds a zap.Logger from a LogConfig the way the reference
// corpus's SetupMOLogger assembles its global logger: one core per
// sink, teed together, at the configured level, with caller and
// stack-trace-on-error enabled.
func New(c LogConfig) *zap.Logger {
	level := c.getLevel()
	var cores []zapcore.Core
	for _, s := range c.getSinks() {
		cores = append(cores, zapcore.NewCore(s.encoder, s.syncer, level))
	}
	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

var global *zap.Logger

// Init installs l as the package-level global logger, used by the
// package-level Debug/Info/Warn/Error helpers below.
func Init(l *zap.Logger) {
	global = l
}

func get() *zap.Logger {
	if global == nil {
		return zap.NewNop()
	}
	return global
}

func Debug(msg string, fields ...zap.Field) { get().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { get().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { get().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { get().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...) }

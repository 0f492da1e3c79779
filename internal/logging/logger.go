// Package logging builds the zap logger used for diagnostics.
//
// Operator-facing progress (announcements, "▶ Running:" trace lines) is
// printed directly by the dispatcher; the logger carries everything else:
// configuration details, skipped best-effort steps, timings.
package logging

import (
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configure New.
type Options struct {
	// Verbose lowers the level to debug and adds caller information.
	Verbose bool

	// Color enables ANSI-colored level names.
	Color bool
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// New returns a console logger writing to w.
func New(w io.Writer, opts Options) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = timeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if opts.Color {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zap.InfoLevel
	zapOpts := []zap.Option{}
	if opts.Verbose {
		level = zap.DebugLevel
		zapOpts = append(zapOpts, zap.AddCaller())
	} else {
		encCfg.EncodeCaller = nil
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core, zapOpts...)
}

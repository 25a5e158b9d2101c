// Package logger holds the process-wide zap logger used by the taxa command.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a no-op until Initialize is called, so library code can log
// unconditionally.
var Logger = zap.NewNop().Sugar()

// Initialize replaces Logger. jsonOutput selects zap's production JSON
// encoder; otherwise a console encoder without timestamps writes to stderr.
// verbose lowers the level from warn to debug.
func Initialize(jsonOutput, verbose bool) error {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}

	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(level)
		config.OutputPaths = []string{"stderr"}
		l, err := config.Build()
		if err != nil {
			return err
		}
		Logger = l.Sugar()
		return nil
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	Logger = zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(os.Stderr),
		level,
	)).Sugar()
	return nil
}

// Cleanup flushes buffered entries.
func Cleanup() {
	_ = Logger.Sync()
}

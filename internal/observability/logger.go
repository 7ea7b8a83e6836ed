package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation limits.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 28
)

// NewLogger builds the process logger. Console output goes to stderr at warn
// level, or debug when verbose. When logFile is set, JSON records at info level
// and above (debug when verbose) are also written to a rotated file. The
// returned func flushes the logger and closes the file.
func NewLogger(verbose bool, logFile string) (*zap.Logger, func(), error) {
	consoleLevel := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	fileLevel := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		consoleLevel.SetLevel(zapcore.DebugLevel)
		fileLevel.SetLevel(zapcore.DebugLevel)
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), consoleLevel),
	}

	var rotator *lumberjack.Logger
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			LocalTime:  true,
		}
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(rotator), fileLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	closeFn := func() {
		_ = logger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return logger, closeFn, nil
}

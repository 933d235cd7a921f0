package polarmqtt

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process-wide zap logger configured by
// Factory.Initialize. Console encoding, stdout by default, optionally a
// log file; the app name and version ride along as initial fields.
func newLogger(appName, appVersion string, debug bool, logFile string) (*zap.Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	outputs := []string{"stdout"}
	if logFile != "" {
		outputs = []string{logFile}
	}

	cfg := zap.Config{
		Level:            level,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	if appName != "" {
		cfg.InitialFields = map[string]interface{}{
			"app":     appName,
			"version": appVersion,
		}
	}
	return cfg.Build()
}

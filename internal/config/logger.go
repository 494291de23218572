package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "anime-bot"

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	return loggerConfig(cfg).Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// loggerConfig: без LOG_FORMAT debug пишет в консоль с цветом, остальное в JSON
func loggerConfig(cfg LogConfig) zap.Config {
	level := parseLogLevel(cfg.Level)

	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = LogFormatJSON
		if level == zapcore.DebugLevel {
			format = LogFormatConsole
		}
	}

	var zc zap.Config
	if format == LogFormatConsole {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.InitialFields = map[string]any{"service": serviceName}
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.CallerKey = "caller"
	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	// стектрейсы только от error, см. NewLogger
	zc.DisableStacktrace = true

	return zc
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

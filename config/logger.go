package config

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logLevels = map[string]zapcore.Level{
	"DEBUG":    zapcore.DebugLevel,
	"INFO":     zapcore.InfoLevel,
	"WARNING":  zapcore.WarnLevel,
	"ERROR":    zapcore.ErrorLevel,
	"CRITICAL": zapcore.DPanicLevel,
}

var levelNames = map[zapcore.Level]string{
	zapcore.DebugLevel:  "DEBUG",
	zapcore.InfoLevel:   "INFO",
	zapcore.WarnLevel:   "WARNING",
	zapcore.ErrorLevel:  "ERROR",
	zapcore.DPanicLevel: "CRITICAL",
	zapcore.PanicLevel:  "CRITICAL",
	zapcore.FatalLevel:  "CRITICAL",
}

// ParseLogLevel maps a CLI level name onto a zap level. CRITICAL is DPanic,
// which only panics in development loggers.
func ParseLogLevel(name string) (zapcore.Level, error) {
	level, ok := logLevels[strings.ToUpper(name)]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s. Valid levels are: DEBUG, INFO, WARNING, ERROR, CRITICAL", name)
	}
	return level, nil
}

// NewLogger builds the console logger used by every package
func NewLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(levelNames[l])
	}
	encCfg.EncodeName = zapcore.FullNameEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(w))).Named("librespot-dl"), nil
}

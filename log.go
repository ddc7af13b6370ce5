package amp

import (
	"io"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a logfmt logger writing to w, with timestamps and callers.
func NewLogger(w io.Writer) kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	return kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller)
}

// NewConfiguredLogger returns the logger described by the configuration: stdout, or a
// rotated file when log.file is set, filtered at log.level.
func NewConfiguredLogger() kitlog.Logger {
	conf := ampConfig()
	var w io.Writer = os.Stdout
	if conf.logFile != "" {
		w = &lumberjack.Logger{
			Filename:   conf.logFile,
			MaxSize:    conf.logMaxSizeMB,
			MaxBackups: conf.logMaxBackups,
		}
	}
	return level.NewFilter(NewLogger(w), levelOption(conf.logLevel))
}

func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warning", "warn":
		return level.AllowWarn()
	case "error", "critical":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

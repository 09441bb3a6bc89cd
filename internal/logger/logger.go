// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// metrica writes lifecycle and query-failure events to one JSON log per day
// under `<dir>/YYYY-MM-DD.log`.  When running interactively the same events
// are teed, human-readable, to stderr so stdout stays free for command
// output.  Rotation, compression, and retention are handled by Lumberjack.
//
// Usage
// -----
//
//	log, err := logger.New(cfg.Log.Dir, cfg.Log.Tee, debug)
//	if err != nil { … }
//	defer log.Sync()
//	log.Infow("schema installed", "dialect", "mysql")
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Gateways log failed statements at DEBUG; pass debug=true to see them.
// • Oxford commas, two spaces after periods.
package logger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
}

// New returns a *zap.SugaredLogger that writes JSON to dir/YYYY-MM-DD.log.
// When tee == true, a console core on stderr is also attached.  The logger
// is installed as the process-wide default via zap.ReplaceGlobals.
func New(dir string, tee, debug bool) (*zap.SugaredLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(dir, time.Now().Format("2006-01-02")+".log"),
		MaxSize:    50, // MB
		MaxBackups: 7,
		MaxAge:     14, // days
		Compress:   true,
	}

	encCfg := encoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), level),
	}
	if tee {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	).Sugar()

	zap.ReplaceGlobals(z.Desugar())

	z.Debugw("logger online", "dir", dir, "tee", tee)
	return z, nil
}

// Console installs a stderr-only logger for commands that run before the
// configuration, and therefore the log directory, is known.
func Console(debug bool) *zap.SugaredLogger {
	level := zap.WarnLevel
	if debug {
		level = zap.DebugLevel
	}
	z := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)).Sugar()
	zap.ReplaceGlobals(z.Desugar())
	return z
}

package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DreamCats/tubeindex/internal/config"
)

// SetupLogger builds the CLI logger. Console output goes to stderr at the
// configured level (debug with verbose); a per-run JSON log file under
// ~/.tubeindex/logs receives everything at debug level. The returned func
// flushes and closes the file.
func SetupLogger(subcommand string, cfg config.LogConfig, verbose bool) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewProductionEncoderConfig()
	if cfg.Development {
		consoleCfg = zap.NewDevelopmentEncoderConfig()
	}
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	console := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level)

	cores := []zapcore.Core{console}
	cleanup := func() {}
	logPath := ""

	if file, path, err := openLogFile(subcommand); err == nil {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), zapcore.DebugLevel))
		cleanup = func() { file.Close() }
		logPath = path
	} else {
		fmt.Fprintf(os.Stderr, "Warning: failed to open log file: %v\n", err)
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if cfg.Development {
		logger = logger.WithOptions(zap.Development(), zap.AddCaller())
	}
	zap.ReplaceGlobals(logger)
	if logPath != "" {
		logger.Debug("log file", zap.String("path", logPath))
	}

	return logger, func() {
		_ = logger.Sync()
		cleanup()
	}, nil
}

func openLogFile(subcommand string) (*os.File, string, error) {
	dir, err := LogDir()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", err
	}

	name := fmt.Sprintf("tubeindex-%s-%s-%d.log",
		sanitizeName(subcommand), time.Now().Format("20060102-150405"), os.Getpid())
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", err
	}
	return file, path, nil
}

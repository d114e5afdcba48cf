package logger

import (
	"edu_platform_backend/internal/config"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Log   = zap.NewNop()
	level = zap.NewAtomicLevel()
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// InitLogger 控制台输出文本，文件输出 JSON 并按大小滚动
func InitLogger(cfg *config.Config) {
	SetLevel(cfg.Server.Mode)

	enc := encoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(os.Stdout), level),
	}

	if cfg.Log.File != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), fileWriter, level))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// SetLevel 根据运行模式调整日志级别，配置热更新时也会调用
func SetLevel(mode string) {
	if mode == "debug" {
		level.SetLevel(zap.DebugLevel)
		return
	}
	level.SetLevel(zap.InfoLevel)
}

// Enabled 供测试与诊断判断当前级别
func Enabled(l zapcore.Level) bool {
	return level.Enabled(l)
}

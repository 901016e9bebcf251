package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// logger 是一个全局 logger 实例
	logger *zap.Logger
	mu     sync.RWMutex
	once   sync.Once
)

// ParseLevel 解析日志级别，无法识别时使用 info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init 初始化日志系统，只有第一次调用生效
func Init(level string, outputPath string) error {
	var initErr error
	once.Do(func() {
		l, err := build(ParseLevel(level), outputPath)
		if err != nil {
			initErr = err
			return
		}
		Replace(l)
	})
	return initErr
}

func build(logLevel zapcore.Level, outputPath string) (*zap.Logger, error) {
	// 创建日志目录
	if outputPath != "" {
		if err := os.MkdirAll(outputPath, 0755); err != nil {
			return nil, fmt.Errorf("无法创建日志目录: %w", err)
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	// 控制台输出走 stderr，stdout 留给 CLI 的正文输出
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stderr), logLevel),
	}

	if outputPath != "" {
		if f, err := openLogFile(filepath.Join(outputPath, "app.log")); err == nil {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), f, logLevel))
		}
		// 错误文件只记录错误及以上级别
		if f, err := openLogFile(filepath.Join(outputPath, "error.log")); err == nil {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), f, zapcore.ErrorLevel))
		}
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func openLogFile(path string) (zapcore.WriteSyncer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(f), nil
}

// Replace 替换全局 logger，测试中用 observer 捕获日志
func Replace(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug 记录调试信息
func Debug(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Debug(msg, fields...)
	}
}

// Info 记录一般信息
func Info(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Info(msg, fields...)
	}
}

// Warn 记录警告信息
func Warn(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Warn(msg, fields...)
	}
}

// Error 记录错误信息
func Error(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Error(msg, fields...)
	}
}

// Fatal 记录致命错误并退出程序
func Fatal(msg string, fields ...zap.Field) {
	if l := current(); l != nil {
		l.Fatal(msg, fields...)
	}
	os.Exit(1)
}

// WithFields 返回带有字段的 logger，未初始化时返回空实现
func WithFields(fields ...zap.Field) *zap.Logger {
	if l := current(); l != nil {
		return l.WithOptions(zap.AddCallerSkip(-1)).With(fields...)
	}
	return zap.NewNop()
}

// Sync 刷新日志缓冲
func Sync() {
	if l := current(); l != nil {
		_ = l.Sync()
	}
}

// Since 计算从指定时间到现在的持续时间
func Since(t time.Time) time.Duration {
	return time.Since(t)
}

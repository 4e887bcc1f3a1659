package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger тонкая обертка над logrus с printf-API
type Logger struct {
	entry *logrus.Logger
	file  io.Closer
}

// FileOptions параметры ротации файла логов
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewLogger создает консольный логгер с заданным уровнем
func NewLogger(levelStr string) *Logger {
	l := logrus.New()
	l.SetLevel(parseLevel(levelStr))
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		TimestampFormat:        "2006-01-02 15:04:05",
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	return &Logger{entry: l}
}

// NewFileLogger создает логгер, дублирующий записи в ротируемый файл
func NewFileLogger(levelStr string, opts FileOptions) (*Logger, error) {
	logger := NewLogger(levelStr)
	if opts.Path == "" {
		return logger, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    orDefault(opts.MaxSizeMB, 50),
		MaxBackups: orDefault(opts.MaxBackups, 5),
		MaxAge:     orDefault(opts.MaxAgeDays, 14),
		Compress:   opts.Compress,
	}

	logger.entry.AddHook(&fileHook{
		writer: rotator,
		formatter: &logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		},
	})
	logger.file = rotator
	return logger, nil
}

// Discard логгер для тестов
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{entry: l}
}

// Close закрывает файл логов, если он открыт
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// WithField возвращает логгер с постоянным полем (компонент, пользователь)
func (l *Logger) WithField(key string, value interface{}) *FieldLogger {
	return &FieldLogger{entry: l.entry.WithField(key, value)}
}

// FieldLogger логгер с привязанными полями
type FieldLogger struct {
	entry *logrus.Entry
}

func (f *FieldLogger) Debug(format string, v ...interface{}) { f.entry.Debugf(format, v...) }
func (f *FieldLogger) Info(format string, v ...interface{})  { f.entry.Infof(format, v...) }
func (f *FieldLogger) Warn(format string, v ...interface{})  { f.entry.Warnf(format, v...) }
func (f *FieldLogger) Error(format string, v ...interface{}) { f.entry.Errorf(format, v...) }

type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

func parseLevel(levelStr string) logrus.Level {
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

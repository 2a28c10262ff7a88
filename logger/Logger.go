package logger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Log = New()

// Logger 包一層 logrus，輸出同時寫到 stdout 與 lumberjack 的輪替檔案
type Logger struct {
	mu   sync.Mutex
	base *logrus.Logger
	file *lumberjack.Logger
}

// Properties 對應 logger.properties 的內容
type Properties struct {
	LogFilename string
	MaxSize     int
	MaxBackups  int
	MaxAge      int
	Compress    bool
	Level       string
}

func New() *Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetOutput(os.Stdout)
	base.SetLevel(logrus.InfoLevel)
	return &Logger{base: base}
}

func readLoggerProperties(v *viper.Viper) Properties {
	return Properties{
		LogFilename: cast.ToString(v.Get("logFilename")),
		MaxSize:     cast.ToInt(v.Get("maxSize")),
		MaxBackups:  cast.ToInt(v.Get("maxBackups")),
		MaxAge:      cast.ToInt(v.Get("maxAge")),
		Compress:    cast.ToBool(v.Get("compress")),
		Level:       cast.ToString(v.Get("level")),
	}
}

// Init 讀取 dir 底下的 logger.properties，找不到檔案時只輸出到 stdout
func (l *Logger) Init(dir string) error {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "logger.properties"))
	v.SetConfigType("properties")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.base.Warn(LoggerPropertiesMissingMsg)
			return nil
		}
		return fmt.Errorf("read logger properties: %w", err)
	}

	l.Apply(readLoggerProperties(v))

	v.OnConfigChange(func(e fsnotify.Event) {
		level := cast.ToString(v.Get("level"))
		l.SetLevel(level)
		l.WithFields(logrus.Fields{"file": e.Name, "level": level}).Info(LoggerLevelReloadedMsg)
	})
	v.WatchConfig()

	return nil
}

// Apply 套用一組設定，LogFilename 為空時不寫檔
func (l *Logger) Apply(p Properties) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out io.Writer = os.Stdout
	if p.LogFilename != "" {
		if l.file != nil {
			_ = l.file.Close()
		}
		l.file = &lumberjack.Logger{
			Filename:   p.LogFilename,
			MaxSize:    p.MaxSize,
			MaxBackups: p.MaxBackups,
			MaxAge:     p.MaxAge,
			Compress:   p.Compress,
		}
		out = io.MultiWriter(os.Stdout, l.file)
	}

	l.base.SetFormatter(&logrus.JSONFormatter{})
	l.base.SetOutput(out)
	l.base.SetLevel(parseLevel(p.Level))
}

func (l *Logger) SetLevel(level string) {
	l.base.SetLevel(parseLevel(level))
}

func (l *Logger) Level() logrus.Level {
	return l.base.GetLevel()
}

// SetOutput 測試時用來攔截輸出
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

func (l *Logger) AddHook(hook logrus.Hook) {
	l.base.AddHook(hook)
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {

	case "trace":
		return logrus.TraceLevel

	case "info":
		return logrus.InfoLevel

	case "warn":
		return logrus.WarnLevel

	case "error":
		return logrus.ErrorLevel

	case "fatal":
		return logrus.FatalLevel

	default:
		return logrus.DebugLevel
	}
}

func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.base.WithFields(fields)
}

func (l *Logger) Info(message string) {
	l.base.Info(message)
}

func (l *Logger) Error(message string) {
	l.base.Error(message)
}

func (l *Logger) Debug(message string) {
	l.base.Debug(message)
}

func (l *Logger) Warn(message string) {
	l.base.Warn(message)
}

func (l *Logger) Fatal(message string) {
	l.base.Fatal(message)
}

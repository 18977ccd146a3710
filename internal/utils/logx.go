package utils

import (
	"fmt"
	"ip_forest/internal/dataType"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogxManager struct {
	basePath string
	loggers  map[string]*zap.Logger
	files    []*os.File
	mu       sync.RWMutex
}

var (
	defaultManager   *LogxManager
	defaultManagerMu sync.RWMutex
)

func NewManager(base string) *LogxManager {
	m := &LogxManager{basePath: base, loggers: make(map[string]*zap.Logger)}

	if err := os.MkdirAll(m.basePath, 0744); err != nil {
		log.Printf("failed to create base log dir %s: %v", m.basePath, err)
	}
	return m
}

// SetDefaultManager routes the package level Log* helpers to m.
func SetDefaultManager(m *LogxManager) {
	defaultManagerMu.Lock()
	defer defaultManagerMu.Unlock()
	defaultManager = m
}

func getDefaultManager() *LogxManager {
	defaultManagerMu.RLock()
	defer defaultManagerMu.RUnlock()
	return defaultManager
}

// Logger returns the logger writing under <base>/<name>/, creating it once.
func (m *LogxManager) Logger(name string) *zap.Logger {
	m.mu.RLock()
	if lg, ok := m.loggers[name]; ok {
		m.mu.RUnlock()
		return lg
	}
	m.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if lg, ok := m.loggers[name]; ok {
		return lg
	}
	dir := filepath.Join(m.basePath, name)
	if err := os.MkdirAll(dir, 0744); err != nil {
		log.Printf("failed to create log dir %s: %v", dir, err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	infoOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "info.log")))
	errorOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "error.log")))
	dbgOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "debug.log")))

	infoLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.InfoLevel || l == zapcore.WarnLevel })
	errLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
	dbgLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.DebugLevel })

	tee := zapcore.NewTee(
		zapcore.NewCore(encoder, infoOut, infoLv),
		zapcore.NewCore(encoder, errorOut, errLv),
		zapcore.NewCore(encoder, dbgOut, dbgLv),
	)
	lg := zap.New(tee)
	m.loggers[name] = lg
	return lg
}

func (m *LogxManager) openLogFile(path string) *os.File {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", path, err)
		return os.Stdout
	}
	m.files = append(m.files, f)
	return f
}

// Close flushes every logger and closes the log files.
func (m *LogxManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lg := range m.loggers {
		_ = lg.Sync()
	}
	for _, f := range m.files {
		if err := f.Close(); err != nil {
			log.Printf("failed to close log file %s: %v", f.Name(), err)
		}
	}
	m.files = nil
	m.loggers = make(map[string]*zap.Logger)
}

func requestHost(reqData dataType.UserRequest) string {
	if reqData.Host == "" {
		return "default"
	}
	return reqData.Host
}

func formatRequestLine(reqData dataType.UserRequest, msg, msg2 string) string {
	return fmt.Sprintf("%s - - [%s] %s %s %s %s %s",
		reqData.RemoteIP,
		time.Now().Format("02/Jan/2006:15:04:05 -0700"),
		msg,
		reqData.Host,
		reqData.Uri,
		reqData.UserAgent,
		msg2,
	)
}

func (m *LogxManager) LogInfo(reqData dataType.UserRequest, msg, msg2 string) {
	m.Logger(requestHost(reqData)).Info(formatRequestLine(reqData, msg, msg2))
}

func (m *LogxManager) LogError(reqData dataType.UserRequest, msg, msg2 string) {
	m.Logger(requestHost(reqData)).Error(formatRequestLine(reqData, msg, msg2))
}

func (m *LogxManager) LogDebug(reqData dataType.UserRequest, msg, msg2 string) {
	m.Logger(requestHost(reqData)).Debug(formatRequestLine(reqData, msg, msg2))
}

func LogInfo(reqData dataType.UserRequest, msg, msg2 string) {
	if m := getDefaultManager(); m != nil {
		m.LogInfo(reqData, msg, msg2)
	}
}

func LogError(reqData dataType.UserRequest, msg, msg2 string) {
	if m := getDefaultManager(); m != nil {
		m.LogError(reqData, msg, msg2)
	}
}

func LogDebug(reqData dataType.UserRequest, msg, msg2 string) {
	if m := getDefaultManager(); m != nil {
		m.LogDebug(reqData, msg, msg2)
	}
}

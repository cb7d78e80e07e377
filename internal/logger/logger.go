package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type levelStyle struct {
	name     string
	level    *color.Color
	category *color.Color
}

var styles = map[LogLevel]levelStyle{
	DEBUG: {"DEBUG", color.New(color.FgCyan), color.New(color.FgCyan, color.Bold)},
	INFO:  {"INFO", color.New(color.FgGreen), color.New(color.FgGreen, color.Bold)},
	WARN:  {"WARN", color.New(color.FgYellow), color.New(color.FgYellow, color.Bold)},
	ERROR: {"ERROR", color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
	FATAL: {"FATAL", color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
}

var (
	timeColor = color.New(color.FgBlue)
	fileColor = color.New(color.FgMagenta)
)

func (l LogLevel) String() string {
	if s, ok := styles[l]; ok {
		return s.name
	}
	return "INFO"
}

// LogEntry is one line of the JSON log file.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Logger writes colored lines for operators and JSON lines for collection.
// A nil *Logger drops everything.
type Logger struct {
	mu       sync.Mutex
	terminal io.Writer
	file     *os.File
	minLevel LogLevel
}

// NewLogger writes colored lines to stdout and JSON lines to
// <LOG_DIR>/coa-registry-<date>.log. LOG_LEVEL sets the threshold.
func NewLogger() *Logger {
	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatal("Failed to create logs directory:", err)
	}

	name := filepath.Join(dir, fmt.Sprintf("coa-registry-%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal("Failed to create log file:", err)
	}

	l := &Logger{terminal: os.Stdout, file: file, minLevel: parseLevel(os.Getenv("LOG_LEVEL"))}
	l.Info("LOGGER", "Logging to "+name)
	return l
}

// NewWithWriter logs terminal-formatted lines to w only. Used by CLIs and tests.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{terminal: w, minLevel: DEBUG}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard)
}

func parseLevel(s string) LogLevel {
	for level, style := range styles {
		if strings.EqualFold(s, style.name) && level != FATAL {
			return level
		}
	}
	return INFO
}

func (l *Logger) log(level LogLevel, category, message string) {
	if l == nil || level < l.minLevel {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     level.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
	}
	// skip log and the exported wrapper
	if _, file, line, ok := runtime.Caller(2); ok {
		entry.File = filepath.Base(file)
		entry.Line = line
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.terminal != nil {
		fmt.Fprint(l.terminal, terminalLine(level, entry))
	}
	if l.file != nil {
		if b, err := json.Marshal(entry); err == nil {
			l.file.Write(append(b, '\n'))
		}
	}
}

func terminalLine(level LogLevel, e LogEntry) string {
	style, ok := styles[level]
	if !ok {
		style = styles[INFO]
	}

	var b strings.Builder
	b.WriteString(timeColor.Sprint(e.Timestamp[11:19]))
	b.WriteByte(' ')
	b.WriteString(style.level.Sprintf("%-5s", e.Level))
	b.WriteByte(' ')
	b.WriteString(style.category.Sprintf("[%-10s]", e.Category))
	b.WriteByte(' ')
	b.WriteString(e.Message)
	if e.File != "" && e.Line > 0 {
		b.WriteString(fileColor.Sprintf(" (%s:%d)", e.File, e.Line))
	}
	b.WriteByte('\n')
	return b.String()
}

func (l *Logger) Debug(category, message string) { l.log(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.log(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.log(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.log(ERROR, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

// Component helpers

func (l *Logger) LogWorkflow(action, requestID, message string) {
	l.log(INFO, "WORKFLOW", fmt.Sprintf("[%s] %s - %s", action, requestID, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.log(INFO, "API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.log(INFO, "KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogStorage(action, path, message string) {
	l.log(INFO, "STORAGE", fmt.Sprintf("[%s] %s - %s", action, path, message))
}

// LogSecurity records role changes, account deletions and rejected tokens.
func (l *Logger) LogSecurity(event, message string) {
	l.log(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	if l == nil || l.file == nil {
		return
	}
	l.Info("LOGGER", "Closing log file")
	l.file.Close()
}

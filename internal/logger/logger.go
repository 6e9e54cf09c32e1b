package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)
	SetFormatter("text")
}

// Logger writes structured logs. Arguments after the message are key-value pairs:
//
//	log.Debug("fetched policy", "policy", name, "inline", true)
type Logger interface {
	Debug(string, ...interface{})
	Info(string, ...interface{})
	Error(string, ...interface{})
	WithFields(...interface{}) Logger
}

// New returns a Logger tagged with namespace ns.
func New(ns string, args ...interface{}) Logger {
	f := fields(args...)
	f["ns"] = ns
	return &logger{logrus.WithFields(f)}
}

type logger struct {
	log *logrus.Entry
}

func (l *logger) Debug(msg string, args ...interface{}) {
	l.log.WithFields(fields(args...)).Debug(msg)
}

func (l *logger) Info(msg string, args ...interface{}) {
	l.log.WithFields(fields(args...)).Info(msg)
}

// Error logs at error level. A single extra argument is logged as "error".
func (l *logger) Error(msg string, args ...interface{}) {
	var f logrus.Fields
	if len(args) == 1 {
		f = fields("error", args[0])
	} else {
		f = fields(args...)
	}
	l.log.WithFields(f).Error(msg)
}

func (l *logger) WithFields(args ...interface{}) Logger {
	return &logger{l.log.WithFields(fields(args...))}
}

// SetLevel sets the global level; unknown names fall back to warn.
func SetLevel(l string) {
	switch strings.ToLower(l) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// SetFormatter selects "json" or "text" output.
func SetFormatter(name string) {
	switch strings.ToLower(name) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			DisableTimestamp: false,
		})
	}
}

// SetOutput sets the output for all loggers.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// Discard drops all logs.
func Discard() {
	logrus.SetOutput(io.Discard)
}

func fields(args ...interface{}) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	if len(args) == 1 {
		f["unknown"] = args[0]
		return f
	}
	for i := 0; i+1 < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok {
			k = fmt.Sprint(args[i])
		}
		f[k] = args[i+1]
	}
	if len(args)%2 != 0 {
		f["unknown"] = args[len(args)-1]
	}
	return f
}

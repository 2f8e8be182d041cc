package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Dir   string
	File  string
	Level string
	Debug bool
}

// New returns a logrus logger writing to stdout and to a rotated file in
// opts.Dir. The standard logrus logger is pointed at the same sinks so
// package-level logrus calls end up in the same file.
func New(opts Options) (*logrus.Logger, error) {
	if err := os.MkdirAll(opts.Dir, os.ModePerm); err != nil {
		return nil, err
	}

	name := opts.File
	if name == "" {
		name = "app.log"
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, name),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	log := logrus.New()
	configure(log, io.MultiWriter(os.Stdout, logFile), level, opts.Debug)
	configure(logrus.StandardLogger(), io.MultiWriter(os.Stdout, logFile), level, opts.Debug)

	return log, nil
}

func configure(log *logrus.Logger, out io.Writer, level logrus.Level, debug bool) {
	log.SetOutput(out)
	log.SetLevel(level)
	if debug {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		return
	}
	log.SetFormatter(&logrus.JSONFormatter{})
}

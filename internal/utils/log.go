// Package utils
package utils

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	logger  *log.Logger
	once    sync.Once
	logPath string
)

// SetLogFile makes the shared logger append to path as well as stdout. It
// only has an effect before the first call to GetLogger.
func SetLogFile(path string) {
	logPath = path
}

// GetLogger returns the process-wide logger. Output goes to stdout and, when
// a log file is configured, to that file as well.
func GetLogger() *log.Logger {
	once.Do(func() {
		var out io.Writer = os.Stdout
		if logPath != "" {
			file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				log.Fatal(err)
			}
			out = io.MultiWriter(os.Stdout, file)
		}
		logger = log.New(out, "RSI Trader: ", log.LstdFlags)
	})
	return logger
}

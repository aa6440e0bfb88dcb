// SPDX-License-Identifier: ISC

// Package noidlog wraps github.com/bitmark-inc/logger to give each
// session the append-only log sink described in spec.md §6 as an
// out-of-scope external collaborator: a human-readable file under
// the database directory, opened once per session and written
// without locking (the session itself is single-threaded).
//
// github.com/bitmark-inc/logger is a single rotating file per
// process (Initialise takes one Directory/File pair; every teacher
// call site calls it exactly once and differentiates callers with
// logger.New(tag) channels into that one file, never a second
// Initialise). A genuinely separate per-backend file therefore can't
// be opened through that library; Open appends one directly with
// os.OpenFile instead, alongside the shared "log" stream.
package noidlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/Daniel-KM/Noid4Php/fault"
)

// Log is one session's logging channel.
type Log struct {
	channel    *logger.L
	dir        string
	backend    string
	backendLog *os.File
}

var (
	initMu   sync.Mutex
	refcount int
)

// Open initialises the logger library against dir (idempotent across
// sessions sharing a process, since the underlying library is
// initialised once globally), returns a channel tagged "noid", and
// opens dir/log<backend> as this session's own append-only stream.
func Open(dir, backend string) (*Log, error) {
	initMu.Lock()
	defer initMu.Unlock()

	if refcount == 0 {
		err := logger.Initialise(logger.Configuration{
			Directory: dir,
			File:      "log",
			Size:      1024 * 1024,
			Count:     10,
		})
		if err != nil {
			return nil, fault.ErrLogNotWritable
		}
	}
	refcount++

	ch := logger.New("noid")
	if ch == nil {
		refcount--
		return nil, fault.ErrInvalidLoggerChannel
	}

	backendPath := filepath.Join(dir, "log"+backend)
	f, err := os.OpenFile(backendPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		refcount--
		return nil, fault.ErrLogNotWritable
	}

	return &Log{channel: ch, dir: dir, backend: backend, backendLog: f}, nil
}

// Close flushes and, once the last session using this process-wide
// logger closes, finalises the library.
func (l *Log) Close() {
	if l == nil {
		return
	}
	l.channel.Flush()
	if l.backendLog != nil {
		l.backendLog.Close()
	}

	initMu.Lock()
	defer initMu.Unlock()
	refcount--
	if refcount <= 0 {
		refcount = 0
		logger.Finalise()
	}
}

// Path returns the directory this log was opened against.
func (l *Log) Path() string {
	return filepath.Clean(l.dir)
}

// backendLine mirrors message into dir/log<backend>, best-effort: a
// write failure here never interrupts the caller's real logging.
func (l *Log) backendLine(level, message string) {
	if l == nil || l.backendLog == nil {
		return
	}
	fmt.Fprintf(l.backendLog, "%s %s noid[%s]: %s\n", time.Now().UTC().Format(time.RFC3339), level, l.backend, message)
}

func (l *Log) Info(message string) {
	l.channel.Info(message)
	l.backendLine("INFO", message)
}

func (l *Log) Infof(format string, args ...interface{}) {
	l.channel.Infof(format, args...)
	l.backendLine("INFO", fmt.Sprintf(format, args...))
}

func (l *Log) Debugf(format string, args ...interface{}) {
	l.channel.Debugf(format, args...)
	l.backendLine("DEBUG", fmt.Sprintf(format, args...))
}

func (l *Log) Warnf(format string, args ...interface{}) {
	l.channel.Warnf(format, args...)
	l.backendLine("WARN", fmt.Sprintf(format, args...))
}

func (l *Log) Errorf(format string, args ...interface{}) {
	l.channel.Errorf(format, args...)
	l.backendLine("ERROR", fmt.Sprintf(format, args...))
}

func (l *Log) Criticalf(format string, args ...interface{}) {
	l.channel.Criticalf(format, args...)
	l.backendLine("CRITICAL", fmt.Sprintf(format, args...))
}

package audit

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Authentication lifecycle events recorded in the user-events log.
const (
	EventConnect    = "CONNECT"
	EventDisconnect = "DISCONNECT"
)

const timeLayout = "2006-01-02 15:04:05"

// Snapshot is the user identity captured at login time, kept in the session so
// a DISCONNECT can be logged even after the record changes.
type Snapshot struct {
	ID        int64  `json:"id"`
	Surname   string `json:"surname"`
	GivenName string `json:"given_name"`
	Email     string `json:"email"`
	Level     int    `json:"level"`
}

// Logger appends line-oriented UTF-8 records to two files: one for error
// events, one for user lifecycle events. Appends are serialized; no rotation.
// Challenge and CSRF token values are never written here.
type Logger struct {
	mu        sync.Mutex
	errPath   string
	eventPath string
	log       *logrus.Logger
}

func New(errPath, eventPath string, log *logrus.Logger) *Logger {
	return &Logger{errPath: errPath, eventPath: eventPath, log: log}
}

// Error records "[timestamp][source] message".
func (l *Logger) Error(source, message string) {
	line := fmt.Sprintf("[%s][%s] %s\n", time.Now().Format(timeLayout), source, message)
	l.append(l.errPath, line)
	if l.log != nil {
		l.log.WithField("source", source).Warn(message)
	}
}

// UserEvent records "EVENT | ID:n | surname | given | email | LV:n | timestamp".
func (l *Logger) UserEvent(event string, s Snapshot) {
	line := fmt.Sprintf("%s | ID:%d | %s | %s | %s | LV:%d | %s\n",
		event, s.ID, s.Surname, s.GivenName, s.Email, s.Level, time.Now().Format(timeLayout))
	l.append(l.eventPath, line)
	if l.log != nil {
		l.log.WithFields(logrus.Fields{
			"event": event, "user_id": s.ID, "email": s.Email, "level": s.Level,
		}).Info("user event")
	}
}

func (l *Logger) append(path, line string) {
	if path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		if l.log != nil {
			l.log.WithError(err).WithField("path", path).Error("audit append failed")
		}
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = f.WriteString(line)
}

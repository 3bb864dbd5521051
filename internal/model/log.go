package model

import "fmt"

// LogLevel is the severity of a Log record.
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

// Valid reports whether l is a known level.
func (l LogLevel) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// ParseLogLevel converts a string into a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	l := LogLevel(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// Details is the structured payload attached to a Log.
type Details map[string]any

// ErrorDetails wraps an error as log details.
func ErrorDetails(err error) Details {
	if err == nil {
		return nil
	}
	return Details{"error": err.Error()}
}

// Log is an application log entry.
type Log struct {
	ID        string   `json:"id"`
	CreatedAt int64    `json:"createdAt"`
	Level     LogLevel `json:"level"`
	Label     string   `json:"label"`
	Details   Details  `json:"details,omitempty"`
}

// RecordID implements Record.
func (l Log) RecordID() string { return l.ID }

// Created returns the creation timestamp.
func (l Log) Created() int64 { return l.CreatedAt }

// LogParams are the inputs to NewLog. ID and CreatedAt are generated when
// zero.
type LogParams struct {
	ID        string
	CreatedAt int64
	Level     LogLevel
	Label     string
	Details   Details
}

// NewLog constructs a Log.
func NewLog(p LogParams) Log {
	l := Log{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		Level:     p.Level,
		Label:     p.Label,
		Details:   p.Details,
	}
	if l.ID == "" {
		l.ID = NewID(TableLogs)
	}
	if l.CreatedAt == 0 {
		l.CreatedAt = Now()
	}
	return l
}

package binlog

import (
	"time"
)

// Notification is one decoded change published by a Tailer. It is one of
// LogStarted, Query, ServerStopped, Rotated or Error.
type Notification interface {
	Kind() string
}

// LogStarted is published after the header of a binlog file is validated.
type LogStarted struct {
	Timestamp time.Time `json:"timestamp"`
	File      string    `json:"file"`
}

// AutoIncrement holds the INTVAR hints logged for the statement of the
// following query. A nil field was not hinted.
type AutoIncrement struct {
	LastInsertID  *uint32 `json:"lastInsertId,omitempty"`
	AutoIncrement *uint32 `json:"autoIncrement,omitempty"`
}

func (a AutoIncrement) isSet() bool {
	return a.LastInsertID != nil || a.AutoIncrement != nil
}

// Query is published for every statement written after the tailer started.
type Query struct {
	Timestamp     time.Time      `json:"timestamp"`
	Database      string         `json:"database"`
	Text          string         `json:"text"`
	AutoIncrement *AutoIncrement `json:"autoIncrement,omitempty"`
}

// ServerStopped is published when the server logs its shutdown.
// Decoding continues in case the file is appended to later.
type ServerStopped struct {
	Timestamp time.Time `json:"timestamp"`
}

// Rotated is published when the server switches to NextFile.
type Rotated struct {
	NextFile string `json:"nextFile"`
}

// Error is published once when tailing stops on a fatal error.
type Error struct {
	Cause error `json:"-"`
}

func (e Error) Error() string { return e.Cause.Error() }

func (LogStarted) Kind() string { return "logStarted" }
func (Query) Kind() string { return "query" }
func (ServerStopped) Kind() string { return "serverStopped" }
func (Rotated) Kind() string { return "rotated" }
func (Error) Kind() string { return "error" }

// Publisher receives notifications in log order.
type Publisher interface {
	Publish(n Notification)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(n Notification)

func (f PublisherFunc) Publish(n Notification) { f(n) }

// ChanPublisher sends notifications on a channel. Publish blocks until the
// consumer receives.
type ChanPublisher chan Notification

func (c ChanPublisher) Publish(n Notification) { c <- n }

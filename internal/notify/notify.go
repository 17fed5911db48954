// Package notify carries user-facing messages and navigation requests out of
// the workflow controllers.
package notify

import (
	"fmt"
	"log"
	"sync"
)

type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(level Level, msg string)
}

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(route string)
}

type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// LogNotifier writes messages through a *log.Logger.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(level Level, msg string) {
	if n.Logger == nil {
		log.Printf("[%s] %s", level, msg)
		return
	}
	n.Logger.Printf("[%s] %s", level, msg)
}

// Message is one recorded notification.
type Message struct {
	Level Level
	Text  string
}

func (m Message) String() string { return fmt.Sprintf("%s: %s", m.Level, m.Text) }

// Recorder keeps every notification and navigation; it satisfies both
// Notifier and Navigator.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	routes   []string
}

func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Level: level, Text: msg})
	r.mu.Unlock()
}

func (r *Recorder) Navigate(route string) {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func (r *Recorder) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

// Count returns how many messages were recorded at level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Package prompt shows messages to the user and collects answers.
//
// Two implementations are provided: Terminal talks to an interactive
// terminal, Headless answers from a fixed policy for batch runs and tests.
package prompt

import (
	"context"
	"errors"
)

// Level is the severity of a message.
type Level int

// Message levels.
const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ErrNoAnswer is returned when input ends before a choice is made.
var ErrNoAnswer = errors.New("prompt: no answer")

// Prompter is the user-facing side of lintbridge.
type Prompter interface {
	// Ask shows message with choices and returns the picked choice, or ""
	// when the user dismissed the prompt.
	Ask(ctx context.Context, level Level, message string, choices ...string) (string, error)

	// Notify shows message without waiting for an answer.
	Notify(ctx context.Context, level Level, message string)

	// Open shows an external document to the user.
	Open(ctx context.Context, url string) error
}

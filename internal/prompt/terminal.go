package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgCyan, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	choiceColor  = color.New(color.FgGreen)
	linkColor    = color.New(color.FgBlue, color.Underline)
)

// Terminal prompts on an interactive terminal. Only one prompt is shown at a
// time; concurrent callers wait their turn.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewTerminal creates a terminal prompter reading answers from in.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func levelColor(level Level) *color.Color {
	switch level {
	case LevelWarning:
		return warningColor
	case LevelError:
		return errorColor
	default:
		return infoColor
	}
}

// Ask prints the message and a numbered choice list, then reads the number
// or the text of a choice. An empty line dismisses the prompt.
func (t *Terminal) Ask(ctx context.Context, level Level, message string, choices ...string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "%s %s\n", levelColor(level).Sprintf("[%s]", level), message)
	for i, choice := range choices {
		fmt.Fprintf(t.out, "  %s %s\n", choiceColor.Sprintf("%d)", i+1), choice)
	}

	for {
		fmt.Fprint(t.out, "> ")
		line, err := t.readLine(ctx)
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return "", nil
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(choices) {
			return choices[n-1], nil
		}
		for _, choice := range choices {
			if strings.EqualFold(choice, line) {
				return choice, nil
			}
		}
		fmt.Fprintf(t.out, "Please enter a number between 1 and %d.\n", len(choices))
	}
}

// readLine reads one line, giving up when ctx is done. A line read after
// cancellation is kept for the next prompt.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if t.lines == nil {
		t.lines = make(chan lineResult, 1)
		go func() {
			text, err := t.in.ReadString('\n')
			if err != nil && text != "" {
				err = nil
			}
			t.lines <- lineResult{text: text, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-t.lines:
		t.lines = nil
		if r.err == io.EOF {
			return "", ErrNoAnswer
		}
		return r.text, r.err
	}
}

// Notify prints message.
func (t *Terminal) Notify(_ context.Context, level Level, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s %s\n", levelColor(level).Sprintf("[%s]", level), message)
}

// Open prints the URL for the user to follow.
func (t *Terminal) Open(_ context.Context, url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.out, "See %s\n", linkColor.Sprint(url))
	return err
}

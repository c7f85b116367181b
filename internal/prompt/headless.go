package prompt

import (
	"context"
	"strings"
	"sync"

	"github.com/dshills/lintbridge/internal/logging"
)

// Headless answers prompts without user interaction. Every question is
// answered with the first configured answer that is among its choices;
// otherwise the prompt counts as dismissed. Everything is logged.
type Headless struct {
	log     *logging.Logger
	answers []string

	mu     sync.Mutex
	asked  []string
	opened []string
}

// NewHeadless creates a headless prompter that prefers answers in order.
func NewHeadless(log *logging.Logger, answers ...string) *Headless {
	if log == nil {
		log = logging.Nop()
	}
	return &Headless{log: log.WithComponent("prompt"), answers: answers}
}

// Ask picks an answer from the configured policy.
func (h *Headless) Ask(_ context.Context, level Level, message string, choices ...string) (string, error) {
	h.mu.Lock()
	h.asked = append(h.asked, message)
	h.mu.Unlock()

	for _, answer := range h.answers {
		for _, choice := range choices {
			if strings.EqualFold(answer, choice) {
				h.log.Info("%s: %s -> %s", level, message, choice)
				return choice, nil
			}
		}
	}
	h.log.Info("%s: %s (dismissed)", level, message)
	return "", nil
}

// Notify logs message at the matching level.
func (h *Headless) Notify(_ context.Context, level Level, message string) {
	switch level {
	case LevelError:
		h.log.Error("%s", message)
	case LevelWarning:
		h.log.Warn("%s", message)
	default:
		h.log.Info("%s", message)
	}
}

// Open logs the URL.
func (h *Headless) Open(_ context.Context, url string) error {
	h.mu.Lock()
	h.opened = append(h.opened, url)
	h.mu.Unlock()
	h.log.Info("documentation: %s", url)
	return nil
}

// Asked returns the messages asked so far.
func (h *Headless) Asked() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.asked...)
}

// Opened returns the URLs opened so far.
func (h *Headless) Opened() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opened...)
}

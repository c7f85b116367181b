package migration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/prompt"
)

// scriptedPrompter answers Ask with fixed choices and tracks how many
// prompts are open at once.
type scriptedPrompter struct {
	mu       sync.Mutex
	answer   string
	hold     chan struct{}
	open     int
	maxOpen  int
	asks     int
	events   []string
	notified []string
	opened   []string
}

func (p *scriptedPrompter) Ask(ctx context.Context, _ prompt.Level, _ string, _ ...string) (string, error) {
	p.mu.Lock()
	p.open++
	p.asks++
	if p.open > p.maxOpen {
		p.maxOpen = p.open
	}
	p.events = append(p.events, "ask")
	hold := p.hold
	p.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
		}
	}

	p.mu.Lock()
	p.open--
	p.events = append(p.events, "answered")
	p.mu.Unlock()
	return p.answer, nil
}

func (p *scriptedPrompter) Notify(_ context.Context, _ prompt.Level, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notified = append(p.notified, message)
}

func (p *scriptedPrompter) Open(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, url)
	return nil
}

func (p *scriptedPrompter) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

const legacyWorkspace = "[eslint]\nautoFixOnSave = true\n"

func TestCoordinator_OnePromptAtATime(t *testing.T) {
	f := newFixture(t, "", legacyWorkspace)
	p := &scriptedPrompter{answer: ChoiceNotNow, hold: make(chan struct{})}
	c := NewCoordinator(f.cfg, p, nil)

	var wg sync.WaitGroup
	for i, name := range []string{"a.ts", "b.ts"} {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			uri := lsp.DocumentURI("file:///ws/" + name)
			err := c.WithMigrationGate(context.Background(), uri, f.root, func(context.Context) error {
				p.record("read")
				return nil
			})
			if err != nil {
				t.Errorf("call %d: %v", i, err)
			}
		}(i, name)
	}

	// Let the first prompt open and the second caller queue up.
	waitFor(t, func() bool { return c.gate.Waiting() == 1 })
	if c.Active() == nil {
		t.Error("Active() = nil while a prompt is open")
	}
	close(p.hold)
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxOpen != 1 {
		t.Errorf("max simultaneous prompts = %d, want 1", p.maxOpen)
	}
	// "Not now" is not sticky: both callers were asked, strictly in turn.
	want := []string{"ask", "answered", "read", "ask", "answered", "read"}
	if len(p.events) != len(want) {
		t.Fatalf("events = %v, want %v", p.events, want)
	}
	for i := range want {
		if p.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", p.events, want)
		}
	}
	if c.Active() != nil {
		t.Error("active record not cleared")
	}
}

func TestCoordinator_Choices(t *testing.T) {
	tests := []struct {
		name           string
		answer         string
		wantSuppressed bool
		wantMigrated   bool
		wantUserOff    bool
		wantOpened     bool
	}{
		{name: "yes", answer: ChoiceYes, wantMigrated: true},
		{name: "never", answer: ChoiceNever, wantSuppressed: true, wantUserOff: true},
		{name: "readme", answer: ChoiceReadme, wantSuppressed: true, wantOpened: true},
		{name: "not now", answer: ChoiceNotNow},
		{name: "dismissed", answer: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "", legacyWorkspace)
			p := &scriptedPrompter{answer: tt.answer}
			c := NewCoordinator(f.cfg, p, nil)

			calls := 0
			err := c.WithMigrationGate(context.Background(), f.resource(), f.root, func(context.Context) error {
				calls++
				return nil
			})
			if err != nil {
				t.Fatalf("WithMigrationGate() error = %v", err)
			}
			if calls != 1 {
				t.Errorf("fn called %d times", calls)
			}
			if c.Suppressed() != tt.wantSuppressed {
				t.Errorf("Suppressed() = %v", c.Suppressed())
			}
			_, legacy := f.cfg.LayerValue(config.LayerWorkspace, config.KeyAutoFixOnSave)
			if legacy == tt.wantMigrated {
				t.Errorf("autoFixOnSave present = %v, migrated want %v", legacy, tt.wantMigrated)
			}
			v, _ := f.cfg.LayerValue(config.LayerUser, config.KeyMigration2x)
			if (v == "off") != tt.wantUserOff {
				t.Errorf("user migration.2_x = %v", v)
			}
			if (len(p.opened) == 1) != tt.wantOpened {
				t.Errorf("opened = %v", p.opened)
			}

			// A second read prompts again unless suppressed or migrated.
			_ = c.WithMigrationGate(context.Background(), f.resource(), f.root, func(context.Context) error { return nil })
			wantAsks := 2
			if tt.wantSuppressed || tt.wantMigrated {
				wantAsks = 1
			}
			if p.asks != wantAsks {
				t.Errorf("asked %d times, want %d", p.asks, wantAsks)
			}
		})
	}
}

func TestCoordinator_DisabledByConfig(t *testing.T) {
	f := newFixture(t, "[eslint.migration]\n2_x = \"off\"\n", legacyWorkspace)
	p := &scriptedPrompter{answer: ChoiceYes}
	c := NewCoordinator(f.cfg, p, nil)

	if err := c.WithMigrationGate(context.Background(), f.resource(), f.root, func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if p.asks != 0 {
		t.Errorf("asked %d times with migration off", p.asks)
	}
}

func TestCoordinator_ContinuationError(t *testing.T) {
	f := newFixture(t, "", "")
	c := NewCoordinator(f.cfg, &scriptedPrompter{}, nil)
	want := errors.New("read failed")
	if err := c.WithMigrationGate(context.Background(), f.resource(), f.root, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
	if c.gate.Held() {
		t.Error("gate held after fn error")
	}
}

func TestCoordinator_CancelledWaitStillReads(t *testing.T) {
	f := newFixture(t, "", "")
	c := NewCoordinator(f.cfg, &scriptedPrompter{}, nil)

	release, _ := c.gate.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	calls := 0
	_ = c.WithMigrationGate(ctx, f.resource(), f.root, func(context.Context) error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestCoordinator_MigrateFolder(t *testing.T) {
	f := newFixture(t, "", legacyWorkspace)
	p := &scriptedPrompter{}
	c := NewCoordinator(f.cfg, p, nil)

	migrated, err := c.MigrateFolder(context.Background(), f.root)
	if err != nil || !migrated {
		t.Fatalf("MigrateFolder() = %v, %v", migrated, err)
	}
	if p.asks != 0 {
		t.Error("manual migration must not prompt")
	}
	got, _ := f.cfg.LayerValue(config.LayerWorkspace, config.KeyEditorCodeActionsOnSave)
	if m, ok := got.(map[string]any); !ok || m["source.fixAll.eslint"] != true {
		t.Errorf("codeActionsOnSave = %v", got)
	}

	migrated, err = c.MigrateFolder(context.Background(), f.root)
	if err != nil || migrated {
		t.Errorf("second MigrateFolder() = %v, %v", migrated, err)
	}
}

// failingStore makes every write fail.
type failingStore struct {
	*config.Config
}

func (failingStore) Set(string, string, any) error { return errors.New("disk full") }

func TestCoordinator_MigrationFailureNotifies(t *testing.T) {
	f := newFixture(t, "", legacyWorkspace)
	p := &scriptedPrompter{answer: ChoiceYes}
	c := NewCoordinator(failingStore{f.cfg}, p, nil)

	calls := 0
	if err := c.WithMigrationGate(context.Background(), f.resource(), f.root, func(context.Context) error {
		calls++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times", calls)
	}
	if len(p.notified) != 1 {
		t.Errorf("notifications = %v, want one error", p.notified)
	}
	if c.Suppressed() {
		t.Error("a failed migration must not suppress")
	}
}

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/lintbridge/internal/config/layer"
	"github.com/dshills/lintbridge/internal/config/loader"
	"github.com/dshills/lintbridge/internal/config/notify"
	"github.com/dshills/lintbridge/internal/config/schema"
	"github.com/dshills/lintbridge/internal/config/watcher"
	"github.com/dshills/lintbridge/internal/logging"
)

// Well-known layer names.
const (
	LayerBuiltin   = "builtin"
	LayerUser      = "user"
	LayerWorkspace = "workspace"
	LayerEnv       = "environment"
)

// settingsDirName is the per-workspace directory holding settings files.
const settingsDirName = ".lintbridge"

// Config provides unified access to the lintbridge configuration store.
// It manages configuration loading, validation, live reloading, and change notification.
type Config struct {
	mu sync.RWMutex

	// Layer manager for merged configuration
	layers *layer.Manager

	// Schema validator
	validator *schema.Validator

	// File watcher for live reload
	watcher *watcher.Watcher

	// Change notifier
	notifier *notify.Notifier

	fs  loader.FileSystem
	log *logging.Logger

	// Configuration paths
	userConfigDir string
	workspaceRoot string
	folders       []string

	// Options
	enableWatcher bool
	enableSchema  bool
	enableEnv     bool
}

// Option configures a Config instance.
type Option func(*Config)

// WithUserConfigDir sets the user configuration directory.
func WithUserConfigDir(dir string) Option {
	return func(c *Config) {
		c.userConfigDir = dir
	}
}

// WithWorkspaceRoot sets the workspace root whose .lintbridge directory
// holds the workspace layer.
func WithWorkspaceRoot(dir string) Option {
	return func(c *Config) {
		c.workspaceRoot = filepath.Clean(dir)
	}
}

// WithFolders sets the workspace folders. Each gets its own scoped layer.
func WithFolders(folders ...string) Option {
	return func(c *Config) {
		for _, f := range folders {
			c.folders = append(c.folders, filepath.Clean(f))
		}
	}
}

// WithWatcher enables file watching for live reload.
func WithWatcher(enable bool) Option {
	return func(c *Config) {
		c.enableWatcher = enable
	}
}

// WithSchemaValidation enables schema validation of loaded files.
func WithSchemaValidation(enable bool) Option {
	return func(c *Config) {
		c.enableSchema = enable
	}
}

// WithEnvironment controls whether LINTBRIDGE_* variables form a layer.
func WithEnvironment(enable bool) Option {
	return func(c *Config) {
		c.enableEnv = enable
	}
}

// WithFileSystem sets the file system used to read and write settings files.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fsys
	}
}

// WithLogger sets the logger for load and reload diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(c *Config) {
		c.log = l
	}
}

// New creates a new Config instance with the given options.
func New(opts ...Option) *Config {
	c := &Config{
		layers:        layer.NewManager(),
		notifier:      notify.New(),
		fs:            loader.DefaultFS(),
		log:           logging.Nop(),
		enableWatcher: true,
		enableSchema:  true,
		enableEnv:     true,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.userConfigDir == "" {
		c.userConfigDir = defaultUserConfigDir()
	}
	c.log = c.log.WithComponent("config")

	if c.enableSchema {
		v, err := schema.NewValidator()
		if err != nil {
			c.log.Warn("settings schema unavailable: %v", err)
		} else {
			c.validator = v
		}
	}

	return c
}

// Load loads configuration from all sources and starts the watcher.
func (c *Config) Load(_ context.Context) error {
	c.mu.Lock()

	builtin := layer.New(LayerBuiltin, layer.SourceBuiltin, defaultConfig())
	builtin.ReadOnly = true
	c.layers.Add(builtin)

	var paths []string
	path, err := c.loadFileLayer(LayerUser, layer.SourceUser, "", c.userConfigDir)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	paths = append(paths, path)

	if c.workspaceRoot != "" {
		path, err := c.loadFileLayer(LayerWorkspace, layer.SourceWorkspace, "", filepath.Join(c.workspaceRoot, settingsDirName))
		if err != nil {
			c.mu.Unlock()
			return err
		}
		paths = append(paths, path)
	}

	for _, folder := range c.folders {
		if folder == c.workspaceRoot {
			continue
		}
		path, err := c.loadFileLayer(layer.FolderName(folder), layer.SourceFolder, folder, filepath.Join(folder, settingsDirName))
		if err != nil {
			c.mu.Unlock()
			return err
		}
		paths = append(paths, path)
	}

	if c.enableEnv {
		data, err := loader.NewEnvLoader(loader.EnvPrefix).Load()
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("loading environment: %w", err)
		}
		if len(data) > 0 {
			env := layer.New(LayerEnv, layer.SourceEnv, data)
			env.ReadOnly = true
			c.layers.Add(env)
		}
	}
	enableWatcher := c.enableWatcher
	c.mu.Unlock()

	// Start the watcher outside the lock; its callbacks acquire it.
	if enableWatcher {
		c.startWatcher(paths)
	}
	return nil
}

// Close shuts down the configuration system.
func (c *Config) Close() {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
	c.notifier.Close()
}

// Folders returns the configured workspace folders.
func (c *Config) Folders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.folders...)
}

// WorkspaceRoot returns the workspace root, or "" when none is configured.
func (c *Config) WorkspaceRoot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workspaceRoot
}

// FolderFor returns the innermost workspace folder containing path, or ""
// when path lies outside every folder.
func (c *Config) FolderFor(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path = filepath.Clean(path)
	best := ""
	for _, folder := range c.folders {
		if path != folder && !strings.HasPrefix(path, folder+string(filepath.Separator)) {
			continue
		}
		if len(folder) > len(best) {
			best = folder
		}
	}
	return best
}

// Scope returns a snapshot of the settings that apply to documents of the
// given language inside folder. Either argument may be empty.
func (c *Config) Scope(folder, languageID string) *Scope {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data := c.layers.MergeScope(folder)
	if languageID != "" {
		if override, ok := layer.GetByPath(data, "languages."+languageID); ok {
			if m, ok := override.(map[string]any); ok {
				data = layer.DeepMerge(data, m)
			}
		}
	}
	return &Scope{data: data, folder: folder, language: languageID}
}

// LayerValue returns the value stored at path in a single layer.
func (c *Config) LayerValue(layerName, path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.layers.Value(layerName, path)
}

// FolderLayer returns the name of the writable layer for a workspace folder.
// The workspace root itself maps to the workspace layer.
func (c *Config) FolderLayer(folder string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if folder != "" && folder == c.workspaceRoot {
		return LayerWorkspace
	}
	return layer.FolderName(folder)
}

// WritableLayers returns the names of the writable layers that apply to
// folder, lowest priority first.
func (c *Config) WritableLayers(folder string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var names []string
	for _, l := range c.layers.Layers() {
		if l.Source.Writable() && !l.ReadOnly && l.AppliesTo(folder) {
			names = append(names, l.Name)
		}
	}
	return names
}

// Set sets a value in the named layer and notifies subscribers.
func (c *Config) Set(layerName, path string, value any) error {
	c.mu.Lock()
	err := c.layers.Set(layerName, path, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.notifier.Notify(notify.Change{Type: notify.ChangeSet, Layer: layerName, Paths: []string{path}})
	return nil
}

// Delete removes a value from the named layer and notifies subscribers.
func (c *Config) Delete(layerName, path string) error {
	c.mu.Lock()
	_, existed := c.layers.Value(layerName, path)
	err := c.layers.Delete(layerName, path)
	c.mu.Unlock()
	if err != nil || !existed {
		return err
	}

	c.notifier.Notify(notify.Change{Type: notify.ChangeDelete, Layer: layerName, Paths: []string{path}})
	return nil
}

// Save writes the named layer to its settings file.
func (c *Config) Save(layerName string) error {
	c.mu.RLock()
	l := c.layers.Layer(layerName)
	if l == nil {
		c.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrLayerNotFound, layerName)
	}
	path := l.Path
	data := l.Clone().Data
	c.mu.RUnlock()

	if path == "" {
		return fmt.Errorf("%w: %s", ErrNotPersistent, layerName)
	}
	return loader.NewFileLoaderWithFS(c.fs, path).Save(data)
}

// Subscribe registers an observer for all configuration changes.
func (c *Config) Subscribe(observer notify.Observer) *notify.Subscription {
	return c.notifier.Subscribe(observer)
}

// SubscribeSection registers an observer for changes affecting section.
func (c *Config) SubscribeSection(section string, observer notify.Observer) *notify.Subscription {
	return c.notifier.SubscribeSection(section, observer)
}

// Reload re-reads the settings file at path and notifies subscribers of
// the paths that changed. Unknown paths are ignored.
func (c *Config) Reload(path string) error {
	c.mu.Lock()
	l := c.layerForFile(path)
	if l == nil {
		c.mu.Unlock()
		return nil
	}

	data, err := c.readSettings(l.Path)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	changed := layer.ChangedPaths(l.Data, data)
	if err := c.layers.Replace(l.Name, data); err != nil {
		c.mu.Unlock()
		return err
	}
	name := l.Name
	c.mu.Unlock()

	if len(changed) == 0 {
		return nil
	}
	c.log.Debug("reloaded %s: %d setting(s) changed", path, len(changed))
	c.notifier.Notify(notify.Change{Type: notify.ChangeReload, Layer: name, Paths: changed})
	return nil
}

// loadFileLayer adds a file-backed layer for dir and returns the settings
// file path it is bound to. A missing file yields an empty layer so that
// the layer stays writable. Must be called with c.mu held.
func (c *Config) loadFileLayer(name string, source layer.Source, scope, dir string) (string, error) {
	path := c.settingsPath(dir)
	data, err := c.readSettings(path)
	if err != nil {
		var perr *loader.ParseError
		if !errors.As(err, &perr) {
			return "", err
		}
		// A malformed file must not take the client down.
		c.log.Error("%v", err)
		data = make(map[string]any)
	}

	l := layer.New(name, source, data)
	l.Scope = scope
	l.Path = path
	c.layers.Add(l)
	return path, nil
}

// readSettings loads and validates a settings file.
func (c *Config) readSettings(path string) (map[string]any, error) {
	data, err := loader.NewFileLoaderWithFS(c.fs, path).Load()
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = make(map[string]any)
	}

	if c.validator != nil {
		if err := c.validator.Validate(data); err != nil {
			c.log.Warn("invalid settings in %s: %v", path, err)
		}
	}
	return data, nil
}

// settingsPath picks settings.toml, falling back to an existing
// settings.yaml or settings.yml.
func (c *Config) settingsPath(dir string) string {
	tomlPath := filepath.Join(dir, "settings.toml")
	if _, err := c.fs.Stat(tomlPath); err == nil {
		return tomlPath
	}
	for _, name := range []string{"settings.yaml", "settings.yml"} {
		p := filepath.Join(dir, name)
		if _, err := c.fs.Stat(p); err == nil {
			return p
		}
	}
	return tomlPath
}

// layerForFile finds the file-backed layer bound to path.
func (c *Config) layerForFile(path string) *layer.Layer {
	path = filepath.Clean(path)
	for _, l := range c.layers.Layers() {
		if l.Path != "" && filepath.Clean(l.Path) == path {
			return l
		}
	}
	return nil
}

func (c *Config) startWatcher(paths []string) {
	w, err := watcher.New(c.handleFileChange, watcher.WithErrorHandler(func(err error) {
		c.log.Warn("settings watcher: %v", err)
	}))
	if err != nil {
		c.log.Warn("live reload disabled: %v", err)
		return
	}

	sort.Strings(paths)
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			c.log.Debug("not watching %s: %v", p, err)
		}
	}

	c.mu.Lock()
	c.watcher = w
	c.mu.Unlock()
}

// handleFileChange handles file change events from the watcher.
func (c *Config) handleFileChange(event watcher.Event) {
	if err := c.Reload(event.Path); err != nil {
		c.log.Error("reloading %s: %v", event.Path, err)
	}
}

// defaultUserConfigDir returns the default user configuration directory.
func defaultUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lintbridge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lintbridge")
}

// Package config provides the configuration store for lintbridge.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  6. Session overrides       │  ← Highest priority
//	├─────────────────────────────┤
//	│  5. Environment Variables   │  ← LINTBRIDGE_*
//	├─────────────────────────────┤
//	│  4. Workspace Folder        │  ← <folder>/.lintbridge/settings.toml
//	├─────────────────────────────┤
//	│  3. Workspace               │  ← <root>/.lintbridge/settings.toml
//	├─────────────────────────────┤
//	│  2. User Settings           │  ← ~/.config/lintbridge/settings.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Folder layers only apply to documents inside their folder. Any settings
// file may be written as YAML instead (settings.yaml); when both exist the
// TOML file wins.
//
// # Reading settings
//
// Reads go through a Scope, a snapshot of the merged configuration for one
// workspace folder and language:
//
//	scope := cfg.Scope("/ws/app", "typescript")
//	if scope.Bool(config.KeyEnable, true) {
//	    ...
//	}
//
// Language overrides live under languages.<id> and are applied on top of the
// merged folder view.
//
// # Writing settings
//
// The user, workspace and folder layers are writable. Set and Delete mutate a
// layer in memory and notify subscribers; Save persists the layer to its file
// in the file's format.
//
// # Change notification
//
//	sub := cfg.SubscribeSection("eslint", func(c notify.Change) {
//	    log.Info("eslint settings changed: %v", c.Paths)
//	})
//	defer sub.Unsubscribe()
package config

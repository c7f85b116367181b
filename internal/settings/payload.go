// Package settings builds the per-document settings payload answered to
// workspace/configuration, including working directory and rule
// customization resolution.
package settings

import (
	"path/filepath"

	"github.com/dshills/lintbridge/internal/config"
	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/validate"
)

// Code actions that enable fix-on-save.
const (
	ActionFixAllESLint = "source.fixAll.eslint"
	ActionFixAll       = "source.fixAll"
)

// CodeActionOnSave configures fixes applied on save.
type CodeActionOnSave struct {
	Enable bool     `json:"enable"`
	Mode   string   `json:"mode"`
	Rules  []string `json:"rules,omitempty"`
}

// Problems configures how problems are reported.
type Problems struct {
	ShortenToSingleLine bool `json:"shortenToSingleLine"`
}

// DisableRuleComment configures the "disable rule" code action.
type DisableRuleComment struct {
	Enable       bool   `json:"enable"`
	Location     string `json:"location"`
	CommentStyle string `json:"commentStyle"`
}

// ShowDocumentation configures the "show documentation" code action.
type ShowDocumentation struct {
	Enable bool `json:"enable"`
}

// CodeAction groups the code action settings.
type CodeAction struct {
	DisableRuleComment DisableRuleComment `json:"disableRuleComment"`
	ShowDocumentation  ShowDocumentation  `json:"showDocumentation"`
}

// Settings is the payload answered for one document.
type Settings struct {
	Validate            string               `json:"validate"`
	PackageManager      string               `json:"packageManager"`
	UseESLintClass      bool                 `json:"useESLintClass"`
	UseFlatConfig       *bool                `json:"useFlatConfig,omitempty"`
	CodeActionOnSave    CodeActionOnSave     `json:"codeActionOnSave"`
	Format              bool                 `json:"format"`
	Quiet               bool                 `json:"quiet"`
	OnIgnoredFiles      string               `json:"onIgnoredFiles"`
	Options             map[string]any       `json:"options"`
	RulesCustomizations []RuleCustomization  `json:"rulesCustomizations"`
	Run                 string               `json:"run"`
	Problems            Problems             `json:"problems"`
	NodePath            *string              `json:"nodePath"`
	WorkspaceFolder     *lsp.WorkspaceFolder `json:"workspaceFolder,omitempty"`
	WorkingDirectory    *WorkingDirectory    `json:"workingDirectory,omitempty"`
	CodeAction          CodeAction           `json:"codeAction"`
}

// Target is the document a payload is built for. Folder is nil for
// documents outside every workspace folder.
type Target struct {
	Document lsp.TextDocument
	Folder   *lsp.WorkspaceFolder
	Decision validate.Decision
}

// Build assembles the settings payload for target from scope.
func Build(scope *config.Scope, target Target) Settings {
	s := Settings{
		Validate:       target.Decision.String(),
		PackageManager: scope.String(config.KeyPackageManager, "npm"),
		UseESLintClass: scope.Bool(config.KeyUseESLintClass, false),
		CodeActionOnSave: CodeActionOnSave{
			Enable: CodeActionOnSaveEnabled(scope),
			Mode:   scope.String(config.KeyCodeActionsOnSaveMode, "all"),
			Rules:  scope.Strings(config.KeyCodeActionsOnSaveRules),
		},
		Format:              scope.Bool(config.KeyFormatEnable, false),
		Quiet:               scope.Bool(config.KeyQuiet, false),
		OnIgnoredFiles:      scope.String(config.KeyOnIgnoredFiles, "off"),
		Options:             scope.Map(config.KeyOptions),
		RulesCustomizations: ResolveRuleCustomizations(scope, target.Document.URI),
		Run:                 scope.String(config.KeyRun, "onType"),
		Problems: Problems{
			ShortenToSingleLine: scope.Bool(config.KeyShortenToSingleLine, false),
		},
		WorkspaceFolder: target.Folder,
		CodeAction: CodeAction{
			DisableRuleComment: DisableRuleComment{
				Enable:       scope.Bool(config.KeyDisableRuleEnable, true),
				Location:     scope.String(config.KeyDisableRuleLocation, "separateLine"),
				CommentStyle: scope.String(config.KeyDisableRuleCommentStyle, "line"),
			},
			ShowDocumentation: ShowDocumentation{
				Enable: scope.Bool(config.KeyShowDocumentation, true),
			},
		},
	}
	if s.Options == nil {
		s.Options = map[string]any{}
	}
	if flat, err := scope.GetBool(config.KeyUseFlatConfig); err == nil {
		s.UseFlatConfig = &flat
	}

	var folderPath string
	if target.Folder != nil {
		folderPath = lsp.URIToFilePath(target.Folder.URI)
	}

	if nodePath := scope.String(config.KeyNodePath, ""); nodePath != "" {
		if !filepath.IsAbs(nodePath) && folderPath != "" {
			nodePath = filepath.Join(folderPath, nodePath)
		}
		s.NodePath = &nodePath
	}

	if raw, ok := scope.Value(config.KeyWorkingDirectories); ok {
		s.WorkingDirectory = ResolveWorkingDirectory(target.Document.Path(), folderPath, ParseRules(raw))
	}
	return s
}

// CodeActionOnSaveEnabled derives fix-on-save from the effective
// editor.codeActionsOnSave. The array form enables it when it lists a
// fix-all action. The object form looks at source.fixAll.eslint and then
// source.fixAll; a missing key means disabled.
func CodeActionOnSaveEnabled(scope *config.Scope) bool {
	raw, ok := scope.Value(config.KeyEditorCodeActionsOnSave)
	if !ok {
		return false
	}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if item == ActionFixAllESLint || item == ActionFixAll {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == ActionFixAllESLint || item == ActionFixAll {
				return true
			}
		}
	case map[string]any:
		value, ok := v[ActionFixAllESLint]
		if !ok {
			value, ok = v[ActionFixAll]
		}
		if ok {
			return isEnabledValue(value)
		}
	}
	return false
}

func isEnabledValue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "explicit" || val == "always"
	default:
		return false
	}
}

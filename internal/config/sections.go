package config

import "math"

// Setting keys read by lintbridge.
const (
	KeyEnable                  = "eslint.enable"
	KeyIgnoreUntitled          = "eslint.ignoreUntitled"
	KeyValidate                = "eslint.validate"
	KeyProbe                   = "eslint.probe"
	KeyRun                     = "eslint.run"
	KeyPackageManager          = "eslint.packageManager"
	KeyNodePath                = "eslint.nodePath"
	KeyQuiet                   = "eslint.quiet"
	KeyOnIgnoredFiles          = "eslint.onIgnoredFiles"
	KeyOptions                 = "eslint.options"
	KeyFormatEnable            = "eslint.format.enable"
	KeyUseESLintClass          = "eslint.useESLintClass"
	KeyUseFlatConfig           = "eslint.useFlatConfig"
	KeyWorkingDirectories      = "eslint.workingDirectories"
	KeyRuleCustomizations      = "eslint.rules.customizations"
	KeyNotebookCustomizations  = "eslint.notebooks.rules.customizations"
	KeyCodeActionsOnSaveMode   = "eslint.codeActionsOnSave.mode"
	KeyCodeActionsOnSaveRules  = "eslint.codeActionsOnSave.rules"
	KeyShortenToSingleLine     = "eslint.problems.shortenToSingleLine"
	KeyDisableRuleEnable       = "eslint.codeAction.disableRuleComment.enable"
	KeyDisableRuleLocation     = "eslint.codeAction.disableRuleComment.location"
	KeyDisableRuleCommentStyle = "eslint.codeAction.disableRuleComment.commentStyle"
	KeyShowDocumentation       = "eslint.codeAction.showDocumentation.enable"
	KeyAlwaysShowStatus        = "eslint.alwaysShowStatus"
	KeyTimeBudgetValidation    = "eslint.timeBudget.onValidation"
	KeyTimeBudgetFixes         = "eslint.timeBudget.onFixes"
	KeyMigration2x             = "eslint.migration.2_x"
	KeyTraceServer             = "eslint.trace.server"
	KeyAutoFixOnSave           = "eslint.autoFixOnSave"
	KeyEditorCodeActionsOnSave = "editor.codeActionsOnSave"
)

// DefaultProbe lists the languages probed when eslint.validate is empty.
var DefaultProbe = []string{
	"javascript", "javascriptreact", "typescript", "typescriptreact",
	"html", "vue", "markdown",
}

// TimeBudget holds warn and error thresholds in milliseconds.
type TimeBudget struct {
	Warn  int64
	Error int64
}

// Default budgets for validation and fix runs.
var (
	DefaultValidationBudget = TimeBudget{Warn: 4000, Error: 8000}
	DefaultFixesBudget      = TimeBudget{Warn: 3000, Error: 6000}
)

// TimeBudget reads a budget section. Missing values take the defaults and
// negative values mean the threshold is never crossed.
func (s *Scope) TimeBudget(key string, def TimeBudget) TimeBudget {
	b := TimeBudget{
		Warn:  s.Int(key+".warn", def.Warn),
		Error: s.Int(key+".error", def.Error),
	}
	if b.Warn < 0 {
		b.Warn = math.MaxInt64
	}
	if b.Error < 0 {
		b.Error = math.MaxInt64
	}
	return b
}

// defaultConfig returns the built-in configuration layer.
func defaultConfig() map[string]any {
	probe := make([]any, len(DefaultProbe))
	for i, lang := range DefaultProbe {
		probe[i] = lang
	}

	return map[string]any{
		"eslint": map[string]any{
			"enable":           true,
			"ignoreUntitled":   false,
			"probe":            probe,
			"validate":         []any{},
			"run":              "onType",
			"packageManager":   "npm",
			"quiet":            false,
			"onIgnoredFiles":   "off",
			"options":          map[string]any{},
			"useESLintClass":   false,
			"alwaysShowStatus": false,
			"format":           map[string]any{"enable": false},
			"codeActionsOnSave": map[string]any{
				"mode": "all",
			},
			"problems": map[string]any{"shortenToSingleLine": false},
			"codeAction": map[string]any{
				"disableRuleComment": map[string]any{
					"enable":       true,
					"location":     "separateLine",
					"commentStyle": "line",
				},
				"showDocumentation": map[string]any{"enable": true},
			},
			"rules":     map[string]any{"customizations": []any{}},
			"notebooks": map[string]any{"rules": map[string]any{"customizations": []any{}}},
			"timeBudget": map[string]any{
				"onValidation": map[string]any{
					"warn":  DefaultValidationBudget.Warn,
					"error": DefaultValidationBudget.Error,
				},
				"onFixes": map[string]any{
					"warn":  DefaultFixesBudget.Warn,
					"error": DefaultFixesBudget.Error,
				},
			},
			"migration": map[string]any{"2_x": "on"},
			"trace":     map[string]any{"server": "off"},
		},
	}
}

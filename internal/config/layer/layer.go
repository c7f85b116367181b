// Package layer stacks settings sources and merges them.
//
// Each source of settings (builtin defaults, the user file, the workspace
// file, one file per workspace folder, the environment) is a Layer. A merge
// applies layers from the lowest priority to the highest, so later sources
// override earlier ones key by key. Folder layers carry a Scope and only
// take part in merges requested for that folder.
package layer

// Source says where a layer's data comes from. Sources are declared in
// ascending priority order.
type Source uint8

const (
	SourceBuiltin Source = iota
	SourceUser
	SourceWorkspace
	SourceFolder
	SourceEnv
)

func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceUser:
		return "user"
	case SourceWorkspace:
		return "workspace"
	case SourceFolder:
		return "folder"
	case SourceEnv:
		return "environment"
	}
	return "unknown"
}

// Priority is the merge rank of layers from s.
func (s Source) Priority() int {
	return int(s) * 100
}

// Writable reports whether layers from s are backed by a settings file the
// user edits.
func (s Source) Writable() bool {
	return s == SourceUser || s == SourceWorkspace || s == SourceFolder
}

// Layer is one source of settings.
type Layer struct {
	Name     string
	Source   Source
	Priority int

	// Scope is the folder a folder layer applies to, empty otherwise.
	Scope string

	// Path is the backing settings file, if any.
	Path string

	Data     map[string]any
	ReadOnly bool
}

// New creates a layer ranked by its source. A nil data map is replaced by
// an empty one.
func New(name string, source Source, data map[string]any) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{Name: name, Source: source, Priority: source.Priority(), Data: data}
}

// FolderName is the layer name of a workspace folder.
func FolderName(folder string) string {
	return "folder:" + folder
}

// AppliesTo reports whether the layer takes part in merges for folder.
func (l *Layer) AppliesTo(folder string) bool {
	return l.Scope == "" || l.Scope == folder
}

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Data = cloneMap(l.Data)
	return &c
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}
	dst := make([]any, len(src))
	for i, v := range src {
		dst[i] = cloneValue(v)
	}
	return dst
}

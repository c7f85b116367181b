// Package loader reads and writes lintbridge settings files.
//
// Settings files are TOML or YAML, chosen by file extension. Environment
// variables with the LINTBRIDGE_ prefix form an additional read-only source.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a settings file encoding.
type Format uint8

const (
	// FormatTOML is the default settings format.
	FormatTOML Format = iota
	// FormatYAML is selected by .yaml and .yml extensions.
	FormatYAML
)

// String returns the conventional extension-less name of the format.
func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "toml"
}

// FormatForPath returns the format implied by the file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Loader is the interface for configuration loaders.
type Loader interface {
	// Load reads configuration from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// WriteFile replaces the file at path, creating parent directories.
	WriteFile(path string, data []byte) error
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// WriteFile writes data to a temporary sibling and renames it into place.
func (OSFS) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// FileLoader loads a settings file in whichever format its extension names.
type FileLoader struct {
	fs   FileSystem
	path string
}

// NewFileLoader creates a loader for path on the OS file system.
func NewFileLoader(path string) *FileLoader {
	return NewFileLoaderWithFS(DefaultFS(), path)
}

// NewFileLoaderWithFS creates a loader with a custom file system.
func NewFileLoaderWithFS(fsys FileSystem, path string) *FileLoader {
	return &FileLoader{fs: fsys, path: path}
}

// Path returns the file the loader reads.
func (l *FileLoader) Path() string {
	return l.path
}

// Load reads and decodes the file. A missing file yields nil, nil.
func (l *FileLoader) Load() (map[string]any, error) {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
	}
	return Decode(FormatForPath(l.path), l.path, data)
}

// Save encodes data in the file's format and writes it.
func (l *FileLoader) Save(data map[string]any) error {
	encoded, err := Encode(FormatForPath(l.path), data)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", l.path, err)
	}
	if err := l.fs.WriteFile(l.path, encoded); err != nil {
		return fmt.Errorf("writing config file %s: %w", l.path, err)
	}
	return nil
}

// Decode parses data in the given format. source names the input in errors.
func Decode(format Format, source string, data []byte) (map[string]any, error) {
	if format == FormatYAML {
		return parseYAML(source, data)
	}
	return parseTOML(source, data)
}

// Encode serializes a configuration map in the given format.
func Encode(format Format, data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	if format == FormatYAML {
		return encodeYAML(data)
	}
	return encodeTOML(data)
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

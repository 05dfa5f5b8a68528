package source

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

type file struct {
	path string
}

// File reads a plain UTF-8 text file.
func File(path string) Source {
	return file{path: path}
}

func (f file) Title() string  { return filepath.Base(f.path) }
func (f file) Detail() string { return f.path }

func (f file) Content() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", f.path)
	}
	return string(data), nil
}

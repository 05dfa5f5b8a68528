// Package source supplies the text content that gets paced.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// StdinArg is the path argument that reads content from standard input.
const StdinArg = "-"

// Source produces the full text to read, plus labels for listing it.
type Source interface {
	Title() string
	Detail() string
	Content() (string, error)
}

type text struct {
	title string
	body  string
}

// Text wraps in-memory content.
func Text(title, body string) Source {
	return text{title: title, body: body}
}

func (t text) Title() string            { return t.title }
func (t text) Detail() string           { return fmt.Sprintf("%d bytes", len(t.body)) }
func (t text) Content() (string, error) { return t.body, nil }

type readerSource struct {
	title string
	r     io.Reader

	once sync.Once
	body string
	err  error
}

// Reader reads r on first use and serves the cached content afterwards.
func Reader(title string, r io.Reader) Source {
	return &readerSource{title: title, r: r}
}

func (s *readerSource) Title() string  { return s.title }
func (s *readerSource) Detail() string { return "stream" }

func (s *readerSource) Content() (string, error) {
	s.once.Do(func() {
		data, err := io.ReadAll(s.r)
		if err != nil {
			s.err = fmt.Errorf("failed to read %s: %w", s.title, err)
			return
		}
		s.body = string(data)
	})
	return s.body, s.err
}

// Load resolves paths into sources. Directories contribute their regular,
// non-hidden files in name order; ".eml" files are read as email.
func Load(paths []string) ([]Source, error) {
	var sources []Source
	stdinUsed := false
	for _, path := range paths {
		if path == StdinArg {
			if stdinUsed {
				return nil, fmt.Errorf("stdin can only be read once")
			}
			stdinUsed = true
			sources = append(sources, Reader("stdin", os.Stdin))
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			sources = append(sources, fromPath(path))
			continue
		}
		dirSources, err := loadDir(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, dirSources...)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no readable sources found")
	}
	return sources, nil
}

func loadDir(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, fromPath(filepath.Join(dir, name)))
	}
	return sources, nil
}

func fromPath(path string) Source {
	if strings.EqualFold(filepath.Ext(path), ".eml") {
		return Email(path)
	}
	return File(path)
}

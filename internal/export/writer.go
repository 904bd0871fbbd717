package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgallion1/cookgest/internal/recipe"
)

// Writer stores records as <name><ext> files in one directory.
type Writer struct {
	dir    string
	format Format
}

// NewWriter creates a Writer for dir. Unknown formats fall back to JSON.
func NewWriter(dir string, format Format) *Writer {
	if format.IsUnknown() {
		format = FormatJSON
	}
	return &Writer{dir: dir, format: format}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Format returns the record encoding.
func (w *Writer) Format() Format { return w.format }

// Path returns the file path a record named name is stored at.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name+w.format.Ext())
}

// Write stores rec, creating the directory if needed, and returns the path.
// The file is replaced atomically.
func (w *Writer) Write(rec *recipe.Recipe) (string, error) {
	if err := checkName(rec.Name); err != nil {
		return "", recipe.IOFailure(rec.Name, "write record", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", recipe.IOFailure(rec.Name, "create output directory", err)
	}

	tmp, err := os.CreateTemp(w.dir, ".tmp-*"+w.format.Ext())
	if err != nil {
		return "", recipe.IOFailure(rec.Name, "create record", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, w.format, rec); err != nil {
		tmp.Close()
		return "", recipe.IOFailure(rec.Name, "write record", err)
	}
	if err := tmp.Close(); err != nil {
		return "", recipe.IOFailure(rec.Name, "write record", err)
	}

	path := w.Path(rec.Name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", recipe.IOFailure(rec.Name, "write record", err)
	}
	return path, nil
}

// Read loads the record stored under name.
func (w *Writer) Read(name string) (*recipe.Recipe, error) {
	if err := checkName(name); err != nil {
		return nil, recipe.IOFailure(name, "read record", err)
	}
	return Read(w.Path(name))
}

// Remove deletes the record stored under name.
func (w *Writer) Remove(name string) error {
	if err := checkName(name); err != nil {
		return recipe.IOFailure(name, "remove record", err)
	}
	if err := os.Remove(w.Path(name)); err != nil {
		return recipe.IOFailure(name, "remove record", err)
	}
	return nil
}

// List returns the names of stored records, sorted.
func (w *Writer) List() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, recipe.IOFailure("", "list records", err)
	}
	names := []string{}
	ext := w.format.Ext()
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, ext))
	}
	slices.Sort(names)
	return names, nil
}

// Read loads a record file, choosing the format from its extension.
func Read(path string) (*recipe.Recipe, error) {
	name := recipe.NameFromPath(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, recipe.IOFailure(name, "read record", err)
	}
	defer f.Close()

	rec, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, recipe.IOFailure(name, "read record", err)
	}
	return rec, nil
}

// ErrInvalidName marks a record name that cannot be used as a file name.
var ErrInvalidName = errors.New("invalid record name")

func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w %q: contains a path separator", ErrInvalidName, name)
	}
	return nil
}

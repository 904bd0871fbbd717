package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/cookgest/internal/recipe"
)

// Parser reads raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*recipe.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ReadFile opens path and reads it with the parser registered for its extension.
func ReadFile(path string) (*recipe.Document, error) {
	p, err := ForFile(path)
	if err != nil {
		return nil, recipe.IOFailure(recipe.NameFromPath(path), "open document", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, recipe.IOFailure(recipe.NameFromPath(path), "open document", err)
	}
	defer f.Close()
	return p.Parse(f, path)
}

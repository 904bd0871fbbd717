// Package export persists recipes as JSON or YAML records.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/cookgest/internal/recipe"
)

// Format is a record encoding.
type Format string

const (
	// FormatJSON writes 2-space indented JSON without HTML escaping.
	FormatJSON Format = "json"
	// FormatYAML writes 2-space indented YAML.
	FormatYAML Format = "yaml"
)

// IsUnknown reports whether f is not a supported format.
func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML:
		return false
	default:
		return true
	}
}

// Ext returns the file extension for records in this format.
func (f Format) Ext() string {
	return "." + string(f)
}

// SupportedFormats lists the format names accepted by ParseFormat.
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatYAML)}
}

// ParseFormat converts a user supplied name into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (supported: %s)", s, strings.Join(SupportedFormats(), ", "))
	}
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes rec to w.
func Encode(w io.Writer, f Format, rec *recipe.Recipe) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to serialize to JSON: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to serialize to YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", f)
	}
}

// Decode reads one record from r.
func Decode(r io.Reader, f Format) (*recipe.Recipe, error) {
	var rec recipe.Recipe
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", f)
	}
	return &rec, nil
}

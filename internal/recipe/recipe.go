package recipe

import (
	"path/filepath"
	"strings"
)

// Document is a source recipe file, fully read into memory.
type Document struct {
	Path  string   // Source path or upload filename
	Name  string   // Recipe name, derived from the file name
	Lines []string // Raw lines, title line included
}

// NewDocument builds a Document whose name is the file name without extension.
func NewDocument(path string, lines []string) *Document {
	return &Document{
		Path:  path,
		Name:  NameFromPath(path),
		Lines: lines,
	}
}

// NameFromPath strips directories and the last extension from a path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Section is the content found under one "##" heading.
type Section struct {
	Description string   `json:"desc"`
	Items       []string `json:"steps"`
}

// Sections is the heading-keyed view of a parsed document.
type Sections struct {
	Description string              // Text before the first heading
	ByHeading   map[string]*Section // Keyed by trimmed heading text
	Order       []string            // Headings in first-appearance order
	Duplicates  []string            // Headings that appeared more than once
}

// NewSections returns an empty section mapping.
func NewSections() *Sections {
	return &Sections{ByHeading: make(map[string]*Section)}
}

// Get returns the section stored under heading.
func (s *Sections) Get(heading string) (*Section, bool) {
	sec, ok := s.ByHeading[heading]
	return sec, ok
}

// SectionKind identifies the role a heading plays in a recipe.
type SectionKind int

const (
	KindQuantities SectionKind = iota + 1
	KindMaterials
	KindProcedure
	KindAdditional
)

// SectionKinds lists every kind in routing order.
var SectionKinds = []SectionKind{KindQuantities, KindMaterials, KindProcedure, KindAdditional}

func (k SectionKind) String() string {
	switch k {
	case KindQuantities:
		return "quantities"
	case KindMaterials:
		return "materials/tools"
	case KindProcedure:
		return "procedure"
	case KindAdditional:
		return "additional notes"
	}
	return "unknown"
}

// Recipe is the structured record produced for one document.
type Recipe struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"desc" yaml:"desc"`
	Ingredients Ingredients `json:"materials" yaml:"materials"`
	Steps       []string    `json:"steps" yaml:"steps"`
	Additional  []string    `json:"additional" yaml:"additional"`
}

// Ingredient is one material or tool used by a recipe.
type Ingredient struct {
	Name        string   `json:"-" yaml:"-"`
	Quantity    *string  `json:"quantity" yaml:"quantity"`
	Unit        *string  `json:"unit" yaml:"unit"`
	IsOptional  bool     `json:"is_optional" yaml:"is_optional"`
	Annotations []string `json:"tips" yaml:"tips"`
	Original    string   `json:"original" yaml:"original"`
}

// HasAnnotation reports whether tip is already attached, by exact text.
func (i *Ingredient) HasAnnotation(tip string) bool {
	for _, a := range i.Annotations {
		if a == tip {
			return true
		}
	}
	return false
}

// StrPtr returns a pointer to a copy of s.
func StrPtr(s string) *string {
	return &s
}

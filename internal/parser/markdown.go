package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/cookgest/internal/recipe"
)

const (
	headingMarker = "##"
	bulletDash    = "-"
	bulletStar    = "*"
)

// MarkdownParser reads recipe Markdown files line by line.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*recipe.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, recipe.IOFailure(recipe.NameFromPath(filename), "read document", err)
	}
	return recipe.NewDocument(filename, lines), nil
}

// ParseLines partitions document lines into heading-keyed sections.
//
// The first line is the title and is skipped. A "##" line opens a section,
// a line starting with "-" or "*" is an item of the open section, and any
// other non-blank line is appended to the open section's description, or to
// the document description before the first heading. A repeated heading
// replaces the earlier section and is recorded in Duplicates.
func ParseLines(lines []string) (*recipe.Sections, error) {
	out := recipe.NewSections()
	var current *recipe.Section

	for i, raw := range lines {
		if i == 0 {
			continue
		}
		line := formatText(raw)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, headingMarker):
			heading := headingText(line)
			if _, seen := out.ByHeading[heading]; seen {
				out.Duplicates = append(out.Duplicates, heading)
			} else {
				out.Order = append(out.Order, heading)
			}
			current = &recipe.Section{Items: []string{}}
			out.ByHeading[heading] = current

		case strings.HasPrefix(line, bulletDash) || strings.HasPrefix(line, bulletStar):
			if current == nil {
				return nil, recipe.Malformed("", "line %d: list item %q appears before any heading", i+1, line)
			}
			current.Items = append(current.Items, itemText(line))

		case current == nil:
			out.Description += line

		default:
			current.Description += line
		}
	}
	return out, nil
}

// formatText trims newlines, then spaces, from both ends.
func formatText(s string) string {
	return strings.Trim(strings.Trim(s, "\n"), " ")
}

func headingText(line string) string {
	return formatText(strings.TrimSpace(strings.TrimLeft(line, "#")))
}

func itemText(line string) string {
	return formatText(strings.TrimLeft(strings.TrimLeft(line, bulletDash), bulletStar))
}

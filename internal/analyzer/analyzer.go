// Package analyzer turns a recipe document into a structured Recipe.
package analyzer

import (
	"io"
	"log/slog"
	"strings"

	"github.com/dgallion1/cookgest/internal/extract"
	"github.com/dgallion1/cookgest/internal/parser"
	"github.com/dgallion1/cookgest/internal/recipe"
)

// Options controls how documents are analyzed.
type Options struct {
	// Headings maps heading text to the role of its section.
	// Nil uses DefaultHeadings.
	Headings map[string]recipe.SectionKind
	// Tables configures the extractor. Nil uses extract.DefaultTables.
	Tables *extract.Tables
	// RequireAll makes the procedure and additional notes sections mandatory.
	// The quantities and materials sections are always required.
	RequireAll bool
	// StripMarkup renders description, steps and notes as plain text.
	StripMarkup bool
}

// DefaultHeadings returns the HowToCook section names plus English aliases.
func DefaultHeadings() map[string]recipe.SectionKind {
	return map[string]recipe.SectionKind{
		"计算":               recipe.KindQuantities,
		"quantities":       recipe.KindQuantities,
		"必备原料和工具":          recipe.KindMaterials,
		"materials/tools":  recipe.KindMaterials,
		"操作":               recipe.KindProcedure,
		"procedure":        recipe.KindProcedure,
		"附加内容":             recipe.KindAdditional,
		"additional notes": recipe.KindAdditional,
	}
}

// DefaultOptions requires all four sections and keeps text verbatim.
func DefaultOptions() Options {
	return Options{RequireAll: true}
}

// Analyzer converts documents to recipes. It holds no per-document state
// and is safe for concurrent use.
type Analyzer struct {
	headings    map[string]recipe.SectionKind
	extractor   *extract.Extractor
	requireAll  bool
	stripMarkup bool
	log         *slog.Logger
}

// New creates an Analyzer. A nil logger discards warnings.
func New(opts Options, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	headings := opts.Headings
	if headings == nil {
		headings = DefaultHeadings()
	}
	tables := extract.DefaultTables()
	if opts.Tables != nil {
		tables = *opts.Tables
	}
	h := make(map[string]recipe.SectionKind, len(headings))
	for k, v := range headings {
		h[k] = v
	}
	return &Analyzer{
		headings:    h,
		extractor:   extract.NewExtractor(tables),
		requireAll:  opts.RequireAll,
		stripMarkup: opts.StripMarkup,
		log:         log,
	}
}

// AnalyzeReader reads a Markdown document from r and analyzes it.
func (a *Analyzer) AnalyzeReader(r io.Reader, filename string) (*recipe.Recipe, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		p = &parser.MarkdownParser{}
	}
	doc, err := p.Parse(r, filename)
	if err != nil {
		return nil, err
	}
	return a.Analyze(doc)
}

// Analyze builds the Recipe for doc. It fails with a MALFORMED_DOCUMENT
// error when the layout is broken or a required section is missing.
func (a *Analyzer) Analyze(doc *recipe.Document) (*recipe.Recipe, error) {
	rec, _, err := a.AnalyzeWithWarnings(doc)
	return rec, err
}

// AnalyzeWithWarnings is Analyze that also returns the EXTRACTION_AMBIGUOUS
// warnings raised for individual lines. Warnings are logged either way.
func (a *Analyzer) AnalyzeWithWarnings(doc *recipe.Document) (*recipe.Recipe, []error, error) {
	log := a.log.With("document", doc.Name)

	secs, err := parser.ParseLines(doc.Lines)
	if err != nil {
		return nil, nil, recipe.WithDocument(err, doc.Name)
	}
	for _, h := range secs.Duplicates {
		log.Warn("duplicate heading, last section kept", "heading", h)
	}

	routed := a.route(secs, log)
	for _, kind := range recipe.SectionKinds {
		if routed[kind] == nil && a.required(kind) {
			return nil, nil, recipe.MissingSection(doc.Name, kind)
		}
	}

	var warnings []error
	warn := func(msg string, err error) {
		log.Warn(msg, "error", err)
		warnings = append(warnings, err)
	}

	quantified := recipe.NewIngredients()
	unquantified := recipe.NewIngredients()
	for _, kind := range recipe.SectionKinds {
		sec := routed[kind]
		if sec == nil {
			continue
		}
		switch kind {
		case recipe.KindQuantities:
			for _, line := range sec.Items {
				if isBlankItem(line) {
					warn("empty item skipped", recipe.Ambiguous(line, "empty quantities item"))
					continue
				}
				res := a.extractor.Quantity(line)
				for _, w := range res.Warnings {
					warn("quantity extraction", w)
				}
				quantified.Put(res.Ingredient)
			}
		case recipe.KindMaterials:
			for _, line := range sec.Items {
				if isBlankItem(line) {
					warn("empty item skipped", recipe.Ambiguous(line, "empty materials item"))
					continue
				}
				unquantified.Put(a.extractor.Material(line))
			}
		case recipe.KindProcedure, recipe.KindAdditional:
		}
	}

	return &recipe.Recipe{
		Name:        doc.Name,
		Description: a.text(secs.Description),
		Ingredients: *Merge(quantified, unquantified),
		Steps:       a.lines(routed[recipe.KindProcedure]),
		Additional:  a.lines(routed[recipe.KindAdditional]),
	}, warnings, nil
}

// isBlankItem reports whether a list line has nothing left once its bullet
// markers are removed.
func isBlankItem(line string) bool {
	return strings.TrimSpace(extract.StripBullets(line)) == ""
}

// route picks the section for each kind. When several headings map to the
// same kind the first in document order is used.
func (a *Analyzer) route(secs *recipe.Sections, log *slog.Logger) map[recipe.SectionKind]*recipe.Section {
	out := make(map[recipe.SectionKind]*recipe.Section, len(recipe.SectionKinds))
	for _, heading := range secs.Order {
		kind, ok := a.headings[heading]
		if !ok {
			continue
		}
		if _, taken := out[kind]; taken {
			log.Warn("heading ignored, section already routed", "heading", heading, "kind", kind.String())
			continue
		}
		out[kind] = secs.ByHeading[heading]
	}
	return out
}

func (a *Analyzer) required(kind recipe.SectionKind) bool {
	switch kind {
	case recipe.KindQuantities, recipe.KindMaterials:
		return true
	case recipe.KindProcedure, recipe.KindAdditional:
		return a.requireAll
	}
	return false
}

func (a *Analyzer) lines(sec *recipe.Section) []string {
	out := []string{}
	if sec == nil {
		return out
	}
	for _, item := range sec.Items {
		out = append(out, a.text(extract.StripBullets(item)))
	}
	return out
}

func (a *Analyzer) text(s string) string {
	if a.stripMarkup {
		return parser.PlainText(s)
	}
	return s
}

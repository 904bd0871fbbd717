// Package extract pulls quantity, unit, notes and optionality out of a
// single ingredient line.
package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/cookgest/internal/recipe"
)

type charClass uint8

const (
	classDelimiter charClass = 1 << iota
	classConnector
	classOpen
	classClose
)

// Extractor scans ingredient lines. It is safe for concurrent use.
type Extractor struct {
	classes   map[rune]charClass
	units     map[string]string
	labelSeps []string
	optional  []string
	closers   string
}

// Result is the outcome of scanning one quantity line.
type Result struct {
	Ingredient recipe.Ingredient
	Warnings   []error
}

// NewExtractor builds an Extractor from t.
func NewExtractor(t Tables) *Extractor {
	e := &Extractor{
		classes:   make(map[rune]charClass),
		units:     make(map[string]string, len(t.Units)),
		labelSeps: append([]string(nil), t.LabelSeparators...),
		closers:   " \t\n" + string(t.AnnotationClose),
	}
	mark := func(runes []rune, c charClass) {
		for _, r := range runes {
			e.classes[r] |= c
		}
	}
	mark(t.Delimiters, classDelimiter)
	mark(t.Connectors, classConnector)
	mark(t.AnnotationOpen, classOpen)
	mark(t.AnnotationClose, classClose)
	for k, v := range t.Units {
		e.units[k] = v
	}
	for _, m := range t.OptionalMarkers {
		e.optional = append(e.optional, strings.ToLower(m))
	}
	return e
}

func (e *Extractor) is(r rune, c charClass) bool {
	return e.classes[r]&c != 0
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func digitAt(runes []rune, i int) bool {
	return i < len(runes) && isDigit(runes[i])
}

// Quantity extracts an ingredient from a line of the quantities section.
// It never fails; lines it cannot fully resolve come back with warnings.
func (e *Extractor) Quantity(line string) Result {
	item := []rune(norm.NFC.String(StripEmoji(line)))
	ing := recipe.Ingredient{Original: line}
	var warnings []error

	tips, unclosed := e.annotations(item)
	ing.Annotations = tips
	ing.IsOptional = e.isOptional(tips)
	if unclosed {
		warnings = append(warnings, recipe.Ambiguous(line, "unclosed annotation"))
	}

	sp := e.scan(item)
	if sp.anchor < 0 {
		ing.Name = strings.TrimSpace(string(item[:e.indexOpen(item)]))
		if ing.Name == "" {
			ing.Name = strings.TrimSpace(line)
			warnings = append(warnings, recipe.Ambiguous(line, "no ingredient name"))
		}
		return Result{Ingredient: ing, Warnings: warnings}
	}

	qty := string(item[sp.anchor:sp.qtyEnd])
	unit := []rune(strings.TrimSpace(string(item[sp.unitStart:sp.unitEnd])))
	if len(unit) > 0 && e.is(unit[0], classConnector) {
		n := numberEnd(unit, 1)
		qty += string(unit[:n])
		unit = unit[n:]
	}
	unitText := e.normalizeUnit(strings.Trim(string(unit), e.closers))
	if unitText == "" {
		warnings = append(warnings, recipe.Ambiguous(line, "no unit after quantity"))
	}
	ing.Quantity = recipe.StrPtr(qty)
	ing.Unit = recipe.StrPtr(unitText)

	name := strings.TrimSpace(e.cutLabel(string(item[:sp.anchor])))
	if name == "" {
		rest := item[sp.unitEnd:]
		name = strings.TrimSpace(e.cutLabel(string(rest[:e.indexOpen(rest)])))
	}
	if name == "" {
		name = strings.TrimSpace(line)
		warnings = append(warnings, recipe.Ambiguous(line, "no ingredient name"))
	}
	ing.Name = name
	return Result{Ingredient: ing, Warnings: warnings}
}

// Material extracts an ingredient from a line of the materials section.
// Such lines carry no quantity or unit.
func (e *Extractor) Material(line string) recipe.Ingredient {
	item := strings.TrimSpace(strings.Trim(line, "-"))
	runes := []rune(item)
	tips, _ := e.annotations(runes)

	name := strings.TrimSpace(string(runes[:e.indexOpen(runes)]))
	if name == "" {
		name = item
	}
	return recipe.Ingredient{
		Name:        name,
		IsOptional:  e.isOptional(tips),
		Annotations: tips,
		Original:    line,
	}
}

// StripBullets trims list markers from both ends of a procedure or notes line.
func StripBullets(line string) string {
	return strings.Trim(strings.Trim(line, "-"), "*")
}

type scanState int

const (
	stateName   scanState = iota // looking for the first digit
	stateNumber                  // inside the quantity
	stateGap                     // one optional space before the unit
	stateUnit                    // inside the unit token
	stateDone
)

// span holds rune offsets of the tokens found by scan.
type span struct {
	anchor    int // -1 when the line has no digits
	qtyEnd    int
	unitStart int
	unitEnd   int
}

// scan runs the quantity state machine over item. A number is a digit run
// that may contain one decimal point and may continue across a connector
// directly followed by a digit. The unit ends at the first delimiter.
func (e *Extractor) scan(item []rune) span {
	sp := span{anchor: -1}
	state := stateName
	sawPoint := false
	i := 0
	for state != stateDone {
		r := rune(-1)
		if i < len(item) {
			r = item[i]
		}
		switch state {
		case stateName:
			switch {
			case r < 0:
				state = stateDone
				continue
			case isDigit(r):
				sp.anchor = i
				state = stateNumber
			}
		case stateNumber:
			switch {
			case isDigit(r):
			case r == '.' && !sawPoint && digitAt(item, i+1):
				sawPoint = true
			case r >= 0 && e.is(r, classConnector) && digitAt(item, i+1):
				sawPoint = false
			default:
				sp.qtyEnd = i
				state = stateGap
				continue
			}
		case stateGap:
			state = stateUnit
			if r != ' ' {
				sp.unitStart = i
				continue
			}
			sp.unitStart = i + 1
		case stateUnit:
			if r < 0 || e.is(r, classDelimiter) {
				sp.unitEnd = i
				state = stateDone
				continue
			}
		}
		i++
	}
	return sp
}

// numberEnd returns the end of the digit run (with optional decimal part)
// starting at i.
func numberEnd(runes []rune, i int) int {
	for digitAt(runes, i) {
		i++
	}
	if i+1 < len(runes) && runes[i] == '.' && isDigit(runes[i+1]) {
		i++
		for digitAt(runes, i) {
			i++
		}
	}
	return i
}

// annotations returns the trimmed contents of every top-level bracketed span.
// unclosed reports an opener left without a closer.
func (e *Extractor) annotations(item []rune) (tips []string, unclosed bool) {
	tips = []string{}
	depth, start := 0, 0
	for i, r := range item {
		switch {
		case e.is(r, classOpen):
			if depth == 0 {
				start = i + 1
			}
			depth++
		case e.is(r, classClose) && depth > 0:
			depth--
			if depth == 0 {
				if tip := strings.TrimSpace(string(item[start:i])); tip != "" {
					tips = append(tips, tip)
				}
			}
		}
	}
	return tips, depth > 0
}

func (e *Extractor) isOptional(tips []string) bool {
	for _, tip := range tips {
		lower := strings.ToLower(tip)
		for _, m := range e.optional {
			if strings.Contains(lower, m) {
				return true
			}
		}
	}
	return false
}

// indexOpen returns the offset of the first annotation opener, or len(runes).
func (e *Extractor) indexOpen(runes []rune) int {
	for i, r := range runes {
		if e.is(r, classOpen) {
			return i
		}
	}
	return len(runes)
}

func (e *Extractor) cutLabel(s string) string {
	for _, sep := range e.labelSeps {
		if before, _, found := strings.Cut(s, sep); found {
			s = before
		}
	}
	return s
}

func (e *Extractor) normalizeUnit(u string) string {
	if n, ok := e.units[u]; ok {
		return n
	}
	return u
}

package extract

// Tables holds the lookup data the extractor consults. Values are copied by
// NewExtractor, so a Tables may be reused or modified afterwards.
type Tables struct {
	// Delimiters end a unit token.
	Delimiters []rune
	// Connectors join the parts of a compound quantity such as "2-3".
	Connectors []rune
	// AnnotationOpen and AnnotationClose bound parenthetical notes.
	// Any closer matches any opener.
	AnnotationOpen  []rune
	AnnotationClose []rune
	// LabelSeparators cut a leading label off the ingredient name.
	LabelSeparators []string
	// Units maps source unit tokens to their normalized form.
	Units map[string]string
	// OptionalMarkers flag an ingredient as optional when found in a note.
	OptionalMarkers []string
}

// DefaultTables returns the tables used for HowToCook recipes.
func DefaultTables() Tables {
	return Tables{
		Delimiters:      []rune{' ', '（', '(', '“', '"', '\''},
		Connectors:      []rune{'/', '-', '~', '～'},
		AnnotationOpen:  []rune{'（', '('},
		AnnotationClose: []rune{'）', ')'},
		LabelSeparators: []string{"：", ":"},
		Units: map[string]string{
			"克":  "g",
			"千克": "kg",
			"公斤": "kg",
			"毫升": "ml",
			"升":  "l",
		},
		OptionalMarkers: []string{"可选", "optional"},
	}
}

package pipeline

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/dgallion1/cookgest/internal/analyzer"
	"github.com/dgallion1/cookgest/internal/config"
	"github.com/dgallion1/cookgest/internal/export"
	"github.com/dgallion1/cookgest/internal/metrics"
	"github.com/dgallion1/cookgest/internal/parser"
	"github.com/dgallion1/cookgest/internal/recipe"
)

// Converter analyzes documents and writes their records. It is safe for
// concurrent use.
type Converter struct {
	analyzer *analyzer.Analyzer
	writer   *export.Writer
	stats    *LatencyStats
	log      *slog.Logger
}

func NewConverter(a *analyzer.Analyzer, w *export.Writer, log *slog.Logger) *Converter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Converter{
		analyzer: a,
		writer:   w,
		stats:    NewLatencyStats(time.Hour),
		log:      log,
	}
}

// Writer returns the record writer.
func (c *Converter) Writer() *export.Writer { return c.writer }

// Analyzer returns the analyzer used for every document.
func (c *Converter) Analyzer() *analyzer.Analyzer { return c.analyzer }

// Stats returns conversion latencies for the last hour.
func (c *Converter) Stats() StatsSnapshot { return c.stats.Snapshot() }

// Convert analyzes doc and writes its record, returning the record path.
func (c *Converter) Convert(doc *recipe.Document) (*recipe.Recipe, string, error) {
	start := time.Now()
	rec, path, err := c.convert(doc)
	elapsed := time.Since(start)
	metrics.ObserveConversion(err, elapsed)
	if err == nil {
		c.stats.Record(elapsed)
	}
	return rec, path, err
}

func (c *Converter) convert(doc *recipe.Document) (*recipe.Recipe, string, error) {
	rec, err := c.analyzer.Analyze(doc)
	if err != nil {
		return nil, "", err
	}
	path, err := c.writer.Write(rec)
	if err != nil {
		return rec, "", err
	}
	c.log.Debug("record written", "document", doc.Name, "path", path, "ingredients", rec.Ingredients.Len())
	return rec, path, nil
}

// ConvertFile reads and converts the document at path.
func (c *Converter) ConvertFile(path string) (*recipe.Recipe, string, error) {
	doc, err := parser.ReadFile(path)
	if err != nil {
		metrics.ObserveConversion(err, 0)
		return nil, "", err
	}
	return c.Convert(doc)
}

// ConvertBytes parses data as the document filename and converts it.
func (c *Converter) ConvertBytes(filename string, data []byte) (*recipe.Recipe, string, error) {
	doc, err := parse(filename, data)
	if err != nil {
		metrics.ObserveConversion(err, 0)
		return nil, "", err
	}
	return c.Convert(doc)
}

func parse(filename string, data []byte) (*recipe.Document, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, recipe.Malformed(recipe.NameFromPath(filename), "%v", err)
	}
	return p.Parse(bytes.NewReader(data), filename)
}

// NewConverterFromConfig builds the analyzer and writer described by cfg.
func NewConverterFromConfig(cfg config.Config, log *slog.Logger) (*Converter, error) {
	format, err := export.ParseFormat(cfg.ExportFormat)
	if err != nil {
		return nil, err
	}
	opts := analyzer.DefaultOptions()
	opts.RequireAll = !cfg.RelaxedSections
	opts.StripMarkup = cfg.StripMarkup
	return NewConverter(analyzer.New(opts, log), export.NewWriter(cfg.ExportDir, format), log), nil
}

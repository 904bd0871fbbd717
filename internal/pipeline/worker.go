package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/cookgest/internal/metrics"
)

// Worker processes a single conversion job.
type Worker struct {
	conv *Converter
	jobs *JobStore
	log  *slog.Logger
}

func NewWorker(conv *Converter, jobs *JobStore, log *slog.Logger) *Worker {
	return &Worker{conv: conv, jobs: jobs, log: log}
}

// Process runs parse, analyze and export for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)
	defer job.releaseData()

	if err := ctx.Err(); err != nil {
		job.Fail("queued", err)
		return
	}

	// Phase 1: Dedup check. A record removed since the earlier job is rebuilt.
	if prev := w.jobs.FindCompleted(job.DocID, job.ID); prev != nil {
		snap := prev.Snapshot()
		if _, err := os.Stat(snap.OutputPath); err == nil {
			log.Info("duplicate document, skipping", "existing_job_id", snap.ID)
			job.mu.Lock()
			job.OutputPath = snap.OutputPath
			job.Progress.Ingredients = snap.Progress.Ingredients
			job.Progress.Steps = snap.Progress.Steps
			job.Progress.Additional = snap.Progress.Additional
			job.mu.Unlock()
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
		log.Info("earlier record missing, converting again", "existing_job_id", snap.ID, "output", snap.OutputPath)
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	start := time.Now()
	doc, err := parse(job.Filename, job.FileData())
	if err != nil {
		log.Error("parse failed", "error", err)
		metrics.ObserveConversion(err, time.Since(start))
		job.Fail("parsing", fmt.Errorf("parse: %w", err))
		return
	}

	// Phase 3: Analyze
	job.SetStatus(StatusAnalyzing, "analyzing")
	rec, warnings, err := w.conv.analyzer.AnalyzeWithWarnings(doc)
	if err != nil {
		log.Error("analysis failed", "error", err)
		metrics.ObserveConversion(err, time.Since(start))
		job.Fail("analyzing", err)
		return
	}
	for _, warning := range warnings {
		job.AddError(warning.Error())
	}

	// Phase 4: Export
	job.SetStatus(StatusExporting, "exporting")
	path, err := w.conv.writer.Write(rec)
	elapsed := time.Since(start)
	metrics.ObserveConversion(err, elapsed)
	if err != nil {
		log.Error("export failed", "error", err)
		job.Fail("exporting", err)
		return
	}
	w.conv.stats.Record(elapsed)

	job.SetResult(rec, path)
	job.SetStatus(StatusCompleted, "done")
	log.Info("conversion complete",
		"recipe", rec.Name,
		"ingredients", rec.Ingredients.Len(),
		"steps", len(rec.Steps),
		"duration_ms", elapsed.Milliseconds(),
	)
}

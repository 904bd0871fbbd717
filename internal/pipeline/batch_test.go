package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/cookgest/internal/analyzer"
	"github.com/dgallion1/cookgest/internal/config"
	"github.com/dgallion1/cookgest/internal/export"
	"github.com/dgallion1/cookgest/internal/recipe"
)

const dish = `# 炖豆腐
一道简单的炖豆腐。
## 计算
- 豆腐 200 g
- 葱 10 g（可选）
## 必备原料和工具
- 豆腐
- 葱
- 炖锅
## 操作
- 切块
- 小火炖 10 分钟
## 附加内容
- 趁热吃
`

const brokenDish = `# 炖豆腐
## 计算
- 豆腐 200 g
## 操作
- 切块
`

func newConverter(t *testing.T) *Converter {
	t.Helper()
	a := analyzer.New(analyzer.DefaultOptions(), nil)
	return NewConverter(a, export.NewWriter(t.TempDir(), export.FormatJSON), nil)
}

func writeDish(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name+".md")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConverter_ConvertFile(t *testing.T) {
	c := newConverter(t)
	path := writeDish(t, t.TempDir(), "炖豆腐", dish)

	rec, out, err := c.ConvertFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != c.Writer().Path("炖豆腐") {
		t.Errorf("expected record at %s, got %s", c.Writer().Path("炖豆腐"), out)
	}
	if got := rec.Ingredients.Names(); len(got) != 3 {
		t.Errorf("expected 3 ingredients, got %v", got)
	}

	back, err := export.Read(out)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if back.Name != "炖豆腐" || len(back.Steps) != 2 {
		t.Errorf("unexpected record %+v", back)
	}
	if s := c.Stats(); s.Count != 1 {
		t.Errorf("expected 1 recorded conversion, got %d", s.Count)
	}
}

func TestConverter_ConvertBytesUnsupported(t *testing.T) {
	c := newConverter(t)
	_, _, err := c.ConvertBytes("炖豆腐.txt", []byte(dish))
	if !errors.Is(err, recipe.ErrMalformedDocument) {
		t.Fatalf("expected malformed document, got %v", err)
	}
}

func TestConverter_ConvertFileMissing(t *testing.T) {
	c := newConverter(t)
	_, _, err := c.ConvertFile(filepath.Join(t.TempDir(), "nope.md"))
	if !errors.Is(err, recipe.ErrIOFailure) {
		t.Fatalf("expected io failure, got %v", err)
	}
}

func TestRunBatch(t *testing.T) {
	c := newConverter(t)
	dir := t.TempDir()
	paths := []string{
		writeDish(t, dir, "炖豆腐", dish),
		writeDish(t, dir, "坏豆腐", brokenDish),
		writeDish(t, dir, "红烧豆腐", dish),
	}

	results := c.RunBatch(context.Background(), paths, 2)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d: expected path %s, got %s", i, paths[i], r.Path)
		}
	}
	if !results[0].OK() || !results[2].OK() {
		t.Errorf("expected good documents to convert: %+v", results)
	}
	if results[1].OK() {
		t.Fatal("expected broken document to fail")
	}
	if results[1].Kind != string(recipe.ErrCodeMissingSection) {
		t.Errorf("expected MISSING_SECTION, got %q", results[1].Kind)
	}

	names, err := c.Writer().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 records written, got %v", names)
	}
}

func TestRunBatch_Cancelled(t *testing.T) {
	c := newConverter(t)
	path := writeDish(t, t.TempDir(), "炖豆腐", dish)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := c.RunBatch(ctx, []string{path, path}, 1)
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("expected cancellation, got %v", r.Err)
		}
	}
}

func waitFor(t *testing.T, job *Job, statuses ...JobStatus) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := job.Snapshot()
		for _, s := range statuses {
			if snap.Status == s {
				return snap
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s stuck in %q", job.ID, job.Snapshot().Status)
	return JobSnapshot{}
}

func testConfig() config.Config {
	return config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}
}

func TestOrchestrator_ConvertsAndDedups(t *testing.T) {
	o := NewOrchestrator(testConfig(), newConverter(t), nil)
	o.Start(context.Background())
	defer o.Stop()

	first := NewJob("炖豆腐.md", []byte(dish))
	if err := o.Submit(first); err != nil {
		t.Fatal(err)
	}
	snap := waitFor(t, first, StatusCompleted, StatusFailed)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %+v", snap)
	}
	if snap.Progress.Ingredients != 3 || snap.Progress.Steps != 2 || snap.Progress.Additional != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if first.FileData() != nil {
		t.Error("expected file data released after processing")
	}

	again := NewJob("炖豆腐.md", []byte(dish))
	if err := o.Submit(again); err != nil {
		t.Fatal(err)
	}
	dup := waitFor(t, again, StatusDupSkipped, StatusCompleted, StatusFailed)
	if dup.Status != StatusDupSkipped {
		t.Errorf("expected duplicate_skipped, got %q", dup.Status)
	}
	if dup.OutputPath != snap.OutputPath {
		t.Errorf("expected duplicate to point at %s, got %s", snap.OutputPath, dup.OutputPath)
	}
	if o.GetJob(again.ID) != again {
		t.Error("expected job to be retrievable")
	}
}

func TestOrchestrator_ReconvertsRemovedRecord(t *testing.T) {
	conv := newConverter(t)
	o := NewOrchestrator(testConfig(), conv, nil)
	o.Start(context.Background())
	defer o.Stop()

	first := NewJob("炖豆腐.md", []byte(dish))
	if err := o.Submit(first); err != nil {
		t.Fatal(err)
	}
	if snap := waitFor(t, first, StatusCompleted, StatusFailed); snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %+v", snap)
	}
	if err := conv.Writer().Remove("炖豆腐"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	again := NewJob("炖豆腐.md", []byte(dish))
	if err := o.Submit(again); err != nil {
		t.Fatal(err)
	}
	snap := waitFor(t, again, StatusDupSkipped, StatusCompleted, StatusFailed)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", snap.Status)
	}
	if _, err := os.Stat(snap.OutputPath); err != nil {
		t.Errorf("expected record rewritten at %s: %v", snap.OutputPath, err)
	}
}

func TestOrchestrator_RecordsWarnings(t *testing.T) {
	o := NewOrchestrator(testConfig(), newConverter(t), nil)
	o.Start(context.Background())
	defer o.Stop()

	body := strings.Replace(dish, "- 豆腐 200 g\n", "- 豆腐 200 g\n- \n", 1)
	job := NewJob("炖豆腐.md", []byte(body))
	if err := o.Submit(job); err != nil {
		t.Fatal(err)
	}
	snap := waitFor(t, job, StatusCompleted, StatusFailed)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %+v", snap)
	}
	if snap.Progress.Ingredients != 3 {
		t.Errorf("expected 3 ingredients, got %d", snap.Progress.Ingredients)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "empty quantities item") {
		t.Errorf("expected one extraction warning, got %q", snap.Progress.Errors)
	}
}

func TestOrchestrator_ReportsFailure(t *testing.T) {
	o := NewOrchestrator(testConfig(), newConverter(t), nil)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("坏豆腐.md", []byte(brokenDish))
	if err := o.Submit(job); err != nil {
		t.Fatal(err)
	}
	snap := waitFor(t, job, StatusCompleted, StatusFailed)
	if snap.Status != StatusFailed || snap.Phase != "analyzing" {
		t.Fatalf("expected failure while analyzing, got %q %q", snap.Status, snap.Phase)
	}
	if snap.Progress.ErrorKind != string(recipe.ErrCodeMissingSection) {
		t.Errorf("expected MISSING_SECTION, got %q", snap.Progress.ErrorKind)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, newConverter(t), nil)
	defer o.Stop()

	if err := o.Submit(NewJob("a.md", []byte(dish))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	overflow := NewJob("b.md", []byte(dish))
	if err := o.Submit(overflow); err == nil {
		t.Fatal("expected queue full error")
	}
	if s := overflow.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("expected queue_full failure, got %q %q", s.Status, s.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}
}

func TestNewConverterFromConfig(t *testing.T) {
	cfg := config.Config{ExportDir: t.TempDir(), ExportFormat: "yaml", RelaxedSections: true}
	c, err := NewConverterFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Writer().Format() != export.FormatYAML {
		t.Errorf("expected yaml writer, got %q", c.Writer().Format())
	}

	// Relaxed sections tolerate a missing notes heading.
	body := "# 炖豆腐\n## 计算\n- 豆腐 200 g\n## 必备原料和工具\n- 炖锅\n"
	rec, out, err := c.ConvertBytes("炖豆腐.md", []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.Steps) != 0 || filepath.Ext(out) != ".yaml" {
		t.Errorf("unexpected result %+v at %s", rec, out)
	}

	cfg.ExportFormat = "xml"
	if _, err := NewConverterFromConfig(cfg, nil); err == nil {
		t.Error("expected unknown format error")
	}
}

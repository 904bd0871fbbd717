package pipeline

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/dgallion1/cookgest/internal/recipe"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusExporting  JobStatus = "exporting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the conversion of one uploaded document.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Filename   string    `json:"filename"`
	RecipeName string    `json:"recipe_name"`
	OutputPath string    `json:"output_path,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress summarizes what a conversion produced.
type Progress struct {
	Ingredients int      `json:"ingredients"`
	Steps       int      `json:"steps"`
	Additional  int      `json:"additional"`
	ErrorKind   string   `json:"error_kind,omitempty"`
	Errors      []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file. Jobs for the same file
// name and content share a DocID.
func NewJob(filename string, data []byte) *Job {
	now := time.Now()
	hash := ContentHashHex(data)
	return &Job{
		ID:          uuid.New().String(),
		DocID:       ContentHashHex(append([]byte(filename+"\x00"), data...))[:16],
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		RecipeName:  recipe.NameFromPath(filename),
		ContentHash: hash,
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// FindCompleted returns another completed job with the same DocID, if any.
func (s *JobStore) FindCompleted(docID, excludeID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if id == excludeID || job.DocID != docID {
			continue
		}
		if snap := job.Snapshot(); snap.Status == StatusCompleted {
			return job
		}
	}
	return nil
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed during phase.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err.Error())
	j.Progress.Errors = j.errors
	if code := recipe.CodeOf(err); code != "" {
		j.Progress.ErrorKind = string(code)
	}
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a non-fatal problem, such as an extraction warning,
// without changing status.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetResult records the converted recipe and where it was written.
func (j *Job) SetResult(rec *recipe.Recipe, outputPath string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RecipeName = rec.Name
	j.OutputPath = outputPath
	j.Progress.Ingredients = rec.Ingredients.Len()
	j.Progress.Steps = len(rec.Steps)
	j.Progress.Additional = len(rec.Additional)
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseData drops the file bytes once the job is finished.
func (j *Job) releaseData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"job_id"`
	DocID      string    `json:"doc_id"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Filename   string    `json:"filename"`
	RecipeName string    `json:"recipe_name"`
	OutputPath string    `json:"output_path,omitempty"`
	Progress   Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	progress := j.Progress
	progress.Errors = errs
	return JobSnapshot{
		ID:         j.ID,
		DocID:      j.DocID,
		Status:     j.Status,
		Phase:      j.Phase,
		Filename:   j.Filename,
		RecipeName: j.RecipeName,
		OutputPath: j.OutputPath,
		Progress:   progress,
	}
}

// ContentHashHex computes the BLAKE3 digest of content as a hex string.
func ContentHashHex(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

package task

import (
	"RagDesk/backend/go/internal/models"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrTerminal is returned when a transition is attempted on a completed or failed record.
	ErrTerminal = errors.New("task already reached a terminal state")
	// ErrInvalidTransition is returned for any other transition that the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid task state transition")
)

const logTimeLayout = "15:04:05"

// Record tracks the lifecycle of one background processing job.
// It has a single writer (its runner) and any number of concurrent readers.
type Record struct {
	mu sync.RWMutex

	id       string
	filePath string
	status   models.TaskStatus
	progress int
	logs     []string
	result   *models.ProcessResult
	err      string
	start    time.Time
	end      time.Time

	now func() time.Time
}

// NewRecord creates a pending record. A nil clock defaults to time.Now.
func NewRecord(id, filePath string, now func() time.Time) *Record {
	if now == nil {
		now = time.Now
	}
	return &Record{
		id:       id,
		filePath: filePath,
		status:   models.TaskStatusPending,
		logs:     make([]string, 0, 16),
		start:    now(),
		now:      now,
	}
}

// ID returns the immutable task identifier.
func (r *Record) ID() string { return r.id }

// FilePath returns the path of the document being processed.
func (r *Record) FilePath() string { return r.filePath }

// Status returns the current status.
func (r *Record) Status() models.TaskStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Progress returns the current progress percentage.
func (r *Record) Progress() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progress
}

// AddLog appends a timestamped entry. It is valid in every state.
func (r *Record) AddLog(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLog(message)
}

func (r *Record) appendLog(message string) {
	r.logs = append(r.logs, fmt.Sprintf("[%s] %s", r.now().Format(logTimeLayout), message))
}

// UpdateProgress clamps percent to [0,100] and never moves progress backwards.
// A non-empty message is logged together with the effective percentage.
func (r *Record) UpdateProgress(percent int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > r.progress {
		r.progress = percent
	}
	if message != "" {
		r.appendLog(fmt.Sprintf("Progress: %d%% - %s", r.progress, message))
	}
}

// Start moves a pending record to processing.
func (r *Record) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.status.IsTerminal():
		return ErrTerminal
	case r.status != models.TaskStatusPending:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.status, models.TaskStatusProcessing)
	}
	r.status = models.TaskStatusProcessing
	return nil
}

// Complete moves the record to completed and stores result. It succeeds at most once.
func (r *Record) Complete(result *models.ProcessResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.IsTerminal() {
		return ErrTerminal
	}
	if result == nil {
		result = &models.ProcessResult{}
	}
	r.status = models.TaskStatusCompleted
	r.progress = 100
	r.end = r.now()
	r.result = result
	r.appendLog("Processing completed successfully!")
	return nil
}

// Fail moves the record to failed and stores the error text. It succeeds at most once.
func (r *Record) Fail(cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.IsTerminal() {
		return ErrTerminal
	}
	msg := "unknown error"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	r.status = models.TaskStatusFailed
	r.end = r.now()
	r.err = msg
	r.appendLog("Processing failed: " + msg)
	return nil
}

// Duration is live while the task runs and frozen once it is terminal.
func (r *Record) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.durationLocked()
}

func (r *Record) durationLocked() time.Duration {
	if r.status.IsTerminal() {
		return r.end.Sub(r.start)
	}
	return r.now().Sub(r.start)
}

// EndTime returns the time the record reached a terminal state.
func (r *Record) EndTime() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.end, r.status.IsTerminal()
}

// LogCount returns the number of log entries written so far.
func (r *Record) LogCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.logs)
}

// LogsSince returns a copy of the entries from index i on.
func (r *Record) LogsSince(i int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i < 0 {
		i = 0
	}
	if i >= len(r.logs) {
		return []string{}
	}
	out := make([]string, len(r.logs)-i)
	copy(out, r.logs[i:])
	return out
}

// Snapshot returns a consistent copy of the record.
func (r *Record) Snapshot() models.TaskSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := make([]string, len(r.logs))
	copy(logs, r.logs)

	var result *models.ProcessResult
	if r.result != nil {
		res := *r.result
		result = &res
	}

	return models.TaskSnapshot{
		ID:        r.id,
		FilePath:  r.filePath,
		Status:    r.status,
		Progress:  r.progress,
		Logs:      logs,
		Result:    result,
		Error:     r.err,
		StartTime: r.start,
		EndTime:   r.end,
		Duration:  r.durationLocked(),
	}
}

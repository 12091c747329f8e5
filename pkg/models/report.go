package models

import (
	"fmt"
	"time"
)

// ReportStatus tracks an asynchronously generated report through its life.
type ReportStatus string

const (
	// ReportStatusPending means the report row exists and generation is
	// queued or running.
	ReportStatusPending ReportStatus = "pending"

	// ReportStatusSuccess means the document was produced and stored.
	ReportStatusSuccess ReportStatus = "success"

	// ReportStatusError means generation failed; the row stays for audit.
	ReportStatusError ReportStatus = "error"
)

// IsValid reports whether s is a recognized report status.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusPending, ReportStatusSuccess, ReportStatusError:
		return true
	}
	return false
}

// Terminal reports whether the status is an end state.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusSuccess || s == ReportStatusError
}

// Report is the persisted record of one asynchronous report generation.
//
// Invariants, enforced by MarkSuccess/MarkError:
//   - Status only moves pending -> success or pending -> error.
//   - FilePath is non-empty exactly when Status is success.
//   - DoneAt is set exactly when Status is success.
//
// TaskID is recorded by the worker as soon as the job starts, so a crashed
// job can be traced back to its queue entry.
type Report struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	Format    string       `json:"format"`
	Requester *User        `json:"requester"`
	TaskID    string       `json:"task_id"`
	FilePath  string       `json:"file_path"`
	Status    ReportStatus `json:"status"`
	Options   string       `json:"options"`
	CreatedAt time.Time    `json:"created_at"`
	DoneAt    *time.Time   `json:"done_at"`
}

// NewReport returns a pending report row. The store assigns the ID when
// the row is persisted.
func NewReport(name, reportType, format string, requester *User, options string) *Report {
	return &Report{
		Name:      name,
		Type:      reportType,
		Format:    format,
		Requester: requester,
		Options:   options,
		Status:    ReportStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkSuccess transitions pending -> success, recording the stored file
// path and the completion time together so the status invariants cannot
// be observed half-applied.
func (r *Report) MarkSuccess(filePath string, now time.Time) error {
	if r.Status != ReportStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrStatusTransition, r.Status, ReportStatusSuccess)
	}
	if filePath == "" {
		return fmt.Errorf("models: report %d: success requires a stored file path", r.ID)
	}
	done := now.UTC()
	r.Status = ReportStatusSuccess
	r.FilePath = filePath
	r.DoneAt = &done
	return nil
}

// MarkError transitions pending -> error. The file path and completion
// time stay unset: a failed report has no document.
func (r *Report) MarkError() error {
	if r.Status != ReportStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrStatusTransition, r.Status, ReportStatusError)
	}
	r.Status = ReportStatusError
	return nil
}

// Done reports whether the report reached a terminal status.
func (r *Report) Done() bool {
	return r.Status.Terminal()
}

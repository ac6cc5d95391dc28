package report_fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/tagship/tagship/internal/domain"
)

// Writer persists the finalized run result as indented JSON. Errors
// are stringified; credentials never enter a RunResult in the first
// place.
type Writer struct {
	path string
}

func New(path string) *Writer { return &Writer{path: path} }

func (w *Writer) Write(_ context.Context, r domain.RunResult) error {
	if w.path == "" {
		return errors.New("report path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(w.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	type out struct {
		Ref        string              `json:"ref"`
		Version    string              `json:"version,omitempty"`
		Status     string              `json:"status"`
		FailedStep string              `json:"failed_step,omitempty"`
		Error      string              `json:"error,omitempty"`
		ReceiptID  string              `json:"receipt_id,omitempty"`
		Location   string              `json:"location,omitempty"`
		Steps      []domain.StepRecord `json:"steps"`
		Started    int64               `json:"started"`
		Finished   int64               `json:"finished"`
	}

	o := out{
		Ref:        r.Ref,
		Status:     string(r.Status),
		FailedStep: string(r.FailedStep),
		ReceiptID:  r.Receipt.ID,
		Location:   r.Receipt.Location,
		Steps:      r.Steps,
		Started:    r.Started,
		Finished:   r.Finished,
	}
	if r.Version != (domain.Version{}) || r.Status == domain.StatusPublished {
		o.Version = r.Version.String()
	}
	if r.Err != nil {
		o.Error = r.Err.Error()
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

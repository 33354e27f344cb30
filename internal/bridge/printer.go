package bridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"comanda/pkg/api"
)

// Printer sends one rendered document to paper. A returned error is reported
// to the controller as a print failure and the job is retried.
type Printer interface {
	Print(ctx context.Context, job api.ClaimedJob) error
}

// WriterPrinter writes documents to an io.Writer, one after another.
// It is the stdout sink used when no printer device is configured.
type WriterPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterPrinter creates a WriterPrinter.
func NewWriterPrinter(w io.Writer) *WriterPrinter {
	return &WriterPrinter{w: w}
}

func (p *WriterPrinter) Print(ctx context.Context, job api.ClaimedJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := io.WriteString(p.w, job.Content); err != nil {
		return fmt.Errorf("failed to write %s: %w", job.DocumentType, err)
	}
	return nil
}

// FilePrinter spools each document to its own file in Dir, named after the
// order, document type and job. A spooler or device watcher picks them up.
type FilePrinter struct {
	Dir string
}

// NewFilePrinter creates the spool directory if needed.
func NewFilePrinter(dir string) (*FilePrinter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool dir: %w", err)
	}
	return &FilePrinter{Dir: dir}, nil
}

func (p *FilePrinter) Print(ctx context.Context, job api.ClaimedJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%s-%s.txt", job.OrderID, strings.ToLower(job.DocumentType), job.ID)
	final := filepath.Join(p.Dir, name)

	// write then rename so a watcher never sees a partial document
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, []byte(job.Content), 0o644); err != nil {
		return fmt.Errorf("failed to spool %s: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to spool %s: %w", name, err)
	}
	return nil
}

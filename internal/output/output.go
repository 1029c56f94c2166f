// Package output renders resolution results for the command line.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/shineum/email-json/internal/resolver"
)

const separator = "========================================\n"

// Printer writes one block per resolved email in a human-readable format.
// It is safe for concurrent use; blocks never interleave.
type Printer struct {
	mu sync.Mutex

	// writer is the output destination, defaulting to os.Stdout.
	writer  io.Writer
	compact bool
}

// New creates a Printer that writes to os.Stdout. compact prints JSON on a
// single line instead of indented.
func New(compact bool) *Printer {
	return NewWithWriter(os.Stdout, compact)
}

// NewWithWriter creates a Printer that writes to the given writer.
func NewWithWriter(w io.Writer, compact bool) *Printer {
	return &Printer{writer: w, compact: compact}
}

// Print writes the outcome of resolving path. A non-nil err is reported as
// an error block regardless of res.
func (p *Printer) Print(path string, res resolver.Result, err error) error {
	var b strings.Builder

	b.WriteString(separator)
	b.WriteString(fmt.Sprintf("Path: %s\n", path))

	switch {
	case err != nil:
		b.WriteString(fmt.Sprintf("Error: %v\n", err))
	case !res.Found():
		b.WriteString("Result: No JSON found in email\n")
	default:
		encoded, encErr := p.encode(res.Value)
		if encErr != nil {
			return fmt.Errorf("encode JSON for %s: %w", path, encErr)
		}
		b.WriteString(fmt.Sprintf("Strategy: %s\n", res.Strategy))
		b.WriteString(fmt.Sprintf("Source: %s\n", res.Source))
		b.WriteString(fmt.Sprintf("JSON (%s):\n", formatSize(len(encoded))))
		b.Write(encoded)
		b.WriteString("\n")
	}

	b.WriteString(separator)

	p.mu.Lock()
	defer p.mu.Unlock()
	_, werr := io.WriteString(p.writer, b.String())
	return werr
}

// encode marshals v without HTML escaping, indented unless compact.
func (p *Printer) encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if !p.compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// formatSize formats a byte count into a human-readable string.
func formatSize(n int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.1f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

package output

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/shineum/email-json/internal/email"
	"github.com/shineum/email-json/internal/resolver"
)

func resolve(t *testing.T, text string) resolver.Result {
	t.Helper()
	r := resolver.New(resolver.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	res, err := r.Resolve(context.Background(), &email.Email{TextBody: text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestPrint_Found(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf, false)

	if err := p.Print("/mail/a.eml", resolve(t, `data: {"b":[1,2],"url":"<x>"}`), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	want := "{\n  \"b\": [\n    1,\n    2\n  ],\n  \"url\": \"<x>\"\n}\n"

	if !strings.Contains(output, "Path: /mail/a.eml\n") {
		t.Error("output missing Path line")
	}
	if !strings.Contains(output, "Strategy: embedded-text\n") {
		t.Error("output missing Strategy line")
	}
	if !strings.Contains(output, "Source: text\n") {
		t.Error("output missing Source line")
	}
	if !strings.Contains(output, "JSON (45 B):\n") {
		t.Errorf("output missing JSON size line:\n%s", output)
	}
	if !strings.Contains(output, want) {
		t.Errorf("output missing indented JSON without HTML escaping:\n%s", output)
	}
	if !strings.HasPrefix(output, separator) {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, separator) {
		t.Error("output should end with separator line")
	}
}

func TestPrint_Compact(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf, true)

	if err := p.Print("a.eml", resolve(t, `{"b": [1, 2]}`), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n{\"b\":[1,2]}\n") {
		t.Errorf("output missing compact JSON:\n%s", buf.String())
	}
}

func TestPrint_NotFound(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf, false)

	if err := p.Print("a.eml", resolve(t, "hello"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Result: No JSON found in email\n") {
		t.Error("output missing not-found line")
	}
	if strings.Contains(output, "Strategy:") {
		t.Error("output should not contain Strategy line when nothing was found")
	}
}

func TestPrint_Error(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf, false)

	err := &resolver.FatalInputError{Path: "a.eml", Err: errors.New("permission denied")}
	if perr := p.Print("a.eml", resolver.Result{}, err); perr != nil {
		t.Fatalf("unexpected error: %v", perr)
	}
	if !strings.Contains(buf.String(), "Error: cannot load email a.eml: permission denied\n") {
		t.Errorf("output missing error line:\n%s", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestPrint_WriteError(t *testing.T) {
	t.Parallel()

	p := NewWithWriter(failingWriter{}, false)
	if err := p.Print("a.eml", resolver.Result{}, nil); err == nil {
		t.Error("expected write error, got nil")
	}
}

func TestPrint_ConcurrentBlocksDoNotInterleave(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf, true)
	res := resolve(t, `{"k":"v"}`)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Print("a.eml", res, nil)
		}()
	}
	wg.Wait()

	block := separator + "Path: a.eml\nStrategy: embedded-text\nSource: text\nJSON (9 B):\n{\"k\":\"v\"}\n" + separator
	if got := strings.Count(buf.String(), block); got != 20 {
		t.Errorf("complete blocks: got %d, want 20", got)
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bytes int
		want  string
	}{
		{name: "zero bytes", bytes: 0, want: "0 B"},
		{name: "small bytes", bytes: 512, want: "512 B"},
		{name: "kilobytes", bytes: 46080, want: "45.0 KB"},
		{name: "megabytes", bytes: 1258291, want: "1.2 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

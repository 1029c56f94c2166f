package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_ReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mail.eml"), []byte("Subject: hi\r\n\r\nbody"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	fsys := NewFileSystem(dir, 0)
	data, err := fsys.ReadFile(context.Background(), "mail.eml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "Subject: hi\r\n\r\nbody" {
		t.Errorf("data: got %q", string(data))
	}

	abs, err := fsys.ReadFile(context.Background(), filepath.Join(dir, "mail.eml"))
	if err != nil {
		t.Fatalf("unexpected error for absolute path: %v", err)
	}
	if string(abs) != string(data) {
		t.Error("absolute and relative reads differ")
	}
}

func TestFileSystem_ReadFile_NotFound(t *testing.T) {
	t.Parallel()

	fsys := NewFileSystem(t.TempDir(), 0)
	_, err := fsys.ReadFile(context.Background(), "missing.eml")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileSystem_ReadFile_TooLarge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.eml"), make([]byte, 64), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	fsys := NewFileSystem(dir, 32)
	_, err := fsys.ReadFile(context.Background(), "big.eml")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestFileSystem_ReadFile_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fsys := NewFileSystem("", 0)
	_, err := fsys.ReadFile(context.Background(), dir)
	if err == nil {
		t.Fatal("expected error reading a directory, got nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("directory should not be reported as not found: %v", err)
	}
}

func TestFileSystem_ReadFile_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSystem("", 0).ReadFile(ctx, "anything.eml")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFileSystem_ReadFile_OutsideBaseDir(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	base := filepath.Join(parent, "mail")
	if err := os.Mkdir(base, 0o700); err != nil {
		t.Fatalf("failed to create base dir: %v", err)
	}
	secret := filepath.Join(parent, "secret.eml")
	if err := os.WriteFile(secret, []byte("Subject: no\r\n\r\n{}"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	fsys := NewFileSystem(base, 0)
	for _, path := range []string{"../secret.eml", secret, "a/../../secret.eml"} {
		data, err := fsys.ReadFile(context.Background(), path)
		if !errors.Is(err, ErrOutsideBaseDir) {
			t.Errorf("%s: expected ErrOutsideBaseDir, got %v", path, err)
		}
		if data != nil {
			t.Errorf("%s: expected no data, got %q", path, data)
		}
	}
}

func TestFileSystem_ReadFile_SymlinkEscape(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	base := filepath.Join(parent, "mail")
	if err := os.Mkdir(base, 0o700); err != nil {
		t.Fatalf("failed to create base dir: %v", err)
	}
	secret := filepath.Join(parent, "secret.eml")
	if err := os.WriteFile(secret, []byte("Subject: no\r\n\r\n{}"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.Symlink(secret, filepath.Join(base, "link.eml")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	data, err := NewFileSystem(base, 0).ReadFile(context.Background(), "link.eml")
	if err == nil {
		t.Fatalf("expected error following symlink out of base dir, got %q", data)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("escape should not be reported as not found: %v", err)
	}
}

func TestFileSystem_ReadFile_NestedInsideBaseDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "inbox"), 0o700); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "inbox", "m.eml"), []byte("x"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	data, err := NewFileSystem(base, 0).ReadFile(context.Background(), "inbox/../inbox/m.eml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "x" {
		t.Errorf("data: got %q", data)
	}
}

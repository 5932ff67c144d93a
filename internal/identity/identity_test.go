package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsure_CreatesAndReuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)

	first, err := Ensure(path)
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if first == "" {
		t.Fatal("Ensure() returned empty ID")
	}

	second, err := Ensure(path)
	if err != nil {
		t.Fatalf("Ensure() second call error: %v", err)
	}
	if second != first {
		t.Errorf("ID changed across calls: %q then %q", first, second)
	}
}

func TestEnsure_ReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	if err := os.WriteFile(path, []byte("preset-id\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := Ensure(path)
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if id != "preset-id" {
		t.Errorf("id = %q, want preset-id", id)
	}
}

func TestEnsure_ReplacesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := Ensure(path)
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if id == "" {
		t.Error("empty file did not get a fresh ID")
	}
}

func TestEnsure_CreatesMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", Filename)

	if _, err := Ensure(path); err != nil {
		t.Fatalf("Ensure() with missing parent dirs: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("ID file not created: %v", err)
	}
}

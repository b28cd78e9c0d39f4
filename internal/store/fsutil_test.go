package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile_CreatesParentsAndReplaces(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "a", "b", "report.pdf")
	if err := WriteFile(dest, []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(dest, []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile (replace): %v", err)
	}
	b, err := os.ReadFile(dest)
	if err != nil || string(b) != "v2" {
		t.Fatalf("unexpected content %q err=%v", b, err)
	}
	ents, _ := os.ReadDir(filepath.Dir(dest))
	if len(ents) != 1 {
		t.Fatalf("expected no leftover temp files; got %d entries", len(ents))
	}
}

func TestConfigDir_EnvOverride(t *testing.T) {
	t.Setenv("TASKFLOW_CONFIG_DIR", "/tmp/tf-test")
	dir, err := ConfigDir()
	if err != nil || dir != "/tmp/tf-test" {
		t.Fatalf("ConfigDir = %q, %v", dir, err)
	}
}

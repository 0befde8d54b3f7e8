package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	dataset := write("phishing_examples.csv", "hello")
	write("indices/reference.snap", "ab")
	write("indices/nested/extra.snap", "c")
	db := write("history.db", "1234")
	write("history.db-wal", "56")

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{dataset}, 5},
		{"directory recursive", []string{filepath.Join(dir, "indices")}, 3},
		{"file and directory", []string{dataset, filepath.Join(dir, "indices")}, 8},
		{"missing skipped", []string{dataset, filepath.Join(dir, "nonexistent")}, 5},
		{"empty skipped", []string{"", dataset}, 5},
		{"database with sidecars", DatabaseFiles(db), 6},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

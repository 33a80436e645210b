package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

//go:embed fixtures/*.json
var fixturesFS embed.FS

// LoadFixture loads a JSON fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// TaskCatalog returns the mixed list/object task catalog fixture.
func TaskCatalog(t *testing.T) []byte {
	t.Helper()
	data, err := LoadFixture("task_catalog.json")
	if err != nil {
		t.Fatalf("Failed to load task catalog fixture: %v", err)
	}
	return data
}

// WriteLines writes lines to dir/name, one per line, and returns the path.
func WriteLines(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

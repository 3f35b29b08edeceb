package utils

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestSubDirectories(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"iMac9,1", "MacBookPro9,1"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	dirs, err := SubDirectories(dir)
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(dirs)
	if !slices.Equal(dirs, []string{"MacBookPro9,1", "iMac9,1"}) {
		t.Fatalf("unexpected directories %v", dirs)
	}

	if _, err := SubDirectories(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestFmtPretty(t *testing.T) {
	got := FmtPretty(map[string]int{"timeout": 5})
	if got != "{\n  \"timeout\": 5\n}" {
		t.Fatalf("unexpected output %q", got)
	}
}

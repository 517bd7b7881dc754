package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/letsbuild/letsbuild/pkg/utils"
)

func touch(t *testing.T, root string, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func exists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

func TestDeletePatterns_PreservesIcons(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "build/icons/icon.icns")
	touch(t, root, "build/icons/icon.ico")
	touch(t, root, "build/mac/App.app/Contents/Info.plist")
	touch(t, root, "build/builder-effective-config.yaml")

	deleted, err := utils.DeletePatterns(
		[]string{"build/*", "!build/icons", "!build/icons/icon.*"},
		utils.DeleteOptions{Root: root},
	)
	if err != nil {
		t.Fatalf("DeletePatterns() error = %v", err)
	}

	want := []string{"build/builder-effective-config.yaml", "build/mac"}
	if !reflect.DeepEqual(deleted, want) {
		t.Errorf("deleted = %v, want %v", deleted, want)
	}
	if !exists(root, "build/icons/icon.icns") || !exists(root, "build/icons/icon.ico") {
		t.Error("icons should be preserved")
	}
	if exists(root, "build/mac") {
		t.Error("build/mac should be removed")
	}
	if !exists(root, "build") {
		t.Error("build directory itself should remain")
	}
}

func TestDeletePatterns_PreservesGitkeep(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "dist/web/.gitkeep")
	touch(t, root, "dist/web/index.html")
	touch(t, root, "dist/web/static/app.js")

	deleted, err := utils.DeletePatterns(
		[]string{"dist/web/*", "!.gitkeep"},
		utils.DeleteOptions{Root: root},
	)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"dist/web/index.html", "dist/web/static"}
	if !reflect.DeepEqual(deleted, want) {
		t.Errorf("deleted = %v, want %v", deleted, want)
	}
	if !exists(root, "dist/web/.gitkeep") {
		t.Error(".gitkeep should be preserved")
	}
}

func TestDeletePatterns_SkipsDotfiles(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "dist/electron/.gitkeep")
	touch(t, root, "dist/electron/main.js")

	deleted, err := utils.DeletePatterns([]string{"dist/electron/*"}, utils.DeleteOptions{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(deleted, []string{"dist/electron/main.js"}) {
		t.Errorf("deleted = %v", deleted)
	}
	if !exists(root, "dist/electron/.gitkeep") {
		t.Error("dotfile should not be matched by *")
	}
}

func TestDeletePatterns_DryRun(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "dist/mobile/app.js")

	deleted, err := utils.DeletePatterns([]string{"dist/mobile/*"}, utils.DeleteOptions{Root: root, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 1 {
		t.Fatalf("expected one path, got %v", deleted)
	}
	if !exists(root, "dist/mobile/app.js") {
		t.Error("dry run should not delete")
	}
}

func TestDeletePatterns_MissingDirectory(t *testing.T) {
	root := t.TempDir()

	deleted, err := utils.DeletePatterns([]string{"dist/web/*"}, utils.DeleteOptions{Root: root})
	if err != nil {
		t.Fatalf("missing directories should not fail: %v", err)
	}
	if len(deleted) != 0 {
		t.Errorf("expected nothing deleted, got %v", deleted)
	}
}

func TestDeletePatterns_DoubleStar(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "out/a/x.map")
	touch(t, root, "out/a/b/y.map")
	touch(t, root, "out/a/b/y.js")

	deleted, err := utils.DeletePatterns([]string{"out/**/*.map"}, utils.DeleteOptions{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"out/a/b/y.map", "out/a/x.map"}
	if !reflect.DeepEqual(deleted, want) {
		t.Errorf("deleted = %v, want %v", deleted, want)
	}
	if !exists(root, "out/a/b/y.js") {
		t.Error("non-matching file should survive")
	}
}

func TestDeletePatterns_RefusesOutsideRoot(t *testing.T) {
	root := t.TempDir()

	for _, p := range []string{"../elsewhere/*", "/etc/*", "."} {
		_, err := utils.DeletePatterns([]string{p}, utils.DeleteOptions{Root: root})
		if !errors.Is(err, utils.ErrOutsideRoot) {
			t.Errorf("pattern %q: expected ErrOutsideRoot, got %v", p, err)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	if err := utils.WriteFileAtomic(path, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if !utils.FileExists(path) {
		t.Error("expected file to exist")
	}
	if !utils.DirectoryExists(filepath.Dir(path)) {
		t.Error("expected directory to exist")
	}
}

func TestDeletePatterns_ExcludedDirectoryKeepsOnlyItself(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		gone     []string
		kept     []string
	}{
		{
			name:     "recursive glob reaches into the excluded directory",
			patterns: []string{"build/**", "!build/icons"},
			gone:     []string{"build/icons/256x256.png", "build/latest.yml", "build/mac"},
			kept:     []string{"build/icons"},
		},
		{
			name:     "single level glob stops at the excluded directory",
			patterns: []string{"build/*", "!build/icons"},
			gone:     []string{"build/latest.yml", "build/mac"},
			kept:     []string{"build/icons/256x256.png"},
		},
		{
			name:     "excluding the files keeps them",
			patterns: []string{"build/**", "!build/icons", "!build/icons/*.png"},
			gone:     []string{"build/latest.yml", "build/mac"},
			kept:     []string{"build/icons/256x256.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			touch(t, root, "build/icons/256x256.png")
			touch(t, root, "build/latest.yml")
			touch(t, root, "build/mac/App.app/Info.plist")

			if _, err := utils.DeletePatterns(tt.patterns, utils.DeleteOptions{Root: root}); err != nil {
				t.Fatal(err)
			}
			for _, rel := range tt.gone {
				if exists(root, rel) {
					t.Errorf("%s should be deleted", rel)
				}
			}
			for _, rel := range tt.kept {
				if !exists(root, rel) {
					t.Errorf("%s should be kept", rel)
				}
			}
		})
	}
}

func TestStaticPrefix(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"src/main/index.js", "src/main"},
		{"src/renderer/**/*.vue", "src/renderer"},
		{"build/*", "build"},
		{"*.js", ""},
		{"index.js", ""},
	}
	for _, tt := range tests {
		if got := utils.StaticPrefix(tt.pattern); got != tt.want {
			t.Errorf("StaticPrefix(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

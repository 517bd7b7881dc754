//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/letsbuild/letsbuild/internal/engine"
	"github.com/letsbuild/letsbuild/internal/state"
	"github.com/letsbuild/letsbuild/pkg/cli"
	"github.com/letsbuild/letsbuild/pkg/config"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/types"
)

// writeProject creates an electron-vue style project with a main and a
// renderer entry point
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	defaults := map[string]string{
		"src/main/index.js": `const { app } = require("electron")
app.on("ready", () => console.log(process.env.NODE_ENV))
`,
		"src/renderer/main.js": `import { greet } from "./greet"
document.body.textContent = greet("letsbuild")
`,
		"src/renderer/greet.js": "export const greet = (name) => `hello ${name}`\n",
		"build/icons/icon.icns": "icon",
		"build/mac/old.dmg":     "stale",
	}
	for rel, content := range files {
		defaults[rel] = content
	}
	for rel, content := range defaults {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func execute(t *testing.T, root, target string, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("BUILD_TARGET", target)
	t.Setenv("CI", "true")

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	c := cli.NewCLIWithOutput(&cli.Config{
		Version:  "test",
		Terminal: func() config.Terminal { return config.Terminal{Columns: 120} },
	}, out, errOut)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	err := c.ExecuteContext(ctx, append(args, "--root", root))
	return out.String(), errOut.String(), err
}

func TestEndToEndDesktopBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	root := writeProject(t, nil)

	out, _, err := execute(t, root, "desktop")
	if err != nil {
		t.Fatalf("desktop build failed: %v\n%s", err, out)
	}

	for _, rel := range []string{"dist/electron/main.js", "dist/electron/renderer.js"} {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			t.Fatalf("missing %s: %v", rel, err)
		}
		if rel == "dist/electron/main.js" && !strings.Contains(string(data), "production") {
			t.Error("NODE_ENV should be inlined into the main bundle")
		}
	}

	mainAt := strings.Index(out, "dist/electron/main.js")
	rendererAt := strings.Index(out, "dist/electron/renderer.js")
	if mainAt < 0 || rendererAt < 0 || mainAt > rendererAt {
		t.Errorf("reports should list main before renderer:\n%s", out)
	}
	if !strings.Contains(out, "take it away `electron-builder`") {
		t.Errorf("missing hand-off line:\n%s", out)
	}

	record, err := state.NewStateManager(root, logger.Discard()).ReadState(types.ModeDesktop)
	if err != nil {
		t.Fatalf("state not recorded: %v", err)
	}
	if record.Status != state.BuildStatusSucceeded || record.BuildCount != 1 {
		t.Errorf("unexpected record %+v", record)
	}
}

func TestBuildFailureExitCodes(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	broken := map[string]string{"src/renderer/main.js": "export const = ;\n"}

	t.Run("web reports and succeeds", func(t *testing.T) {
		root := writeProject(t, broken)
		out, _, err := execute(t, root, "web")
		if cli.ExitCode(err) != 0 {
			t.Fatalf("web build should exit 0, got %v", err)
		}
		if !strings.Contains(out, "main.js") {
			t.Errorf("expected diagnostics in output:\n%s", out)
		}
	})

	t.Run("desktop fails", func(t *testing.T) {
		root := writeProject(t, broken)
		out, errOut, err := execute(t, root, "desktop")
		if !errors.Is(err, engine.ErrTaskFailed) || cli.ExitCode(err) != 1 {
			t.Fatalf("desktop build should fail, got %v", err)
		}
		if !strings.Contains(out, "failed to build renderer process") {
			t.Errorf("missing failure line:\n%s", out)
		}
		if errOut == "" {
			t.Error("diagnostics should be written to the error stream")
		}
	})
}

func TestCleanKeepsIcons(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	root := writeProject(t, nil)

	if _, _, err := execute(t, root, "clean"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "build/icons/icon.icns")); err != nil {
		t.Error("icons should survive clean")
	}
	if _, err := os.Stat(filepath.Join(root, "build/mac")); !os.IsNotExist(err) {
		t.Error("build/mac should be removed")
	}
}

func TestConfigFileOverridesTasks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	root := writeProject(t, map[string]string{
		config.FileName: `web:
  output: ["public/*"]
  tasks:
    - name: web
      config:
        entryPoints: ["src/renderer/main.js"]
        outdir: public
        platform: browser
        format: esm
`,
	})

	out, _, err := execute(t, root, "web")
	if err != nil {
		t.Fatalf("web build failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(root, "public/main.js")); err != nil {
		t.Errorf("expected public/main.js: %v", err)
	}
}

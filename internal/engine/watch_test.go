package engine_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/letsbuild/letsbuild/internal/engine"
	"github.com/letsbuild/letsbuild/pkg/bundler"
	"github.com/letsbuild/letsbuild/pkg/config"
	"github.com/letsbuild/letsbuild/pkg/logger"
	"github.com/letsbuild/letsbuild/pkg/mocks"
	"github.com/letsbuild/letsbuild/pkg/types"
)

func TestSourceDirs(t *testing.T) {
	task := func(entries ...string) types.Task {
		return types.Task{Name: "t", Config: types.BundleConfig{EntryPoints: entries}}
	}

	tests := []struct {
		name  string
		tasks []types.Task
		want  []string
	}{
		{
			name:  "desktop defaults",
			tasks: config.Default().Desktop.Tasks,
			want:  []string{"src/main", "src/renderer"},
		},
		{
			name:  "nested directories collapse",
			tasks: []types.Task{task("src/index.js"), task("src/renderer/main.js", "src/renderer/views/app.js")},
			want:  []string{"src"},
		},
		{
			name:  "shared prefix is not nesting",
			tasks: []types.Task{task("src/app/a.js", "src/app2/b.js")},
			want:  []string{"src/app", "src/app2"},
		},
		{
			name:  "glob uses static base",
			tasks: []types.Task{task("src/pages/**/*.js")},
			want:  []string{"src/pages"},
		},
		{
			name:  "entries in root fall back to root",
			tasks: []types.Task{task("index.js")},
			want:  []string{"."},
		},
		{
			name:  "leading dot slash is normalized",
			tasks: []types.Task{task("./lib/main.js")},
			want:  []string{"lib"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.SourceDirs(tt.tasks); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SourceDirs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBundler(ctrl)

	built := make(chan struct{}, 4)
	b.EXPECT().Bundle(gomock.Any(), webConfig).DoAndReturn(
		func(context.Context, types.BundleConfig) (bundler.Stats, error) {
			select {
			case built <- struct{}{}:
			default:
			}
			return mocks.StaticStats{Report: "ok"}, nil
		}).MinTimes(2)

	d, h := newDispatcher(t, types.ModeWeb, b)
	w := engine.NewWatch(d, engine.WatchOptions{SettlingDelay: 20 * time.Millisecond}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitBuild := func() {
		t.Helper()
		select {
		case <-built:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for build")
		}
	}

	waitBuild()
	// give the watcher goroutine time to start reading events
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(h.root, "src/renderer/main.js"), []byte("changed"), 0644); err != nil {
		t.Fatal(err)
	}
	waitBuild()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_RejectsClean(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := engine.NewDispatcher(config.Options{Mode: types.ModeClean, ProjectRoot: t.TempDir()}, nil, engine.Dependencies{
		Bundler: mocks.NewMockBundler(ctrl),
		Console: logger.NewConsole(&bytes.Buffer{}, &bytes.Buffer{}),
	})
	if err := engine.NewWatch(d, engine.WatchOptions{}, nil).Run(context.Background()); err == nil {
		t.Error("expected clean to be rejected")
	}
}

func TestWatch_MissingDirectoryFailsBeforeBuilding(t *testing.T) {
	ctrl := gomock.NewController(t)
	d, h := newDispatcher(t, types.ModeWeb, mocks.NewMockBundler(ctrl))

	w := engine.NewWatch(d, engine.WatchOptions{Dirs: []string{"src", "missing"}}, nil)
	err := w.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to watch missing") {
		t.Fatalf("expected watch error for the missing directory, got %v", err)
	}
	if h.out.Len() != 0 {
		t.Errorf("nothing should be built, got %q", h.out.String())
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
	tu "github.com/desertthunder/vidx/internal/testing"
)

func setupApp(t *testing.T) (*cli.Command, *fakeConn, *bytes.Buffer) {
	t.Helper()
	conn := &fakeConn{FakeEngine: tu.NewFakeEngine()}
	conn.SetItems(models.FilterList,
		models.DownloadItem{ID: 3, Name: "three", URL: "http://a.example/3.m3u8", Status: models.StatusReady},
		models.DownloadItem{ID: 2, Name: "two", URL: "http://a.example/2.m3u8", Status: models.StatusDownloading},
		models.DownloadItem{ID: 1, Name: "one", URL: "http://a.example/1.m3u8", Status: models.StatusFailed},
	)
	conn.SetItems(models.FilterDone,
		models.DownloadItem{ID: 9, Name: "nine", URL: "http://a.example/9.m3u8", Status: models.StatusSuccess, Exist: true},
	)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Logger: shared.NopLogger(),
		Output: output,
		Dial:   func(context.Context) (Conn, error) { return conn, nil },
	})
	app := &cli.Command{Name: "vidx", Commands: runner.register()}
	return app, conn, output
}

func run(t *testing.T, app *cli.Command, args ...string) error {
	t.Helper()
	return app.Run(context.Background(), append([]string{"vidx"}, args...))
}

func TestListCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		app, conn, output := setupApp(t)

		if err := run(t, app, "list"); err != nil {
			t.Fatalf("list error = %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "Downloading: 3 tasks") || !strings.Contains(out, "2. two [downloading]") {
			t.Errorf("unexpected listing %q", out)
		}
		if !conn.closed {
			t.Error("expected the connection to be closed")
		}
	})

	t.Run("done as markdown", func(t *testing.T) {
		app, _, output := setupApp(t)

		if err := run(t, app, "list", "--filter", "done", "--format", "md"); err != nil {
			t.Fatalf("list error = %v", err)
		}
		if !strings.Contains(output.String(), "1. **nine** `downloaded`") {
			t.Errorf("unexpected listing %q", output.String())
		}
	})

	t.Run("to file", func(t *testing.T) {
		app, _, _ := setupApp(t)
		path := filepath.Join(t.TempDir(), "tasks.csv")

		if err := run(t, app, "list", "--format", "csv", "-o", path); err != nil {
			t.Fatalf("list error = %v", err)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.HasPrefix(content, "ID,Name,Status,Tags,Progress,Speed,URL\n") {
			t.Errorf("expected csv header, got %q", content)
		}
	})

	t.Run("bad filter", func(t *testing.T) {
		app, _, _ := setupApp(t)
		if err := run(t, app, "list", "--filter", "archived"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestTaskCommands(t *testing.T) {
	t.Run("start one", func(t *testing.T) {
		app, conn, output := setupApp(t)

		if err := run(t, app, "start", "3"); err != nil {
			t.Fatalf("start error = %v", err)
		}
		if ids := conn.IDsFor(engine.MethodStartDownload); len(ids) != 1 || ids[0] != 3 {
			t.Errorf("unexpected starts %v", ids)
		}
		if !strings.Contains(output.String(), "Task added to the download queue") {
			t.Errorf("expected notice, got %q", output.String())
		}
	})

	t.Run("start many stops at first failure", func(t *testing.T) {
		app, conn, output := setupApp(t)
		conn.FailFor(engine.MethodStartDownload, 2, errors.New("already running"))

		err := run(t, app, "start", "3", "2", "1")
		if err == nil {
			t.Fatal("expected bulk start to fail")
		}
		if ids := conn.IDsFor(engine.MethodStartDownload); len(ids) != 2 {
			t.Errorf("expected the run to stop at task 2, got %v", ids)
		}
		if !strings.Contains(output.String(), "✗") {
			t.Errorf("expected error notice, got %q", output.String())
		}
	})

	t.Run("delete many", func(t *testing.T) {
		app, conn, _ := setupApp(t)

		if err := run(t, app, "delete", "1", "3"); err != nil {
			t.Fatalf("delete error = %v", err)
		}
		if ids := conn.IDsFor(engine.MethodDeleteItem); len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
			t.Errorf("unexpected deletes %v", ids)
		}
	})

	t.Run("add with start", func(t *testing.T) {
		app, conn, output := setupApp(t)

		if err := run(t, app, "add", "--start", "http://a.example/new.m3u8", "new", "clip"); err != nil {
			t.Fatalf("add error = %v", err)
		}
		calls := conn.CallsTo(engine.MethodAddItem)
		if len(calls) != 1 || calls[0].Arg.(models.NewDownloadItem).Name != "new clip" {
			t.Fatalf("unexpected add calls %+v", calls)
		}
		if ids := conn.IDsFor(engine.MethodStartDownload); len(ids) != 1 || ids[0] != 101 {
			t.Errorf("expected the new task to start, got %v", ids)
		}
		if !strings.Contains(output.String(), "101\tnew clip") {
			t.Errorf("expected created id, got %q", output.String())
		}
	})

	t.Run("add batch file", func(t *testing.T) {
		app, conn, _ := setupApp(t)
		path := filepath.Join(t.TempDir(), "batch.txt")
		if err := os.WriteFile(path, []byte("http://a.example/x.m3u8 x\n\nhttp://a.example/y.m3u8\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := run(t, app, "add", "--batch-file", path, "--headers", "Referer: http://a.example/"); err != nil {
			t.Fatalf("add error = %v", err)
		}
		calls := conn.CallsTo(engine.MethodAddItems)
		if len(calls) != 1 {
			t.Fatalf("expected one batch add, got %d", len(calls))
		}
		items := calls[0].Arg.([]models.NewDownloadItem)
		if len(items) != 2 || items[1].Headers != "Referer: http://a.example/" {
			t.Errorf("unexpected batch %+v", items)
		}
	})

	t.Run("edit keeps unchanged fields", func(t *testing.T) {
		app, conn, _ := setupApp(t)

		if err := run(t, app, "edit", "--name", "renamed", "9"); err != nil {
			t.Fatalf("edit error = %v", err)
		}
		calls := conn.CallsTo(engine.MethodEditItem)
		if len(calls) != 1 {
			t.Fatalf("expected one edit, got %d", len(calls))
		}
		edit := calls[0].Arg.(models.EditDownloadItem)
		if edit.Name != "renamed" || edit.URL != "http://a.example/9.m3u8" {
			t.Errorf("unexpected edit %+v", edit)
		}
	})

	t.Run("edit unknown task", func(t *testing.T) {
		app, _, _ := setupApp(t)
		if err := run(t, app, "edit", "--name", "x", "404"); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("log", func(t *testing.T) {
		app, conn, output := setupApp(t)
		conn.SetLog(1, "10:00:00 [ERROR] manifest returned 404\n")

		if err := run(t, app, "log", "1"); err != nil {
			t.Fatalf("log error = %v", err)
		}
		if output.String() != "10:00:00 [ERROR] manifest returned 404\n" {
			t.Errorf("unexpected log output %q", output.String())
		}
	})

	t.Run("player", func(t *testing.T) {
		app, conn, output := setupApp(t)
		conn.SetLocalIP("10.1.2.3")

		if err := run(t, app, "player", "--open"); err != nil {
			t.Fatalf("player error = %v", err)
		}
		if !strings.Contains(output.String(), "http://10.1.2.3:8433/player") {
			t.Errorf("unexpected player output %q", output.String())
		}
		calls := conn.CallsTo(engine.MethodOpenURL)
		if len(calls) != 1 || calls[0].Arg != "http://10.1.2.3:8433/player" {
			t.Errorf("unexpected open calls %+v", calls)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	app, _, output := setupApp(t)
	if err := run(t, app, "setup", "config", "-c", configPath); err != nil {
		t.Fatalf("setup config error = %v", err)
	}
	tu.AssertFileExists(t, configPath)
	if !strings.Contains(output.String(), "Configuration written") {
		t.Errorf("unexpected output %q", output.String())
	}

	if err := run(t, app, "setup", "config", "-c", configPath); err == nil {
		t.Error("expected an error when the config already exists")
	}

	dbPath := filepath.Join(dir, "vidx.db")
	content := strings.Replace(tu.MustReadFile(t, configPath), `path = "./vidx.db"`, `path = "`+dbPath+`"`, 1)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := run(t, app, "setup", "database", "-c", configPath); err != nil {
		t.Fatalf("setup database error = %v", err)
	}
	tu.AssertFileExists(t, dbPath)
	if err := run(t, app, "setup", "database", "-c", configPath, "--rollback"); err != nil {
		t.Fatalf("rollback error = %v", err)
	}
}

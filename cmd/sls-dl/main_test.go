package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apple/ml-spatial-librispeech/internal/config"
	"github.com/apple/ml-spatial-librispeech/internal/download"
	_ "modernc.org/sqlite"
)

func createMetadata(t *testing.T, ids ...int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "metadata.sqlite")

	db, err := sql.Open("sqlite", p)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE metadata (sample_id INTEGER)"); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if _, err := db.Exec("INSERT INTO metadata VALUES (?)", id); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"plain", errors.New("boom"), exitFailure},
		{"usage", withCode(exitUsage, errors.New("bad flag")), exitUsage},
		{"metadata", withCode(exitMetadata, errors.New("no such column")), exitMetadata},
		{"transport", &download.Error{Kind: download.KindTransport}, exitTransport},
		{"status", fmt.Errorf("run: %w", &download.Error{Kind: download.KindHTTPStatus}), exitHTTPStatus},
		{"storage", &download.Error{Kind: download.KindStorage}, exitStorage},
		{"cancelled", context.Canceled, exitInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWithCode_Nil(t *testing.T) {
	if withCode(exitUsage, nil) != nil {
		t.Error("withCode(nil) should be nil")
	}
}

func TestRootCmd_UnknownFlag(t *testing.T) {
	_, err := execute(t, "--no-such-flag")
	if got := exitCode(err); got != exitUsage {
		t.Errorf("exit code = %d, want %d (err %v)", got, exitUsage, err)
	}
}

func TestRootCmd_InvalidBaseURL(t *testing.T) {
	_, err := execute(t, "--base-url", "ftp://example.com", "--dry-run")
	if got := exitCode(err); got != exitUsage {
		t.Errorf("exit code = %d, want %d (err %v)", got, exitUsage, err)
	}
}

func TestRootCmd_MissingMetadata(t *testing.T) {
	_, err := execute(t,
		"--metadata", filepath.Join(t.TempDir(), "missing.sqlite"),
		"--log-dir", t.TempDir(),
		"--dry-run",
	)
	if got := exitCode(err); got != exitMetadata {
		t.Errorf("exit code = %d, want %d (err %v)", got, exitMetadata, err)
	}
}

func TestRootCmd_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ambisonics/000003.flac" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("flac"))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "audio")
	logDir := t.TempDir()
	args := []string{
		"--metadata", createMetadata(t, 1, 2),
		"--target-path", target,
		"--log-dir", logDir,
		"--base-url", srv.URL,
		"--no-progress",
	}

	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if !strings.Contains(out, "downloaded 2, skipped 0, failed 0 of 2 samples") {
		t.Errorf("output missing summary: %q", out)
	}

	logData, err := os.ReadFile(filepath.Join(logDir, "downloader.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "Download complete") {
		t.Errorf("log missing completion: %q", logData)
	}

	// Sample 3 answers 404.
	args[1] = createMetadata(t, 1, 2, 3)
	out, err = execute(t, args...)
	if got := exitCode(err); got != exitHTTPStatus {
		t.Errorf("exit code = %d, want %d (err %v)", got, exitHTTPStatus, err)
	}
	if !strings.Contains(out, "downloaded 0, skipped 2, failed 1 of 3 samples") {
		t.Errorf("output missing failed count: %q", out)
	}
}

func TestPlanCmd(t *testing.T) {
	target := t.TempDir()
	if err := os.WriteFile(filepath.Join(target, "000002.flac"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "plan",
		"--metadata", createMetadata(t, 1, 2, 3, 1),
		"--target-path", target,
		"--base-url", "https://example.com/v1/",
	)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}

	want := "https://example.com/v1/ambisonics/000001.flac\nhttps://example.com/v1/ambisonics/000003.flac\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestStatusCmd(t *testing.T) {
	target := t.TempDir()
	if err := os.WriteFile(filepath.Join(target, "000002.flac"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "status",
		"--metadata", createMetadata(t, 1, 2),
		"--target-path", target,
	)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}

	for _, want := range []string{"Samples:  2 (2 distinct)", "Present:  1", "Pending:  1", "Complete: 50.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sls.yaml")

	if _, err := execute(t, "config", "init", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if loaded.BaseURL != config.DefaultBaseURL {
		t.Errorf("base_url = %q", loaded.BaseURL)
	}

	_, err = execute(t, "config", "init", path)
	if got := exitCode(err); got != exitUsage {
		t.Errorf("overwrite without --force: exit code = %d, want %d", got, exitUsage)
	}

	if _, err := execute(t, "config", "init", "--force", path); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}
}

func TestConfigInit_RequiresPath(t *testing.T) {
	_, err := execute(t, "config", "init")
	if got := exitCode(err); got != exitUsage {
		t.Errorf("exit code = %d, want %d", got, exitUsage)
	}
}

package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/apple/ml-spatial-librispeech/internal/config"
	"github.com/apple/ml-spatial-librispeech/internal/download"
	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func newTestModel() Model {
	settings := config.DefaultSettings()
	settings.MetadataPath = "/data/metadata.parquet"
	return NewModel(settings, nil)
}

func TestNewModel_PrefillsMetadataPath(t *testing.T) {
	m := newTestModel()

	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput", m.state)
	}
	if got := m.textInput.Value(); got != "/data/metadata.parquet" {
		t.Errorf("input = %q", got)
	}
	if !strings.Contains(m.View(), "Metadata file or URL") {
		t.Error("input view missing prompt")
	}
}

func TestUpdate_ToggleOptions(t *testing.T) {
	m := newTestModel()

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})

	if !m.playlist || !m.verbose {
		t.Errorf("playlist = %v, verbose = %v, want both on", m.playlist, m.verbose)
	}
	if got := m.textInput.Value(); got != "/data/metadata.parquet" {
		t.Errorf("option keys changed the input to %q", got)
	}
	if !strings.Contains(m.View(), "[x] Create playlist") {
		t.Error("view does not show the playlist option as checked")
	}
}

func TestUpdate_EnterRequiresInput(t *testing.T) {
	m := newTestModel()
	m.textInput.SetValue("  ")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StateInput {
		t.Errorf("state = %v, want StateInput", m.state)
	}
}

func TestUpdate_InitError(t *testing.T) {
	m := newTestModel()
	m.state = StateInitializing

	m = update(t, m, InitDoneMsg{Err: errors.New("metadata file not found")})

	if m.state != StateError {
		t.Fatalf("state = %v, want StateError", m.state)
	}
	if !strings.Contains(m.View(), "metadata file not found") {
		t.Error("error view does not show the error")
	}
}

func TestUpdate_DownloadDone(t *testing.T) {
	m := newTestModel()
	m.state = StateDownloading

	m = update(t, m, DownloadDoneMsg{
		Summary: &download.Summary{Downloaded: 3, Skipped: 2, Playlist: "/data/spatial-librispeech.m3u"},
		Files:   5,
		TotalF:  5,
	})

	if m.state != StateComplete {
		t.Fatalf("state = %v, want StateComplete", m.state)
	}
	view := m.View()
	if !strings.Contains(view, "Downloaded: 3") || !strings.Contains(view, "Skipped: 2") {
		t.Errorf("complete view missing counts: %q", view)
	}
	if !strings.Contains(view, "spatial-librispeech.m3u") {
		t.Error("complete view missing playlist path")
	}
}

func TestUpdate_DownloadFailed(t *testing.T) {
	m := newTestModel()
	m.state = StateDownloading

	err := &download.Error{Kind: download.KindHTTPStatus, URL: "https://example.com/ambisonics/000002.flac", StatusCode: 404}
	m = update(t, m, DownloadDoneMsg{Summary: &download.Summary{Downloaded: 1}, Err: err})

	if m.state != StateError {
		t.Fatalf("state = %v, want StateError", m.state)
	}
	if !strings.Contains(m.View(), "rerun to resume") {
		t.Error("error view should mention resuming")
	}
}

func TestUpdate_EscCancels(t *testing.T) {
	m := newTestModel()
	m.state = StateDownloading

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.state != StateError || !errors.Is(m.err, errCancelled) {
		t.Errorf("state = %v, err = %v", m.state, m.err)
	}
	if m.ctx.Err() == nil {
		t.Error("context not cancelled")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if m.state != StateInput || m.ctx.Err() != nil {
		t.Errorf("reset failed: state = %v, ctx err = %v", m.state, m.ctx.Err())
	}
}

func TestUpdate_ProgressFiltersVerbose(t *testing.T) {
	m := newTestModel()
	m.state = StateDownloading

	m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "Downloaded: 000001.flac", Level: download.LevelVerbose}})
	if len(m.logs) != 0 {
		t.Errorf("verbose event shown without verbose mode: %v", m.logs)
	}

	m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "Error downloading 000002.flac", Level: download.LevelError}})
	if len(m.logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(m.logs))
	}

	for i := 0; i < maxLogs+5; i++ {
		m = update(t, m, ProgressMsg{Event: download.ProgressEvent{Message: "info", Level: download.LevelInfo}})
	}
	if len(m.logs) != maxLogs {
		t.Errorf("logs = %d, want %d", len(m.logs), maxLogs)
	}
}

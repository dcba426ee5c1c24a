package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/facebook"
	"github.com/dioftwx-beep/fb-discord-watcher/internal/history"
)

func TestHistoryActionDisabled(t *testing.T) {
	clearRelayEnv(t)
	useConfigFile(t, filepath.Join(t.TempDir(), "config.yaml"))

	err := historyAction(newRunCmd(t), nil)
	if err == nil || !strings.Contains(err.Error(), "history is disabled") {
		t.Fatalf("err = %v, want history disabled", err)
	}
}

func TestHistoryActionListsDeliveries(t *testing.T) {
	clearRelayEnv(t)
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "history.db")
	t.Setenv("HISTORY_DB", dbPath)
	useConfigFile(t, filepath.Join(tmpDir, "config.yaml"))

	db, err := history.Open(dbPath)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	if err := db.RecordDelivery(context.Background(), facebook.Post{
		ID:      "42_7",
		Message: "fresh bread\nat eight",
	}); err != nil {
		t.Fatalf("record delivery: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close history: %v", err)
	}

	out, err := captureStdout(t, func() error { return historyAction(newRunCmd(t), nil) })
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "42_7")
	// Newlines in the message are flattened for the one-line listing.
	requireContains(t, out, "fresh bread at eight")
}

func TestHistoryActionEmptyArchive(t *testing.T) {
	clearRelayEnv(t)
	tmpDir := t.TempDir()
	t.Setenv("HISTORY_DB", filepath.Join(tmpDir, "history.db"))
	useConfigFile(t, filepath.Join(tmpDir, "config.yaml"))

	out, err := captureStdout(t, func() error { return historyAction(newRunCmd(t), nil) })
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No deliveries recorded yet.")
}

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type refresher struct{}

func TestClassLoggerWritesCallerAndClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := Init(path); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer Close()

	NewLogger(&refresher{}).JustLog("native balance fetched")
	NewNamed("Scheduler").Log("tick")
	NewNamed("Network").LogObject("Network", struct {
		Name   string
		Dialer func()
	}{Name: "nile"})

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, "[refresher][TestClassLoggerWritesCallerAndClass] native balance fetched") {
		t.Fatalf("missing class/caller prefix in %q", out)
	}
	if !strings.Contains(out, "[Scheduler]") {
		t.Fatalf("missing named logger line in %q", out)
	}
	if !strings.Contains(out, `"Name": "nile"`) || !strings.Contains(out, `"Dialer": "<function>"`) {
		t.Fatalf("object not logged in %q", out)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := truncate(long, statusWidth)
	if len([]rune(got)) != 140 || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected shortening: %d runes", len([]rune(got)))
	}
	if truncate("short", statusWidth) != "short" {
		t.Fatalf("short message changed")
	}
}

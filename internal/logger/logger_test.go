package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNew_WritesDailyJSONFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	log, err := New(dir, false, false)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	log.Infow("site deleted", "idsite", 4)
	_ = log.Sync()

	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"site deleted"`) || !strings.Contains(string(raw), `"idsite":4`) {
		t.Fatalf("unexpected log content: %s", raw)
	}
	if zap.L() == prev {
		t.Fatalf("global logger not replaced")
	}
}

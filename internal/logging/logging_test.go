package logging_test

import (
	"testing"

	"leadboard/internal/logging"
)

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"", "debug", "info", "warn", "error"} {
		l, err := logging.New(lvl, "json")
		if err != nil {
			t.Fatalf("level %q: %v", lvl, err)
		}
		_ = l.Sync()
	}
	if _, err := logging.New("loud", "console"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if logging.OrNop(nil) == nil {
		t.Fatalf("expected nop logger")
	}
}

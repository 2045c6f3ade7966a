package player

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDiscardDrainsStream(t *testing.T) {
	r := strings.NewReader(strings.Repeat("a", 1<<20))
	if err := (Discard{}).Play(context.Background(), r); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("%d bytes left unread", r.Len())
	}
}

func TestDiscardStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (Discard{}).Play(ctx, strings.NewReader("abc"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewCommand(t *testing.T) {
	if _, err := NewCommand("   "); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := NewCommand("definitely-not-a-real-player-binary -i -"); err == nil {
		t.Error("expected error for missing binary")
	}
}

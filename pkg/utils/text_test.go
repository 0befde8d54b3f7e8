package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("préstamo urgente", 3); got != "pré..." {
		t.Errorf("multi-byte runes must not be split, got %q", got)
	}
	if got := Truncate("héllo", 5); got != "héllo" {
		t.Errorf("string of exactly maxLen runes unchanged, got %q", got)
	}
}

package search

import (
	"strings"
	"testing"
)

func TestSnippet(t *testing.T) {
	if Snippet("short", "", 10) != "short" {
		t.Error("short string should be unchanged")
	}
	if got := Snippet("long text here", "", 4); got != "long..." {
		t.Errorf("got %s", got)
	}
	if Snippet("x", "", 0) != "x" {
		t.Error("maxLen 0 should return as-is")
	}
}

func TestSnippet_centersOnQueryTerm(t *testing.T) {
	content := strings.Repeat("filler words ", 20) + "please send gift cards today"
	got := Snippet(content, "Gift cards needed", 30)
	if !strings.HasPrefix(got, "...") || !strings.Contains(got, "gift") {
		t.Errorf("snippet should start near the match, got %q", got)
	}

	early := "gift cards " + strings.Repeat("filler ", 20)
	if got := Snippet(early, "gift", 20); strings.HasPrefix(got, "...") {
		t.Errorf("match inside the first window should not shift, got %q", got)
	}
	if got := Snippet(content, "zebra", 20); strings.HasPrefix(got, "...") {
		t.Errorf("no match should truncate from the start, got %q", got)
	}
}

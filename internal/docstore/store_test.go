package docstore

import (
	"strings"
	"testing"
)

func TestStore_EmptyByDefault(t *testing.T) {
	s := New()
	text, ok := s.Text()
	if ok || text != "" {
		t.Errorf("empty store returned (%q, %v), want (\"\", false)", text, ok)
	}
	if s.Count() != 0 {
		t.Errorf("Count = %d, want 0", s.Count())
	}
}

func TestStore_AddCombinesWithSeparator(t *testing.T) {
	s := New()
	s.Add("one.txt", "txt", "first document")
	s.Add("two.txt", "txt", "second document")

	text, ok := s.Text()
	if !ok {
		t.Fatal("Text() reported empty store")
	}
	want := "first document" + Separator + "second document"
	if text != want {
		t.Errorf("Text() = %q, want %q", text, want)
	}

	sources := s.Sources()
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sources))
	}
	if sources[0].Name != "one.txt" || sources[1].Name != "two.txt" {
		t.Errorf("source names = %s, %s", sources[0].Name, sources[1].Name)
	}
	for _, src := range sources {
		if src.Status != SourceStatusLoaded {
			t.Errorf("source %s status = %s, want loaded", src.Name, src.Status)
		}
	}
}

func TestStore_SetTextReplaces(t *testing.T) {
	s := New()
	s.Add("one.txt", "txt", "first")
	s.Add("two.txt", "txt", "second")

	src := s.SetText("Pasted Text", "paste", "pasted content")
	if src.Size != len("pasted content") {
		t.Errorf("source size = %d, want %d", src.Size, len("pasted content"))
	}

	text, _ := s.Text()
	if text != "pasted content" {
		t.Errorf("Text() = %q after SetText, want just the pasted content", text)
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d after SetText, want 1", s.Count())
	}
}

func TestStore_Clear(t *testing.T) {
	s := New()
	s.Add("one.txt", "txt", "content")
	s.Clear()

	if _, ok := s.Text(); ok {
		t.Error("store still has text after Clear")
	}
	if len(s.Sources()) != 0 {
		t.Error("store still has sources after Clear")
	}
}

func TestStore_SourcesIsACopy(t *testing.T) {
	s := New()
	s.Add("one.txt", "txt", "content")

	sources := s.Sources()
	sources[0].Name = "mutated"

	if s.Sources()[0].Name != "one.txt" {
		t.Error("mutating the returned slice affected the store")
	}
	if !strings.HasSuffix(s.Sources()[0].Name, ".txt") {
		t.Error("unexpected source name")
	}
}

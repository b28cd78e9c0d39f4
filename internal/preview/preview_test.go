package preview

import (
	"context"
	"errors"
	"os"
	"testing"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
)

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"photo.JPG":              KindImage,
		"diagram.svg":            KindImage,
		"scan.tar.pdf":           KindPDF,
		"Report.PDF":             KindPDF,
		"notes.txt":              KindOther,
		"archive.pdf.zip":        KindOther,
		"/media/a/b/c.webp":      KindImage,
		"http://h/media/x.pdf?v": KindPDF,
		"noext":                  KindOther,
		"Q1 report #2.pdf":       KindPDF,
		"why?.pdf":               KindPDF,
		"shot #3.png":            KindImage,
		"https://h/a.png#frag":   KindImage,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Fatalf("Classify(%q): want %q got %q", in, want, got)
		}
	}
}

func TestURL(t *testing.T) {
	cases := []struct{ origin, file, want string }{
		{"http://api.local:8000", "/media/a.png", "http://api.local:8000/media/a.png"},
		{"http://api.local:8000/", "media/a.png", "http://api.local:8000/media/a.png"},
		{"http://api.local", "https://cdn.example/a.png", "https://cdn.example/a.png"},
		{"http://api.local", "", ""},
	}
	for _, c := range cases {
		if got := URL(c.origin, c.file); got != c.want {
			t.Fatalf("URL(%q, %q): want %q got %q", c.origin, c.file, c.want, got)
		}
	}
}

type fakeFetcher struct {
	calls map[int]int
	fail  map[int]error
}

func (f *fakeFetcher) Fetch(_ context.Context, id int) ([]byte, string, error) {
	if f.calls == nil {
		f.calls = map[int]int{}
	}
	f.calls[id]++
	if err := f.fail[id]; err != nil {
		return nil, "", err
	}
	return []byte("%PDF-1.4"), "application/pdf", nil
}

func TestCache_SyncMaterializesPDFsOnly(t *testing.T) {
	f := &fakeFetcher{fail: map[int]error{3: &api.APIError{Status: 404}}}
	c := NewCache(f, nil)
	defer c.Close()

	atts := []model.Attachment{
		{ID: 1, Filename: "a.pdf"},
		{ID: 2, Filename: "b.png"},
		{ID: 3, Filename: "gone.pdf"},
	}
	if err := c.Sync(context.Background(), atts); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	p, ok := c.Path(1)
	if !ok {
		t.Fatalf("expected pdf 1 materialized")
	}
	if b, err := os.ReadFile(p); err != nil || string(b) != "%PDF-1.4" {
		t.Fatalf("unexpected file contents: %q %v", b, err)
	}
	if _, ok := c.Path(2); ok {
		t.Fatalf("images are not materialized")
	}
	if _, ok := c.Path(3); ok {
		t.Fatalf("404 should leave no entry")
	}
	if f.calls[2] != 0 {
		t.Fatalf("image should never be fetched")
	}

	// Same id set: nothing refetched.
	if err := c.Sync(context.Background(), atts); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if f.calls[1] != 1 {
		t.Fatalf("expected one fetch for pdf 1, got %d", f.calls[1])
	}
}

func TestCache_ReleasesOnSetChangeAndClose(t *testing.T) {
	f := &fakeFetcher{}
	c := NewCache(f, nil)
	ctx := context.Background()

	if err := c.Sync(ctx, []model.Attachment{{ID: 1, Filename: "a.pdf"}}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	old, _ := c.Path(1)

	if err := c.Sync(ctx, []model.Attachment{{ID: 1, Filename: "a.pdf"}, {ID: 4, Filename: "d.pdf"}}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if f.calls[1] != 2 {
		t.Fatalf("set change should refetch pdf 1, got %d fetches", f.calls[1])
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 files, got %d", c.Len())
	}

	cur, _ := c.Path(4)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, p := range []string{old, cur} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed, stat err=%v", p, err)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after Close")
	}
}

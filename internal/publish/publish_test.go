package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"taskflow-cli/internal/model"
)

func sampleBundle() Bundle {
	now := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	from := model.StatusPending
	return Bundle{
		Task: model.Task{
			ID:              7,
			Title:           "Hello",
			Description:     "Some **markdown**.",
			Status:          model.StatusOngoing,
			Priority:        model.PriorityHigh,
			CreatedByDetail: &model.TaskUser{ID: 2, Username: "ada"},
			AssigneesDetail: []model.TaskUser{{ID: 3, Username: "grace"}},
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		Comments: []model.TaskComment{
			{ID: 2, Author: 3, AuthorDetail: &model.TaskUser{Username: "grace"}, Body: "second", CreatedAt: now.Add(2 * time.Hour)},
			{ID: 1, Author: 2, AuthorDetail: &model.TaskUser{Username: "ada"}, Body: "first", CreatedAt: now.Add(time.Hour)},
		},
		Links:       []model.TaskLink{{ID: 1, URL: "https://example.com", Label: "Design"}},
		Attachments: []model.Attachment{{ID: 1, File: "/media/a.pdf", Filename: "a.pdf"}},
		History: []model.StatusHistoryEntry{
			{ID: 1, CreatedAt: now, ToStatus: model.StatusPending},
			{ID: 2, CreatedAt: now.Add(time.Hour), FromStatus: &from, ToStatus: model.StatusOngoing, ChangedBy: &model.UserRef{Username: "ada"}},
		},
	}
}

func TestRenderTaskMarkdown_IncludesThreads(t *testing.T) {
	md := RenderTaskMarkdown(sampleBundle(), RenderOptions{Origin: "http://api.test", IncludeHistory: true})
	for _, want := range []string{
		"# Hello",
		"- Status: Ongoing",
		"- Assignees: grace",
		"Some **markdown**.",
		"- [Design](https://example.com)",
		"- [a.pdf](http://api.test/media/a.pdf)",
		"- 2025-12-20T01:00:00Z pending → ongoing by ada",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
	if strings.Index(md, "first") > strings.Index(md, "second") {
		t.Fatalf("comments should be oldest first:\n%s", md)
	}
}

func TestRenderTaskMarkdown_HistoryIsOptional(t *testing.T) {
	md := RenderTaskMarkdown(sampleBundle(), RenderOptions{})
	if strings.Contains(md, "Status history") {
		t.Fatalf("history should be left out by default")
	}
	if !strings.Contains(md, "(/media/a.pdf)") {
		t.Fatalf("without an origin the raw file path is kept:\n%s", md)
	}
}

func TestWriteTasks_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	b := sampleBundle()

	res, err := WriteTasks([]Bundle{b}, dir, WriteOptions{Title: "Export"})
	if err != nil {
		t.Fatalf("WriteTasks: %v", err)
	}
	if len(res.Written) != 2 {
		t.Fatalf("expected page and index; got %v", res.Written)
	}
	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(index), "## Ongoing") || !strings.Contains(string(index), "(tasks/7.md)") {
		t.Fatalf("unexpected index:\n%s", index)
	}

	if _, err := WriteTasks([]Bundle{b}, dir, WriteOptions{}); err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected overwrite refusal; got %v", err)
	}
	if _, err := WriteTasks([]Bundle{b}, dir, WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

package tui

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func TestRenderMarkdown_RendersDescription(t *testing.T) {
	if got := renderMarkdown("   ", 40); got != "" {
		t.Fatalf("expected empty output for blank description; got %q", got)
	}

	md := "# Plan\n\n" + strings.Repeat("word ", 60) + "\n\n- **first** item\n- second item"
	out := renderMarkdown(md, 40)
	plain := xansi.Strip(out)
	if !strings.Contains(plain, "first") || !strings.Contains(plain, "Plan") {
		t.Fatalf("expected rendered text; got %q", plain)
	}
	if strings.Contains(plain, "**") {
		t.Fatalf("expected emphasis markers to be rendered; got %q", plain)
	}
}

func TestMarkdownStyleConfig_DropsDocumentMargin(t *testing.T) {
	for _, style := range []string{"dark", "light"} {
		cfg := markdownStyleConfig(style)
		if cfg.Document.Margin == nil || *cfg.Document.Margin != 0 {
			t.Fatalf("%s: expected zero document margin", style)
		}
	}
}

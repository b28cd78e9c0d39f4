package cli

import (
	"strings"
	"testing"
)

func TestDocs_ListAndRaw(t *testing.T) {
	e := newCLIEnv(t)
	topics := dataMap(t, e.mustEnv("docs"))["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected topics")
	}

	stdout, _, err := runCLI(t, e.args("docs", "tasks", "--raw"))
	if err != nil {
		t.Fatalf("docs tasks --raw: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# Tasks") {
		t.Fatalf("expected raw markdown; got %q", stdout)
	}
	if stderr := e.mustFail("docs", "nope"); !strings.Contains(stderr, "unknown docs topic") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}

package docs

import "testing"

func TestTopicsAreListedAndReadable(t *testing.T) {
	topics := Topics()
	if len(topics) == 0 {
		t.Fatalf("expected embedded topics")
	}
	for _, topic := range topics {
		body, ok := Get(topic)
		if !ok || body == "" {
			t.Fatalf("topic %q listed but not readable", topic)
		}
	}
}

func TestGet_CaseInsensitiveAndRejectsPaths(t *testing.T) {
	if _, ok := Get("TASKS"); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
	for _, bad := range []string{"", "../docs", "content/tasks", "nope"} {
		if _, ok := Get(bad); ok {
			t.Fatalf("Get(%q) should fail", bad)
		}
	}
}

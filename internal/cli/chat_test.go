package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"taskflow-cli/internal/apitest"
	"taskflow-cli/internal/model"
)

func TestChat_DirectChannelAndSend(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")

	ch := dataMap(t, e.mustEnv("chat", "channels", "create", "--direct", strconv.Itoa(apitest.GraceID)))
	if ch["display_name"] != "grace" || ch["channel_type"] != "direct" {
		t.Fatalf("direct channel: %v", ch)
	}
	id := strconv.Itoa(num(ch["id"]))

	file := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	msg := dataMap(t, e.mustEnv("chat", "send", id, "--file", file))
	if msg["content"] != " " {
		t.Fatalf("file-only message should carry a single space; got %q", msg["content"])
	}
	e.mustEnv("chat", "send", id, "--text", "second")

	list := dataList(t, e.mustEnv("chat", "channels", "list"))
	if len(list) != 1 || list[0].(map[string]any)["subtitle"] != "second" {
		t.Fatalf("channels list: %v", list)
	}
	if n := len(dataList(t, e.mustEnv("chat", "messages", "list", id))); n != 2 {
		t.Fatalf("expected 2 messages; got %d", n)
	}

	if stderr := e.mustFail("chat", "channels", "create", "--group"); stderr == "" {
		t.Fatalf("group channel without a name should fail")
	}
	if stderr := e.mustFail("chat", "send", id); stderr == "" {
		t.Fatalf("empty send should fail")
	}
}

func TestNotifications_ListReadAll(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	n := e.srv.AddNotification(model.Notification{Title: "Assigned", Message: "You were assigned", NotificationType: "task_assigned"})
	e.srv.AddNotification(model.Notification{Title: "Due soon", NotificationType: model.NotificationDeadline})

	list := e.mustEnv("notifications", "list")
	if num(list["meta"].(map[string]any)["unread"]) != 2 {
		t.Fatalf("unread: %v", list["meta"])
	}
	e.mustEnv("notifications", "read", strconv.Itoa(n.ID))
	if got := len(dataList(t, e.mustEnv("notifications", "list", "--unread"))); got != 1 {
		t.Fatalf("expected one unread after read; got %d", got)
	}
	e.mustEnv("notifications", "read-all")
	if got := len(dataList(t, e.mustEnv("notifications", "list", "--unread"))); got != 0 {
		t.Fatalf("expected none unread; got %d", got)
	}
}

func TestNotifications_WatchStreamsPushesOnce(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []byte, 1)
	go func() {
		stdout, _, _ := runCLIContext(ctx, t, e.args("notifications", "watch", "--quiet"))
		done <- stdout
	}()

	if !e.srv.WaitForSockets("/ws/notifications/", 1, 5*time.Second) {
		cancel()
		t.Fatalf("watch never connected")
	}
	push := map[string]any{"id": 501, "title": "Ping", "message": "hello"}
	e.srv.Broadcast("/ws/notifications/", push)
	e.srv.Broadcast("/ws/notifications/", push)
	e.srv.Broadcast("/ws/notifications/", map[string]any{"id": 502, "title": "Pong"})
	time.Sleep(300 * time.Millisecond)
	cancel()

	var stdout []byte
	select {
	case stdout = <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not stop after cancel")
	}

	var ids []int
	sc := bufio.NewScanner(bytes.NewReader(stdout))
	for sc.Scan() {
		var n model.Notification
		if err := json.Unmarshal(sc.Bytes(), &n); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		ids = append(ids, n.ID)
	}
	if len(ids) != 2 || ids[0] != 501 || ids[1] != 502 {
		t.Fatalf("expected 501 then 502 once each; got %v", ids)
	}
}

func TestUsers_AdminGate(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	if n := len(dataList(t, e.mustEnv("users", "list"))); n != 3 {
		t.Fatalf("expected 3 users; got %d", n)
	}
	e.mustFail("users", "list", "--full")
	e.mustFail("users", "create", "--username", "x", "--password", "y")

	e.login("admin")
	u := dataMap(t, e.mustEnv("users", "create", "--username", "linus", "--password", "pw", "--role", "2"))
	id := strconv.Itoa(num(u["id"]))
	if u["role_detail"].(map[string]any)["name"] != "Manager" {
		t.Fatalf("role: %v", u["role_detail"])
	}
	upd := dataMap(t, e.mustEnv("users", "update", id, "--active=false", "--clear-role"))
	if upd["is_active"] != false || upd["role"] != nil {
		t.Fatalf("update: %v", upd)
	}
	if stderr := e.mustFail("users", "update", strconv.Itoa(apitest.AdminID), "--active=false"); !strings.Contains(stderr, "cannot deactivate your own account") {
		t.Fatalf("expected self-deactivation refusal: %q", stderr)
	}
	if n := len(dataList(t, e.mustEnv("roles", "list"))); n != 2 {
		t.Fatalf("expected 2 roles; got %d", n)
	}
}

func TestAttachments_UploadDownloadPreview(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	tk := e.srv.AddTask(model.Task{Title: "docs", CreatedBy: apitest.AdaID})
	tid := strconv.Itoa(tk.ID)
	e.srv.AddAttachment(tk.ID, "shot.png", []byte("png"))

	src := filepath.Join(t.TempDir(), "brief.pdf")
	if err := os.WriteFile(src, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}
	up := e.mustEnv("attachments", "upload", tid, src)
	if up["meta"].(map[string]any)["kind"] != "pdf" {
		t.Fatalf("upload meta: %v", up["meta"])
	}
	pdfID := strconv.Itoa(num(dataMap(t, up)["id"]))

	dest := filepath.Join(t.TempDir(), "out", "copy.pdf")
	e.mustEnv("attachments", "download", pdfID, dest)
	if b, err := os.ReadFile(dest); err != nil || string(b) != "%PDF-1.7" {
		t.Fatalf("download: %q %v", b, err)
	}

	entries := dataList(t, e.mustEnv("attachments", "preview", tid))
	if len(entries) != 2 {
		t.Fatalf("expected 2 preview entries; got %v", entries)
	}
	for _, raw := range entries {
		en := raw.(map[string]any)
		switch en["kind"] {
		case "image":
			if en["url"] == "" || en["path"] != nil {
				t.Fatalf("image entry: %v", en)
			}
		case "pdf":
			p, _ := en["path"].(string)
			if b, err := os.ReadFile(p); err != nil || string(b) != "%PDF-1.7" {
				t.Fatalf("pdf preview file: %q %v", b, err)
			}
			_ = os.RemoveAll(filepath.Dir(p))
		default:
			t.Fatalf("unexpected kind: %v", en)
		}
	}
}

func TestDashboard_Badges(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	past := time.Now().Add(-time.Hour)
	for i := 0; i < 2; i++ {
		e.srv.AddTask(model.Task{Title: "late", Deadline: &past, Assignees: model.IDList{apitest.AdaID}})
	}
	e.srv.AddNotification(model.Notification{Title: "x"})

	env := e.mustEnv("dashboard")
	d := dataMap(t, env)
	meta := env["meta"].(map[string]any)
	if num(d["my_tasks"]) != 2 || len(d["overdue"].([]any)) != 2 || num(d["unread"]) != 1 {
		t.Fatalf("dashboard: %v", d)
	}
	if meta["overdue_badge"] != "2" || meta["unread_badge"] != "1" {
		t.Fatalf("badges: %v", meta)
	}
}

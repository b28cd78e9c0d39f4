package cli

import (
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

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()
	return runCLIContext(context.Background(), t, args)
}

func runCLIContext(ctx context.Context, t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()
	cmd := NewRootCmd()
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	e := cmd.ExecuteContext(ctx)
	return outBuf.Bytes(), errBuf.Bytes(), e
}

type cliEnv struct {
	t   *testing.T
	srv *apitest.Server
	dir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TASKFLOW_CONFIG_DIR", dir)
	t.Setenv("TASKFLOW_PASSWORD", "")
	return &cliEnv{t: t, srv: apitest.New(t), dir: dir}
}

func (e *cliEnv) args(args ...string) []string {
	return append([]string{"--config-dir", e.dir, "--api-url", e.srv.URL}, args...)
}

func (e *cliEnv) mustEnv(args ...string) map[string]any {
	e.t.Helper()
	stdout, stderr, err := runCLI(e.t, e.args(args...))
	if err != nil {
		e.t.Fatalf("command failed: taskflow %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, stderr, stdout)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		e.t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, stdout, args)
	}
	if _, ok := env["data"]; !ok {
		e.t.Fatalf("expected JSON envelope to contain data key; got: %v", env)
	}
	if meta, ok := env["meta"]; ok && meta != nil {
		if _, ok := meta.(map[string]any); !ok {
			e.t.Fatalf("expected meta to be object; got %T", meta)
		}
	}
	return env
}

func (e *cliEnv) mustFail(args ...string) string {
	e.t.Helper()
	_, stderr, err := runCLI(e.t, e.args(args...))
	if err == nil {
		e.t.Fatalf("expected taskflow %v to fail", args)
	}
	return string(stderr)
}

func (e *cliEnv) login(username string) {
	e.t.Helper()
	e.mustEnv("login", "--username", username, "--password", apitest.Password)
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object; got %T", env["data"])
	}
	return m
}

func dataList(t *testing.T, env map[string]any) []any {
	t.Helper()
	xs, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("expected data list; got %T", env["data"])
	}
	return xs
}

func num(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func TestLogin_PersistsSessionAcrossInvocations(t *testing.T) {
	e := newCLIEnv(t)

	if stderr := e.mustFail("whoami"); !strings.Contains(stderr, "not logged in") {
		t.Fatalf("expected not logged in; got %q", stderr)
	}

	e.login("ada")
	who := dataMap(t, e.mustEnv("whoami"))
	if who["username"] != "ada" {
		t.Fatalf("whoami: %v", who)
	}
	if _, err := os.Stat(filepath.Join(e.dir, "session.sqlite")); err != nil {
		t.Fatalf("expected session database: %v", err)
	}

	out := dataMap(t, e.mustEnv("logout"))
	if out["logged_out"] != true {
		t.Fatalf("logout: %v", out)
	}
	e.mustFail("whoami")
}

func TestLogin_BadPasswordPrintsDetail(t *testing.T) {
	e := newCLIEnv(t)
	stderr := e.mustFail("login", "--username", "ada", "--password", "nope")
	if !strings.Contains(stderr, "No active account") {
		t.Fatalf("expected backend detail on stderr; got %q", stderr)
	}
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	e := newCLIEnv(t)
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(apitest.Password + "\n"))
	cmd.SetArgs(e.args("login", "--username", "grace"))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out.String(), `"grace"`) {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestTasks_CreateUpdateAssignShow(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")

	created := dataMap(t, e.mustEnv("tasks", "create", "--title", "Ship it", "--priority", "high", "--deadline", "2030-01-15", "--assignee", strconv.Itoa(apitest.AdaID)))
	id := strconv.Itoa(num(created["id"]))
	if created["priority"] != "high" {
		t.Fatalf("priority: %v", created["priority"])
	}

	updated := dataMap(t, e.mustEnv("tasks", "update", id, "--status", "doing", "--deadline", "none"))
	if updated["status"] != "ongoing" || updated["deadline"] != nil {
		t.Fatalf("update: %v", updated)
	}

	assigned := e.mustEnv("tasks", "assign", id, strconv.Itoa(apitest.GraceID))
	if assigned["meta"].(map[string]any)["assigned"] != true {
		t.Fatalf("expected grace assigned: %v", assigned["meta"])
	}
	ids := dataMap(t, assigned)["assignees"].([]any)
	if len(ids) != 2 {
		t.Fatalf("expected two assignees; got %v", ids)
	}

	e.mustEnv("tasks", "comments", "add", id, "--body", "on it")
	e.mustEnv("tasks", "links", "add", id, "https://example.com/design", "--label", "doc")

	show := e.mustEnv("tasks", "show", id)
	d := dataMap(t, show)
	if len(d["comments"].([]any)) != 1 || len(d["links"].([]any)) != 1 {
		t.Fatalf("show: %v", d)
	}
	meta := show["meta"].(map[string]any)
	if meta["can_comment"] != true {
		t.Fatalf("creator should be able to comment: %v", meta)
	}
	trans := meta["transitions"].([]any)
	if len(trans) != 2 || trans[0] != "created → pending" || trans[1] != "pending → ongoing" {
		t.Fatalf("transitions: %v", trans)
	}

	if stderr := e.mustFail("tasks", "update", id); !strings.Contains(stderr, "nothing to update") {
		t.Fatalf("expected empty update to fail: %q", stderr)
	}
}

func TestTasks_ShowMissingIsNotFound(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	if stderr := e.mustFail("tasks", "show", "9999"); !strings.Contains(stderr, "task not found: 9999") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
	if stderr := e.mustFail("tasks", "show", "abc"); !strings.Contains(stderr, "invalid task id") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}

func TestTasks_ListViews(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	past := time.Now().Add(-24 * time.Hour)
	e.srv.AddTask(model.Task{Title: "late", Deadline: &past, Assignees: model.IDList{apitest.AdaID}})
	e.srv.AddTask(model.Task{Title: "theirs", Assignees: model.IDList{apitest.GraceID}, Status: model.StatusFinished})

	list := e.mustEnv("tasks", "list", "--mine")
	if len(dataList(t, list)) != 1 || num(list["meta"].(map[string]any)["overdue"]) != 1 {
		t.Fatalf("mine: %v", list)
	}

	kanban := dataList(t, e.mustEnv("tasks", "list", "--view", "kanban"))
	if len(kanban) != 4 || kanban[0].(map[string]any)["status"] != "pending" {
		t.Fatalf("kanban: %v", kanban)
	}
	if n := len(kanban[2].(map[string]any)["tasks"].([]any)); n != 1 {
		t.Fatalf("finished column should hold one task; got %d", n)
	}

	cal := dataMap(t, e.mustEnv("tasks", "list", "--view", "calendar", "--month", "2026-02"))
	if num(cal["month"]) != 2 || len(cal["weeks"].([]any)) == 0 {
		t.Fatalf("calendar: %v", cal)
	}

	if stderr := e.mustFail("tasks", "list", "--status", "blocked"); !strings.Contains(stderr, "invalid status") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}

func TestTasks_TableFormat(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	e.srv.AddTask(model.Task{Title: "Render me", Assignees: model.IDList{apitest.AdaID}})
	stdout, stderr, err := runCLI(t, e.args("--format", "table", "tasks", "list"))
	if err != nil {
		t.Fatalf("table: %v\n%s", err, stderr)
	}
	if !strings.Contains(string(stdout), "Render me") || !strings.Contains(string(stdout), "TITLE") {
		t.Fatalf("unexpected table:\n%s", stdout)
	}
}

func TestCommentAdd_DeniedForBystander(t *testing.T) {
	e := newCLIEnv(t)
	e.login("grace")
	tk := e.srv.AddTask(model.Task{Title: "not mine", CreatedBy: apitest.AdaID})
	stderr := e.mustFail("tasks", "comments", "add", strconv.Itoa(tk.ID), "--body", "hi")
	if !strings.Contains(stderr, "permission denied") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}

func TestSessionRefreshesTransparently(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	e.srv.ExpireAccessTokens()

	e.mustEnv("tasks", "list")
	if e.srv.RefreshCalls() != 1 {
		t.Fatalf("expected one refresh; got %d", e.srv.RefreshCalls())
	}
	// The refreshed token was persisted: no second refresh on the next run.
	e.mustEnv("tasks", "list")
	if e.srv.RefreshCalls() != 1 {
		t.Fatalf("expected refreshed token to be reused; got %d refreshes", e.srv.RefreshCalls())
	}
}

func TestSessionExpiredLogsOut(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	e.srv.ExpireAccessTokens()
	e.srv.SetRefreshFails(true)

	if stderr := e.mustFail("tasks", "list"); !strings.Contains(stderr, "taskflow login") {
		t.Fatalf("expected login hint; got %q", stderr)
	}
	if stderr := e.mustFail("whoami"); !strings.Contains(stderr, "not logged in") {
		t.Fatalf("expected cleared session; got %q", stderr)
	}
}

func TestTasks_PublishWritesPages(t *testing.T) {
	e := newCLIEnv(t)
	e.login("ada")
	created := dataMap(t, e.mustEnv("tasks", "create", "--title", "Write docs"))
	id := strconv.Itoa(num(created["id"]))
	e.mustEnv("tasks", "comments", "add", id, "--body", "draft is up")

	out := filepath.Join(t.TempDir(), "site")
	env := e.mustEnv("tasks", "publish", id, "--to", out, "--title", "Board")
	if num(env["meta"].(map[string]any)["count"]) != 2 {
		t.Fatalf("expected task page and index: %v", env["meta"])
	}
	page, err := os.ReadFile(filepath.Join(out, "tasks", id+".md"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(page), "# Write docs") || !strings.Contains(string(page), "draft is up") {
		t.Fatalf("unexpected page:\n%s", page)
	}
	if _, err := os.Stat(filepath.Join(out, "index.md")); err != nil {
		t.Fatalf("expected index.md: %v", err)
	}

	if stderr := e.mustFail("tasks", "publish", id, "--to", out); !strings.Contains(stderr, "file exists") {
		t.Fatalf("expected overwrite refusal: %q", stderr)
	}
	e.mustEnv("tasks", "publish", id, "--to", out, "--overwrite")
}

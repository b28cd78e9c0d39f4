// Package publish writes tasks out as a small Markdown site: one page per task plus an index.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/store"
)

type WriteOptions struct {
	Origin         string
	IncludeHistory bool
	Overwrite      bool
	// Title heads index.md; empty skips the index.
	Title string
}

type WriteResult struct {
	Written []string `json:"written"`
}

func WriteTasks(bundles []Bundle, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	tasksDir := filepath.Join(toDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	var written []string
	ropt := RenderOptions{Origin: opt.Origin, IncludeHistory: opt.IncludeHistory}
	tasks := make([]model.Task, 0, len(bundles))
	// Stop on the first error; earlier pages stay written.
	for _, b := range bundles {
		p := filepath.Join(tasksDir, strconv.Itoa(b.Task.ID)+".md")
		if err := writeFile(p, []byte(RenderTaskMarkdown(b, ropt)), opt.Overwrite); err != nil {
			return WriteResult{Written: written}, err
		}
		written = append(written, p)
		tasks = append(tasks, b.Task)
	}

	if opt.Title != "" {
		p := filepath.Join(toDir, "index.md")
		if err := writeFile(p, []byte(RenderIndexMarkdown(opt.Title, tasks)), opt.Overwrite); err != nil {
			return WriteResult{Written: written}, err
		}
		written = append(written, p)
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return store.WriteFile(path, b, 0o644)
}

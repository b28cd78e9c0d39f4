package preview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/store"

	"go.uber.org/zap"
)

// Fetcher returns the authenticated bytes of an attachment; api.AttachmentsAPI satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, id int) ([]byte, string, error)
}

// Cache holds PDF attachments as local files for the lifetime of a task view.
type Cache struct {
	fetch Fetcher
	log   *zap.Logger

	mu    sync.Mutex
	dir   string
	ids   string
	files map[int]string
}

func NewCache(fetch Fetcher, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{fetch: fetch, log: log, files: map[int]string{}}
}

// Sync materializes the PDFs among atts. When the PDF id set differs from the previous call,
// every earlier file is released first. Fetch failures are skipped.
func (c *Cache) Sync(ctx context.Context, atts []model.Attachment) error {
	var pdfs []model.Attachment
	for _, a := range atts {
		if Classify(attachmentName(a)) == KindPDF {
			pdfs = append(pdfs, a)
		}
	}
	key := idKey(pdfs)

	c.mu.Lock()
	if key != c.ids {
		c.releaseLocked()
		c.ids = key
	}
	if c.dir == "" && len(pdfs) > 0 {
		dir, err := os.MkdirTemp("", "taskflow-preview-*")
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("preview dir: %w", err)
		}
		c.dir = dir
	}
	dir := c.dir
	var missing []model.Attachment
	for _, a := range pdfs {
		if _, ok := c.files[a.ID]; !ok {
			missing = append(missing, a)
		}
	}
	c.mu.Unlock()

	for _, a := range missing {
		b, _, err := c.fetch.Fetch(ctx, a.ID)
		if err != nil {
			if !api.IsNotFound(err) {
				c.log.Debug("fetch attachment", zap.Int("id", a.ID), zap.Error(err))
			}
			continue
		}
		dest := filepath.Join(dir, fmt.Sprintf("%d-%s", a.ID, safeName(attachmentName(a))))
		if err := store.WriteFile(dest, b, 0o600); err != nil {
			c.log.Warn("write preview", zap.String("path", dest), zap.Error(err))
			continue
		}
		c.mu.Lock()
		if c.dir == dir && c.ids == key {
			c.files[a.ID] = dest
		} else {
			_ = os.Remove(dest)
		}
		c.mu.Unlock()
	}
	return nil
}

// Path returns the local file for a PDF attachment.
func (c *Cache) Path(id int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.files[id]
	return p, ok
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}

// Close releases every file and the cache directory.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
	c.ids = ""
	if c.dir == "" {
		return nil
	}
	err := os.RemoveAll(c.dir)
	c.dir = ""
	return err
}

func (c *Cache) releaseLocked() {
	for id, p := range c.files {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			c.log.Debug("release preview", zap.String("path", p), zap.Error(err))
		}
		delete(c.files, id)
	}
}

func attachmentName(a model.Attachment) string {
	if a.Filename != "" {
		return a.Filename
	}
	return a.File
}

func idKey(atts []model.Attachment) string {
	ids := make([]int, 0, len(atts))
	for _, a := range atts {
		ids = append(ids, a.ID)
	}
	sort.Ints(ids)
	return fmt.Sprint(ids)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeName(name string) string {
	base := filepath.Base(name)
	if u := unsafeChars.ReplaceAllString(base, "_"); u != "" && u != "." && u != "_" {
		return u
	}
	return "file.pdf"
}

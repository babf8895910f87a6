// File: internal/engine/debug.go
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// SnapshotSource is the slice of Page that debug capture needs.
type SnapshotSource interface {
	CaptureHTML(ctx context.Context) (string, error)
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

// Capture persists diagnostic snapshots (full document markup plus a
// full-page image) under a rolling storage ceiling. Fire-and-forget: capture
// failures are logged, never propagated.
type Capture struct {
	dir        string
	limitBytes int64
	screenshot bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewCapture builds a debug capturer writing into dir, bounded to maxSizeMB.
func NewCapture(dir string, maxSizeMB int, screenshot bool, logger *zap.Logger) *Capture {
	return &Capture{
		dir:        dir,
		limitBytes: int64(maxSizeMB) * 1024 * 1024,
		screenshot: screenshot,
		logger:     logger.Named("debug"),
		now:        time.Now,
	}
}

// Capture writes a tagged snapshot of the page. Before writing it prunes the
// directory so repeated dumps cannot bloat the disk long-term.
func (c *Capture) Capture(ctx context.Context, page SnapshotSource, tag string) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn("Could not create debug directory.", zap.Error(err))
		return
	}
	c.prune()

	stamp := c.now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s", tag, stamp)

	html, err := page.CaptureHTML(ctx)
	if err != nil {
		c.logger.Warn("HTML snapshot failed.", zap.String("tag", tag), zap.Error(err))
	} else if err := os.WriteFile(filepath.Join(c.dir, base+".html"), []byte(html), 0o644); err != nil {
		c.logger.Warn("Could not write HTML snapshot.", zap.Error(err))
	}

	if !c.screenshot {
		return
	}
	png, err := page.CaptureScreenshot(ctx)
	if err != nil {
		c.logger.Warn("Screenshot failed.", zap.String("tag", tag), zap.Error(err))
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, base+".png"), png, 0o644); err != nil {
		c.logger.Warn("Could not write screenshot.", zap.Error(err))
	}
}

// prune deletes oldest files first until usage falls to ~80% of the limit.
func (c *Capture) prune() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	type fileInfo struct {
		path string
		size int64
		mod  time.Time
	}
	var files []fileInfo
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path: filepath.Join(c.dir, e.Name()),
			size: info.Size(),
			mod:  info.ModTime(),
		})
		total += info.Size()
	}
	if total <= c.limitBytes {
		return
	}

	target := c.limitBytes * 8 / 10
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for _, f := range files {
		if total <= target {
			break
		}
		if err := os.Remove(f.path); err != nil {
			continue
		}
		total -= f.size
	}
}

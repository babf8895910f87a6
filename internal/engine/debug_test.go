// File: internal/engine/debug_test.go
package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCaptureWritesTaggedSnapshot(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{steps: []*fakeStep{{}}}

	c := NewCapture(dir, 25, false, zap.NewNop())
	c.now = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }

	c.Capture(context.Background(), page, "apply_no_entry")

	data, err := os.ReadFile(filepath.Join(dir, "apply_no_entry_20260314_150926.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	// Screenshots are off; only the markup snapshot exists.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCaptureScreenshotToggle(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{steps: []*fakeStep{{}}}

	c := NewCapture(dir, 25, true, zap.NewNop())
	c.now = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }

	c.Capture(context.Background(), page, "apply_checkpoint")

	png, err := os.ReadFile(filepath.Join(dir, "apply_checkpoint_20260314_150926.png"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte{1}, png))
}

func TestCapturePrunesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{steps: []*fakeStep{{}}}

	// Three 400 KiB files against a 1 MiB ceiling: over the limit by one file.
	blob := bytes.Repeat([]byte("x"), 400*1024)
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"old.html", "mid.html", "new.html"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, blob, 0o644))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	c := NewCapture(dir, 1, false, zap.NewNop())
	c.Capture(context.Background(), page, "apply_stuck")

	// Pruning runs to 80% of the ceiling: dropping the oldest file lands at
	// 800 KiB, under the 819 KiB target, so exactly one file goes.
	_, err := os.Stat(filepath.Join(dir, "old.html"))
	assert.True(t, os.IsNotExist(err), "oldest snapshot must be pruned")
	_, err = os.Stat(filepath.Join(dir, "mid.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "new.html"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "two survivors plus the fresh snapshot")
}

func TestExtractFilledAnswers(t *testing.T) {
	page := &fakePage{steps: []*fakeStep{{
		dialog: true,
		controls: []RawControl{
			{Index: 0, Tag: "input", Type: "text", Visible: true,
				LabelText: "How many years of experience do you have with Go?", Value: "5"},
			{Index: 1, Tag: "input", Type: "text", Visible: true,
				LabelText: "First name", Value: "Ada"},
			{Index: 2, Tag: "input", Type: "text", Visible: true,
				LabelText: "Desired salary", Value: ""},
			{Index: 3, Tag: "input", Type: "file", Visible: true,
				LabelText: "Upload resume", Value: "resume.pdf"},
		},
	}}}

	out, err := ExtractFilledAnswers(context.Background(), page, true)
	require.NoError(t, err)

	// Contact fields, empty controls and file inputs never qualify.
	require.Len(t, out, 1)
	assert.Equal(t, "How many years of experience do you have with Go?", out[0].Question)
	assert.Equal(t, "5", out[0].Answer)
}

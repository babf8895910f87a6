// File: internal/engine/detector_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectorScopeSubmitted(t *testing.T) {
	var d Detector

	t.Run("positive signals", func(t *testing.T) {
		for _, text := range []string{
			"Application submitted!\nYou can track it in My Jobs.",
			"Done. Your application was sent to Acme Corp.",
			"Application sent",
			"Your application has been submitted. The application is on its way.",
		} {
			assert.True(t, d.ScopeSubmitted(text), text)
		}
	})

	t.Run("negative signals", func(t *testing.T) {
		for _, text := range []string{
			"Submit application",
			"Review your application",
			"Step 2 of 4",
			"",
		} {
			assert.False(t, d.ScopeSubmitted(text), text)
		}
	})
}

func TestDetectorPageSubmitted(t *testing.T) {
	var d Detector

	t.Run("applied-ago marker with count and unit", func(t *testing.T) {
		for _, text := range []string{
			"Senior QA Engineer\nApplied 26m ago",
			"applied 3 hours ago",
			"Applied 2 weeks ago",
			"Applied 1 mo ago",
		} {
			assert.True(t, d.PageSubmitted(text), text)
		}
	})

	t.Run("bare applied never counts", func(t *testing.T) {
		for _, text := range []string{
			"Applied",
			"applied filters",
			"Easy Apply",
			"Applied ago",
			"applied some time ago",
		} {
			assert.False(t, d.PageSubmitted(text), text)
		}
	})

	t.Run("status copy", func(t *testing.T) {
		assert.True(t, d.PageSubmitted("Application status: Submitted"))
		assert.True(t, d.PageSubmitted("application submitted"))
		assert.True(t, d.PageSubmitted("Your application was sent"))
		assert.False(t, d.PageSubmitted("Application status: In review"))
	})
}

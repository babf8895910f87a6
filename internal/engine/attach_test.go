// File: internal/engine/attach_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresPhotoUpload(t *testing.T) {
	t.Run("scope copy markers", func(t *testing.T) {
		for _, text := range []string{
			"Photo *\nUpload your headshot",
			"Upload photo to continue",
			"Profile photo\nRequired",
			"Acceptable document format (JPG, PNG)",
		} {
			assert.True(t, requiresPhotoUpload(text, nil), text)
		}
	})

	t.Run("image-accepting input labeled photo", func(t *testing.T) {
		raws := []RawControl{
			{Tag: "input", Type: "file", Visible: true, Accept: "image/png,image/jpeg", BoxText: "Upload a photo of yourself"},
		}
		assert.True(t, requiresPhotoUpload("", raws))
	})

	t.Run("resume upload is not a photo requirement", func(t *testing.T) {
		raws := []RawControl{
			{Tag: "input", Type: "file", Visible: true, Accept: ".pdf,.docx", LabelText: "Upload resume"},
		}
		assert.False(t, requiresPhotoUpload("Be sure to include an updated resume", raws))
	})

	t.Run("hidden image input does not trigger the policy", func(t *testing.T) {
		raws := []RawControl{
			{Tag: "input", Type: "file", Visible: false, Accept: "image/*", BoxText: "photo"},
		}
		assert.False(t, requiresPhotoUpload("", raws))
	})
}

// File: internal/engine/attach.go
package engine

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// imageAcceptTokens mark a file input as image-oriented.
var imageAcceptTokens = []string{"image/", ".jpg", ".jpeg", ".png", ".gif"}

// requiresPhotoUpload detects flows demanding a photo/image upload, from the
// scope copy and from image-accepting file inputs labeled as photo controls.
func requiresPhotoUpload(scopeText string, raws []RawControl) bool {
	txt := strings.ToLower(scopeText)
	if strings.Contains(txt, "photo *") ||
		strings.Contains(txt, "photo*") ||
		strings.Contains(txt, "upload photo") ||
		strings.Contains(txt, "profile photo") ||
		strings.Contains(txt, "acceptable document format (jpg") {
		return true
	}
	if strings.Contains(txt, "jpg") && strings.Contains(txt, "jpeg") &&
		strings.Contains(txt, "png") && strings.Contains(txt, "gif") &&
		strings.Contains(txt, "photo") {
		return true
	}

	for _, r := range raws {
		if !r.Visible || !isFileInput(r) {
			continue
		}
		accept := strings.ToLower(r.Accept)
		imageAccept := false
		for _, tok := range imageAcceptTokens {
			if strings.Contains(accept, tok) {
				imageAccept = true
				break
			}
		}
		if !imageAccept {
			continue
		}
		hay := strings.ToLower(accept + " " + r.LabelText + " " + r.BoxText)
		if strings.Contains(hay, "photo") || strings.Contains(hay, "image") {
			return true
		}
	}
	return false
}

func isFileInput(r RawControl) bool {
	return r.Tag == "input" && strings.EqualFold(r.Type, "file")
}

// attachResume uploads the configured resume into the best-matching file
// input, once per attempt. Returns true when the check is complete, whether
// or not a file was attached; the walker never re-runs it within an attempt.
func (w *Walker) attachResume(ctx context.Context, page Page, dialog bool, raws []RawControl, scopeText string) bool {
	// An already-selected resume in the UI wins over re-uploading.
	low := strings.ToLower(scopeText)
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(w.cfg.ResumePath), filepath.Ext(w.cfg.ResumePath)))
	if strings.Contains(low, "resume") &&
		(strings.Contains(low, stem) || strings.Contains(low, ".pdf") || strings.Contains(low, ".docx")) {
		return true
	}

	bestScore := -10000
	bestIdx := -1
	// File inputs are routinely hidden behind styled upload widgets; do not
	// filter on visibility here.
	for _, r := range raws {
		if !isFileInput(r) {
			continue
		}
		hay := strings.ToLower(strings.Join([]string{r.Name, r.AriaLabel, r.Accept, r.LabelText, r.BoxText}, " "))
		score := 0
		if strings.Contains(hay, "resume") {
			score += 3
		}
		if strings.Contains(hay, "cv") {
			score += 2
		}
		if strings.Contains(hay, "cover") {
			score -= 2
		}
		if strings.Contains(hay, "photo") || strings.Contains(hay, "avatar") ||
			strings.Contains(hay, "profile picture") || strings.Contains(hay, "image") {
			score -= 7
		}
		for _, tok := range imageAcceptTokens {
			if strings.Contains(hay, tok) {
				score -= 6
				break
			}
		}
		if r.Required && (strings.Contains(hay, "resume") || strings.Contains(hay, "cv")) {
			score++
		}
		if score > bestScore {
			bestScore = score
			bestIdx = r.Index
		}
	}

	// Never upload the resume to a control that is not clearly resume-like.
	if bestIdx < 0 || bestScore <= 0 {
		return true
	}
	if err := page.AttachFile(ctx, dialog, bestIdx, w.cfg.ResumePath); err != nil {
		w.logger.Warn("Resume upload failed.", zap.Error(err))
		return true
	}
	w.logger.Info("Resume attached.", zap.String("path", w.cfg.ResumePath))
	return true
}

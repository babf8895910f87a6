// File: internal/engine/advance.go
package engine

import (
	"regexp"
	"strings"
)

// advanceLabelRe gates which buttons are even considered as advance controls.
var advanceLabelRe = regexp.MustCompile(`(?i)(submit application|submit|review|next|continue|done)`)

// submitLabelRe marks a control as destructive final submission.
var submitLabelRe = regexp.MustCompile(`(?i)submit`)

// advancePreferred orders labels from most to least decisive.
var advancePreferred = []string{
	"submit application",
	"submit",
	"review",
	"next",
	"continue",
	"done",
}

// advanceBadTokens disqualify background widgets whose buttons carry the same
// labels (carousels routinely have their own "Next").
var advanceBadTokens = []string{"carousel", "pager", "pagination", "slide", "swiper", "slick"}

// buttonLabel is the human-readable label of a button: visible text first,
// accessible name as fallback.
func buttonLabel(b RawButton) string {
	if t := strings.TrimSpace(b.Text); t != "" {
		return t
	}
	return strings.TrimSpace(b.Aria)
}

// ChooseAdvance scores every candidate button and picks the best advance
// control. Label match is a hard gate; geometry then separates the real
// footer action from background look-alikes. Footer buttons sit low and to
// the right; tiny hit targets are almost never the primary action. A disabled
// button stays eligible (the walker reports it) but loses to an enabled twin.
func ChooseAdvance(buttons []RawButton) (RawButton, bool) {
	bestScore := -10000
	bestIdx := -1

	for i, b := range buttons {
		label := strings.ToLower(strings.TrimSpace(strings.TrimSpace(b.Text) + " " + strings.TrimSpace(b.Aria)))
		if !advanceLabelRe.MatchString(label) {
			continue
		}
		id := strings.ToLower(b.TestID)
		cls := strings.ToLower(b.Class)
		skip := false
		for _, tok := range advanceBadTokens {
			if strings.Contains(id, tok) || strings.Contains(cls, tok) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		score := 0
		for rank, token := range advancePreferred {
			if strings.Contains(label, token) {
				score += 100 - rank*10
				break
			}
		}
		if b.Y > 280 {
			score += 20
		}
		if b.X > 420 {
			score += 10
		}
		if b.W < 42 || b.H < 24 {
			score -= 40
		}
		if b.Disabled {
			score -= 10
		} else {
			score += 3
		}

		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return RawButton{}, false
	}
	return buttons[bestIdx], true
}

// File: internal/engine/detector.go
package engine

import (
	"context"
	"regexp"
	"strings"
)

// appliedAgoRe matches the page-level "Applied 26m ago" marker that may
// remain after the step UI has disappeared. The count and unit are mandatory:
// a bare "applied" must never count as success, so false positives are
// structurally ruled out at the cost of tolerable false negatives.
var appliedAgoRe = regexp.MustCompile(`(?i)\bapplied\s+\d+\s*(?:m|h|d|w|mo|minute|minutes|hour|hours|day|days|week|weeks|month|months)\s+ago\b`)

// Detector decides whether the flow reached a terminal success state from
// multiple independent, weak textual signals. Any one signal suffices;
// absence of all signals is not proof of failure.
type Detector struct{}

// ScopeSubmitted evaluates the success signals visible inside the apply scope
// (the modal dialog, usually).
func (Detector) ScopeSubmitted(text string) bool {
	low := strings.ToLower(text)
	return strings.Contains(low, "application submitted") ||
		strings.Contains(low, "your application was sent") ||
		strings.Contains(low, "application sent") ||
		(strings.Contains(low, "submitted") && strings.Contains(low, "application"))
}

// PageSubmitted evaluates the page-level fallback signals, for when the
// dialog closes immediately after submission.
func (Detector) PageSubmitted(text string) bool {
	low := strings.ToLower(text)
	if appliedAgoRe.MatchString(low) {
		return true
	}
	if strings.Contains(low, "application submitted") {
		return true
	}
	if strings.Contains(low, "application status") && strings.Contains(low, "submitted") {
		return true
	}
	return strings.Contains(low, "your application was sent")
}

// Check reads the scope text from the page and evaluates the matching signal
// set. Read errors degrade to false; the walker re-checks later rather than
// concluding failure from one unreadable frame.
func (d Detector) Check(ctx context.Context, page Page, dialog bool) bool {
	text, err := page.ScopeText(ctx, dialog)
	if err != nil {
		return false
	}
	if dialog {
		return d.ScopeSubmitted(text)
	}
	return d.PageSubmitted(text)
}

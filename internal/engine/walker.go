// File: internal/engine/walker.go
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Capturer is the debug-snapshot collaborator. Implementations must be
// fire-and-forget.
type Capturer interface {
	Capture(ctx context.Context, page SnapshotSource, tag string)
}

// WalkerConfig bounds one attempt.
type WalkerConfig struct {
	MaxSteps int
	// Submit authorizes activating a destructive final-submit control. Off by
	// default; without it the walker stops in front of submit and reports
	// needs_manual.
	Submit      bool
	ResumePath  string
	SettleWait  time.Duration
	ApplyUIWait time.Duration
}

// Walker drives one application attempt through the explicit state walk
// Filling -> Advancing -> (Filling | Submitted | NeedsManual | Failed). Every
// exit path is a named terminal outcome; there are no silent loop exits.
type Walker struct {
	cfg       WalkerConfig
	guard     *Guard
	detector  Detector
	resolver  *Resolver
	capture   Capturer
	candidate Candidate
	logger    *zap.Logger

	// harvest, when set, runs right before an authorized final submit, while
	// every answer is still visible in the scope.
	harvest func(ctx context.Context, page Page, dialog bool)
}

// OnBeforeSubmit registers a callback invoked just before the walker
// activates an authorized submit control.
func (w *Walker) OnBeforeSubmit(fn func(ctx context.Context, page Page, dialog bool)) {
	w.harvest = fn
}

// NewWalker assembles a walker from its collaborators.
func NewWalker(cfg WalkerConfig, guard *Guard, resolver *Resolver, capture Capturer, candidate Candidate, logger *zap.Logger) *Walker {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 12
	}
	if cfg.SettleWait <= 0 {
		cfg.SettleWait = 1200 * time.Millisecond
	}
	if cfg.ApplyUIWait <= 0 {
		cfg.ApplyUIWait = 18 * time.Second
	}
	return &Walker{
		cfg:       cfg,
		guard:     guard,
		resolver:  resolver,
		capture:   capture,
		candidate: candidate,
		logger:    logger.Named("walker"),
	}
}

// Run executes one full attempt against a job page URL: guarded navigation,
// already-applied short-circuit, apply-entry activation, then the step walk.
func (w *Walker) Run(ctx context.Context, page Page, jobURL string) AttemptResult {
	res := AttemptResult{
		AttemptID: uuid.New().String(),
		JobURL:    jobURL,
		Started:   time.Now(),
	}
	defer func() { res.Finished = time.Now() }()

	log := w.logger.With(zap.String("attempt_id", res.AttemptID), zap.String("job_url", jobURL))

	if err := page.Navigate(ctx, jobURL); err != nil {
		w.capture.Capture(ctx, page, "apply_job_open_failed")
		return w.failed(&res, ReasonNavigationFailed, errClass(err))
	}
	if url, err := page.URL(ctx); err == nil && w.guard.IsCheckpointURL(url) {
		w.capture.Capture(ctx, page, "apply_checkpoint")
		return w.failed(&res, ReasonCheckpointBlocked, url)
	}

	// The platform usually shows "Applied <N> <unit> ago" on the job page for
	// prior submissions; never re-walk those.
	if w.detector.Check(ctx, page, false) {
		log.Info("Job already applied; skipping walk.")
		return w.submitted(&res, ReasonAlreadyApplied)
	}

	_ = page.Settle(ctx, w.cfg.SettleWait)

	found, externalURL, err := page.FindApplyEntry(ctx)
	if err != nil {
		return w.failed(&res, ReasonNavigationFailed, errClass(err))
	}
	if !found {
		w.capture.Capture(ctx, page, "apply_no_entry")
		return w.needsManual(&res, ReasonNoApplyEntry, externalURL, nil)
	}

	applyPage, err := page.OpenApplyEntry(ctx)
	if err != nil {
		w.capture.Capture(ctx, page, "apply_entry_click_failed")
		return w.failed(&res, ReasonNavigationFailed, errClass(err))
	}

	if !w.waitForApplyUI(ctx, applyPage) {
		w.capture.Capture(ctx, applyPage, "apply_ui_not_found")
		return w.needsManual(&res, ReasonApplyUINotFound, "", nil)
	}

	return w.walk(ctx, applyPage, &res, log)
}

// walk is the per-step state machine.
func (w *Walker) walk(ctx context.Context, page Page, res *AttemptResult, log *zap.Logger) AttemptResult {
	dialog, _ := page.DialogPresent(ctx)
	resumeChecked := false
	lastSig := ""
	sigRepeats := 0

	for step := 1; step <= w.cfg.MaxSteps; step++ {
		res.Step = step
		if err := ctx.Err(); err != nil {
			return w.failed(res, ReasonTimeout, errClass(err))
		}
		log.Debug("Walking step.", zap.Int("step", step), zap.Bool("dialog", dialog))

		// Authentication can be revoked mid-flow.
		url, err := page.URL(ctx)
		if err != nil {
			return w.failed(res, ReasonNavigationFailed, errClass(err))
		}
		if w.guard.IsCheckpointURL(url) {
			w.capture.Capture(ctx, page, "apply_checkpoint")
			return w.failed(res, ReasonCheckpointBlocked, url)
		}

		// Page-level success first: the modal can close instantly after
		// submit, taking its confirmation copy with it.
		if w.detector.Check(ctx, page, false) {
			return w.submitted(res, "page_detected_submitted")
		}
		if dialog {
			present, _ := page.DialogPresent(ctx)
			if !present {
				// Give the UI a moment; it may be transitioning between steps.
				_ = page.Settle(ctx, 2500*time.Millisecond)
				if present, _ = page.DialogPresent(ctx); !present {
					if w.detector.Check(ctx, page, false) {
						return w.submitted(res, "dialog_closed_page_detected_submitted")
					}
					w.capture.Capture(ctx, page, fmt.Sprintf("apply_dialog_gone_s%d", step))
					return w.needsManual(res, ReasonDialogGone, "", nil)
				}
			}
		} else if present, _ := page.DialogPresent(ctx); present {
			dialog = true
		}

		raws, err := page.Controls(ctx, dialog)
		if err != nil {
			w.capture.Capture(ctx, page, fmt.Sprintf("apply_survey_failed_s%d", step))
			return w.failed(res, ReasonNavigationFailed, errClass(err))
		}
		controls := BuildControls(raws)

		w.fillContact(ctx, page, dialog, controls)

		// Policy: flows demanding a photo/image upload are never attempted.
		scopeText, _ := page.ScopeText(ctx, dialog)
		if requiresPhotoUpload(scopeText, raws) {
			w.capture.Capture(ctx, page, fmt.Sprintf("apply_photo_required_s%d", step))
			return w.needsManual(res, ReasonPhotoRequired, "", nil)
		}

		if !resumeChecked && w.cfg.ResumePath != "" {
			resumeChecked = w.attachResume(ctx, page, dialog, raws, scopeText)
		}

		missing := w.fillQuestions(ctx, page, dialog)
		if len(missing) > 0 {
			w.capture.Capture(ctx, page, "apply_questions_missing")
			return w.needsManual(res, ReasonMissingQuestions, "", missing)
		}

		if w.detector.Check(ctx, page, dialog) {
			return w.submitted(res, "detected_submitted_text")
		}

		btn, ok := w.findAdvance(ctx, page, dialog)
		if !ok {
			w.capture.Capture(ctx, page, fmt.Sprintf("apply_no_primary_button_s%d", step))
			return w.needsManual(res, ReasonNoAdvanceControl, "", nil)
		}
		label := buttonLabel(btn)

		// Stall detection: the flow re-showing an indistinguishable step twice
		// in a row means we are stuck, not progressing.
		sig := stepSignature(scopeText, label)
		if sig != "" && sig == lastSig {
			sigRepeats++
		} else {
			lastSig = sig
			sigRepeats = 0
		}
		if sigRepeats >= 2 {
			w.capture.Capture(ctx, page, fmt.Sprintf("apply_stuck_repeating_s%d", step))
			return w.needsManual(res, ReasonStuckRepeating, "", nil)
		}

		if submitLabelRe.MatchString(label) {
			if !w.cfg.Submit {
				w.capture.Capture(ctx, page, fmt.Sprintf("apply_reached_submit_s%d", step))
				return w.needsManual(res, ReasonSubmitNotAuthed, label, nil)
			}
			if w.harvest != nil {
				w.harvest(ctx, page, dialog)
			}
		}

		if btn.Disabled {
			// Surface whatever required fields the survey still sees, so the
			// manual follow-up is actionable.
			var diag []MissingQuestion
			if rr, err := page.Controls(ctx, dialog); err == nil {
				seen := map[string]struct{}{}
				for _, c := range RequiredEmpty(BuildControls(rr)) {
					if _, dup := seen[missingKey(c)]; dup {
						continue
					}
					seen[missingKey(c)] = struct{}{}
					diag = append(diag, AsMissing(c))
				}
			}
			w.capture.Capture(ctx, page, fmt.Sprintf("apply_button_disabled_s%d", step))
			return w.needsManual(res, ReasonButtonDisabled, label, diag)
		}

		if err := w.clickAdvance(ctx, page, dialog, btn); err != nil {
			w.capture.Capture(ctx, page, fmt.Sprintf("apply_primary_click_failed_s%d", step))
			return w.needsManual(res, ReasonClickFailed, errClass(err), nil)
		}
		_ = page.Settle(ctx, w.cfg.SettleWait)

		if dialog {
			if present, _ := page.DialogPresent(ctx); !present && w.detector.Check(ctx, page, false) {
				return w.submitted(res, "page_detected_submitted_after_click")
			}
			// Some flows re-render the dialog; re-resolve the scope next step.
			dialog, _ = page.DialogPresent(ctx)
		}
	}

	w.capture.Capture(ctx, page, "apply_max_steps")
	res.Step = w.cfg.MaxSteps
	return w.needsManual(res, ReasonMaxSteps, "", nil)
}

// fillContact fills the static contact fields when present and empty.
func (w *Walker) fillContact(ctx context.Context, page Page, dialog bool, controls []Control) {
	values := map[string]string{
		NormalizeQuestion("First name"):          w.candidate.FirstName,
		NormalizeQuestion("Last name"):           w.candidate.LastName,
		NormalizeQuestion("Mobile phone number"): w.candidate.PhoneNumber,
		NormalizeQuestion("Email address"):       w.candidate.Email,
	}
	for _, c := range controls {
		if c.Value != "" {
			continue
		}
		if c.Kind == KindSelect && c.QNorm == NormalizeQuestion("Phone country code") {
			if w.candidate.PhoneCountry != "" {
				if opt, ok := matchOption(c.Options, w.candidate.PhoneCountry); ok {
					_ = page.SelectOption(ctx, dialog, c.Index, opt)
				}
			}
			continue
		}
		if c.Kind != KindText {
			continue
		}
		if v := values[c.QNorm]; v != "" {
			_ = page.SetValue(ctx, dialog, c.Index, v)
		}
	}
}

// fillQuestions re-surveys the scope and resolves every required, empty
// control. Each such control either receives a value or lands in the returned
// missing list -- never neither. Every control is filled individually, even
// when several carry the same question; the missing payload alone collapses
// duplicates.
func (w *Walker) fillQuestions(ctx context.Context, page Page, dialog bool) []MissingQuestion {
	raws, err := page.Controls(ctx, dialog)
	if err != nil {
		return nil
	}

	var missing []MissingQuestion
	seen := map[string]struct{}{}
	addMissing := func(c Control) {
		key := missingKey(c)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		missing = append(missing, AsMissing(c))
	}

	for _, c := range RequiredEmpty(BuildControls(raws)) {
		answer, ok, err := w.resolver.Resolve(ctx, c)
		if err != nil {
			w.logger.Warn("Answer resolution errored.", zap.String("question", c.Question), zap.Error(err))
			addMissing(c)
			continue
		}
		if !ok {
			addMissing(c)
			continue
		}
		if err := w.applyAnswer(ctx, page, dialog, c, answer); err != nil {
			w.logger.Warn("Could not apply resolved answer.", zap.String("question", c.Question), zap.Error(err))
			addMissing(c)
		}
	}
	return missing
}

// applyAnswer writes a resolved answer into the control, by kind.
func (w *Walker) applyAnswer(ctx context.Context, page Page, dialog bool, c Control, answer string) error {
	switch c.Kind {
	case KindSelect:
		opt, ok := matchOption(c.Options, answer)
		if !ok {
			return fmt.Errorf("no option matching %q", answer)
		}
		return page.SelectOption(ctx, dialog, c.Index, opt)

	case KindCheckbox:
		yes, ok := ParseBoolAnswer(answer)
		if !ok {
			return fmt.Errorf("unsupported checkbox answer %q", answer)
		}
		return page.SetChecked(ctx, dialog, c.Index, yes)

	case KindRadio:
		yes, ok := ParseBoolAnswer(answer)
		if !ok {
			return fmt.Errorf("unsupported radio answer %q", answer)
		}
		idx, found := pickRadioMember(c, yes)
		if !found {
			return fmt.Errorf("no radio option for %v in group %q", yes, c.GroupName)
		}
		return page.SetChecked(ctx, dialog, idx, true)

	default:
		return page.SetValue(ctx, dialog, c.Index, answer)
	}
}

// pickRadioMember selects the group member matching a yes/no intent.
func pickRadioMember(c Control, yes bool) (int, bool) {
	want, alt := "yes", []string{"true", "1"}
	if !yes {
		want, alt = "no", []string{"false", "0"}
	}
	for i, idx := range c.Members {
		if i >= len(c.Options) {
			break
		}
		label := strings.ToLower(c.Options[i])
		if strings.Contains(label, want) {
			return idx, true
		}
		for _, a := range alt {
			if label == a {
				return idx, true
			}
		}
	}
	return 0, false
}

// matchOption matches an answer against select options: exact
// (case-insensitive) first, then substring either way.
func matchOption(options []string, answer string) (string, bool) {
	low := strings.ToLower(strings.TrimSpace(answer))
	for _, o := range options {
		if strings.ToLower(strings.TrimSpace(o)) == low {
			return o, true
		}
	}
	for _, o := range options {
		ol := strings.ToLower(o)
		if strings.Contains(ol, low) || strings.Contains(low, ol) {
			return o, true
		}
	}
	return "", false
}

// waitForApplyUI polls until the apply UI is present: a dialog, a known
// contact field, or an advance-style button.
func (w *Walker) waitForApplyUI(ctx context.Context, page Page) bool {
	deadline := time.Now().Add(w.cfg.ApplyUIWait)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		if present, _ := page.DialogPresent(ctx); present {
			return true
		}
		if raws, err := page.Controls(ctx, false); err == nil {
			for _, c := range BuildControls(raws) {
				if IsContactQuestion(c.QNorm) {
					return true
				}
			}
		}
		if buttons, err := page.Buttons(ctx, false); err == nil {
			if _, ok := ChooseAdvance(buttons); ok {
				return true
			}
		}
		if err := page.Settle(ctx, 400*time.Millisecond); err != nil {
			return false
		}
	}
	return false
}

// findAdvance locates the best advance control, retrying once for late
// footers and falling back to page scope from a dialog.
func (w *Walker) findAdvance(ctx context.Context, page Page, dialog bool) (RawButton, bool) {
	if buttons, err := page.Buttons(ctx, dialog); err == nil {
		if btn, ok := ChooseAdvance(buttons); ok {
			return btn, true
		}
	}
	// Footers sometimes render after a short spinner delay.
	_ = page.Settle(ctx, 900*time.Millisecond)
	if buttons, err := page.Buttons(ctx, dialog); err == nil {
		if btn, ok := ChooseAdvance(buttons); ok {
			return btn, true
		}
	}
	if dialog {
		if buttons, err := page.Buttons(ctx, false); err == nil {
			return ChooseAdvance(buttons)
		}
	}
	return RawButton{}, false
}

// clickAdvance activates the chosen control, re-finding it once if the scope
// re-rendered between survey and click.
func (w *Walker) clickAdvance(ctx context.Context, page Page, dialog bool, btn RawButton) error {
	err := page.ClickButton(ctx, dialog, btn.Index)
	if err == nil {
		return nil
	}
	_ = page.Settle(ctx, 450*time.Millisecond)
	retry, ok := w.findAdvance(ctx, page, dialog)
	if !ok {
		return err
	}
	return page.ClickButton(ctx, dialog, retry.Index)
}

func (w *Walker) submitted(res *AttemptResult, reason string) AttemptResult {
	res.Outcome = OutcomeSubmitted
	res.Reason = reason
	return *res
}

func (w *Walker) needsManual(res *AttemptResult, reason, detail string, missing []MissingQuestion) AttemptResult {
	res.Outcome = OutcomeNeedsManual
	res.Reason = reason
	res.Detail = detail
	res.Missing = missing
	return *res
}

func (w *Walker) failed(res *AttemptResult, reason, detail string) AttemptResult {
	res.Outcome = OutcomeFailed
	res.Reason = reason
	res.Detail = detail
	return *res
}

// errClass reports the concrete error type name for diagnostics without
// leaking the full chain into structured payloads.
func errClass(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%T: %s", err, firstLineOf(err.Error()))
}

func firstLineOf(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var progressRe = regexp.MustCompile(`(\d{1,3})\s*%`)

// stepSignature is the transient (progress, advance-label) pair used only to
// detect the flow re-showing an identical step.
func stepSignature(scopeText, label string) string {
	progress := ""
	if m := progressRe.FindStringSubmatch(scopeText); m != nil {
		progress = m[1]
	}
	return progress + "|" + strings.ToLower(strings.TrimSpace(label))
}

// File: internal/engine/walker_test.go
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/BondarenkoCom/applyflow/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStep is one rendered state of the apply flow. When dialogTrueFor is
// positive, the dialog reports present for that many probes on this step and
// then vanishes, modeling a modal that closes asynchronously.
type fakeStep struct {
	dialog        bool
	dialogTrueFor int
	dialogProbes  int
	text          string
	controls      []RawControl
	buttons       []RawButton
}

// fakePage is a scripted Page: clicking the advance button moves to the next
// step unless holdOnClick is set.
type fakePage struct {
	url         string
	steps       []*fakeStep
	cur         int
	clicks      int
	holdOnClick bool
	attached    []int
	navigated   []string
	applyFound  bool
	externalURL string
}

func (f *fakePage) step() *fakeStep { return f.steps[f.cur] }

func (f *fakePage) URL(context.Context) (string, error) { return f.url, nil }

func (f *fakePage) Navigate(_ context.Context, u string) error {
	f.navigated = append(f.navigated, u)
	return nil
}

func (f *fakePage) DialogPresent(context.Context) (bool, error) {
	s := f.step()
	if s.dialogTrueFor > 0 {
		s.dialogProbes++
		return s.dialogProbes <= s.dialogTrueFor, nil
	}
	return s.dialog, nil
}

func (f *fakePage) ScopeText(context.Context, bool) (string, error) { return f.step().text, nil }

func (f *fakePage) Controls(context.Context, bool) ([]RawControl, error) {
	out := make([]RawControl, len(f.step().controls))
	copy(out, f.step().controls)
	return out, nil
}

func (f *fakePage) Buttons(context.Context, bool) ([]RawButton, error) {
	return f.step().buttons, nil
}

func (f *fakePage) control(index int) *RawControl {
	for i := range f.step().controls {
		if f.step().controls[i].Index == index {
			return &f.step().controls[i]
		}
	}
	return nil
}

func (f *fakePage) SetValue(_ context.Context, _ bool, index int, value string) error {
	if c := f.control(index); c != nil {
		c.Value = value
	}
	return nil
}

func (f *fakePage) SelectOption(_ context.Context, _ bool, index int, option string) error {
	return f.SetValue(nil, false, index, option)
}

func (f *fakePage) SetChecked(_ context.Context, _ bool, index int, checked bool) error {
	if c := f.control(index); c != nil {
		c.Checked = checked
		if checked {
			if c.OptionLabel != "" {
				c.Value = c.OptionLabel
			} else {
				c.Value = "true"
			}
		} else {
			c.Value = ""
		}
	}
	return nil
}

func (f *fakePage) AttachFile(_ context.Context, _ bool, index int, _ string) error {
	f.attached = append(f.attached, index)
	return nil
}

func (f *fakePage) ClickButton(_ context.Context, _ bool, _ int) error {
	f.clicks++
	if !f.holdOnClick && f.cur+1 < len(f.steps) {
		f.cur++
	}
	return nil
}

func (f *fakePage) FindApplyEntry(context.Context) (bool, string, error) {
	return f.applyFound, f.externalURL, nil
}

func (f *fakePage) OpenApplyEntry(context.Context) (Page, error) { return f, nil }

func (f *fakePage) Settle(context.Context, time.Duration) error { return nil }

func (f *fakePage) CaptureHTML(context.Context) (string, error) { return "<html></html>", nil }

func (f *fakePage) CaptureScreenshot(context.Context) ([]byte, error) { return []byte{1}, nil }

// recCapture records snapshot tags instead of touching the disk.
type recCapture struct {
	tags []string
}

func (r *recCapture) Capture(_ context.Context, _ SnapshotSource, tag string) {
	r.tags = append(r.tags, tag)
}

func newTestWalker(t *testing.T, cfg WalkerConfig, bank Bank) (*Walker, *recCapture) {
	t.Helper()
	guard, err := NewGuard(config.SessionConfig{
		Origin:            "https://www.linkedin.com",
		CookieName:        "li_at",
		LandingURL:        "https://www.linkedin.com/feed/",
		CheckpointPattern: `/checkpoint/|/login|/uas/login|captcha|security verification`,
	}, zap.NewNop())
	require.NoError(t, err)

	capture := &recCapture{}
	if bank == nil {
		bank = &mapBank{}
	}
	walker := NewWalker(cfg, guard, NewResolver(bank, nil), capture, Candidate{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PhoneCountry: "Vietnam (+84)",
		PhoneNumber:  "84123456789",
		Email:        "ada@example.com",
	}, zap.NewNop())
	return walker, capture
}

func footerButton(idx int, text string, disabled bool) RawButton {
	return RawButton{Index: idx, Text: text, Disabled: disabled, X: 600, Y: 500, W: 90, H: 36}
}

func TestWalkerStopsOnUnresolvedRequiredQuestions(t *testing.T) {
	contactStep := &fakeStep{
		dialog: true,
		text:   "Contact info\n25% complete",
		controls: []RawControl{
			{Index: 0, Tag: "input", Type: "text", Visible: true, LabelText: "First name", Required: true},
			{Index: 1, Tag: "input", Type: "text", Visible: true, LabelText: "Email address", Value: "ada@example.com"},
		},
		buttons: []RawButton{footerButton(0, "Next", false)},
	}
	questionStep := &fakeStep{
		dialog: true,
		text:   "Additional Questions\n50% complete",
		controls: []RawControl{
			{Index: 0, Tag: "input", Type: "text", Visible: true, Required: true,
				LabelText: "How many years of experience do you have with SQL?"},
			{Index: 1, Tag: "input", Type: "radio", Name: "workauth", Visible: true, Required: true,
				GroupText: "Are you authorized to work in the United States?*", OptionLabel: "Yes"},
			{Index: 2, Tag: "input", Type: "radio", Name: "workauth", Visible: true,
				OptionLabel: "No"},
		},
		buttons: []RawButton{footerButton(0, "Next", false)},
	}
	submitStep := &fakeStep{
		dialog:  true,
		text:    "Review\n100% complete",
		buttons: []RawButton{footerButton(0, "Submit application", false)},
	}

	page := &fakePage{
		url:        "https://www.linkedin.com/jobs/view/123/",
		steps:      []*fakeStep{contactStep, questionStep, submitStep},
		applyFound: true,
	}
	walker, capture := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonMissingQuestions, res.Reason)
	assert.Equal(t, 2, res.Step)

	require.Len(t, res.Missing, 1)
	missing := res.Missing[0]
	assert.Equal(t, "are you authorized to work in the united states", missing.QNorm)
	assert.Equal(t, []string{"Yes", "No"}, missing.Options)

	// The answerable question was filled before stopping; the flow never
	// reached the submit step and nothing was clicked past step one.
	assert.Equal(t, "4", questionStep.controls[0].Value)
	assert.Equal(t, 1, page.cur, "submit step must never render")
	assert.Equal(t, 1, page.clicks)
	assert.Equal(t, "Ada", contactStep.controls[0].Value, "contact fill ran first")
	assert.Contains(t, capture.tags, "apply_questions_missing")
}

func TestWalkerStopsInFrontOfSubmitWithoutAuthorization(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/99/",
		steps: []*fakeStep{{
			dialog:  true,
			text:    "Review your application\n100% complete",
			buttons: []RawButton{footerButton(0, "Submit application", false)},
		}},
		applyFound: true,
	}
	walker, capture := newTestWalker(t, WalkerConfig{MaxSteps: 12, Submit: false}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonSubmitNotAuthed, res.Reason)
	assert.Equal(t, 1, res.Step)
	assert.Zero(t, page.clicks, "the submit control must never be activated")
	assert.Contains(t, capture.tags, "apply_reached_submit_s1")
}

func TestWalkerSubmitsWhenAuthorized(t *testing.T) {
	reviewStep := &fakeStep{
		dialog: true,
		text:   "Review your application\n100% complete",
		controls: []RawControl{
			{Index: 0, Tag: "input", Type: "text", Visible: true,
				LabelText: "How many years of experience do you have with SQL?", Value: "4"},
		},
		buttons: []RawButton{footerButton(0, "Submit application", false)},
	}
	doneStep := &fakeStep{dialog: false, text: "Application submitted!"}

	page := &fakePage{
		url:        "https://www.linkedin.com/jobs/view/7/",
		steps:      []*fakeStep{reviewStep, doneStep},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12, Submit: true}, nil)

	var harvested []ObservedAnswer
	walker.OnBeforeSubmit(func(ctx context.Context, p Page, dialog bool) {
		harvested, _ = ExtractFilledAnswers(ctx, p, dialog)
	})

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, 1, page.clicks)
	require.Len(t, harvested, 1, "filled answers are harvested right before submit")
	assert.Equal(t, "4", harvested[0].Answer)
}

func TestWalkerFillsEveryDuplicateQuestionControl(t *testing.T) {
	// Two distinct required controls carrying the same question text: both
	// must receive the resolved value, not just the first.
	questionStep := &fakeStep{
		dialog: true,
		text:   "Additional Questions\n50% complete",
		controls: []RawControl{
			{Index: 0, Tag: "input", Type: "text", Visible: true, Required: true,
				LabelText: "How many years of experience do you have with SQL?"},
			{Index: 1, Tag: "input", Type: "text", Visible: true, Required: true,
				LabelText: "How many years of experience do you have with SQL?"},
		},
		buttons: []RawButton{footerButton(0, "Next", false)},
	}
	page := &fakePage{
		url:        "https://www.linkedin.com/jobs/view/17/",
		steps:      []*fakeStep{questionStep, {dialog: false, text: "Application submitted"}},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, "4", questionStep.controls[0].Value)
	assert.Equal(t, "4", questionStep.controls[1].Value, "the duplicate copy must be filled too")
}

func TestWalkerCollapsesDuplicateUnresolvedQuestions(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/18/",
		steps: []*fakeStep{{
			dialog: true,
			text:   "Additional Questions\n50% complete",
			controls: []RawControl{
				{Index: 0, Tag: "input", Type: "text", Visible: true, Required: true,
					LabelText: "What is your favorite color?"},
				{Index: 1, Tag: "input", Type: "text", Visible: true, Required: true,
					LabelText: "What is your favorite color?"},
			},
			buttons: []RawButton{footerButton(0, "Next", false)},
		}},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonMissingQuestions, res.Reason)
	// One payload entry per question, not per control copy.
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "what is your favorite color", res.Missing[0].QNorm)
}

func TestWalkerDetectsStalledStep(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/5/",
		steps: []*fakeStep{{
			dialog:  true,
			text:    "Additional Questions\n50% complete",
			buttons: []RawButton{footerButton(0, "Next", false)},
		}},
		holdOnClick: true,
		applyFound:  true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonStuckRepeating, res.Reason)
	// The first sighting arms the signature, the second and third repeats
	// trip it; two clicks were attempted before giving up.
	assert.Equal(t, 3, res.Step)
	assert.Equal(t, 2, page.clicks)
}

func TestWalkerReportsDisabledAdvanceControl(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/6/",
		steps: []*fakeStep{{
			dialog:  true,
			text:    "Additional Questions\n75% complete",
			buttons: []RawButton{footerButton(0, "Next", true)},
		}},
		applyFound: true,
	}
	walker, capture := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonButtonDisabled, res.Reason)
	assert.Zero(t, page.clicks)
	assert.Contains(t, capture.tags, "apply_button_disabled_s1")
}

func TestWalkerSkipsPhotoRequiredFlows(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/8/",
		steps: []*fakeStep{{
			dialog:  true,
			text:    "Upload photo\nPhoto *",
			buttons: []RawButton{footerButton(0, "Next", false)},
		}},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonPhotoRequired, res.Reason)
	assert.Zero(t, page.clicks)
}

func TestWalkerDialogGoneWithoutSuccessText(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/9/",
		steps: []*fakeStep{
			{
				dialog:  true,
				text:    "Additional Questions\n50% complete",
				buttons: []RawButton{footerButton(0, "Next", false)},
			},
			{dialogTrueFor: 2, text: "Browse more jobs"},
		},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonDialogGone, res.Reason)
	assert.Equal(t, 2, res.Step)
}

func TestWalkerDialogGoneWithSuccessTextMeansSubmitted(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/10/",
		steps: []*fakeStep{
			{
				dialog:  true,
				text:    "Review\n100% complete",
				buttons: []RawButton{footerButton(0, "Submit application", false)},
			},
			{dialog: false, text: "Senior QA Engineer\nApplied 1m ago"},
		},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12, Submit: true}, nil)

	res := walker.Run(context.Background(), page, page.url)
	assert.Equal(t, OutcomeSubmitted, res.Outcome)
}

func TestWalkerShortCircuitsAlreadyAppliedJobs(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/11/",
		steps: []*fakeStep{{
			dialog: false,
			text:   "Senior QA Engineer\nApplied 3 days ago",
		}},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, ReasonAlreadyApplied, res.Reason)
	assert.Zero(t, page.clicks)
}

func TestWalkerReportsMissingApplyEntry(t *testing.T) {
	page := &fakePage{
		url:         "https://www.linkedin.com/jobs/view/12/",
		steps:       []*fakeStep{{dialog: false, text: "Apply on company website"}},
		applyFound:  false,
		externalURL: "https://careers.example.com/apply/123",
	}
	walker, capture := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonNoApplyEntry, res.Reason)
	assert.Equal(t, "https://careers.example.com/apply/123", res.Detail)
	assert.Contains(t, capture.tags, "apply_no_entry")
}

func TestWalkerFailsOnCheckpoint(t *testing.T) {
	page := &fakePage{
		url:        "https://www.linkedin.com/checkpoint/challenge/",
		steps:      []*fakeStep{{dialog: false, text: "Quick verification"}},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	res := walker.Run(context.Background(), page, "https://www.linkedin.com/jobs/view/13/")

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, ReasonCheckpointBlocked, res.Reason)
}

func TestWalkerAttachesResumeToBestFileInput(t *testing.T) {
	applyStep := &fakeStep{
		dialog: true,
		text:   "Resume\n50% complete",
		controls: []RawControl{
			{Index: 0, Tag: "input", Type: "file", Visible: false, Accept: "image/png", BoxText: "Profile photo"},
			{Index: 1, Tag: "input", Type: "file", Visible: false, Accept: ".pdf,.docx", BoxText: "Upload resume"},
		},
		buttons: []RawButton{footerButton(0, "Next", false)},
	}
	page := &fakePage{
		url:        "https://www.linkedin.com/jobs/view/14/",
		steps:      []*fakeStep{applyStep, {dialog: false, text: "Application submitted"}},
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12, ResumePath: "/home/ada/docs/ada_lovelace_cv.pdf"}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeSubmitted, res.Outcome)
	assert.Equal(t, []int{1}, page.attached, "the resume goes to the resume input, never the photo input")
}

func TestWalkerTimesOutMidWalk(t *testing.T) {
	page := &fakePage{
		url: "https://www.linkedin.com/jobs/view/15/",
		steps: []*fakeStep{{
			dialog:  true,
			text:    "Contact info",
			buttons: []RawButton{footerButton(0, "Next", false)},
		}},
		holdOnClick: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 12}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := AttemptResult{AttemptID: "t", JobURL: page.url, Started: time.Now()}
	out := walker.walk(ctx, page, &res, zap.NewNop())

	assert.Equal(t, OutcomeFailed, out.Outcome)
	assert.Equal(t, ReasonTimeout, out.Reason)
}

func TestWalkerMaxStepsIsTerminal(t *testing.T) {
	// Alternate between two distinguishable steps so stall detection never
	// fires; only the step budget stops the loop.
	a := &fakeStep{dialog: true, text: "Questions\n25% complete", buttons: []RawButton{footerButton(0, "Next", false)}}
	b := &fakeStep{dialog: true, text: "Questions\n50% complete", buttons: []RawButton{footerButton(0, "Next", false)}}
	steps := make([]*fakeStep, 0, 8)
	for i := 0; i < 4; i++ {
		steps = append(steps, a, b)
	}
	page := &fakePage{
		url:        "https://www.linkedin.com/jobs/view/16/",
		steps:      steps,
		applyFound: true,
	}
	walker, _ := newTestWalker(t, WalkerConfig{MaxSteps: 3}, nil)

	res := walker.Run(context.Background(), page, page.url)

	assert.Equal(t, OutcomeNeedsManual, res.Outcome)
	assert.Equal(t, ReasonMaxSteps, res.Reason)
	assert.Equal(t, 3, res.Step)
}

// File: internal/engine/types.go
package engine

import (
	"context"
	"time"
)

// ControlKind is the closed set of logical control types the engine reasons
// about. Downstream logic branches on this instead of raw tag/type strings.
type ControlKind string

const (
	KindText     ControlKind = "text"
	KindSelect   ControlKind = "select"
	KindRadio    ControlKind = "radio"
	KindCheckbox ControlKind = "checkbox"
	KindFile     ControlKind = "file"
)

// RawControl is the per-element metadata extracted from the live scope in one
// read-only evaluation pass. Index is the element's position in DOM document
// order among surveyed elements; it is only valid until the next survey.
type RawControl struct {
	Index       int      `json:"index"`
	Tag         string   `json:"tag"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	RawValue    string   `json:"rawValue"`
	Value       string   `json:"value"`
	Required    bool     `json:"required"`
	AriaInvalid bool     `json:"ariaInvalid"`
	Checked     bool     `json:"checked"`
	AriaLabel   string   `json:"ariaLabel"`
	Placeholder string   `json:"placeholder"`
	LabelText   string   `json:"labelText"`
	LabelledBy  string   `json:"labelledBy"`
	GroupText   string   `json:"groupText"`
	BoxText     string   `json:"boxText"`
	OptionLabel string   `json:"optionLabel"`
	Options     []string `json:"options"`
	Accept      string   `json:"accept"`
	Visible     bool     `json:"visible"`
}

// RawButton is the metadata for one visible actionable button in scope.
type RawButton struct {
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Aria     string  `json:"aria"`
	TestID   string  `json:"testid"`
	Class    string  `json:"class"`
	Disabled bool    `json:"disabled"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
}

// Control is one logical form control, re-derived fresh on every walker
// iteration. Radio inputs sharing a group name collapse into a single Control
// whose Options carry the member labels and whose Members carry the raw
// indices in DOM order.
type Control struct {
	Kind      ControlKind
	Tag       string
	Type      string
	GroupName string
	Required  bool
	Value     string
	Options   []string
	Members   []int
	Index     int
	Question  string
	QNorm     string
}

// MissingQuestion is the structured description of one unresolved required
// question. Field names are part of the external needs_manual payload and are
// parsed by the downstream review tool; do not rename.
type MissingQuestion struct {
	Question string   `json:"question"`
	QNorm    string   `json:"q_norm"`
	Tag      string   `json:"tag"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
}

// NeedsManualPayload is the JSON detail attached to needs_manual outcomes.
type NeedsManualPayload struct {
	Reason  string            `json:"reason"`
	Step    int               `json:"step"`
	Missing []MissingQuestion `json:"missing"`
}

// Outcome is the terminal result of one attempt.
type Outcome string

const (
	OutcomeSubmitted   Outcome = "submitted"
	OutcomeNeedsManual Outcome = "needs_manual"
	OutcomeFailed      Outcome = "failed"
)

// Reason codes for non-submitted outcomes. Every one is actionable: it either
// names the missing questions (via Missing) or a concrete stopping condition.
const (
	ReasonCheckpointBlocked  = "checkpoint_blocked"
	ReasonNavigationFailed   = "navigation_failed"
	ReasonTimeout            = "timeout"
	ReasonAlreadyApplied     = "already_applied"
	ReasonNoApplyEntry       = "no_apply_entry"
	ReasonApplyUINotFound    = "apply_ui_not_found"
	ReasonPhotoRequired      = "photo_required_skip"
	ReasonMissingQuestions   = "missing_required_questions"
	ReasonStuckRepeating     = "stuck_repeating_step"
	ReasonSubmitNotAuthed    = "reached_submit_but_submit_disabled"
	ReasonButtonDisabled     = "primary_button_disabled"
	ReasonNoAdvanceControl   = "no_next_or_submit_button"
	ReasonDialogGone         = "dialog_gone_no_success_text"
	ReasonClickFailed        = "primary_click_failed"
	ReasonMaxSteps           = "max_steps_reached"
	ReasonSessionUnavailable = "session_unavailable"
)

// AttemptResult is what one attempt returns to the caller.
type AttemptResult struct {
	AttemptID string
	JobURL    string
	Outcome   Outcome
	Reason    string
	Step      int
	Missing   []MissingQuestion
	// Detail carries auxiliary context (e.g. an external apply URL, or the
	// underlying error class for hard failures).
	Detail   string
	Started  time.Time
	Finished time.Time
}

// Duration reports how long the attempt ran; callers use it for pacing.
func (r AttemptResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Candidate holds the static contact answers for one attempt.
type Candidate struct {
	FirstName    string
	LastName     string
	PhoneCountry string
	PhoneNumber  string
	Email        string
	LinkedIn     string
}

// Page is the browser-driving contract the engine requires. One Page is one
// tab; all operations are bound by the passed context. The dialog flag scopes
// an operation to the visible modal dialog when true, the full page when
// false.
type Page interface {
	URL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	DialogPresent(ctx context.Context) (bool, error)
	ScopeText(ctx context.Context, dialog bool) (string, error)
	Controls(ctx context.Context, dialog bool) ([]RawControl, error)
	Buttons(ctx context.Context, dialog bool) ([]RawButton, error)
	SetValue(ctx context.Context, dialog bool, index int, value string) error
	SelectOption(ctx context.Context, dialog bool, index int, option string) error
	SetChecked(ctx context.Context, dialog bool, index int, checked bool) error
	AttachFile(ctx context.Context, dialog bool, index int, path string) error
	ClickButton(ctx context.Context, dialog bool, index int) error
	// FindApplyEntry reports whether an apply entry control exists on the
	// current job page, and any external (off-site) apply URL discovered.
	FindApplyEntry(ctx context.Context) (found bool, externalURL string, err error)
	// OpenApplyEntry activates the apply entry and returns the page the flow
	// continues on (the same page, or a popup target opened by the click).
	OpenApplyEntry(ctx context.Context) (Page, error)
	Settle(ctx context.Context, d time.Duration) error
	CaptureHTML(ctx context.Context) (string, error)
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

// CookieReader exposes the browser storage check the session guard needs.
type CookieReader interface {
	HasCookie(ctx context.Context, origin, name string) (bool, error)
}

// File: internal/engine/surveyor.go
package engine

import (
	"strings"
)

// contactQNorms are the static contact fields handled by the walker directly;
// they are excluded from question resolution and from missing lists.
var contactQNorms = map[string]struct{}{
	NormalizeQuestion("First name"):          {},
	NormalizeQuestion("Last name"):           {},
	NormalizeQuestion("Phone country code"):  {},
	NormalizeQuestion("Mobile phone number"): {},
	NormalizeQuestion("Email address"):       {},
}

// IsContactQuestion reports whether a normalized question is one of the static
// contact fields.
func IsContactQuestion(qNorm string) bool {
	_, ok := contactQNorms[qNorm]
	return ok
}

// BuildControls normalizes raw element metadata into logical Controls:
// non-data inputs are skipped, radio members sharing a group name collapse
// into one Control, and question text is resolved through the fallback chain.
func BuildControls(raws []RawControl) []Control {
	var out []Control
	radioGroups := map[string]int{} // group name -> index into out

	for _, raw := range raws {
		if !raw.Visible {
			continue
		}
		kind, ok := controlKind(raw)
		if !ok {
			continue
		}

		if kind == KindRadio && raw.Name != "" {
			if gi, seen := radioGroups[raw.Name]; seen {
				g := &out[gi]
				g.Members = append(g.Members, raw.Index)
				// Options stays parallel to Members; an unlabeled member
				// keeps its slot.
				g.Options = append(g.Options, optionText(raw))
				if raw.Checked && g.Value == "" {
					g.Value = radioValue(raw)
				}
				if !g.Required && (raw.Required || raw.AriaInvalid) {
					g.Required = true
				}
				continue
			}
		}

		question := CleanQuestionText(stripRequiredMarker(questionText(raw, kind)))
		c := Control{
			Kind:      kind,
			Tag:       raw.Tag,
			Type:      raw.Type,
			GroupName: raw.Name,
			Required:  raw.Required || raw.AriaInvalid,
			Value:     strings.TrimSpace(raw.Value),
			Options:   append([]string(nil), raw.Options...),
			Members:   []int{raw.Index},
			Index:     raw.Index,
			Question:  question,
			QNorm:     NormalizeQuestion(question),
		}
		if kind == KindRadio {
			c.Options = []string{optionText(raw)}
			c.Value = ""
			if raw.Checked {
				c.Value = radioValue(raw)
			}
			if raw.Name != "" {
				radioGroups[raw.Name] = len(out)
			}
		}
		out = append(out, c)
	}
	return out
}

func controlKind(raw RawControl) (ControlKind, bool) {
	switch raw.Tag {
	case "textarea":
		return KindText, true
	case "select":
		return KindSelect, true
	case "input":
		switch raw.Type {
		case "hidden", "submit", "button", "image", "reset":
			return "", false
		case "radio":
			return KindRadio, true
		case "checkbox":
			return KindCheckbox, true
		case "file":
			return KindFile, true
		default:
			return KindText, true
		}
	default:
		return "", false
	}
}

// questionText resolves the best-effort question for a control through the
// ordered fallback chain: group heading, label, aria-labelledby/aria-label,
// first container text line, placeholder.
func questionText(raw RawControl, kind ControlKind) string {
	if kind == KindRadio || kind == KindCheckbox {
		if raw.GroupText != "" {
			return raw.GroupText
		}
	}
	if raw.LabelText != "" {
		return raw.LabelText
	}
	if raw.LabelledBy != "" {
		return raw.LabelledBy
	}
	if raw.AriaLabel != "" {
		return raw.AriaLabel
	}
	if line := firstLine(raw.BoxText); line != "" {
		return line
	}
	return raw.Placeholder
}

// optionText is the visible label of one radio/checkbox member.
func optionText(raw RawControl) string {
	if raw.OptionLabel != "" {
		return strings.TrimSpace(raw.OptionLabel)
	}
	return strings.TrimSpace(raw.RawValue)
}

// radioValue is the logical current value of a checked radio member.
func radioValue(raw RawControl) string {
	if v := optionText(raw); v != "" {
		return v
	}
	return "true"
}

func firstLine(text string) string {
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		// Inline validation hints are not questions.
		if strings.HasPrefix(strings.ToLower(ln), "please enter a valid answer") {
			continue
		}
		return ln
	}
	return ""
}

// RequiredEmpty filters a survey down to the controls the resolver must still
// produce values for: required, currently empty, not a file input, and not a
// static contact field. Duplicate questions are kept; every control must be
// filled individually, and only the missing payload collapses duplicates.
func RequiredEmpty(controls []Control) []Control {
	var out []Control
	for _, c := range controls {
		if c.Kind == KindFile {
			continue
		}
		if !c.Required || c.Value != "" {
			continue
		}
		if IsContactQuestion(c.QNorm) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// missingKey identifies a question for missing-payload deduplication.
func missingKey(c Control) string {
	if c.QNorm != "" {
		return c.QNorm
	}
	return strings.ToLower(c.Question)
}

// AsMissing converts a control into its needs_manual payload entry. Unlabeled
// option slots are dropped from the payload.
func AsMissing(c Control) MissingQuestion {
	options := []string{}
	for _, o := range c.Options {
		if o != "" {
			options = append(options, o)
		}
	}
	return MissingQuestion{
		Question: c.Question,
		QNorm:    c.QNorm,
		Tag:      c.Tag,
		Type:     c.Type,
		Options:  options,
	}
}

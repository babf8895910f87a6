// File: internal/engine/learn.go
package engine

import "context"

// ObservedAnswer is a (question, answer) pair harvested from a filled control.
type ObservedAnswer struct {
	Question string
	QNorm    string
	Answer   string
}

// ExtractFilledAnswers harvests question/answer pairs from the visible,
// filled controls in scope. Used after a human completes a step by hand so
// the answers can be offered to the bank for review. Contact fields and file
// inputs are excluded; only labeled, non-empty controls qualify.
func ExtractFilledAnswers(ctx context.Context, page Page, dialog bool) ([]ObservedAnswer, error) {
	raws, err := page.Controls(ctx, dialog)
	if err != nil {
		return nil, err
	}

	var out []ObservedAnswer
	for _, c := range BuildControls(raws) {
		if c.Kind == KindFile {
			continue
		}
		if c.Question == "" || c.QNorm == "" || IsContactQuestion(c.QNorm) {
			continue
		}
		if c.Value == "" {
			continue
		}
		out = append(out, ObservedAnswer{Question: c.Question, QNorm: c.QNorm, Answer: c.Value})
	}
	return out, nil
}

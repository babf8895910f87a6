// File: internal/engine/surveyor_html.go
package engine

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// SurveyHTML extracts controls and buttons from a static HTML document, e.g.
// a debug snapshot. Geometry is unavailable offline, so button coordinates
// are zero and visibility falls back to static signals (hidden attribute,
// inline display:none). Replay output therefore approximates, not reproduces,
// the live survey.
func SurveyHTML(r io.Reader) ([]RawControl, []RawButton, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot parse failed: %w", err)
	}

	labels := labelIndex(doc)
	ids := idIndex(doc)

	var controls []RawControl
	var buttons []RawButton
	var walk func(n *html.Node, group string, hidden bool)
	walk = func(n *html.Node, group string, hidden bool) {
		if n.Type == html.ElementNode {
			hidden = hidden || staticallyHidden(n)
			switch n.Data {
			case "fieldset":
				if legend := findChild(n, "legend"); legend != nil {
					group = collapseSpace(nodeText(legend))
				}
			case "input", "textarea", "select":
				controls = append(controls, rawControlFrom(n, group, hidden, labels, ids, len(controls)))
			case "button":
				buttons = append(buttons, rawButtonFrom(n, hidden, len(buttons)))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, group, hidden)
		}
	}
	walk(doc, "", false)
	return controls, buttons, nil
}

func rawControlFrom(n *html.Node, group string, hidden bool, labels map[string]string, ids map[string]*html.Node, index int) RawControl {
	typ := strings.ToLower(attr(n, "type"))
	if n.Data == "input" && typ == "" {
		typ = "text"
	}
	id := attr(n, "id")

	raw := RawControl{
		Index:       index,
		Tag:         n.Data,
		Type:        typ,
		Name:        attr(n, "name"),
		RawValue:    attr(n, "value"),
		Required:    hasAttr(n, "required") || strings.EqualFold(attr(n, "aria-required"), "true"),
		AriaInvalid: strings.EqualFold(attr(n, "aria-invalid"), "true"),
		Checked:     hasAttr(n, "checked"),
		AriaLabel:   strings.TrimSpace(attr(n, "aria-label")),
		Placeholder: strings.TrimSpace(attr(n, "placeholder")),
		LabelText:   labels[id],
		GroupText:   group,
		Accept:      attr(n, "accept"),
		Visible:     !hidden && typ != "hidden",
	}

	if by := attr(n, "aria-labelledby"); by != "" {
		var parts []string
		for _, ref := range strings.Fields(by) {
			if target, ok := ids[ref]; ok {
				if t := collapseSpace(nodeText(target)); t != "" {
					parts = append(parts, t)
				}
			}
		}
		raw.LabelledBy = strings.Join(parts, " ")
	}

	switch n.Data {
	case "select":
		for opt := n.FirstChild; opt != nil; opt = opt.NextSibling {
			if opt.Type != html.ElementNode || opt.Data != "option" {
				continue
			}
			label := collapseSpace(nodeText(opt))
			if label != "" {
				raw.Options = append(raw.Options, label)
			}
			if hasAttr(opt, "selected") {
				raw.Value = label
			}
		}
	case "textarea":
		raw.Value = strings.TrimSpace(nodeText(n))
	case "input":
		switch typ {
		case "radio", "checkbox":
			raw.OptionLabel = labels[id]
		default:
			raw.Value = strings.TrimSpace(attr(n, "value"))
		}
	}

	if box := enclosingBox(n); box != nil {
		raw.BoxText = truncate(collapseSpace(nodeText(box)), 200)
	}
	return raw
}

func rawButtonFrom(n *html.Node, hidden bool, index int) RawButton {
	_ = hidden // static snapshots cannot hide buttons by geometry
	return RawButton{
		Index:    index,
		Text:     collapseSpace(nodeText(n)),
		Aria:     strings.TrimSpace(attr(n, "aria-label")),
		TestID:   attr(n, "data-testid"),
		Class:    attr(n, "class"),
		Disabled: hasAttr(n, "disabled") || strings.EqualFold(attr(n, "aria-disabled"), "true"),
	}
}

// labelIndex maps element ids to their <label for=...> text.
func labelIndex(doc *html.Node) map[string]string {
	out := map[string]string{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "label" {
			if f := attr(n, "for"); f != "" {
				if t := collapseSpace(nodeText(n)); t != "" {
					out[f] = t
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// idIndex maps every id to its node, for aria-labelledby resolution.
func idIndex(doc *html.Node) map[string]*html.Node {
	out := map[string]*html.Node{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				out[id] = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// enclosingBox finds the nearest section/div ancestor, the same container the
// live survey reads for fallback question text.
func enclosingBox(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && (p.Data == "section" || p.Data == "div") {
			return p
		}
	}
	return n.Parent
}

func staticallyHidden(n *html.Node) bool {
	if hasAttr(n, "hidden") {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func findChild(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

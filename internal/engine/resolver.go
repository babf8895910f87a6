// File: internal/engine/resolver.go
package engine

import (
	"context"
	"fmt"
	"strings"
)

// Bank is the persisted answer-bank collaborator. Populated and maintained
// entirely outside this engine by the human-review workflow.
type Bank interface {
	Lookup(ctx context.Context, qNorm string) (answer string, ok bool, err error)
}

// Profile exposes candidate profile values (e.g. candidate.linkedin) to
// template rules.
type Profile map[string]string

// Get returns a trimmed profile value or "".
func (p Profile) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// TemplateRule maps a question matcher to a safe answer producer. Rules are
// evaluated in order; the first match wins. A rule may return "" to decline.
type TemplateRule struct {
	Name   string
	Match  func(qNorm string) bool
	Answer func(qNorm string, profile Profile) string
}

// Resolver produces values for required, empty controls through the tiered
// strategy: bank lookup, safe templates, quarantine.
type Resolver struct {
	bank       Bank
	profile    Profile
	templates  []TemplateRule
	quarantine []func(qNorm string) bool
}

// NewResolver builds a resolver with the default template table and
// quarantine set.
func NewResolver(bank Bank, profile Profile) *Resolver {
	return &Resolver{
		bank:       bank,
		profile:    profile,
		templates:  DefaultTemplates(),
		quarantine: defaultQuarantine(),
	}
}

// NewResolverWithRules builds a resolver with an injected rule table; tests
// substitute fixtures here without touching matching logic.
func NewResolverWithRules(bank Bank, profile Profile, templates []TemplateRule, quarantine []func(string) bool) *Resolver {
	return &Resolver{bank: bank, profile: profile, templates: templates, quarantine: quarantine}
}

// Quarantined reports whether a question belongs to a sensitive category the
// engine must never guess.
func (r *Resolver) Quarantined(qNorm string) bool {
	if qNorm == "" {
		return false
	}
	for _, match := range r.quarantine {
		if match(qNorm) {
			return true
		}
	}
	return false
}

// Resolve attempts to produce a value for one control. A bank entry always
// wins, including for quarantined categories. Templates never answer a
// quarantined question. Boolean-style controls only accept yes/no style
// answers; anything else is treated as missing rather than guessed.
func (r *Resolver) Resolve(ctx context.Context, c Control) (string, bool, error) {
	// Tier 1: exact bank lookup by normalized question.
	if r.bank != nil && c.QNorm != "" {
		answer, ok, err := r.bank.Lookup(ctx, c.QNorm)
		if err != nil {
			return "", false, fmt.Errorf("answer bank lookup failed: %w", err)
		}
		if ok && strings.TrimSpace(answer) != "" {
			return r.accept(c, strings.TrimSpace(answer))
		}
	}

	// Tier 3 gate before tier 2: quarantined categories must not reach the
	// template table.
	if r.Quarantined(c.QNorm) {
		return "", false, nil
	}

	// Tier 2: safe templates.
	for _, rule := range r.templates {
		if !rule.Match(c.QNorm) {
			continue
		}
		if answer := strings.TrimSpace(rule.Answer(c.QNorm, r.profile)); answer != "" {
			return r.accept(c, answer)
		}
		break
	}

	return "", false, nil
}

// accept validates an answer against the control shape.
func (r *Resolver) accept(c Control, answer string) (string, bool, error) {
	if c.Kind == KindRadio || c.Kind == KindCheckbox {
		if _, ok := ParseBoolAnswer(answer); !ok {
			return "", false, nil
		}
	}
	return answer, true, nil
}

// ParseBoolAnswer maps a normalized boolean-style answer onto yes/no.
func ParseBoolAnswer(answer string) (yes bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "true", "1":
		return true, true
	case "no", "false", "0":
		return false, true
	default:
		return false, false
	}
}

func defaultQuarantine() []func(string) bool {
	return []func(string) bool{
		// Work authorization in a specific country.
		func(q string) bool {
			return strings.Contains(q, "authorized to work") &&
				(strings.Contains(q, " us") || strings.Contains(q, "united states"))
		},
		func(q string) bool {
			return strings.Contains(q, "work in the us") && strings.Contains(q, "authorized")
		},
		// Visa sponsorship.
		func(q string) bool {
			return strings.Contains(q, "sponsorship") || strings.Contains(q, "h 1b")
		},
		// Fixed business-hours commitment.
		func(q string) bool {
			return strings.Contains(q, "us business hours")
		},
	}
}

// DefaultTemplates is the fixed table of safe, CV-grounded answers for
// recurring question families. Unknown questions fall through to missing.
func DefaultTemplates() []TemplateRule {
	return []TemplateRule{
		{
			// Never guess platform-specific experience the CV does not back.
			Name:   "wordpress_decline",
			Match:  func(q string) bool { return strings.Contains(q, "wordpress") },
			Answer: func(string, Profile) string { return "" },
		},
		{
			Name: "remote_team_experience",
			Match: func(q string) bool {
				return strings.Contains(q, "worked remotely") ||
					strings.Contains(q, "distributed team") ||
					(strings.Contains(q, "remote") && strings.Contains(q, "team"))
			},
			Answer: func(string, Profile) string {
				return "Yes. I have 5+ years of experience working in remote/distributed teams. " +
					"Most recently I worked remotely as the sole QA owner for a web marketplace and admin portal, " +
					"coordinating via Jira and CI pipelines and verifying releases end-to-end."
			},
		},
		{
			Name: "qa_tools_interest",
			Match: func(q string) bool {
				return (strings.Contains(q, "tools") || strings.Contains(q, "technologies")) &&
					(strings.Contains(q, "qa") || strings.Contains(q, "quality assurance")) &&
					(strings.Contains(q, "interesting") || strings.Contains(q, "exciting"))
			},
			Answer: func(string, Profile) string {
				return "API testing (REST/GraphQL) and auth/security testing, C#/.NET automation (NUnit/RestSharp), " +
					"CI/CD pipelines (Bitbucket Pipelines, Jenkins, GitLab CI, Docker), and pragmatic UI checks " +
					"with Playwright/Selenium for critical flows."
			},
		},
		{
			Name: "web_technologies",
			Match: func(q string) bool {
				return (strings.Contains(q, "web development") && strings.Contains(q, "technologies")) ||
					strings.Contains(q, "web technologies")
			},
			Answer: func(string, Profile) string {
				return "I mainly test web platforms and APIs. Technologies I work with include REST and GraphQL APIs, " +
					"Postman, CI/CD (Bitbucket Pipelines/Jenkins/GitLab CI), Docker, and basic SQL. " +
					"I focus on QA for web apps rather than building full web features."
			},
		},
		{
			Name: "linkedin_url",
			Match: func(q string) bool {
				return strings.Contains(q, "linkedin profile url") ||
					(strings.Contains(q, "linkedin") && strings.Contains(q, "url")) ||
					q == "linkedin"
			},
			Answer: func(_ string, p Profile) string { return p.Get("candidate.linkedin") },
		},
		{
			Name:   "years_of_experience",
			Match:  func(q string) bool { return strings.Contains(q, "how many years") },
			Answer: yearsOfExperience,
		},
		{
			Name:   "boolean_policies",
			Match:  func(q string) bool { return booleanPolicyAnswer(q) != "" },
			Answer: func(q string, _ Profile) string { return booleanPolicyAnswer(q) },
		},
	}
}

// yearsTable maps skill keywords to the honest year counts from the CV.
// Ordered: more specific keys first.
var yearsTable = []struct {
	key   string
	years string
}{
	{"manual testing", "5"},
	{"azure devops", "2"},
	{"jira", "5"},
	{"sql", "4"},
	{"postman", "5"},
	{"graphql", "3"},
	{"api", "5"},
	{"rest", "5"},
	{"selenium", "5"},
	{"c#", "5"},
	{".net", "5"},
	{"docker", "3"},
	{"linux", "2"},
	{"python", "1"},
	{"appium", "0"},
	{"wordpress", ""},
}

func yearsOfExperience(q string, _ Profile) string {
	for _, e := range yearsTable {
		if strings.Contains(q, e.key) {
			return e.years
		}
	}
	return "0"
}

// booleanPolicyAnswer covers recurring yes/no policy questions that are safe
// to answer from standing candidate policy. Sensitive categories never reach
// this table; the quarantine gate runs first.
func booleanPolicyAnswer(q string) string {
	switch {
	case strings.Contains(q, "background check"):
		return "yes"
	case strings.Contains(q, "drug test"):
		return "yes"
	case strings.Contains(q, "perform all of the essential functions"):
		return "yes"
	case strings.Contains(q, "comfortable working in a remote setting"):
		return "yes"
	case strings.Contains(q, "comfortable working in an onsite setting"):
		return "no"
	case strings.Contains(q, "comfortable working in a hybrid setting"):
		return "no"
	case strings.Contains(q, "comfortable commuting"):
		return "no"
	default:
		return ""
	}
}

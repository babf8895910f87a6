// File: internal/engine/normalize_test.go
package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuestion(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and strips punctuation",
			input:    "How many years of experience do you have with C#/.NET?",
			expected: "how many years of experience do you have with c net",
		},
		{
			name:     "collapses internal whitespace",
			input:    "  First   name \n",
			expected: "first name",
		},
		{
			name:     "near-duplicate phrasings share a key",
			input:    "Are you authorized to work in the U.S.?",
			expected: NormalizeQuestion("are you authorized to work in the US"),
		},
		{
			name:     "empty input",
			input:    "   ",
			expected: "",
		},
		{
			name:     "keeps unicode letters and digits",
			input:    "Années d'expérience: 5?",
			expected: "années d expérience 5",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeQuestion(tc.input))
		})
	}
}

func TestCleanQuestionText(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "drops duplicated adjacent lines",
			input:    "How many years of experience?\nHow many years of experience?",
			expected: "How many years of experience?",
		},
		{
			name:     "drops required boilerplate lines",
			input:    "Mobile phone number\nRequired",
			expected: "Mobile phone number",
		},
		{
			name:     "collapses whole-phrase duplication",
			input:    "Do you have experience working in a distributed remote team Do you have experience working in a distributed remote team",
			expected: "Do you have experience working in a distributed remote team",
		},
		{
			name:     "keeps short repeated halves intact",
			input:    "Yes maybe Yes maybe",
			expected: "Yes maybe Yes maybe",
		},
		{
			name:     "trims decorations",
			input:    "Email address: ",
			expected: "Email address",
		},
		{
			name:     "empty after cleanup",
			input:    "Required\nrequired",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanQuestionText(tc.input))
		})
	}
}

func TestStripRequiredMarker(t *testing.T) {
	assert.Equal(t, "First name", stripRequiredMarker("First name*"))
	assert.Equal(t, "First name", stripRequiredMarker("  First name ** "))
	assert.Equal(t, "", stripRequiredMarker("*"))
}

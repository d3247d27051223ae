// Package eval normalizes AI evaluation output into a fixed shape:
// a score in [0,1], a non-empty feedback string, and exactly three
// non-empty suggestions. Callers never need defensive checks on the
// result. The same suggestion filter is applied to fresh AI output and
// to suggestions re-read from storage so both paths behave identically.
package eval

import (
	"encoding/json"
	"strings"
)

// Result is a normalized evaluation.
type Result struct {
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// DefaultSuggestions are used to pad the suggestion list to three
// entries and as the full fallback when filtering leaves nothing.
var DefaultSuggestions = []string{
	"Focus on addressing the main points of the question",
	"Add more specific details and examples",
	"Improve the overall structure of your answer",
}

const (
	fallbackFeedback = "Your answer was evaluated, but we couldn't generate detailed feedback."
	genericFeedback  = "The answer could be improved for clarity and relevance."
	defaultScore     = 0.5
)

// deniedChars are single characters that mark a suggestion as injected
// non-target-language text or markup.
const deniedChars = "，。学生《》请你<>"

// deniedPhrases are case-insensitive substrings that mark a suggestion
// as a meta-instruction or UI directive rather than writing advice.
var deniedPhrases = []string{"script", "refresh", "student", "click"}

// filterRule is one independently testable drop condition. A
// suggestion is dropped if any rule matches.
type filterRule struct {
	name string
	drop func(s string) bool
}

var filterRules = []filterRule{
	{"blank", func(s string) bool { return strings.TrimSpace(s) == "" }},
	{"denied character", func(s string) bool { return strings.ContainsAny(s, deniedChars) }},
	{"denied phrase", func(s string) bool {
		lower := strings.ToLower(s)
		for _, p := range deniedPhrases {
			if strings.Contains(lower, p) {
				return true
			}
		}
		return false
	}},
}

// DefaultResult is the full fallback returned when the AI response is
// unusable.
func DefaultResult() Result {
	return Result{
		Score:       defaultScore,
		Feedback:    fallbackFeedback,
		Suggestions: append([]string(nil), DefaultSuggestions...),
	}
}

// rawEvaluation decodes each expected field independently so a single
// malformed field degrades to its default instead of discarding the
// whole response.
type rawEvaluation map[string]json.RawMessage

// Normalize converts a raw AI response into a Result. The returned
// bool reports whether a JSON object was actually parsed; false means
// the full default was substituted.
func Normalize(raw string) (Result, bool) {
	text, ok := ExtractJSON(raw)
	if !ok {
		return DefaultResult(), false
	}

	var fields rawEvaluation
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return DefaultResult(), false
	}

	res := Result{Score: defaultScore, Feedback: genericFeedback}

	if msg, found := fields["score"]; found {
		// Pointer target so a JSON null stays distinguishable from 0.
		var score *float64
		if err := json.Unmarshal(msg, &score); err == nil && score != nil {
			res.Score = clamp01(*score)
		}
	}

	if msg, found := fields["feedback"]; found {
		var fb string
		if err := json.Unmarshal(msg, &fb); err == nil && fb != "" {
			res.Feedback = fb
		}
	}

	res.Suggestions = normalizeSuggestions(fields["suggestions"])
	return res, true
}

func normalizeSuggestions(msg json.RawMessage) []string {
	if msg == nil {
		return append([]string(nil), DefaultSuggestions...)
	}
	// Decode item by item so one non-string entry doesn't discard the
	// rest.
	var items []json.RawMessage
	if err := json.Unmarshal(msg, &items); err != nil {
		return append([]string(nil), DefaultSuggestions...)
	}
	var suggestions []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			suggestions = append(suggestions, s)
		}
	}
	return PadSuggestions(CleanSuggestions(suggestions))
}

// CleanSuggestions applies the filter rules in order and returns the
// trimmed survivors. It never pads; use PadSuggestions for that.
func CleanSuggestions(in []string) []string {
	var out []string
next:
	for _, s := range in {
		for _, rule := range filterRules {
			if rule.drop(s) {
				continue next
			}
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// PadSuggestions truncates to the first three suggestions and, if
// fewer remain, appends defaults not already present until three are
// held or the default list is exhausted.
func PadSuggestions(in []string) []string {
	out := append([]string(nil), in...)
	if len(out) > 3 {
		out = out[:3]
	}
	for _, d := range DefaultSuggestions {
		if len(out) >= 3 {
			break
		}
		if !contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

// ParseNumbered extracts suggestion lines from the plain-text AI
// response form ("1. ...\n2. ...\n3. ..."). Unnumbered non-empty lines
// are kept as-is.
func ParseNumbered(raw string) []string {
	var suggestions []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 2 && line[0] >= '0' && line[0] <= '9' &&
			(line[1] == '.' || line[1] == ')' || line[1] == ' ') {
			line = strings.TrimSpace(line[2:])
		}
		suggestions = append(suggestions, line)
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

// ExtractJSON locates a JSON object within text that may carry
// surrounding prose or code fences. The bool reports whether a
// candidate object was found.
func ExtractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx != -1 {
		rest := text[idx+len("```json"):]
		if end := strings.LastIndex(rest, "```"); end != -1 {
			text = strings.TrimSpace(rest[:end])
		}
	} else if idx := strings.Index(text, "```"); idx != -1 {
		rest := text[idx+len("```"):]
		if end := strings.LastIndex(rest, "```"); end != -1 {
			text = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

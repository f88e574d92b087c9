// Package classify derives an urgency label and a location token from raw
// inbound message text. All functions are pure: no I/O, no shared state.
package classify

import (
	"regexp"
	"strings"
)

// Urgency labels how quickly the customer needs attention. It is a label,
// not a priority ordering.
type Urgency string

const (
	Urgent      Urgency = "Urgent"
	NeededToday Urgency = "Needed Today"
	Quote       Urgency = "Quote"
	General     Urgency = "General"
)

// LocationUnknown is the sentinel returned when no postcode is recognized.
const LocationUnknown = "Unknown"

// maxReplyLen bounds cleaned reply text for display and logging.
const maxReplyLen = 500

// Keyword sets, checked in priority order. The first matching rule wins
// regardless of where each keyword appears in the text.
var (
	urgentWords = []string{
		"emergency", "urgent", "fire", "flood", "gas", "burst",
		"sparking", "electric shock", "no heating", "no hot water", "danger",
	}
	todayWords = []string{
		"today", "asap", "as soon as", "right away", "straight away",
		"this morning", "this afternoon", "tonight",
	}
	quoteWords = []string{
		"quote", "quotation", "price", "cost", "estimate", "how much",
	}
)

// bareDigit matches a standalone 1, 2 or 3: a reply to a prior triage prompt.
var bareDigit = regexp.MustCompile(`\b([123])\b`)

// postcode recognizes a UK-style postcode, spaced or unspaced: outward code
// (1-2 letters, 1 digit, optional letter or digit) then inward code
// (1 digit, 2 letters). Input must already be upper-cased.
var postcode = regexp.MustCompile(`([A-Z]{1,2}[0-9][A-Z0-9]?) ?([0-9][A-Z]{2})`)

var whitespace = regexp.MustCompile(`\s+`)

// DetectUrgency maps message text to an urgency label using keyword
// heuristics: emergency words, then immediacy words, then pricing words,
// then a bare triage digit. Anything else is a general enquiry.
func DetectUrgency(text string) Urgency {
	lowered := strings.ToLower(text)

	if containsAny(lowered, urgentWords) {
		return Urgent
	}
	if containsAny(lowered, todayWords) {
		return NeededToday
	}
	if containsAny(lowered, quoteWords) {
		return Quote
	}
	if m := bareDigit.FindStringSubmatch(lowered); m != nil {
		switch m[1] {
		case "1":
			return Urgent
		case "2":
			return NeededToday
		case "3":
			return Quote
		}
	}
	return General
}

// ExtractLocation returns the first UK-style postcode in the text,
// normalized to "OUTWARD INWARD" spacing, or LocationUnknown.
func ExtractLocation(text string) string {
	normalized := whitespace.ReplaceAllString(strings.ToUpper(text), " ")
	m := postcode.FindStringSubmatch(normalized)
	if m == nil {
		return LocationUnknown
	}
	return m[1] + " " + m[2]
}

// CleanReply trims surrounding whitespace and truncates to 500 characters.
// The text-only channels need no further sanitization.
func CleanReply(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= maxReplyLen {
		return trimmed
	}
	return string(runes[:maxReplyLen])
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

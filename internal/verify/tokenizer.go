package verify

import (
	"regexp"
	"strconv"
	"strings"
)

// Claim is one candidate numeric claim found in specialist prose.
type Claim struct {
	Raw     string  // matched number text
	Value   float64 // parsed value, scale applied
	Scaled  bool    // whether a million/billion scale word applied
	Percent bool    // percentage claim
	Offset  int     // byte offset of the number within its segment
	Segment string  // enclosing sentence or bullet
}

// ClaimTokenizer splits an analysis into candidate numeric claims. The
// exact tokenization rules are a strategy so deployments can tighten or
// loosen what counts as a checkable claim.
type ClaimTokenizer func(analysis string) []Claim

var numberToken = regexp.MustCompile(`-?[0-9][0-9,]*(?:\.[0-9]+)?`)

// unitCues qualify a bare number as a business-metric claim when found
// within the cue window around it.
var unitCues = []string{
	"million", "billion", "mn", "bn", "qr", "qar", "usd", "$",
	"%", "percent", "percentage", "margin", "rate", "ratio",
}

// cueWindow is how far (bytes) around a number a unit cue may sit.
const cueWindow = 30

// confidencePhrase excludes percentages used as confidence statements
// rather than metric claims.
var confidencePhrase = regexp.MustCompile(`(?i)confiden\w*`)

// citationAnchor matches the inline citation format.
var citationAnchor = regexp.MustCompile(`\[Per extraction: ([^\]]*)\]`)

// DefaultTokenizer splits the analysis into segments (bullets and
// sentences), then finds numbers with an adjacent unit cue. Numbers
// inside citation anchors are not claims themselves; they are evidence.
func DefaultTokenizer(analysis string) []Claim {
	var claims []Claim
	for _, segment := range segments(analysis) {
		masked := maskAnchors(segment)
		for _, loc := range numberToken.FindAllStringIndex(masked, -1) {
			raw := segment[loc[0]:loc[1]]
			value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
			if err != nil {
				continue
			}

			window := cueWindowText(masked, loc[0], loc[1])
			cue := findCue(window)
			if cue == "" {
				continue
			}

			percent := cue == "%" || cue == "percent" || cue == "percentage"
			if percent && confidencePhrase.MatchString(window) {
				continue
			}

			scaled := false
			switch cue {
			case "billion", "bn":
				value *= 1000
				scaled = true
			case "million", "mn":
				scaled = true
			}

			claims = append(claims, Claim{
				Raw:     raw,
				Value:   value,
				Scaled:  scaled,
				Percent: percent,
				Offset:  loc[0],
				Segment: segment,
			})
		}
	}
	return claims
}

// segments splits prose into bullet lines and sentences. A bullet line is
// one segment regardless of internal punctuation.
func segments(analysis string) []string {
	var out []string
	for _, line := range strings.Split(analysis, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "•") {
			out = append(out, trimmed)
			continue
		}
		for _, sentence := range splitSentences(trimmed) {
			if sentence != "" {
				out = append(out, sentence)
			}
		}
	}
	return out
}

// splitSentences breaks on sentence-final periods, keeping decimal points
// and citation anchors intact.
func splitSentences(text string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth > 0 {
				continue
			}
			// Not a sentence end if surrounded by digits (decimal point).
			if i > 0 && i+1 < len(text) && isDigit(text[i-1]) && isDigit(text[i+1]) {
				continue
			}
			out = append(out, strings.TrimSpace(text[start:i+1]))
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// maskAnchors blanks out citation anchors so their numbers are not
// tokenized as claims, preserving offsets.
func maskAnchors(segment string) string {
	return citationAnchor.ReplaceAllStringFunc(segment, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

func cueWindowText(masked string, start, end int) string {
	lo := start - cueWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + cueWindow
	if hi > len(masked) {
		hi = len(masked)
	}
	return masked[lo:hi]
}

func findCue(window string) string {
	lower := strings.ToLower(window)
	for _, cue := range unitCues {
		if cueInWindow(lower, cue) {
			return cue
		}
	}
	return ""
}

// cueInWindow matches word cues on word boundaries, tolerating a plural
// "s", so cue fragments inside ordinary words ("autumn" contains "mn",
// "operates" contains "rate") do not qualify a number as a claim.
func cueInWindow(lower, cue string) bool {
	if cue == "$" || cue == "%" {
		return strings.Contains(lower, cue)
	}
	for from := 0; ; {
		i := strings.Index(lower[from:], cue)
		if i < 0 {
			return false
		}
		i += from
		from = i + 1

		if i > 0 && isLetter(lower[i-1]) {
			continue
		}
		rest := lower[i+len(cue):]
		if strings.HasPrefix(rest, "s") {
			rest = rest[1:]
		}
		if rest != "" && isLetter(rest[0]) {
			continue
		}
		return true
	}
}

func isLetter(b byte) bool { return b >= 'a' && b <= 'z' }
